package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds HTTP listener configuration. Port 0 means scan
// for a free one starting at ScanStart.
type ServerConfig struct {
	Host         string
	Port         int
	ScanStart    int
	ScanAttempts int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// PrintConfig drives image fitting and temp hygiene.
type PrintConfig struct {
	DPI             int
	MarginMM        float64
	CleanupInterval time.Duration
	CleanupMaxAge   time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Server  ServerConfig
	Logging LoggingConfig
	Axiom   AxiomConfig
	Print   PrintConfig
}

// FromEnv loads configuration from the environment with sensible
// defaults. A .env file in the working directory is read first when
// present; real environment variables win over it.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{}

	cfg.Server = ServerConfig{
		Host:         getEnv("HOST", "127.0.0.1"),
		Port:         parseInt(getEnv("PORT", ""), 0),
		ScanStart:    parseInt(getEnv("PORT_SCAN_START", "6789"), 6789),
		ScanAttempts: parseInt(getEnv("PORT_SCAN_ATTEMPTS", "100"), 100),
		ReadTimeout:  parseDuration(getEnv("HTTP_READ_TIMEOUT", "5m"), 5*time.Minute),
		WriteTimeout: parseDuration(getEnv("HTTP_WRITE_TIMEOUT", "5m"), 5*time.Minute),
	}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/printagent.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_printagent",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Print = PrintConfig{
		DPI:             parseInt(getEnv("PRINT_DPI", "300"), 300),
		MarginMM:        parseFloat(getEnv("PRINT_MARGIN_MM", "10"), 10),
		CleanupInterval: parseDuration(getEnv("TEMP_CLEANUP_INTERVAL", "30m"), 30*time.Minute),
		CleanupMaxAge:   parseDuration(getEnv("TEMP_CLEANUP_MAX_AGE", "2h"), 2*time.Hour),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
