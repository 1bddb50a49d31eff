package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 0, cfg.Server.Port)
	assert.Equal(t, 6789, cfg.Server.ScanStart)
	assert.Equal(t, 100, cfg.Server.ScanAttempts)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 300, cfg.Print.DPI)
	assert.Equal(t, 10.0, cfg.Print.MarginMM)
	assert.Equal(t, 2*time.Hour, cfg.Print.CleanupMaxAge)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("PRINT_DPI", "600")
	t.Setenv("PRINT_MARGIN_MM", "5.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := FromEnv()
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 600, cfg.Print.DPI)
	assert.Equal(t, 5.5, cfg.Print.MarginMM)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestFromEnvBadValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("PRINT_DPI", "many")
	t.Setenv("TEMP_CLEANUP_MAX_AGE", "eventually")

	cfg := FromEnv()
	assert.Equal(t, 0, cfg.Server.Port)
	assert.Equal(t, 300, cfg.Print.DPI)
	assert.Equal(t, 2*time.Hour, cfg.Print.CleanupMaxAge)
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		assert.Truef(t, parseBool(v), "%q", v)
	}
	for _, v := range []string{"0", "false", "", "off"} {
		assert.Falsef(t, parseBool(v), "%q", v)
	}
}
