package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	cfgpkg "github.com/oukek/printagent/internal/config"
	"github.com/oukek/printagent/internal/jobs"
	logpkg "github.com/oukek/printagent/internal/logger"
	"github.com/oukek/printagent/internal/metrics"
	"github.com/oukek/printagent/internal/platform"
	"github.com/oukek/printagent/internal/printing"
	"github.com/oukek/printagent/internal/raster"
	"github.com/oukek/printagent/internal/statuscheck"
	"github.com/oukek/printagent/internal/web"
)

func main() {
	outputPort := flag.Bool("output-port", false, "print the chosen port as PORT:<n> on stdout")
	flag.Parse()

	cfg := cfgpkg.FromEnv()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	plat := platform.Current()
	backend, err := printing.ForPlatform(plat)
	if err != nil {
		// Keep serving so /app/status and the error envelopes stay
		// reachable; every print call reports not-supported.
		log.Error().Err(err).Str("platform", string(plat)).Msg("no printing backend for this platform")
		backend = printing.Unsupported()
	}

	renderer := raster.NewFitzRenderer()
	runner := jobs.New(jobs.Dependencies{
		Backend:  backend,
		Renderer: renderer,
		DPI:      cfg.Print.DPI,
		MarginMM: cfg.Print.MarginMM,
	})

	checker := statuscheck.New(statuscheck.Options{
		Platform: plat,
		Backend:  backend,
		Renderer: renderer,
	})

	// Background sweep for temp files orphaned by crashes.
	cleanupStop := make(chan struct{})
	jobs.StartCleanupLoop(cfg.Print.CleanupInterval, cfg.Print.CleanupMaxAge, cleanupStop)
	defer close(cleanupStop)

	shutdownCh := make(chan struct{})
	srvHandler := web.New(web.Options{
		Backend:  backend,
		Runner:   runner,
		Checker:  checker,
		Platform: plat,
		Shutdown: func() { close(shutdownCh) },
	})
	mux := http.NewServeMux()
	srvHandler.RegisterRoutes(mux)

	ln, port, err := listen(cfg.Server)
	if err != nil {
		log.Fatal().Err(err).Msg("no usable port")
	}

	// Launchers parse this line to find the service.
	if *outputPort {
		fmt.Printf("PORT:%d\n", port)
	}

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("host", cfg.Server.Host).Int("port", port).Str("platform", string(plat)).
			Msg("printer service listening")
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Stop on a signal or on the shutdown endpoint.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-shutdownCh:
		log.Info().Msg("shutdown requested over HTTP")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info().Msg("shutdown complete")
}

// listen binds the configured port, or scans upward from ScanStart for
// the first free one when no port is forced.
func listen(cfg cfgpkg.ServerConfig) (net.Listener, int, error) {
	if cfg.Port > 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
		if err != nil {
			return nil, 0, fmt.Errorf("bind port %d: %w", cfg.Port, err)
		}
		return ln, cfg.Port, nil
	}

	for i := 0; i < cfg.ScanAttempts; i++ {
		port := cfg.ScanStart + i
		ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, port))
		if err == nil {
			return ln, port, nil
		}
	}
	return nil, 0, fmt.Errorf("no free port in %d..%d", cfg.ScanStart, cfg.ScanStart+cfg.ScanAttempts-1)
}
