package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/voxroute/voxroute/config"
	"github.com/voxroute/voxroute/internal/backends/deepgram"
	"github.com/voxroute/voxroute/internal/backends/elevenlabs"
	"github.com/voxroute/voxroute/internal/backends/parakeet"
	"github.com/voxroute/voxroute/internal/backends/whisper"
	"github.com/voxroute/voxroute/internal/circuitbreaker"
	"github.com/voxroute/voxroute/internal/handler"
	"github.com/voxroute/voxroute/internal/health"
	"github.com/voxroute/voxroute/internal/httpserver"
	"github.com/voxroute/voxroute/internal/metrics"
	"github.com/voxroute/voxroute/internal/provider"
	"github.com/voxroute/voxroute/internal/router"
	"github.com/voxroute/voxroute/pkg/logger"
)

func main() {
	// API keys usually live in .env during development; a missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, collector, err := buildRouter(cfg, log)
	if err != nil {
		log.Error("Failed to build provider router", slog.Any("err", err))
		os.Exit(1)
	}
	collector.Start(ctx)

	diagnostics := handler.NewDiagnosticsHandler(log, rt)
	mux := setupRouter(diagnostics, collector)

	srv, err := httpserver.New(cfg.Server.Address, mux)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("diagnostics server listening", slog.String("addr", cfg.Server.Address))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting diagnostics server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// buildRouter wires the registry, circuit breakers, health monitor, and
// metrics collector into a provider router from the loaded configuration.
func buildRouter(cfg *config.Config, log *slog.Logger) (*router.Router, *metrics.Collector, error) {
	healthTTL, err := cfg.HealthTTL()
	if err != nil {
		return nil, nil, err
	}
	healthTimeout, err := cfg.HealthTimeout()
	if err != nil {
		return nil, nil, err
	}
	recoveryTimeout, err := cfg.BreakerRecoveryTimeout()
	if err != nil {
		return nil, nil, err
	}

	resolver := provider.NewResolver(provider.Settings(cfg.Defaults), func(name string) provider.Settings {
		return provider.Settings(cfg.Provider(name))
	})
	registry := provider.NewRegistry(resolver)

	if err := registerProviders(registry, cfg); err != nil {
		return nil, nil, err
	}

	breakers := circuitbreaker.NewRegistry(
		cfg.Breaker.FailureThreshold,
		cfg.Breaker.SuccessThreshold,
		recoveryTimeout,
	)
	monitor := health.NewMonitor(registry, healthTTL, healthTimeout, log)
	collector := metrics.NewCollector(1024, log)

	return router.New(registry, breakers, monitor, collector, log), collector, nil
}

// registerProviders installs the built-in provider descriptors. Each probe
// reads live configured settings, so credentials added after startup are
// picked up without a restart.
func registerProviders(registry *provider.Registry, cfg *config.Config) error {
	settingsFor := func(name string) provider.SettingsFunc {
		return func() provider.Settings {
			merged := make(provider.Settings)
			for k, v := range cfg.Defaults {
				merged[k] = v
			}
			for k, v := range cfg.Provider(name) {
				merged[k] = v
			}
			return merged
		}
	}

	descriptors := []*provider.Descriptor{
		deepgram.Descriptor(settingsFor("deepgram")),
		elevenlabs.Descriptor(settingsFor("elevenlabs")),
		whisper.Descriptor(settingsFor("whisper")),
		parakeet.Descriptor(settingsFor("parakeet")),
	}

	for _, d := range descriptors {
		if err := registry.Register(d); err != nil {
			return err
		}
	}

	return nil
}
