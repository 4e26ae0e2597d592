package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/sysfeed/internal/config"
	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/logger"
	"codeberg.org/mutker/sysfeed/internal/manager"
	"codeberg.org/mutker/sysfeed/internal/metrics"
	"codeberg.org/mutker/sysfeed/internal/pid"
	"codeberg.org/mutker/sysfeed/internal/provider"
	"codeberg.org/mutker/sysfeed/internal/transport"
)

const shutdownTimeout = 10 * time.Second

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.IsDebug(), cfg.IsVerbose(), logger.IsService())
	applyLogLevel(cfg.GetLogLevel())
	logger.Debug().Str("file", cfg.File()).Msg("Config loaded")
}

func main() {
	if err := pid.Write(cfg.GetPIDFile()); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.FatalWithCode(appErr).Str("path", cfg.GetPIDFile()).Msg("Failed to write PID file")
		} else {
			logger.Fatal().Err(err).Str("path", cfg.GetPIDFile()).Msg("Failed to write PID file")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	exitCode := 0
	if err := run(ctx); err != nil {
		logger.Error().Err(err).Msg("Error in main loop")
		exitCode = 1
	}

	cleanup()
	os.Exit(exitCode)
}

func run(ctx context.Context) error {
	collector := metrics.NewService(metrics.DefaultConfig())
	hub := transport.NewHub(cfg.GetSendQueue())

	factory := provider.NewFactory(provider.Deps{
		HTTPClient:      &http.Client{Timeout: cfg.GetRefreshTimeout()},
		IPEndpoint:      cfg.GetIPEndpoint(),
		WeatherEndpoint: cfg.GetWeatherEndpoint(),
	})

	providers := manager.New(
		manager.WithDispatcher(hub),
		manager.WithFactory(factory),
		manager.WithMetrics(collector),
		manager.WithRefreshTimeout(cfg.GetRefreshTimeout()),
	)

	if path := cfg.File(); path != "" {
		go watchConfig(ctx, path)
	}

	server := transport.NewServer(providers, hub,
		transport.WithMetrics(collector),
		transport.WithOperationTimeout(cfg.GetRefreshTimeout()),
	)
	serveErr := server.ListenAndServe(ctx, cfg.GetListen())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Providers did not stop in time")
	}

	return serveErr
}

func watchConfig(ctx context.Context, path string) {
	err := config.Watch(ctx, path, func(next config.Provider) {
		applyLogLevel(next.GetLogLevel())
		if next.GetListen() != cfg.GetListen() {
			logger.Warn().Str("listen", next.GetListen()).Msg("Listen address changed, restart to apply")
		}
		logger.Info().Str("file", path).Msg("Config reloaded")
	})
	if err != nil {
		logger.Warn().Err(err).Str("file", path).Msg("Config watch stopped")
	}
}

// applyLogLevel sets the level from log_level. The --debug and --verbose
// flags given at startup win, including over reloaded files.
func applyLogLevel(name string) {
	level, err := logger.ResolveLevel(name, cfg.IsDebug(), cfg.IsVerbose())
	if err != nil {
		logger.Warn().Err(err).Msg("Keeping default log level")
	}

	logger.SetLogLevel(level)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup() {
	if err := pid.Remove(cfg.GetPIDFile()); err != nil {
		logger.Error().Err(err).Msg("Failed to remove PID file")
	}
	logger.Info().Msg("Exiting...")
}
