// Package cli provides the initialization shared by cmd/kakeibo and
// cmd/kakeibo-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"kakeibo/internal/config"
	"kakeibo/internal/log"
)

// SetupLogger builds the process logger for component at the given LOG_LEVEL
// and installs it as the slog default. An unknown level falls back to info.
func SetupLogger(level, component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Component = component
	lvl, err := log.ParseLevel(level)
	cfg.Level = lvl
	logger := log.New(cfg)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads a .env file for local development. A missing file is not
// an error; variables already set in the environment win.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// LoadAndValidateConfig loads configuration and validates it, including the
// worker requirements when worker is set. It exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger, worker bool) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if worker {
		if err := cfg.ValidateWorker(); err != nil {
			logger.Error("Worker configuration validation failed", "error", err)
			os.Exit(1)
		}
	}
	return cfg
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
