// Package cli provides common CLI initialization utilities shared by the
// hhsfinance subcommands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"hhsfinance/internal/config"
	applog "hhsfinance/internal/log"
	"hhsfinance/internal/storage"
)

// SetupLogger initializes structured logging at the given level and sets
// it as the default logger. One-shot commands log to stderr so their
// stdout stays machine readable.
func SetupLogger(level string, out io.Writer) *applog.Logger {
	if out == nil {
		out = os.Stderr
	}
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Component: applog.ComponentCLI,
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig(logger *applog.Logger) (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		return nil, err
	}
	return cfg, nil
}

// OpenStore opens the SQLite store at dbPath and applies migrations.
func OpenStore(logger *applog.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath)
		return nil, fmt.Errorf("open store: %w", err)
	}
	return repo, nil
}

// GracefulShutdown returns a context that is cancelled on SIGINT or
// SIGTERM. Callers run their own cleanup once it is done.
func GracefulShutdown(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

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
