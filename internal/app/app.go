// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/marknadsdata/insider-crawler/internal/config"
	"github.com/marknadsdata/insider-crawler/internal/crawl"
	"github.com/marknadsdata/insider-crawler/internal/logging"
	"github.com/marknadsdata/insider-crawler/internal/warehouse"
)

// App holds the shared, long-lived services for the application: the
// logger, the loaded configuration, and the pipeline stage records flow
// into. It is initialized once at startup and handed to the commands.
type App struct {
	logger *zap.Logger
	cfg    config.Config
	stage  crawl.Stage
	writer *warehouse.Writer
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetStage returns the pipeline stage the crawl writes records into.
func (a *App) GetStage() crawl.Stage {
	return a.stage
}

// GetWriter returns the Postgres writer, or nil when the configured
// database provider is not postgres. Commands that need schema access
// (initdb) use this instead of the generic stage.
func (a *App) GetWriter() *warehouse.Writer {
	return a.writer
}

// NewApp creates and initializes a new App from the given config file path.
// It is the central point for service initialization and fails fast if any
// critical service cannot be built.
func NewApp(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	logger.Info("Initializing application services...")

	a := &App{logger: logger, cfg: cfg}

	switch cfg.Database.Provider {
	case "postgres":
		logger.Info("Using Postgres warehouse writer")
		writer, err := warehouse.NewWriter(ctx, warehouse.Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: time.Duration(cfg.Database.ConnLifetimeMinute) * time.Minute,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize warehouse: %w", err)
		}
		a.writer = writer
		a.stage = writer
	case "noop":
		logger.Info("Using No-Op writer. Records will be discarded.")
		a.stage = warehouse.NewNoOpWriter(logger)
	default:
		return nil, fmt.Errorf("unknown database provider: %s", cfg.Database.Provider)
	}

	logger.Info("Application services initialized successfully.")
	return a, nil
}

// Close gracefully shuts down the services in the App container. It is
// called by a Cobra hook after the command finishes execution.
func (a *App) Close() {
	a.logger.Info("Shutting down application services...")
	if a.writer != nil {
		if err := a.writer.Close(); err != nil {
			a.logger.Warn("Error closing warehouse writer", zap.Error(err))
		}
	}
	// Best effort: logging itself may be the thing failing here.
	_ = a.logger.Sync()
}
