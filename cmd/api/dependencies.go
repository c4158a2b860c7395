package main

import (
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/handler"
	"github.com/FACorreiaa/statement-extractor/internal/domain/payments/service"

	"github.com/FACorreiaa/statement-extractor/pkg/config"
	"github.com/FACorreiaa/statement-extractor/pkg/cron"
	"github.com/FACorreiaa/statement-extractor/pkg/observability"
	"github.com/FACorreiaa/statement-extractor/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	Metrics     *observability.Metrics
	FileStorage storage.Storage
	Scheduler   *cron.Scheduler

	ExtractionService *service.ExtractionService
	ExtractionHandler *handler.ExtractionHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initStorage opens the run store and its retention job
func (d *Dependencies) initStorage() error {
	fileStorage, err := storage.New(&storage.Config{LocalPath: d.Config.Storage.LocalPath})
	if err != nil {
		return err
	}
	d.FileStorage = fileStorage

	d.Scheduler = cron.NewScheduler(fileStorage, d.Config.Storage.Retention, d.Config.Storage.RetentionSchedule, d.Logger)

	d.Logger.Info("run storage ready", slog.String("path", d.Config.Storage.LocalPath))
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	if d.Config.Observability.MetricsEnabled {
		d.Metrics = observability.NewMetrics()
	}

	d.ExtractionService = service.NewExtractionService(d.Logger, d.Config.Extract.Workers).
		WithStorage(d.FileStorage).
		WithMetrics(d.Metrics)

	d.Logger.Info("services initialized", slog.Int("workers", d.Config.Extract.Workers))
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.ExtractionHandler = handler.NewExtractionHandler(d.ExtractionService, d.Logger, d.Config.Server.MaxUploadBytes())

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup stops background jobs
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	d.Logger.Info("cleanup completed")
}
