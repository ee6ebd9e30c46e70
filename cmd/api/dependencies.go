package main

import (
	"fmt"
	"log/slog"
	"time"

	exportdomain "github.com/estoque-labs/estoque-api/internal/domain/export"
	uploadhandler "github.com/estoque-labs/estoque-api/internal/domain/upload/handler"
	uploadrepo "github.com/estoque-labs/estoque-api/internal/domain/upload/repository"
	uploadservice "github.com/estoque-labs/estoque-api/internal/domain/upload/service"

	"github.com/estoque-labs/estoque-api/pkg/config"
	"github.com/estoque-labs/estoque-api/pkg/cron"
	"github.com/estoque-labs/estoque-api/pkg/db"
	"github.com/estoque-labs/estoque-api/pkg/metrics"
	"github.com/estoque-labs/estoque-api/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	Metrics     *metrics.UploadMetrics
	FileStorage storage.Storage
	Scheduler   *cron.Scheduler

	// Repositories
	UploadRepo uploadrepo.UploadRepository

	// Services
	UploadService *uploadservice.UploadService
	ExportService *exportdomain.ExportService

	// Handlers
	UploadHandler *uploadhandler.UploadHandler
	ExportHandler *exportdomain.ExportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	// Initialize services
	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.UploadRepo = uploadrepo.NewPostgresUploadRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	d.Metrics = metrics.New()

	// Raw-file archive for uploaded spreadsheets
	fileStorage, err := storage.New(&storage.Config{
		LocalPath: d.Config.Upload.StoragePath,
	})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	d.UploadService = uploadservice.NewUploadService(d.UploadRepo, d.FileStorage, d.Metrics, d.Logger)
	d.ExportService = exportdomain.NewExportService(d.UploadRepo)

	// Nightly retention purge for the job log and archived files
	d.Scheduler = cron.NewScheduler(d.UploadService, d.Config.Upload.Retention, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.UploadHandler = uploadhandler.NewUploadHandler(d.UploadService, d.Config.Upload.MaxBytes, d.Logger)
	d.ExportHandler = exportdomain.NewExportHandler(d.ExportService, d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
