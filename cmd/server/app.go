package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskwell/taskwell-api/internal/config"
	"github.com/taskwell/taskwell-api/internal/platform/postgres"
	"github.com/taskwell/taskwell-api/internal/scheduler"
	"github.com/taskwell/taskwell-api/internal/service"
	"github.com/taskwell/taskwell-api/internal/service/auth"
	"github.com/taskwell/taskwell-api/internal/store"
)

// application holds the wired dependency graph for the server process.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	taskStore    store.TaskStore
	historyStore store.HistoryStore
	jobStore     scheduler.JobStore

	// Service interfaces
	jwtService     auth.JWTService
	taskService    service.TaskService
	historyService service.HistoryService

	// Background job handling
	scheduler *scheduler.Scheduler
}

// newApplication creates an application instance with all dependencies
// initialized. Core dependencies — configuration, logger, and database
// connection — must already be established.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.historyStore = postgres.NewPostgresHistoryStore(db, logger)
	app.jobStore = postgres.NewPostgresJobStore(db, logger)

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	app.jwtService = jwtService

	transactioner := &store.SQLTransactioner{DB: db}

	historyService, err := service.NewHistoryService(
		app.historyStore,
		app.taskStore,
		transactioner,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create history service: %w", err)
	}
	app.historyService = historyService

	app.scheduler = scheduler.New(
		app.jobStore,
		&scheduler.LogSink{Logger: logger},
		historyService,
		scheduler.Config{
			PollInterval:   time.Duration(cfg.Scheduler.PollIntervalSeconds) * time.Second,
			CleanupHourUTC: cfg.Scheduler.CleanupHourUTC,
		},
		logger,
	)

	taskService, err := service.NewTaskService(
		app.taskStore,
		app.historyStore,
		app.scheduler,
		transactioner,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	app.taskService = taskService

	if err := app.scheduler.ScheduleRetentionCleanup(); err != nil {
		return nil, fmt.Errorf("failed to schedule retention cleanup: %w", err)
	}
	app.scheduler.Start()

	logger.Info("Application initialized")
	return app, nil
}

// cleanup stops background work before the process exits.
func (app *application) cleanup() {
	app.scheduler.Stop()
}
