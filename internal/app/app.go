// Package app wires configuration to the pipeline components and owns the
// process lifecycle: seeding, scheduler start, HTTP listener and shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"intelpipeline/internal/api"
	"intelpipeline/internal/config"
	"intelpipeline/internal/infrastructure/mail"
	"intelpipeline/internal/infrastructure/publish"
	"intelpipeline/internal/infrastructure/remote"
	"intelpipeline/internal/infrastructure/scheduler"
	"intelpipeline/internal/infrastructure/scraper"
	"intelpipeline/internal/infrastructure/storage"
	"intelpipeline/internal/logging"
	"intelpipeline/internal/ports"
	"intelpipeline/internal/usecase"
	"intelpipeline/internal/usage"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	orch    *usecase.Orchestrator
	tracker *usage.Tracker
	cron    ports.Scheduler
	server  *http.Server
	closers []func() error
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	store, err := a.buildStore(ctx)
	if err != nil {
		return nil, err
	}

	a.tracker = usage.NewTracker(logging.Component(baseLogger, "usage"))
	source, err := a.buildSource()
	if err != nil {
		return nil, err
	}

	var notifier ports.Notifier
	if cfg.Notifications.Email != "" {
		notifier = mail.NewSMTPNotifier(cfg.Notifications.SMTP)
	}

	orch, err := usecase.NewOrchestrator(usecase.Deps{
		Store:       store,
		Source:      source,
		Publisher:   publish.NewStorePublisher(store, logging.Component(baseLogger, "publisher")),
		Notifier:    notifier,
		Usage:       a.tracker,
		Logger:      logging.Component(baseLogger, "orchestrator"),
		Relevance:   cfg.Relevance,
		NotifyEmail: cfg.Notifications.Email,
		Seeds:       cfg.Companies,
	})
	if err != nil {
		return nil, err
	}
	a.orch = orch

	a.cron = scheduler.NewCronScheduler()
	if err := orch.RegisterSchedules(a.cron, cfg.Schedules); err != nil {
		return nil, err
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.RegisterRoutes(router, api.NewHandler(orch, func() any { return a.tracker.Summarize() }))

	a.server = &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	return a, nil
}

// Run seeds the company dataset, starts the scheduler and serves HTTP until
// ctx is cancelled, then shuts both down.
func (a *Application) Run(ctx context.Context) error {
	if err := a.orch.SeedCompanies(ctx); err != nil {
		a.logger.Warn("company seeding failed", "err", err)
	}

	a.cron.Start()
	a.logger.Info("scheduler started")

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listener started", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http listener: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.cron.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "err", err)
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "err", err)
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("close", "err", err)
		}
	}

	summary := a.tracker.Reset()
	a.logger.Info("run summary", "api_calls", summary.TotalAPICalls, "tokens", summary.TotalTokens)
	return nil
}

func (a *Application) buildStore(ctx context.Context) (ports.RecordStore, error) {
	retention := a.cfg.Retention
	maxAge := time.Duration(retention.LogMaxAgeDays) * 24 * time.Hour

	switch a.cfg.Storage.Driver {
	case "", "memory":
		return storage.NewMemoryStore(retention.MaxLogEntries, maxAge), nil
	case "postgres":
		store, err := storage.NewPostgresStore(ctx, a.cfg.Storage.DSN, retention.MaxLogEntries, maxAge)
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "redis":
		store, err := storage.NewRedisStore(ctx, a.cfg.Storage.RedisURL, retention.MaxLogEntries, maxAge)
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", a.cfg.Storage.Driver)
	}
}

func (a *Application) buildSource() (ports.IntelligenceSource, error) {
	switch a.cfg.Provider.Mode {
	case "", "api":
		return remote.NewClient(a.cfg.Provider, a.tracker), nil
	case "scrape":
		return scraper.NewNewsScraper(nil, a.cfg.Provider.Scrape, a.cfg.Relevance), nil
	default:
		return nil, fmt.Errorf("unknown provider mode %q", a.cfg.Provider.Mode)
	}
}
