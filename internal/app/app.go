package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"CameraUpdates/internal/config"
	"CameraUpdates/internal/dedup"
	"CameraUpdates/internal/domain"
	"CameraUpdates/internal/extract"
	"CameraUpdates/internal/infrastructure/fetcher"
	"CameraUpdates/internal/infrastructure/parser"
	"CameraUpdates/internal/infrastructure/scheduler"
	"CameraUpdates/internal/infrastructure/storage"
	"CameraUpdates/internal/infrastructure/telegram"
	"CameraUpdates/internal/logging"
	"CameraUpdates/internal/ports"
	"CameraUpdates/internal/quality"
	"CameraUpdates/internal/scanner"
	"CameraUpdates/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	repo       *storage.SQLRepository
	notifier   ports.Notifier
	aggregator *usecase.Aggregator
	brands     []scanner.Brand
	sync       *usecase.Sync
}

// New opens storage and builds the whole pipeline from cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	repo, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	registry := scanner.NewRegistry(parser.NewHTMLScanner(), parser.NewFeedScanner())
	resolver := parser.NewResolver(registry, baseLogger.With("component", "resolver"))

	httpFetcher := fetcher.New(nil, fetcher.Options{
		Timeout:    cfg.Fetcher.Timeout,
		Attempts:   cfg.Fetcher.Attempts,
		RetryDelay: cfg.Fetcher.RetryDelay,
		Logger:     baseLogger.With("component", "fetcher"),
	})

	validator := quality.NewValidator(quality.Thresholds{
		MinWordRatio:    cfg.Thresholds.WordRatio,
		MaxSpecialRatio: cfg.Thresholds.SpecialRatio,
		MinScore:        cfg.Thresholds.MinScore,
	})
	deduplicator := dedup.New(validator, cfg.Thresholds.Similarity)

	pipeline := usecase.NewBrandPipeline(usecase.BrandPipelineDeps{
		Resolver:     resolver,
		Fetcher:      httpFetcher,
		Extractor:    extract.New(validator),
		Validator:    validator,
		Dedup:        deduplicator,
		RequestDelay: cfg.Fetcher.RequestDelay,
		Logger:       baseLogger.With("component", "pipeline"),
	})

	aggregator := usecase.NewAggregator(usecase.AggregatorDeps{
		Pipeline:   pipeline,
		Dedup:      deduplicator,
		RunTimeout: cfg.Fetcher.RunTimeout,
		Logger:     baseLogger.With("component", "aggregator"),
	})

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		n, err := telegram.Dial(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
		if err != nil {
			baseLogger.Warn("telegram disabled", "error", err)
		} else {
			notifier = n
		}
	}

	a := &Application{
		cfg:        cfg,
		logger:     baseLogger,
		repo:       repo,
		notifier:   notifier,
		aggregator: aggregator,
		brands:     cfg.ScannerBrands(),
	}
	a.sync = a.newSync(a.brands)
	return a, nil
}

func (a *Application) newSync(brands []scanner.Brand) *usecase.Sync {
	return usecase.NewSync(usecase.SyncDeps{
		Aggregator: a.aggregator,
		Repository: a.repo,
		Notifier:   a.notifier,
		Brands:     brands,
		Logger:     a.logger.With("component", "sync"),
	})
}

// OnlyBrand restricts the run to one configured brand (case-insensitive).
func (a *Application) OnlyBrand(name string) error {
	for _, b := range a.brands {
		if strings.EqualFold(b.Name, name) {
			a.sync = a.newSync([]scanner.Brand{b})
			return nil
		}
	}
	return fmt.Errorf("brand %q is not configured", name)
}

// RunOnce performs a single sync in the scheduler timezone.
func (a *Application) RunOnce(ctx context.Context) (usecase.SyncReport, error) {
	now := time.Now().In(a.cfg.Scheduler.Location())
	return a.sync.Run(ctx, now)
}

// Serve runs syncs on the cron schedule until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	driver, err := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, scheduler.Options{
		Location:       a.cfg.Scheduler.Location(),
		RunImmediately: a.cfg.Scheduler.RunOnStart,
		Logger:         a.logger.With("component", "scheduler"),
	})
	if err != nil {
		return err
	}

	sched := usecase.NewScheduler(driver, a.sync, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

// List returns stored updates.
func (a *Application) List(ctx context.Context, filter ports.UpdateFilter) ([]domain.CameraUpdate, error) {
	return a.repo.List(ctx, filter)
}

// Close releases storage.
func (a *Application) Close() error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Close()
}
