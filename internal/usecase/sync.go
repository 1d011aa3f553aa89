package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"CameraUpdates/internal/domain"
	"CameraUpdates/internal/ports"
	"CameraUpdates/internal/scanner"
)

const maxSummaryItems = 10

// RunAggregator produces one aggregation result for the given run date.
type RunAggregator interface {
	RunAt(ctx context.Context, brands []scanner.Brand, ranAt time.Time) domain.RunResult
}

// SyncDeps wires the sync use case.
type SyncDeps struct {
	Aggregator RunAggregator
	Repository ports.UpdateRepository
	Notifier   ports.Notifier
	Brands     []scanner.Brand
	Logger     *slog.Logger
}

// SyncReport summarizes one sync run.
type SyncReport struct {
	RunID     string
	RanAt     time.Time
	NoNewData bool
	Found     int
	Stats     ports.UpsertStats
	Skips     map[domain.SkipReason]int
}

// Sync runs the aggregator, persists its output and announces the result.
type Sync struct {
	aggregator RunAggregator
	repository ports.UpdateRepository
	notifier   ports.Notifier
	brands     []scanner.Brand
	logger     *slog.Logger
}

// NewSync constructs the sync use case.
func NewSync(deps SyncDeps) *Sync {
	return &Sync{
		aggregator: deps.Aggregator,
		repository: deps.Repository,
		notifier:   deps.Notifier,
		brands:     deps.Brands,
		logger:     deps.Logger,
	}
}

// Run performs one sync for day. On the no-new-data sentinel storage is
// left untouched; only persistence failures are returned.
func (s *Sync) Run(ctx context.Context, day time.Time) (SyncReport, error) {
	if s.aggregator == nil {
		return SyncReport{}, fmt.Errorf("sync: aggregator is not configured")
	}

	result := s.aggregator.RunAt(ctx, s.brands, day)
	report := SyncReport{
		RunID:     result.RunID,
		RanAt:     result.RanAt,
		NoNewData: !result.HasNewData(),
		Found:     len(result.Updates),
		Skips:     result.CountSkips(),
	}

	if report.NoNewData {
		s.info("no new data", "run_id", report.RunID, "skips", len(result.Skips))
		s.notify(ctx, formatNoNewData(report))
		return report, nil
	}

	if s.repository != nil {
		stats, err := s.repository.Upsert(ctx, result.Updates)
		if err != nil {
			return report, fmt.Errorf("persist run %s: %w", report.RunID, err)
		}
		report.Stats = stats
	}

	s.info("sync finished",
		"run_id", report.RunID,
		"count", report.Found,
		"inserted", report.Stats.Inserted,
		"updated", report.Stats.Updated,
		"skipped", report.Stats.Skipped)
	s.notify(ctx, formatSummary(report, result.Updates))
	return report, nil
}

func (s *Sync) notify(ctx context.Context, text string) {
	if s.notifier == nil || text == "" {
		return
	}
	if err := s.notifier.PublishSummary(ctx, text); err != nil {
		s.warn("notification failed", "error", err)
	}
}

func (s *Sync) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Sync) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func formatNoNewData(r SyncReport) string {
	return fmt.Sprintf("Camera updates %s: no new data available, stored updates kept.", r.RanAt.Format("2006-01-02 15:04"))
}

func formatSummary(r SyncReport, updates []domain.CameraUpdate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Camera updates %s: %d found, %d new, %d updated, %d unchanged\n",
		r.RanAt.Format("2006-01-02 15:04"), r.Found, r.Stats.Inserted, r.Stats.Updated, r.Stats.Skipped)

	for i, u := range updates {
		if i == maxSummaryItems {
			fmt.Fprintf(&b, "... and %d more\n", len(updates)-maxSummaryItems)
			break
		}
		fmt.Fprintf(&b, "- [%s/%s] %s", u.Brand, u.Type, u.Title)
		if u.Version != "" {
			fmt.Fprintf(&b, " (v%s)", u.Version)
		}
		fmt.Fprintf(&b, " %s\n", u.Date.Format("2006-01-02"))
	}
	return strings.TrimRight(b.String(), "\n")
}
