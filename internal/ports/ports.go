package ports

import (
	"context"
	"time"

	"CameraUpdates/internal/domain"
)

// PageFetcher retrieves raw HTML (or feed) bytes for a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// UpsertStats summarizes a change-aware upsert.
type UpsertStats struct {
	Inserted int
	Updated  int
	Skipped  int
}

// SortField selects the ordering of listed updates.
type SortField string

const (
	SortByDate     SortField = "date"
	SortByPriority SortField = "priority"
)

// UpdateFilter narrows stored updates for listing.
type UpdateFilter struct {
	Brand  string
	Type   domain.UpdateType
	Search string
	From   time.Time
	To     time.Time
	SortBy SortField
	Limit  int
}

// UpdateRepository persists camera updates keyed by their deterministic id.
type UpdateRepository interface {
	Upsert(ctx context.Context, updates []domain.CameraUpdate) (UpsertStats, error)
	List(ctx context.Context, filter UpdateFilter) ([]domain.CameraUpdate, error)
}

// Notifier publishes run summaries to an operator channel.
type Notifier interface {
	PublishSummary(ctx context.Context, text string) error
}

// Scheduler controls when sync runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
