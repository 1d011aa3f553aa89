package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CameraUpdates/internal/domain"
	"CameraUpdates/internal/ports"
)

func openTestRepo(t *testing.T) *SQLRepository {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "updates.db")
	repo, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sample(id, brand string, typ domain.UpdateType, day int, priority domain.Priority) domain.CameraUpdate {
	return domain.CameraUpdate{
		ID:          id,
		Brand:       brand,
		Type:        typ,
		Title:       brand + " " + id,
		Date:        time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		Version:     "1.0",
		Description: "Stability improvements for autofocus tracking and battery reporting.",
		Features:    []string{"Improved eye detection autofocus", "Fixed battery level reporting"},
		SourceURL:   "https://example.com/" + id,
		SourceName:  "example.com",
		Priority:    priority,
		Category:    "Firmware",
	}
}

func TestUpsertInsertsThenSkipsUnchanged(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()
	u := sample("canon-fir-r5", "Canon", domain.TypeFirmware, 14, domain.PriorityHigh)

	stats, err := repo.Upsert(ctx, []domain.CameraUpdate{u})
	require.NoError(t, err)
	assert.Equal(t, ports.UpsertStats{Inserted: 1}, stats)

	stats, err = repo.Upsert(ctx, []domain.CameraUpdate{u})
	require.NoError(t, err)
	assert.Equal(t, ports.UpsertStats{Skipped: 1}, stats)

	stored, err := repo.List(ctx, ports.UpdateFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, u, stored[0])
}

func TestUpsertUpdatesChangedRecords(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()
	u := sample("nikon-fir-z8", "Nikon", domain.TypeFirmware, 2, domain.PriorityNormal)
	_, err := repo.Upsert(ctx, []domain.CameraUpdate{u})
	require.NoError(t, err)

	u.Description = "Adds pre-release capture and fixes a rare lockup when recording video."
	stats, err := repo.Upsert(ctx, []domain.CameraUpdate{u})
	require.NoError(t, err)
	assert.Equal(t, ports.UpsertStats{Updated: 1}, stats)

	stored, err := repo.List(ctx, ports.UpdateFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, u.Description, stored[0].Description)
}

func TestUpsertIgnoresFeatureOrder(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()
	u := sample("sony-fir-a7", "Sony", domain.TypeFirmware, 5, domain.PriorityNormal)
	_, err := repo.Upsert(ctx, []domain.CameraUpdate{u})
	require.NoError(t, err)

	u.Features = []string{u.Features[1], u.Features[0]}
	stats, err := repo.Upsert(ctx, []domain.CameraUpdate{u})
	require.NoError(t, err)
	assert.Equal(t, ports.UpsertStats{Skipped: 1}, stats)
}

func TestUpsertCountsRepeatedIDsOnce(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	u := sample("fuji-cam-x100", "Fujifilm", domain.TypeCamera, 9, domain.PriorityHigh)

	stats, err := repo.Upsert(context.Background(), []domain.CameraUpdate{u, u})
	require.NoError(t, err)
	assert.Equal(t, ports.UpsertStats{Inserted: 1, Skipped: 1}, stats)
}

func TestListFiltersAndSorts(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()
	lens := sample("canon-len-rf50", "Canon", domain.TypeLens, 20, domain.PriorityNormal)
	lens.Title = "Canon RF 50mm F1.4 Lens"
	_, err := repo.Upsert(ctx, []domain.CameraUpdate{
		sample("canon-fir-r5", "Canon", domain.TypeFirmware, 14, domain.PriorityCritical),
		lens,
		sample("nikon-fir-z8", "Nikon", domain.TypeFirmware, 2, domain.PriorityHigh),
	})
	require.NoError(t, err)

	byDate, err := repo.List(ctx, ports.UpdateFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"canon-len-rf50", "canon-fir-r5", "nikon-fir-z8"}, ids(byDate))

	byPriority, err := repo.List(ctx, ports.UpdateFilter{SortBy: ports.SortByPriority})
	require.NoError(t, err)
	assert.Equal(t, []string{"canon-fir-r5", "nikon-fir-z8", "canon-len-rf50"}, ids(byPriority))

	canon, err := repo.List(ctx, ports.UpdateFilter{Brand: "canon"})
	require.NoError(t, err)
	assert.Len(t, canon, 2)

	firmware, err := repo.List(ctx, ports.UpdateFilter{Type: domain.TypeFirmware})
	require.NoError(t, err)
	assert.Equal(t, []string{"canon-fir-r5", "nikon-fir-z8"}, ids(firmware))

	search, err := repo.List(ctx, ports.UpdateFilter{Search: "50MM"})
	require.NoError(t, err)
	assert.Equal(t, []string{"canon-len-rf50"}, ids(search))

	window, err := repo.List(ctx, ports.UpdateFilter{
		From: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"canon-fir-r5"}, ids(window))

	limited, err := repo.List(ctx, ports.UpdateFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"canon-len-rf50"}, ids(limited))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "mysql", "dsn")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestChangedDetectsTrackedFields(t *testing.T) {
	t.Parallel()

	base := sample("id", "Canon", domain.TypeFirmware, 1, domain.PriorityNormal)

	same := base
	same.SourceURL = "https://elsewhere.example.com/"
	assert.False(t, Changed(base, same))

	bumped := base
	bumped.Version = "1.1"
	assert.True(t, Changed(base, bumped))

	urgent := base
	urgent.Priority = domain.PriorityCritical
	assert.True(t, Changed(base, urgent))

	moved := base
	moved.Date = base.Date.AddDate(0, 0, 1)
	assert.True(t, Changed(base, moved))
}

func ids(updates []domain.CameraUpdate) []string {
	out := make([]string, 0, len(updates))
	for _, u := range updates {
		out = append(out, u.ID)
	}
	return out
}
