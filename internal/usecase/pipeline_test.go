package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CameraUpdates/internal/domain"
	"CameraUpdates/internal/extract"
	"CameraUpdates/internal/identity"
	"CameraUpdates/internal/infrastructure/fetcher"
	"CameraUpdates/internal/ports"
	"CameraUpdates/internal/scanner"
)

var runDate = time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

type stubResolver map[string][]string

func (s stubResolver) Resolve(_ context.Context, _ ports.PageFetcher, brand scanner.Brand) ([]string, []domain.Skip) {
	return s[brand.Name], nil
}

type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (s *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()
	body, ok := s.pages[url]
	if !ok {
		return nil, fmt.Errorf("fetch %s after 3 attempts: %w", url, fetcher.ErrRetriesExhausted)
	}
	return []byte(body), nil
}

type stubExtractor map[string][]domain.CameraUpdate

func (s stubExtractor) Extract(page extract.Page) ([]domain.CameraUpdate, error) {
	if page.URL == "https://broken.example.com/news/bad" {
		return nil, errors.New("parse page: broken markup")
	}
	return s[page.URL], nil
}

func firmware(brand, title, version string, day int) domain.CameraUpdate {
	return domain.CameraUpdate{
		Brand:       brand,
		Type:        domain.TypeFirmware,
		Title:       title,
		Version:     version,
		Date:        time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		Description: brand + " has published a new firmware version that improves autofocus tracking and fixes several stability issues reported by owners.",
		Priority:    domain.PriorityNormal,
	}
}

func withID(u domain.CameraUpdate) domain.CameraUpdate {
	identity.Assign(&u)
	return u
}

func reasons(skips []domain.Skip) []domain.SkipReason {
	out := make([]domain.SkipReason, len(skips))
	for i, s := range skips {
		out[i] = s.Reason
	}
	return out
}

func TestBrandPipelineIsolatesFetchFailures(t *testing.T) {
	t.Parallel()

	a := "https://www.canon.com/news/eos-r5"
	b := "https://www.canon.com/news/missing"
	c := "https://www.canon.com/news/eos-r6"

	p := NewBrandPipeline(BrandPipelineDeps{
		Resolver: stubResolver{"Canon": {a, b, c}},
		Fetcher:  &stubFetcher{pages: map[string]string{a: "<html/>", c: "<html/>"}},
		Extractor: stubExtractor{
			a: {firmware("Canon", "Canon EOS R5 Firmware Update", "1.2.0", 14)},
			c: {firmware("Canon", "Canon EOS R6 Mark II Firmware Update", "1.4.1", 12)},
		},
	})

	report := p.Run(context.Background(), scanner.Brand{Name: "Canon"}, runDate)
	require.Len(t, report.Updates, 2)
	assert.Equal(t, "canon-fir-canoneosr5-120", report.Updates[0].ID)
	assert.Equal(t, "www.canon.com", report.Updates[0].SourceName)
	require.Len(t, report.Skips, 1)
	assert.Equal(t, domain.SkipFetchFailed, report.Skips[0].Reason)
	assert.Equal(t, b, report.Skips[0].Subject)
	assert.Contains(t, report.Skips[0].Detail, "retries exhausted")
}

func TestBrandPipelineRecordsSkips(t *testing.T) {
	t.Parallel()

	good := "https://www.nikon.com/news/z8"
	empty := "https://www.nikon.com/news/empty"
	bad := "https://broken.example.com/news/bad"

	short := firmware("Nikon", "Z8 update", "2.0", 1)
	dup := firmware("Nikon", "Nikon Z8 Firmware Update 2.01", "2.01", 2)

	p := NewBrandPipeline(BrandPipelineDeps{
		Resolver: stubResolver{"Nikon": {good, empty, bad}},
		Fetcher:  &stubFetcher{pages: map[string]string{good: "x", empty: "x", bad: "x"}},
		Extractor: stubExtractor{
			good: {firmware("Nikon", "Nikon Z8 Firmware Update", "2.01", 2), short, dup},
		},
	})

	report := p.Run(context.Background(), scanner.Brand{Name: "Nikon"}, runDate)
	require.Len(t, report.Updates, 1)
	assert.Equal(t, "Nikon Z8 Firmware Update", report.Updates[0].Title)
	assert.Equal(t, []domain.SkipReason{
		domain.SkipRejected,
		domain.SkipNoCandidates,
		domain.SkipExtractFailed,
		domain.SkipDuplicate,
	}, reasons(report.Skips))
}

func TestBrandPipelineNoLinks(t *testing.T) {
	t.Parallel()

	p := NewBrandPipeline(BrandPipelineDeps{Resolver: stubResolver{}, Fetcher: &stubFetcher{}, Extractor: stubExtractor{}})
	report := p.Run(context.Background(), scanner.Brand{Name: "Sony"}, runDate)
	assert.Empty(t, report.Updates)
	assert.Equal(t, []domain.SkipReason{domain.SkipNoCandidates}, reasons(report.Skips))
}

func TestBrandPipelineStopsWhenCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetch := &stubFetcher{pages: map[string]string{}}
	p := NewBrandPipeline(BrandPipelineDeps{
		Resolver:  stubResolver{"Sony": {"https://www.sony.com/a/b", "https://www.sony.com/a/c"}},
		Fetcher:   fetch,
		Extractor: stubExtractor{},
	})

	report := p.Run(ctx, scanner.Brand{Name: "Sony"}, runDate)
	assert.Empty(t, report.Updates)
	assert.Equal(t, []domain.SkipReason{domain.SkipCancelled, domain.SkipCancelled}, reasons(report.Skips))
	assert.Empty(t, fetch.calls)
}

const canonArticle = `<html><body><article class="post">
  <h2 class="entry-title">Canon EOS R5 Firmware Update Version 1.2.0</h2>
  <p class="date">March 14, 2025</p>
  <p>The new firmware improves autofocus tracking for moving subjects and fixes several stability issues that owners reported.</p>
  <ul>
    <li>Improves eye detection autofocus in low light conditions</li>
    <li>Adds a new option for the camera to record longer video clips</li>
    <li>Buy now and save on accessories</li>
  </ul>
</article></body></html>`

func TestBrandPipelineWithExtractor(t *testing.T) {
	t.Parallel()

	page := "https://www.canon.com/news/eos-r5-firmware-120"
	p := NewBrandPipeline(BrandPipelineDeps{
		Resolver:  stubResolver{"Canon": {page}},
		Fetcher:   &stubFetcher{pages: map[string]string{page: canonArticle}},
		Extractor: extract.New(nil),
	})

	report := p.Run(context.Background(), scanner.Brand{Name: "Canon"}, runDate)
	require.Len(t, report.Updates, 1, "skips: %+v", report.Skips)

	u := report.Updates[0]
	assert.Equal(t, "canon-fir-canoneosr5120-120", u.ID)
	assert.Equal(t, domain.TypeFirmware, u.Type)
	assert.Equal(t, "1.2.0", u.Version)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), u.Date)
	assert.Len(t, u.Features, 2)
}

type stubRunner struct {
	reports map[string]BrandReport
}

func (s stubRunner) Run(_ context.Context, brand scanner.Brand, _ time.Time) BrandReport {
	if brand.Name == "Panic" {
		panic("boom")
	}
	return s.reports[brand.Name]
}

func brands(names ...string) []scanner.Brand {
	out := make([]scanner.Brand, len(names))
	for i, n := range names {
		out[i] = scanner.Brand{Name: n}
	}
	return out
}

func fixedID() string { return "run-1" }

func TestAggregatorSentinelWhenNothingAccepted(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(AggregatorDeps{
		Pipeline: stubRunner{reports: map[string]BrandReport{
			"Canon": {Brand: "Canon", Skips: []domain.Skip{{Brand: "Canon", Reason: domain.SkipFetchFailed}}},
		}},
		NewID: fixedID,
	})

	result := agg.RunAt(context.Background(), brands("Canon", "Nikon"), runDate)
	assert.True(t, result.NoNewData)
	assert.Nil(t, result.Updates)
	assert.False(t, result.HasNewData())
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, runDate, result.RanAt)
	assert.Equal(t, 1, result.CountSkips()[domain.SkipFetchFailed])
}

func TestAggregatorMergesDedupsAndSorts(t *testing.T) {
	t.Parallel()

	r5 := withID(firmware("Canon", "Canon EOS R5 Firmware Update", "1.2.0", 1))
	r6 := withID(firmware("Canon", "Canon EOS R6 Firmware Update", "1.4.1", 5))
	z8 := withID(firmware("Nikon", "Nikon Z8 Firmware Update", "2.01", 3))
	z9 := withID(firmware("Nikon", "Nikon Z9 Firmware Update", "4.10", 3))
	r5again := withID(firmware("Canon", "Canon EOS R5 Firmware Update 1.2.0", "1.2.0", 9))

	agg := NewAggregator(AggregatorDeps{
		Pipeline: stubRunner{reports: map[string]BrandReport{
			"Canon": {Brand: "Canon", Updates: []domain.CameraUpdate{r5, r6}},
			"Nikon": {Brand: "Nikon", Updates: []domain.CameraUpdate{z8, z9, r5again}},
		}},
		NewID: fixedID,
	})

	result := agg.RunAt(context.Background(), brands("Canon", "Nikon"), runDate)
	require.False(t, result.NoNewData)

	var titles []string
	for _, u := range result.Updates {
		titles = append(titles, u.Title)
	}
	assert.Equal(t, []string{
		"Canon EOS R6 Firmware Update",
		"Nikon Z8 Firmware Update",
		"Nikon Z9 Firmware Update",
		"Canon EOS R5 Firmware Update",
	}, titles)
	assert.Equal(t, 1, result.CountSkips()[domain.SkipDuplicate])

	ids := map[string]bool{}
	for _, u := range result.Updates {
		assert.False(t, ids[u.ID])
		ids[u.ID] = true
	}
}

func TestAggregatorIsolatesPanickingBrand(t *testing.T) {
	t.Parallel()

	z8 := withID(firmware("Nikon", "Nikon Z8 Firmware Update", "2.01", 3))
	agg := NewAggregator(AggregatorDeps{
		Pipeline: stubRunner{reports: map[string]BrandReport{
			"Nikon": {Brand: "Nikon", Updates: []domain.CameraUpdate{z8}},
		}},
	})

	result := agg.Run(context.Background(), brands("Panic", "Nikon"))
	require.Len(t, result.Updates, 1)
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Skips, 1)
	assert.Equal(t, domain.SkipBrandFailed, result.Skips[0].Reason)
	assert.Equal(t, "Panic", result.Skips[0].Brand)
	assert.Contains(t, result.Skips[0].Detail, "boom")
}

func TestAggregatorRecoversTopLevelPanic(t *testing.T) {
	t.Parallel()

	z8 := withID(firmware("Nikon", "Nikon Z8 Firmware Update", "2.01", 3))
	agg := NewAggregator(AggregatorDeps{
		Pipeline: stubRunner{reports: map[string]BrandReport{
			"Nikon": {Brand: "Nikon", Updates: []domain.CameraUpdate{z8}},
		}},
		NewID: fixedID,
	})
	// A missing deduplicator makes the merge step fail.
	agg.dedup = nil

	result := agg.RunAt(context.Background(), brands("Nikon"), runDate)
	assert.True(t, result.NoNewData)
	assert.Nil(t, result.Updates)
	assert.Equal(t, "run-1", result.RunID)
	require.NotEmpty(t, result.Skips)
	assert.Equal(t, domain.SkipBrandFailed, result.Skips[len(result.Skips)-1].Reason)
}

type slowRunner struct{}

func (slowRunner) Run(ctx context.Context, brand scanner.Brand, _ time.Time) BrandReport {
	<-ctx.Done()
	return BrandReport{Brand: brand.Name, Skips: []domain.Skip{{Brand: brand.Name, Reason: domain.SkipCancelled}}}
}

func TestAggregatorAppliesRunTimeout(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(AggregatorDeps{Pipeline: slowRunner{}, RunTimeout: 20 * time.Millisecond})
	result := agg.RunAt(context.Background(), brands("Canon", "Nikon"), runDate)
	assert.True(t, result.NoNewData)
	assert.Equal(t, 2, result.CountSkips()[domain.SkipCancelled])
}
