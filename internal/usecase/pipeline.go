package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"CameraUpdates/internal/dedup"
	"CameraUpdates/internal/domain"
	"CameraUpdates/internal/extract"
	"CameraUpdates/internal/identity"
	"CameraUpdates/internal/infrastructure/fetcher"
	"CameraUpdates/internal/ports"
	"CameraUpdates/internal/quality"
	"CameraUpdates/internal/scanner"
)

// GlobalScope labels skips produced by the cross-brand dedup pass.
const GlobalScope = "global"

// LinkResolver finds candidate article URLs for a brand.
type LinkResolver interface {
	Resolve(ctx context.Context, fetcher ports.PageFetcher, brand scanner.Brand) ([]string, []domain.Skip)
}

// PageExtractor turns a fetched page into raw candidates.
type PageExtractor interface {
	Extract(page extract.Page) ([]domain.CameraUpdate, error)
}

// BrandRunner runs the whole pipeline for one brand.
type BrandRunner interface {
	Run(ctx context.Context, brand scanner.Brand, runDate time.Time) BrandReport
}

// BrandReport is the outcome of one brand pipeline.
type BrandReport struct {
	Brand   string
	Updates []domain.CameraUpdate
	Skips   []domain.Skip
}

// BrandPipelineDeps wires the collaborators of a brand pipeline.
type BrandPipelineDeps struct {
	Resolver     LinkResolver
	Fetcher      ports.PageFetcher
	Extractor    PageExtractor
	Validator    *quality.Validator
	Dedup        *dedup.Deduplicator
	RequestDelay time.Duration
	Logger       *slog.Logger
}

// BrandPipeline implements resolve, fetch, extract, validate and local
// dedup for a single brand. URLs are processed one at a time.
type BrandPipeline struct {
	resolver     LinkResolver
	fetcher      ports.PageFetcher
	extractor    PageExtractor
	validator    *quality.Validator
	dedup        *dedup.Deduplicator
	requestDelay time.Duration
	logger       *slog.Logger
}

var _ BrandRunner = (*BrandPipeline)(nil)

// NewBrandPipeline constructs the per-brand component.
func NewBrandPipeline(deps BrandPipelineDeps) *BrandPipeline {
	validator := deps.Validator
	if validator == nil {
		validator = quality.NewValidator(quality.DefaultThresholds())
	}
	dd := deps.Dedup
	if dd == nil {
		dd = dedup.New(validator, 0)
	}
	return &BrandPipeline{
		resolver:     deps.Resolver,
		fetcher:      deps.Fetcher,
		extractor:    deps.Extractor,
		validator:    validator,
		dedup:        dd,
		requestDelay: deps.RequestDelay,
		logger:       deps.Logger,
	}
}

// Run never fails: every problem becomes a skip in the report.
func (p *BrandPipeline) Run(ctx context.Context, brand scanner.Brand, runDate time.Time) BrandReport {
	report := BrandReport{Brand: brand.Name}
	skip := func(stage domain.Stage, subject string, reason domain.SkipReason, detail string) {
		report.Skips = append(report.Skips, domain.Skip{
			Brand:   brand.Name,
			Stage:   stage,
			Subject: subject,
			Reason:  reason,
			Detail:  detail,
		})
	}

	// A fresh limiter per run keeps brands independent of each other.
	pageFetcher := fetcher.NewThrottled(p.fetcher, p.requestDelay)

	urls, resolveSkips := p.resolver.Resolve(ctx, pageFetcher, brand)
	report.Skips = append(report.Skips, resolveSkips...)
	if len(urls) == 0 {
		skip(domain.StageResolve, brand.Name, domain.SkipNoCandidates, "no article links found")
		return report
	}
	p.debug("brand links resolved", "brand", brand.Name, "count", len(urls))

	var collected []domain.CameraUpdate
	for i, pageURL := range urls {
		if err := ctx.Err(); err != nil {
			for _, rest := range urls[i:] {
				skip(domain.StageFetch, rest, domain.SkipCancelled, err.Error())
			}
			break
		}

		body, err := pageFetcher.Fetch(ctx, pageURL)
		if err != nil {
			p.warn("fetch failed", "brand", brand.Name, "url", pageURL, "error", err)
			skip(domain.StageFetch, pageURL, domain.SkipFetchFailed, err.Error())
			continue
		}

		candidates, err := p.extractor.Extract(extract.Page{
			Brand:      brand.Name,
			SourceName: sourceName(pageURL),
			URL:        pageURL,
			HTML:       body,
			RunDate:    runDate,
		})
		if err != nil {
			skip(domain.StageExtract, pageURL, domain.SkipExtractFailed, err.Error())
			continue
		}
		if len(candidates) == 0 {
			skip(domain.StageExtract, pageURL, domain.SkipNoCandidates, "no candidates on page")
			continue
		}

		for _, u := range candidates {
			u.Features = p.validator.FilterFeatures(u.Features)
			if ok, reason := p.validator.Accept(u); !ok {
				skip(domain.StageValidate, u.Title, domain.SkipRejected, reason)
				continue
			}
			identity.Assign(&u)
			collected = append(collected, u)
		}
	}

	kept, dedupSkips := p.dedup.Run(brand.Name, collected)
	report.Updates = kept
	report.Skips = append(report.Skips, dedupSkips...)
	p.debug("brand done", "brand", brand.Name, "count", len(kept), "skips", len(report.Skips))
	return report
}

func (p *BrandPipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *BrandPipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func sourceName(pageURL string) string {
	if u, err := url.Parse(pageURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return pageURL
}

// AggregatorDeps wires the orchestrator.
type AggregatorDeps struct {
	Pipeline   BrandRunner
	Dedup      *dedup.Deduplicator
	RunTimeout time.Duration
	Now        func() time.Time
	NewID      func() string
	Logger     *slog.Logger
}

// Aggregator runs all brand pipelines concurrently and merges their output.
type Aggregator struct {
	pipeline   BrandRunner
	dedup      *dedup.Deduplicator
	runTimeout time.Duration
	now        func() time.Time
	newID      func() string
	logger     *slog.Logger
}

// NewAggregator constructs the orchestrator.
func NewAggregator(deps AggregatorDeps) *Aggregator {
	a := &Aggregator{
		pipeline:   deps.Pipeline,
		dedup:      deps.Dedup,
		runTimeout: deps.RunTimeout,
		now:        deps.Now,
		newID:      deps.NewID,
		logger:     deps.Logger,
	}
	if a.dedup == nil {
		a.dedup = dedup.New(nil, 0)
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.newID == nil {
		a.newID = uuid.NewString
	}
	return a
}

// Run aggregates with the current time as the run date.
func (a *Aggregator) Run(ctx context.Context, brands []scanner.Brand) domain.RunResult {
	return a.RunAt(ctx, brands, a.now())
}

// RunAt aggregates all brands. It never returns an error: a run without
// accepted records, or one that panics, yields the no-new-data sentinel.
func (a *Aggregator) RunAt(ctx context.Context, brands []scanner.Brand, ranAt time.Time) (result domain.RunResult) {
	runID := a.newID()
	var skips []domain.Skip

	defer func() {
		if r := recover(); r != nil {
			a.logError("aggregation panicked", "run_id", runID, "panic", r)
			result = domain.RunResult{
				RunID:     runID,
				RanAt:     ranAt,
				NoNewData: true,
				Skips: append(skips, domain.Skip{
					Brand:   GlobalScope,
					Stage:   domain.StageBrand,
					Subject: runID,
					Reason:  domain.SkipBrandFailed,
					Detail:  fmt.Sprintf("panic: %v", r),
				}),
			}
		}
	}()

	if a.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.runTimeout)
		defer cancel()
	}

	a.logInfo("aggregation started", "run_id", runID, "brands", len(brands))

	reports := make([]BrandReport, len(brands))
	var g errgroup.Group
	for i, brand := range brands {
		i, brand := i, brand
		g.Go(func() error {
			reports[i] = a.runBrand(ctx, brand, ranAt)
			return nil
		})
	}
	_ = g.Wait()

	var merged []domain.CameraUpdate
	for _, r := range reports {
		merged = append(merged, r.Updates...)
		skips = append(skips, r.Skips...)
	}

	kept, dedupSkips := a.dedup.Run(GlobalScope, merged)
	skips = append(skips, dedupSkips...)

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Date.After(kept[j].Date)
	})

	result = domain.RunResult{RunID: runID, RanAt: ranAt, Skips: skips}
	if len(kept) == 0 {
		result.NoNewData = true
		a.logInfo("aggregation found no new data", "run_id", runID, "skips", len(skips))
		return result
	}
	result.Updates = kept
	a.logInfo("aggregation finished", "run_id", runID, "count", len(kept), "skips", len(skips))
	return result
}

func (a *Aggregator) runBrand(ctx context.Context, brand scanner.Brand, runDate time.Time) (report BrandReport) {
	defer func() {
		if r := recover(); r != nil {
			a.logError("brand pipeline panicked", "brand", brand.Name, "panic", r)
			report = BrandReport{Brand: brand.Name, Skips: []domain.Skip{{
				Brand:   brand.Name,
				Stage:   domain.StageBrand,
				Subject: brand.Name,
				Reason:  domain.SkipBrandFailed,
				Detail:  fmt.Sprintf("panic: %v", r),
			}}}
		}
	}()
	return a.pipeline.Run(ctx, brand, runDate)
}

func (a *Aggregator) logInfo(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Info(msg, args...)
	}
}

func (a *Aggregator) logError(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Error(msg, args...)
	}
}
