package domain

import "time"

// Stage names the pipeline step that produced a skip.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageFetch    Stage = "fetch"
	StageExtract  Stage = "extract"
	StageValidate Stage = "validate"
	StageDedup    Stage = "dedup"
	StageBrand    Stage = "brand"
)

// SkipReason enumerates why a unit of work was dropped.
type SkipReason string

const (
	SkipFetchFailed   SkipReason = "fetch_failed"
	SkipResolveFailed SkipReason = "resolve_failed"
	SkipExtractFailed SkipReason = "extract_failed"
	SkipNoCandidates  SkipReason = "no_candidates"
	SkipRejected      SkipReason = "rejected"
	SkipDuplicate     SkipReason = "duplicate"
	SkipInvalid       SkipReason = "invalid"
	SkipCancelled     SkipReason = "cancelled"
	SkipBrandFailed   SkipReason = "brand_failed"
)

// Skip records a dropped URL, candidate or brand together with the reason.
type Skip struct {
	Brand   string
	Stage   Stage
	Subject string
	Reason  SkipReason
	Detail  string
}

// RunResult is what one aggregation run hands to its caller.
//
// NoNewData is the sentinel telling persistence to keep whatever it already
// stores; Updates is nil in that case and never an empty, "persist nothing"
// list.
type RunResult struct {
	RunID     string
	RanAt     time.Time
	Updates   []CameraUpdate
	NoNewData bool
	Skips     []Skip
}

// HasNewData reports whether the run produced records to persist.
func (r RunResult) HasNewData() bool {
	return !r.NoNewData && len(r.Updates) > 0
}

// CountSkips tallies skips by reason.
func (r RunResult) CountSkips() map[SkipReason]int {
	counts := make(map[SkipReason]int)
	for _, s := range r.Skips {
		counts[s.Reason]++
	}
	return counts
}
