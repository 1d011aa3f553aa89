// Package dedup removes near-duplicate camera updates within a brand and
// across brands.
package dedup

import (
	"fmt"
	"strings"

	"CameraUpdates/internal/domain"
	"CameraUpdates/internal/identity"
	"CameraUpdates/internal/quality"
)

// Deduplicator applies the exact-key, containment and length-similarity
// passes. It holds no state between runs and is safe for concurrent use.
type Deduplicator struct {
	validator  *quality.Validator
	similarity float64
}

// New builds a deduplicator; a non-positive similarity selects the default.
func New(validator *quality.Validator, similarity float64) *Deduplicator {
	if validator == nil {
		validator = quality.NewValidator(quality.DefaultThresholds())
	}
	if similarity <= 0 || similarity >= 1 {
		similarity = DefaultSimilarity
	}
	return &Deduplicator{validator: validator, similarity: similarity}
}

// Run keeps the first occurrence of every update and drops later
// duplicates. scope labels skips (a brand name or "global").
func (d *Deduplicator) Run(scope string, updates []domain.CameraUpdate) ([]domain.CameraUpdate, []domain.Skip) {
	var skips []domain.Skip
	seen := make(map[string]string, len(updates)*3)
	kept := make([]domain.CameraUpdate, 0, len(updates))

	for _, u := range updates {
		u, reason := d.prefilter(u)
		if reason != "" {
			skips = append(skips, domain.Skip{
				Brand:   scopeBrand(scope, u),
				Stage:   domain.StageDedup,
				Subject: u.Title,
				Reason:  domain.SkipInvalid,
				Detail:  reason,
			})
			continue
		}

		keys := []string{"exact:" + exactKey(u), "title:" + titleVersionKey(u), "id:" + u.ID}
		match := ""
		for _, k := range keys {
			if id, ok := seen[k]; ok {
				match = id
				break
			}
		}
		if match == "" {
			for _, prev := range kept {
				if SameKey(prev, u, d.similarity) {
					match = prev.ID
					break
				}
			}
		}

		for _, k := range keys {
			if _, ok := seen[k]; !ok {
				seen[k] = firstNonEmpty(match, u.ID)
			}
		}

		if match != "" {
			skips = append(skips, domain.Skip{
				Brand:   scopeBrand(scope, u),
				Stage:   domain.StageDedup,
				Subject: u.Title,
				Reason:  domain.SkipDuplicate,
				Detail:  fmt.Sprintf("%s duplicates %s", u.ID, match),
			})
			continue
		}
		kept = append(kept, u)
	}

	return kept, skips
}

func (d *Deduplicator) prefilter(u domain.CameraUpdate) (domain.CameraUpdate, string) {
	u.Title = strings.TrimSpace(u.Title)
	u.Description = strings.TrimSpace(u.Description)
	if u.Title == "" || u.Description == "" {
		return u, "missing title or description"
	}
	if !d.validator.IsEnglishText(u.Title) {
		return u, "title failed language test"
	}
	if !d.validator.IsEnglishText(u.Description) {
		return u, "description failed language test"
	}
	u.Features = d.validator.FilterFeatures(u.Features)
	if u.ID == "" {
		identity.Assign(&u)
	}
	return u, ""
}

func scopeBrand(scope string, u domain.CameraUpdate) string {
	if u.Brand != "" {
		return u.Brand
	}
	return scope
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
