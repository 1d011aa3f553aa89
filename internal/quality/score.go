package quality

import (
	"fmt"
	"regexp"
	"strings"

	"CameraUpdates/internal/domain"
)

const (
	minTitleLen         = 15
	meaningfulDescLen   = 80
	meaningfulDescWords = 10
)

var (
	modelNameExpr  = regexp.MustCompile(`\b[A-Z][A-Za-z]{0,3}[- ]?[A-Z]?\d{1,4}[A-Za-z]{0,3}\b`)
	lensSignalExpr = regexp.MustCompile(`(?i)\b\d{1,4}(-\d{1,4})?\s?mm\b|\b(rf|ef|z|fe|e|x|l|gfx)[- ]mount\b|\bf/?\d{1,2}(\.\d)?\b`)
)

// HasTypeSignal reports whether the record carries the evidence its type
// needs: a version for firmware, a model name for cameras and a focal
// length, mount or aperture for lenses.
func HasTypeSignal(u domain.CameraUpdate) bool {
	switch u.Type {
	case domain.TypeFirmware:
		return u.Version != ""
	case domain.TypeLens:
		return lensSignalExpr.MatchString(u.Title)
	default:
		return modelNameExpr.MatchString(u.Title)
	}
}

// IsMeaningfulDescription reports whether description says more than title.
func IsMeaningfulDescription(title, description string) bool {
	d := strings.ToLower(strings.TrimSpace(description))
	t := strings.ToLower(strings.TrimSpace(title))
	if len(d) <= meaningfulDescLen {
		return false
	}
	if t != "" && (d == t || strings.HasPrefix(d, t)) {
		return false
	}
	return len(strings.Fields(d)) > meaningfulDescWords
}

// Score computes the integer quality heuristic for a candidate.
func (v *Validator) Score(u domain.CameraUpdate) int {
	score := 0
	if HasTypeSignal(u) {
		score += 2
	}
	if u.Version != "" {
		score++
	}
	if len(u.Features) > 0 {
		score++
	}
	if IsMeaningfulDescription(u.Title, u.Description) {
		score += 2
	}
	if v.IsEnglishText(u.Title) && v.IsEnglishText(u.Description) {
		score++
	}
	return score
}

// Accept decides whether a candidate may enter deduplication. The returned
// reason explains a rejection.
func (v *Validator) Accept(u domain.CameraUpdate) (bool, string) {
	if n := len([]rune(strings.TrimSpace(u.Title))); n <= minTitleLen {
		return false, fmt.Sprintf("title too short (%d)", n)
	}
	if !v.IsEnglishText(u.Title) {
		return false, "title failed language test"
	}
	if !v.IsEnglishText(u.Description) {
		return false, "description failed language test"
	}
	if !IsMeaningfulDescription(u.Title, u.Description) {
		return false, "description not meaningful"
	}
	if n := len(u.Features); n > 0 && n < MinFeatures {
		return false, fmt.Sprintf("only %d feature", n)
	}
	if score := v.Score(u); score < v.th.MinScore {
		return false, fmt.Sprintf("score %d below %d", score, v.th.MinScore)
	}
	return true, ""
}
