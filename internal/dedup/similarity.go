package dedup

import (
	"regexp"
	"strings"

	"CameraUpdates/internal/domain"
)

const (
	// DefaultSimilarity is the length-similarity above which two titles of
	// the same version are treated as one update.
	DefaultSimilarity = 0.9
	// MinContainmentLen is the shortest normalized title allowed to match
	// by containment.
	MinContainmentLen = 10

	noVersionKey = "noversion"
)

var (
	nonAlnumExpr       = regexp.MustCompile(`[^a-z0-9]+`)
	versionTokenExpr   = regexp.MustCompile(`\bv?\d+(\.\d+)+\b`)
	leadingVersionExpr = regexp.MustCompile(`^v?\d+(\.\d+)+\s*`)
	boilerplateWords   = []string{"firmware", "update", "version"}
)

// Similarity scores two strings by length only: 1 - |la-lb| / max(la, lb).
func Similarity(a, b string) float64 {
	la, lb := len(a), len(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return 1 - float64(diff)/float64(longest)
}

// MatchTitle normalizes a title for fuzzy comparison: lowercase, drop a
// leading version number, keep letters and digits, drop boilerplate words.
func MatchTitle(title string) string {
	t := strings.TrimSpace(strings.ToLower(title))
	t = leadingVersionExpr.ReplaceAllString(t, "")
	t = nonAlnumExpr.ReplaceAllString(t, "")
	for _, w := range boilerplateWords {
		t = strings.ReplaceAll(t, w, "")
	}
	return t
}

// SameKey reports whether b is a fuzzy duplicate of a: same brand and type,
// and either a containment match or a length-similarity match.
func SameKey(a, b domain.CameraUpdate, threshold float64) bool {
	if !strings.EqualFold(a.Brand, b.Brand) || a.Type != b.Type {
		return false
	}
	na, nb := MatchTitle(a.Title), MatchTitle(b.Title)
	return containmentMatch(na, nb, a.Version, b.Version) ||
		similarityMatch(na, nb, a.Version, b.Version, threshold)
}

func containmentMatch(na, nb, va, vb string) bool {
	if min(len(na), len(nb)) < MinContainmentLen {
		return false
	}
	if !strings.Contains(na, nb) && !strings.Contains(nb, na) {
		return false
	}
	if va == vb {
		return true
	}
	return va != "" && vb != "" && majorVersion(va) == majorVersion(vb) && na == nb
}

func similarityMatch(na, nb, va, vb string, threshold float64) bool {
	if va != vb || Similarity(na, nb) <= threshold {
		return false
	}
	n := min(len(na), len(nb))
	return na[:n] == nb[:n]
}

func majorVersion(v string) string {
	v = strings.TrimPrefix(strings.ToLower(v), "v")
	major, _, _ := strings.Cut(v, ".")
	return major
}

func versionKey(v string) string {
	if v == "" {
		return noVersionKey
	}
	return v
}

// exactKey ignores version-number tokens inside the title because the
// version itself is part of the key.
func exactKey(u domain.CameraUpdate) string {
	title := versionTokenExpr.ReplaceAllString(strings.ToLower(u.Title), "")
	title = nonAlnumExpr.ReplaceAllString(title, "")
	return strings.Join([]string{strings.ToLower(u.Brand), string(u.Type), title, versionKey(u.Version)}, "|")
}

func titleVersionKey(u domain.CameraUpdate) string {
	return strings.Join([]string{strings.ToLower(u.Brand), string(u.Type), MatchTitle(u.Title), versionKey(u.Version)}, "|")
}
