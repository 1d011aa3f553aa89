// Package quality holds the language and quality heuristics that decide
// which extracted text is kept.
package quality

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// DefaultMinWordRatio is the minimum share of common English words.
	DefaultMinWordRatio = 0.10
	// DefaultMaxSpecialRatio caps characters outside the safe set.
	DefaultMaxSpecialRatio = 0.10
	// DefaultMinScore gates record acceptance.
	DefaultMinScore = 4

	minTextLen = 10
)

// Thresholds tune the heuristics; zero values fall back to the defaults.
type Thresholds struct {
	MinWordRatio    float64
	MaxSpecialRatio float64
	MinScore        int
}

// DefaultThresholds returns the stock heuristics.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinWordRatio:    DefaultMinWordRatio,
		MaxSpecialRatio: DefaultMaxSpecialRatio,
		MinScore:        DefaultMinScore,
	}
}

// Validator applies the language, feature and record checks.
type Validator struct {
	th Thresholds
}

// NewValidator builds a validator, filling unset thresholds with defaults.
func NewValidator(th Thresholds) *Validator {
	def := DefaultThresholds()
	if th.MinWordRatio <= 0 {
		th.MinWordRatio = def.MinWordRatio
	}
	if th.MaxSpecialRatio <= 0 {
		th.MaxSpecialRatio = def.MaxSpecialRatio
	}
	if th.MinScore <= 0 {
		th.MinScore = def.MinScore
	}
	return &Validator{th: th}
}

var defaultValidator = NewValidator(DefaultThresholds())

// IsEnglishText runs the language test with default thresholds.
func IsEnglishText(text string) bool {
	return defaultValidator.IsEnglishText(text)
}

var nonLatinScripts = []*unicode.RangeTable{
	unicode.Cyrillic,
	unicode.Arabic,
	unicode.Thai,
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
}

var commonWords = toSet(
	"the", "a", "an", "and", "or", "but", "of", "to", "in", "on", "for", "with",
	"by", "from", "at", "as", "into", "about", "is", "are", "was", "were", "be",
	"been", "has", "have", "had", "will", "can", "may", "it", "its", "this",
	"that", "these", "new", "now", "more", "all", "your", "you", "we", "our",
	"their", "also", "when", "which",
	"camera", "cameras", "lens", "lenses", "firmware", "update", "updates",
	"version", "sensor", "video", "photo", "photos", "release", "released",
	"announces", "announced", "mirrorless", "autofocus", "features", "image",
	"performance", "improved", "improves", "support", "fixes", "model", "body",
	"series", "stability",
)

var (
	adjacentWordsExpr = regexp.MustCompile(`[A-Za-z]+\s+[A-Za-z]+`)
	wordTrim          = func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }
)

const safePunctuation = ".,!?;:()-'\"/&%+#@*[]_"

// IsEnglishText reports whether text looks like readable English prose.
// Other Latin-alphabet languages that share vocabulary may pass; non-Latin
// scripts never do.
func (v *Validator) IsEnglishText(text string) bool {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minTextLen {
		return false
	}

	for _, r := range text {
		if unicode.IsOneOf(nonLatinScripts, r) {
			return false
		}
	}

	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return false
	}
	common := 0
	for _, w := range words {
		if _, ok := commonWords[strings.TrimFunc(w, wordTrim)]; ok {
			common++
		}
	}
	if float64(common)/float64(len(words)) < v.th.MinWordRatio {
		return false
	}

	if !adjacentWordsExpr.MatchString(text) {
		return false
	}

	total, special := 0, 0
	for _, r := range text {
		total++
		if !isSafeRune(r) {
			special++
		}
	}
	return float64(special)/float64(total) <= v.th.MaxSpecialRatio
}

func isSafeRune(r rune) bool {
	switch {
	case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		return true
	case unicode.IsSpace(r):
		return true
	case strings.ContainsRune(safePunctuation, r):
		return true
	}
	return false
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
