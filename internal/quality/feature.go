package quality

import (
	"regexp"
	"strings"
)

const (
	minFeatureLen = 15
	maxFeatureLen = 300
	// MinFeatures is the smallest feature list worth keeping.
	MinFeatures = 2

	// maxNavLabelWords bounds how long a navigation label can be.
	maxNavLabelWords = 6
)

var (
	promoExpr = regexp.MustCompile(`(?i)\b(buy|shop|shopping|price|prices|deal|deals|coupon|discount|sale|subscribe|newsletter|sponsored|affiliate|order now|add to cart|free shipping|pre-order)\b`)

	navWords = toSet(
		"home", "menu", "search", "login", "logout", "log", "sign", "in", "up",
		"out", "register", "sitemap", "cart", "checkout", "skip", "content",
	)

	// Filler allowed around navigation words inside a label such as
	// "Back to the home page".
	navFiller = toSet("back", "to", "the", "go", "page", "main", "my", "your", "account", "and", "or")
)

// IsPromotional reports whether text carries shopping or marketing language.
func IsPromotional(text string) bool {
	return promoExpr.MatchString(text)
}

// IsNavigation reports whether text is a UI navigation label: a short
// phrase made only of navigation words and filler. Prose that merely
// mentions a menu or a search is not a label.
func IsNavigation(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 || len(words) > maxNavLabelWords {
		return false
	}
	nav := 0
	for _, w := range words {
		w = strings.TrimFunc(w, wordTrim)
		if _, ok := navWords[w]; ok {
			nav++
			continue
		}
		if _, ok := navFiller[w]; !ok && w != "" {
			return false
		}
	}
	return nav > 0
}

// ValidFeature applies the bullet-level checks on top of the language test.
func (v *Validator) ValidFeature(feature string) bool {
	feature = strings.TrimSpace(feature)
	n := len([]rune(feature))
	if n < minFeatureLen || n > maxFeatureLen {
		return false
	}
	if IsPromotional(feature) || IsNavigation(feature) {
		return false
	}
	return v.IsEnglishText(feature)
}

// FilterFeatures keeps the valid features in order. A lone survivor is
// treated as noise, so fewer than MinFeatures valid entries yields nil.
func (v *Validator) FilterFeatures(features []string) []string {
	kept := make([]string, 0, len(features))
	for _, f := range features {
		f = strings.TrimSpace(f)
		if v.ValidFeature(f) {
			kept = append(kept, f)
		}
	}
	if len(kept) < MinFeatures {
		return nil
	}
	return kept
}
