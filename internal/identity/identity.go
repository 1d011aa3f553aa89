// Package identity derives the deterministic ids used to recognise the same
// real-world update across independent runs.
package identity

import (
	"regexp"
	"strings"

	"CameraUpdates/internal/domain"
)

const (
	maxTitleKeyLen = 50
	maxIDLen       = 100
	brandPrefixLen = 5
	typePrefixLen  = 3
	noVersion      = "nover"
)

var (
	nonAlnumExpr = regexp.MustCompile(`[^a-z0-9]+`)
	nonDigitExpr = regexp.MustCompile(`[^0-9]+`)
	// Stripped in this order, each pass over the output of the previous one.
	boilerplateWords = []string{"firmware", "update", "version"}
)

// NormalizeTitle lowercases the title, keeps only ASCII letters and digits,
// removes boilerplate words and truncates to 50 characters.
func NormalizeTitle(title string) string {
	key := nonAlnumExpr.ReplaceAllString(strings.ToLower(title), "")
	for _, w := range boilerplateWords {
		key = strings.ReplaceAll(key, w, "")
	}
	return truncate(key, maxTitleKeyLen)
}

// ID composes {brand}-{type}-{title}-{version digits}. Identical inputs give
// identical ids across processes.
func ID(brand string, typ domain.UpdateType, title, version string) string {
	ver := nonDigitExpr.ReplaceAllString(version, "")
	if ver == "" {
		ver = noVersion
	}

	id := strings.Join([]string{
		truncate(strings.ToLower(brand), brandPrefixLen),
		truncate(string(typ), typePrefixLen),
		NormalizeTitle(title),
		ver,
	}, "-")
	return truncate(id, maxIDLen)
}

// Assign sets u.ID from its identity fields.
func Assign(u *domain.CameraUpdate) {
	u.ID = ID(u.Brand, u.Type, u.Title, u.Version)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
