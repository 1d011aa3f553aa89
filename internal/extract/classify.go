package extract

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"CameraUpdates/internal/domain"
)

// typeRule maps a pattern to an update type; rules are tried in order.
type typeRule struct {
	pattern *regexp.Regexp
	typ     domain.UpdateType
}

var typeRules = []typeRule{
	{regexp.MustCompile(`(?i)\bfirmware\b|\bfw\b|\bsystem software\b|\bver(sion|\.)\s*\d`), domain.TypeFirmware},
	{regexp.MustCompile(`(?i)\blens(es)?\b|\b\d{1,4}(-\d{1,4})?\s?mm\b|\bf/\d{1,2}(\.\d{1,2})?\b|\b(nikkor|g master|sigma art)\b`), domain.TypeLens},
}

// Classify infers the update type from the title first and the surrounding
// text second, defaulting to camera.
func Classify(title, context string) domain.UpdateType {
	for _, text := range []string{title, context} {
		for _, rule := range typeRules {
			if rule.pattern.MatchString(text) {
				return rule.typ
			}
		}
	}
	return domain.TypeCamera
}

type priorityRule struct {
	pattern  *regexp.Regexp
	priority domain.Priority
}

var priorityRules = []priorityRule{
	{regexp.MustCompile(`(?i)\bcritical\b|\bsecurity\b|vulnerab|\burgent\b|\brecall\b`), domain.PriorityCritical},
	{regexp.MustCompile(`(?i)announc|\blaunch|introduc|\bnew\b`), domain.PriorityHigh},
}

// ClassifyPriority picks the first matching priority, else normal.
func ClassifyPriority(text string) domain.Priority {
	for _, rule := range priorityRules {
		if rule.pattern.MatchString(text) {
			return rule.priority
		}
	}
	return domain.PriorityNormal
}

// categoryRule applies to the listed types; a nil pattern always matches.
type categoryRule struct {
	types   []domain.UpdateType
	pattern *regexp.Regexp
	label   string
}

var categoryRules = []categoryRule{
	{[]domain.UpdateType{domain.TypeFirmware}, nil, "Firmware"},
	{[]domain.UpdateType{domain.TypeLens}, regexp.MustCompile(`(?i)\b\d{1,4}-\d{1,4}\s?mm\b|\bzoom\b`), "Zoom Lens"},
	{[]domain.UpdateType{domain.TypeLens}, regexp.MustCompile(`(?i)\b\d{1,4}\s?mm\b|\bprime\b`), "Prime Lens"},
	{[]domain.UpdateType{domain.TypeLens}, nil, "Lens"},
	{[]domain.UpdateType{domain.TypeCamera}, regexp.MustCompile(`(?i)full[- ]frame`), "Full Frame Mirrorless"},
	{[]domain.UpdateType{domain.TypeCamera}, regexp.MustCompile(`(?i)\baps-c\b`), "APS-C Mirrorless"},
	{[]domain.UpdateType{domain.TypeCamera}, regexp.MustCompile(`(?i)medium format`), "Medium Format"},
	{[]domain.UpdateType{domain.TypeCamera}, regexp.MustCompile(`(?i)\bcinema\b|\bcine\b`), "Cinema"},
	{[]domain.UpdateType{domain.TypeCamera}, regexp.MustCompile(`(?i)\bcompact\b|point-and-shoot`), "Compact"},
}

const defaultCategory = "General"

// ClassifyCategory labels an update from keywords in its text.
func ClassifyCategory(typ domain.UpdateType, text string) string {
	for _, rule := range categoryRules {
		if !slices.Contains(rule.types, typ) {
			continue
		}
		if rule.pattern == nil || rule.pattern.MatchString(text) {
			return rule.label
		}
	}
	return defaultCategory
}

var (
	apertureExpr       = regexp.MustCompile(`(?i)\bf/?\d{1,2}(\.\d{1,2})?\b`)
	titleVersionExpr   = regexp.MustCompile(`(?i)\bv?(\d{1,2}\.\d{1,2}(?:\.\d{1,2})?)\b`)
	contextVersionExpr = regexp.MustCompile(`(?i)\b(?:version|ver\.?|v|firmware)\s*(\d{1,2}\.\d{1,2}(?:\.\d{1,2})?)\b`)
)

// ExtractVersion finds a dotted version number in the title, or in the
// context when it is introduced by a version keyword. Apertures such as
// f/2.8 are never versions.
func ExtractVersion(title, context string) string {
	if m := titleVersionExpr.FindStringSubmatch(apertureExpr.ReplaceAllString(title, " ")); m != nil {
		return m[1]
	}
	if m := contextVersionExpr.FindStringSubmatch(apertureExpr.ReplaceAllString(context, " ")); m != nil {
		return m[1]
	}
	return ""
}

const (
	longMonths  = `January|February|March|April|May|June|July|August|September|October|November|December`
	shortMonths = `Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sept|Sep|Oct|Nov|Dec`
)

type datePattern struct {
	expr    *regexp.Regexp
	layouts []string
}

var datePatterns = []datePattern{
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), []string{"2006-01-02"}},
	{regexp.MustCompile(`\b\d{4}/\d{2}/\d{2}\b`), []string{"2006/01/02"}},
	{regexp.MustCompile(`(?i)\b(` + longMonths + `)\s+\d{1,2},?\s+\d{4}\b`), []string{"January 2, 2006", "January 2 2006"}},
	{regexp.MustCompile(`(?i)\b(` + shortMonths + `)\.?\s+\d{1,2},?\s+\d{4}\b`), []string{"Jan 2, 2006", "Jan 2 2006"}},
	{regexp.MustCompile(`(?i)\b\d{1,2}\s+(` + longMonths + `)\s+\d{4}\b`), []string{"2 January 2006"}},
	{regexp.MustCompile(`(?i)\b\d{1,2}\s+(` + shortMonths + `)\.?\s+\d{4}\b`), []string{"2 Jan 2006"}},
}

var septExpr = regexp.MustCompile(`(?i)\bsept\b`)

// ExtractDate returns the first recognizable calendar date in the texts.
// Every match of a pattern is tried, so an impossible date such as
// 2024-99-01 does not hide a valid one later in the text.
func ExtractDate(texts ...string) (time.Time, bool) {
	for _, text := range texts {
		for _, p := range datePatterns {
			for _, match := range p.expr.FindAllString(text, -1) {
				if parsed, ok := parseDate(match, p.layouts); ok {
					return parsed, true
				}
			}
		}
	}
	return time.Time{}, false
}

func parseDate(match string, layouts []string) (time.Time, bool) {
	match = strings.Join(strings.Fields(strings.Replace(match, ".", "", 1)), " ")
	match = septExpr.ReplaceAllString(match, "Sep")
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, match); err == nil {
			return domain.Day(parsed), true
		}
	}
	return time.Time{}, false
}
