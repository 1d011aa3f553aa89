// Package extract turns a fetched brand page into raw camera update
// candidates: headings become titles, their surrounding markup supplies
// type, version, date, features and a description.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"CameraUpdates/internal/domain"
	"CameraUpdates/internal/quality"
)

const (
	minCandidateLen = 10
	maxCandidateLen = 200
	maxFeatures     = 5
	minFeatureLen   = 15
	maxFeatureLen   = 300
	maxContextLen   = 2000
)

const (
	strippedSelector  = "script, style, noscript, iframe, nav, header, footer"
	candidateSelector = "h1, h2, h3, h4, .entry-title, .post-title, .article-title, .news-title"
	containerSelector = "article, section, .post, .entry, .news-item"
	headingSelector   = "h1, h2, h3, h4, h5, h6"
	excerptSelector   = ".excerpt, .summary, .entry-summary, [itemprop=description]"
)

var slugExpr = regexp.MustCompile(`[^a-z0-9]+`)

// Page is a fetched document together with the context it was fetched for.
type Page struct {
	Brand      string
	SourceName string
	URL        string
	HTML       []byte
	RunDate    time.Time
}

// Extractor builds raw candidates from page markup. Candidates are not
// validated here; the caller applies the quality gate.
type Extractor struct {
	validator *quality.Validator
}

// New returns an extractor; a nil validator uses default thresholds.
func New(validator *quality.Validator) *Extractor {
	if validator == nil {
		validator = quality.NewValidator(quality.DefaultThresholds())
	}
	return &Extractor{validator: validator}
}

type candidate struct {
	sel       *goquery.Selection
	container *goquery.Selection
	title     string
	context   string
}

type pageMeta struct {
	excerpt   string
	published *time.Time
}

// Extract returns zero or more candidates found on the page.
func (e *Extractor) Extract(page Page) ([]domain.CameraUpdate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", page.URL, err)
	}
	doc.Find(strippedSelector).Remove()

	candidates := findCandidates(doc)
	if len(candidates) == 0 {
		return nil, nil
	}

	// Page-level metadata only describes the page as a whole, so it is
	// attributed to a candidate only when there is exactly one.
	var meta pageMeta
	if len(candidates) == 1 {
		meta = readPageMeta(page)
	}

	base, _ := url.Parse(page.URL)
	updates := make([]domain.CameraUpdate, 0, len(candidates))
	for _, c := range candidates {
		updates = append(updates, e.build(page, base, c, meta))
	}
	return updates, nil
}

func findCandidates(doc *goquery.Document) []candidate {
	var candidates []candidate
	seen := map[string]struct{}{}

	doc.Find(candidateSelector).Each(func(_ int, sel *goquery.Selection) {
		title := collapse(sel.Text())
		n := utf8.RuneCountInString(title)
		if n < minCandidateLen || n > maxCandidateLen || quality.IsPromotional(title) {
			return
		}
		key := strings.ToLower(title)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}

		container := sel.Closest(containerSelector)
		if container.Length() == 0 {
			container = sel.Parent()
		}
		candidates = append(candidates, candidate{
			sel:       sel,
			container: container,
			title:     title,
			context:   truncateRunes(collapse(container.Text()), maxContextLen),
		})
	})

	return candidates
}

func (e *Extractor) build(page Page, base *url.URL, c candidate, meta pageMeta) domain.CameraUpdate {
	typ := Classify(c.title, c.context)
	text := c.title + " " + c.context

	date, ok := ExtractDate(c.title, c.context)
	if !ok && meta.published != nil {
		date, ok = domain.Day(*meta.published), true
	}
	if !ok {
		date = domain.Day(page.RunDate)
	}

	u := domain.CameraUpdate{
		Brand:        page.Brand,
		Type:         typ,
		Title:        c.title,
		Date:         date,
		Version:      ExtractVersion(c.title, c.context),
		Features:     collectFeatures(c),
		DownloadLink: downloadLink(c, base),
		SourceURL:    page.URL,
		SourceName:   page.SourceName,
		Priority:     ClassifyPriority(text),
		Category:     ClassifyCategory(typ, text),
	}
	u.Description = e.describe(c, u, meta.excerpt)
	u.ImageURL = imagePath(u)
	return u
}

// collectFeatures reads the list items next to the candidate, widening to
// the whole container when the candidate's parent holds none.
func collectFeatures(c candidate) []string {
	items := c.sel.Parent().Find("li")
	if items.Length() == 0 {
		items = c.container.Find("li")
	}

	var features []string
	items.EachWithBreak(func(_ int, li *goquery.Selection) bool {
		text := collapse(li.Text())
		if n := utf8.RuneCountInString(text); n >= minFeatureLen && n <= maxFeatureLen {
			features = append(features, text)
		}
		return len(features) < maxFeatures
	})
	return features
}

func downloadLink(c candidate, base *url.URL) string {
	var link string
	c.container.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		hay := strings.ToLower(href + " " + a.Text())
		if strings.Contains(hay, "download") || strings.Contains(hay, "firmware") {
			link = resolveURL(base, href)
			return false
		}
		return true
	})
	return link
}

func readPageMeta(page Page) pageMeta {
	base, err := url.Parse(page.URL)
	if err != nil {
		return pageMeta{}
	}
	article, err := readability.FromReader(bytes.NewReader(page.HTML), base)
	if err != nil {
		return pageMeta{}
	}
	return pageMeta{excerpt: collapse(article.Excerpt), published: article.PublishedTime}
}

// imagePath is a synthetic, deterministic placeholder; nothing is fetched.
func imagePath(u domain.CameraUpdate) string {
	return fmt.Sprintf("/images/%s/%s/%s.jpg", u.Type, slug(u.Brand), slug(u.Title))
}

func slug(s string) string {
	return truncateRunes(strings.Trim(slugExpr.ReplaceAllString(strings.ToLower(s), "-"), "-"), 60)
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
