package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"CameraUpdates/internal/domain"
	"CameraUpdates/internal/quality"
)

const (
	minParagraphLen      = 30
	maxSiblingParagraphs = 3
	maxDescriptionLen    = 280
)

var (
	focalLengthExpr  = regexp.MustCompile(`(?i)\b\d{1,4}(?:-\d{1,4})?\s?mm\b`)
	lensApertureExpr = regexp.MustCompile(`(?i)\bf/?(\d{1,2}(?:\.\d{1,2})?(?:-\d{1,2}(?:\.\d{1,2})?)?)\b`)
)

// describe walks the description tiers and falls back to a template when
// no tier yields a meaningful text.
func (e *Extractor) describe(c candidate, u domain.CameraUpdate, pageExcerpt string) string {
	tiers := []func() string{
		func() string { return e.fromSiblings(c) },
		func() string { return e.fromContainer(c) },
		func() string { return e.fromExcerpt(c, pageExcerpt) },
	}
	for _, tier := range tiers {
		if text := tier(); text != "" && quality.IsMeaningfulDescription(u.Title, text) {
			return text
		}
	}
	return Template(u)
}

func (e *Extractor) fromSiblings(c candidate) string {
	var parts []string
	c.sel.NextAll().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Is(headingSelector) || s.Is(candidateSelector) || s.Find(headingSelector).Length() > 0 {
			return false
		}
		if !s.Is("p, div") {
			return true
		}
		if text := collapse(s.Text()); e.qualifies(text, c.title) {
			parts = append(parts, text)
		}
		return len(parts) < maxSiblingParagraphs
	})
	return shorten(strings.Join(parts, " "), maxDescriptionLen)
}

func (e *Extractor) fromContainer(c candidate) string {
	if !c.container.Is(containerSelector) {
		return ""
	}
	var found string
	c.container.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if text := collapse(p.Text()); e.qualifies(text, c.title) {
			found = text
			return false
		}
		return true
	})
	return shorten(found, maxDescriptionLen)
}

func (e *Extractor) fromExcerpt(c candidate, pageExcerpt string) string {
	var found string
	c.container.Find(excerptSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := collapse(s.Text())
		if text == "" {
			text, _ = s.Attr("content")
			text = collapse(text)
		}
		if e.qualifies(text, c.title) {
			found = text
			return false
		}
		return true
	})
	if found == "" && e.qualifies(pageExcerpt, c.title) {
		found = pageExcerpt
	}
	return shorten(found, maxDescriptionLen)
}

func (e *Extractor) qualifies(text, title string) bool {
	if utf8.RuneCountInString(text) <= minParagraphLen {
		return false
	}
	if strings.Contains(strings.ToLower(text), strings.ToLower(title)) {
		return false
	}
	return e.validator.IsEnglishText(text)
}

// Template generates a description from type, brand and version. It never
// starts with the title.
func Template(u domain.CameraUpdate) string {
	brand := u.Brand
	if brand == "" {
		brand = "The manufacturer"
	}

	switch u.Type {
	case domain.TypeFirmware:
		if u.Version != "" {
			return fmt.Sprintf("%s has released firmware version %s for this model. The update focuses on improved stability and performance, and owners are encouraged to install it to get the latest fixes.", brand, u.Version)
		}
		return fmt.Sprintf("%s has released a new firmware update for this model. The update focuses on improved stability and performance, and owners are encouraged to install it to get the latest fixes.", brand)
	case domain.TypeLens:
		return fmt.Sprintf("%s has announced a new lens%s. It is designed to deliver sharp image quality with fast and quiet autofocus for both photo and video work.", brand, lensSpecs(u.Title))
	default:
		return fmt.Sprintf("%s has introduced a new camera that brings improvements to autofocus, sensor performance and video recording for photographers and filmmakers.", brand)
	}
}

func lensSpecs(title string) string {
	var specs []string
	if focal := focalLengthExpr.FindString(title); focal != "" {
		specs = append(specs, "a focal length of "+strings.ReplaceAll(focal, " ", ""))
	}
	if m := lensApertureExpr.FindStringSubmatch(title); m != nil {
		specs = append(specs, "a maximum aperture of f/"+m[1])
	}
	if len(specs) == 0 {
		return ""
	}
	return " with " + strings.Join(specs, " and ")
}

// shorten cuts at a word boundary and marks the cut.
func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut := string([]rune(s)[:n])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}
