package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"CameraUpdates/internal/scanner"
)

// HTMLScanner collects article links from the anchors of an HTML listing page.
type HTMLScanner struct{}

// NewHTMLScanner returns the default listing strategy.
func NewHTMLScanner() *HTMLScanner {
	return &HTMLScanner{}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return "html"
}

// Scan accepts anchors whose own text or surrounding text mentions a
// camera keyword or the brand.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]scanner.Link, error) {
	base, err := url.Parse(req.Listing.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing url %s: %w", req.Listing.URL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", req.Listing.Name, err)
	}

	filter := newLinkFilter(req.Brand, base)
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if ctx.Err() != nil {
			return false
		}
		href, _ := a.Attr("href")
		return filter.offer(href, anchorText(a))
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return filter.links, nil
}

func anchorText(a *goquery.Selection) string {
	text := collapse(a.Text())
	if title, ok := a.Attr("title"); ok {
		text += " " + collapse(title)
	}
	surrounding := collapse(a.Parent().Text())
	if r := []rune(surrounding); len(r) > maxSurroundingText {
		surrounding = string(r[:maxSurroundingText])
	}
	return strings.TrimSpace(text + " " + surrounding)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
