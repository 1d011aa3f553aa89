package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/mmcdole/gofeed"

	"CameraUpdates/internal/scanner"
)

// FeedScanner reads RSS, Atom and JSON feeds published as listing pages.
type FeedScanner struct{}

// NewFeedScanner returns the feed strategy.
func NewFeedScanner() *FeedScanner {
	return &FeedScanner{}
}

// Name identifies the strategy inside the registry.
func (f *FeedScanner) Name() string {
	return "feed"
}

// Scan tests each item's title and description against the same keywords
// as the html strategy.
func (f *FeedScanner) Scan(ctx context.Context, req scanner.Request) ([]scanner.Link, error) {
	base, err := url.Parse(req.Listing.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing url %s: %w", req.Listing.URL, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.Listing.Name, err)
	}

	filter := newLinkFilter(req.Brand, base)
	for _, item := range feed.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if item == nil {
			continue
		}
		link := item.Link
		if link == "" && len(item.Links) > 0 {
			link = item.Links[0]
		}
		if link == "" {
			continue
		}
		if !filter.offer(link, collapse(item.Title+" "+item.Description)) {
			break
		}
	}

	return filter.links, nil
}
