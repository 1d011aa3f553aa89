package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"CameraUpdates/internal/domain"
	"CameraUpdates/internal/ports"
	"CameraUpdates/internal/scanner"
)

const (
	// MaxLinksPerBrand caps the URLs a brand contributes to one run.
	MaxLinksPerBrand = 15
	// DefaultScanner is used for listings that name no strategy.
	DefaultScanner = "html"

	maxURLLen   = 200
	minURLParts = 4
)

var truncationMarkers = []string{"...", "…", "%E2%80%A6"}

// Resolver turns a brand's listing pages into candidate article URLs via
// registered scanner strategies.
type Resolver struct {
	registry *scanner.Registry
	logger   *slog.Logger
}

// NewResolver wires a scanner registry.
func NewResolver(reg *scanner.Registry, log *slog.Logger) *Resolver {
	return &Resolver{registry: reg, logger: log}
}

// Resolve fetches every listing page of the brand and merges the accepted
// links. A failing listing contributes no links and a skip.
func (r *Resolver) Resolve(ctx context.Context, fetcher ports.PageFetcher, brand scanner.Brand) ([]string, []domain.Skip) {
	var (
		links []scanner.Link
		skips []domain.Skip
	)

	skip := func(listing scanner.Listing, reason domain.SkipReason, err error) {
		skips = append(skips, domain.Skip{
			Brand:   brand.Name,
			Stage:   domain.StageResolve,
			Subject: listing.URL,
			Reason:  reason,
			Detail:  err.Error(),
		})
	}

	r.debug("resolve brand", "brand", brand.Name, "listings", len(brand.Listings))
	for _, listing := range brand.Listings {
		if err := ctx.Err(); err != nil {
			skip(listing, domain.SkipCancelled, err)
			continue
		}

		found, err := r.scanListing(ctx, fetcher, brand.Name, listing)
		if err != nil {
			r.warn("listing failed", "brand", brand.Name, "url", listing.URL, "error", err)
			skip(listing, domain.SkipResolveFailed, err)
			continue
		}
		r.debug("listing produced links", "brand", brand.Name, "listing", listing.Name, "count", len(found))
		links = append(links, found...)
	}

	return SelectURLs(links), skips
}

func (r *Resolver) scanListing(ctx context.Context, fetcher ports.PageFetcher, brand string, listing scanner.Listing) ([]scanner.Link, error) {
	if r.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	name := listing.Scanner
	if name == "" {
		name = DefaultScanner
	}
	strategy, err := r.registry.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", listing.Name, err)
	}

	body, err := fetcher.Fetch(ctx, listing.URL)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", listing.Name, err)
	}

	found, err := strategy.Scan(ctx, scanner.Request{Brand: brand, Listing: listing, Body: body})
	if err != nil {
		return nil, fmt.Errorf("scan listing %s: %w", listing.Name, err)
	}
	return found, nil
}

// SelectURLs dedups links by exact URL, drops implausible ones and caps
// the result.
func SelectURLs(links []scanner.Link) []string {
	seen := make(map[string]struct{}, len(links))
	var urls []string
	for _, l := range links {
		if _, ok := seen[l.URL]; ok {
			continue
		}
		seen[l.URL] = struct{}{}
		if !plausibleURL(l.URL) {
			continue
		}
		urls = append(urls, l.URL)
		if len(urls) == MaxLinksPerBrand {
			break
		}
	}
	return urls
}

// plausibleURL rejects overlong and truncated URLs and bare hosts, which
// split into fewer than four slash-separated parts.
func plausibleURL(u string) bool {
	if len(u) > maxURLLen {
		return false
	}
	for _, marker := range truncationMarkers {
		if strings.Contains(u, marker) {
			return false
		}
	}
	return len(strings.Split(strings.TrimRight(u, "/"), "/")) >= minURLParts
}

func (r *Resolver) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Resolver) warn(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
