package scanner

import (
	"context"
	"fmt"
)

// Listing is a trusted index page of a brand, scanned with a named strategy.
type Listing struct {
	Name    string
	URL     string
	Scanner string
}

// Brand groups the ordered listing pages of one manufacturer.
type Brand struct {
	Name     string
	Listings []Listing
}

// Request carries a fetched listing page to a scanner.
type Request struct {
	Brand   string
	Listing Listing
	Body    []byte
}

// Link is a candidate article URL found on a listing page.
type Link struct {
	URL  string
	Text string
}

// Scanner captures a single link-discovery strategy (html, feed, etc.).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]Link, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds a registry holding the given scanners.
func NewRegistry(scanners ...Scanner) *Registry {
	r := &Registry{scanners: map[string]Scanner{}}
	for _, s := range scanners {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}
