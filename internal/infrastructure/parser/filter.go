package parser

import (
	"net/url"
	"strings"

	"CameraUpdates/internal/scanner"
)

// MaxLinksPerListing caps the links accepted from one listing page.
const MaxLinksPerListing = 10

const maxSurroundingText = 300

var linkKeywords = []string{"firmware", "camera", "lens", "update", "announce"}

// Shopping, social and video hosts never carry vendor announcements.
var blockedDomains = []string{
	"amazon.com", "amazon.co.uk", "amazon.de", "amazon.co.jp",
	"ebay.com", "bhphotovideo.com", "adorama.com",
	"facebook.com", "twitter.com", "x.com", "instagram.com",
	"linkedin.com", "pinterest.com", "reddit.com", "tiktok.com",
	"youtube.com", "youtu.be", "vimeo.com",
}

// linkFilter accepts article-like links of one listing page.
type linkFilter struct {
	keywords []string
	base     *url.URL
	seen     map[string]struct{}
	links    []scanner.Link
}

func newLinkFilter(brand string, base *url.URL) *linkFilter {
	keywords := append([]string(nil), linkKeywords...)
	if b := strings.ToLower(strings.TrimSpace(brand)); b != "" {
		keywords = append(keywords, b)
	}
	return &linkFilter{keywords: keywords, base: base, seen: map[string]struct{}{}}
}

// offer considers a link and reports whether more links are wanted.
func (f *linkFilter) offer(href, text string) bool {
	if f.full() {
		return false
	}
	if !f.mentionsKeyword(text) {
		return true
	}
	resolved, ok := f.resolve(href)
	if !ok || isBlocked(resolved) {
		return true
	}
	key := resolved.String()
	if _, dup := f.seen[key]; dup {
		return true
	}
	f.seen[key] = struct{}{}
	f.links = append(f.links, scanner.Link{URL: key, Text: strings.TrimSpace(text)})
	return !f.full()
}

func (f *linkFilter) full() bool {
	return len(f.links) >= MaxLinksPerListing
}

func (f *linkFilter) mentionsKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (f *linkFilter) resolve(href string) (*url.URL, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, false
	}
	if f.base != nil {
		ref = f.base.ResolveReference(ref)
	}
	if (ref.Scheme != "http" && ref.Scheme != "https") || ref.Host == "" {
		return nil, false
	}
	ref.Fragment = ""
	return ref, true
}

func isBlocked(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, d := range blockedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return isSearchURL(u)
}

func isSearchURL(u *url.URL) bool {
	if strings.Contains(strings.ToLower(u.Path), "/search") {
		return true
	}
	q := u.Query()
	return q.Has("s") || q.Has("q")
}
