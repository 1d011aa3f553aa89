package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"CameraUpdates/internal/ports"
)

// DefaultRequestDelay is the pause between successive requests to the same
// brand.
const DefaultRequestDelay = 900 * time.Millisecond

// Throttled inserts a pause between the end of one call to the wrapped
// fetcher and the start of the next. The first call passes immediately.
type Throttled struct {
	next  ports.PageFetcher
	limit rate.Limit

	mu      sync.Mutex
	limiter *rate.Limiter
}

var _ ports.PageFetcher = (*Throttled)(nil)

// NewThrottled wraps next; a non-positive delay disables throttling.
func NewThrottled(next ports.PageFetcher, delay time.Duration) *Throttled {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Throttled{next: next, limit: limit, limiter: rate.NewLimiter(limit, 1)}
}

// Fetch waits out the pause, delegates, and restarts the pause once the
// call has completed, whatever its outcome.
func (t *Throttled) Fetch(ctx context.Context, url string) ([]byte, error) {
	t.mu.Lock()
	limiter := t.limiter
	t.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle %s: %w", url, err)
	}
	body, err := t.next.Fetch(ctx, url)
	t.rest()
	return body, err
}

// rest replaces the limiter with one whose only token is already spent, so
// the next Wait lasts a full delay counted from now.
func (t *Throttled) rest() {
	limiter := rate.NewLimiter(t.limit, 1)
	limiter.Allow()

	t.mu.Lock()
	t.limiter = limiter
	t.mu.Unlock()
}
