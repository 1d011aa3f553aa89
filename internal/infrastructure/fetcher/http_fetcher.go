package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"CameraUpdates/internal/ports"
)

const (
	// UserAgent mimics a desktop browser; several vendor sites reject
	// unknown agents.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	DefaultTimeout    = 20 * time.Second
	DefaultAttempts   = 3
	DefaultRetryDelay = time.Second
	MaxBodyBytes      = 5 << 20
)

// ErrRetriesExhausted is wrapped by Fetch when every attempt failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// statusError marks a non-200 response.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.status)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// Options tune an HTTPFetcher; zero values select defaults.
type Options struct {
	Timeout    time.Duration
	Attempts   int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// HTTPFetcher downloads pages with bounded retries and linear backoff.
type HTTPFetcher struct {
	client     *http.Client
	attempts   int
	retryDelay time.Duration
	logger     *slog.Logger
}

var _ ports.PageFetcher = (*HTTPFetcher)(nil)

// New builds a fetcher; a nil client gets one with the configured timeout.
func New(client *http.Client, opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	} else if opts.RetryDelay == 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPFetcher{
		client:     client,
		attempts:   opts.Attempts,
		retryDelay: opts.RetryDelay,
		logger:     opts.Logger,
	}
}

// Fetch returns the body of url. After failed attempt n it waits
// n*RetryDelay; network errors, 429 and 5xx are retried, any other
// non-200 status fails at once.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, ctx.Err())
		}
		if attempt == f.attempts {
			break
		}

		f.debug("retry fetch", "url", url, "attempt", attempt, "error", err)
		if err := sleepCtx(ctx, time.Duration(attempt)*f.retryDelay); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
	}
	return nil, fmt.Errorf("fetch %s after %d attempts: %w: %w", url, f.attempts, ErrRetriesExhausted, lastErr)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodyBytes))
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (f *HTTPFetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
