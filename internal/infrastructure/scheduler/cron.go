package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"CameraUpdates/internal/ports"
)

// DefaultExpression runs a sync every six hours.
const DefaultExpression = "0 */6 * * *"

// Options tunes the cron driver.
type Options struct {
	Location *time.Location
	// RunImmediately fires the job once on Start before the first tick.
	RunImmediately bool
	Logger         *slog.Logger
}

// CronScheduler drives recurring jobs from a standard five-field expression.
type CronScheduler struct {
	expr     string
	schedule cron.Schedule
	opts     Options

	mu       sync.Mutex
	cron     *cron.Cron
	inflight sync.WaitGroup
	now      func() time.Time
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler validates expr; an empty expression uses DefaultExpression.
func NewCronScheduler(expr string, opts Options) (*CronScheduler, error) {
	if expr == "" {
		expr = DefaultExpression
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("cron expression %q: %w", expr, err)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &CronScheduler{expr: expr, schedule: schedule, opts: opts, now: time.Now}, nil
}

// Next reports the first activation strictly after t.
func (c *CronScheduler) Next(t time.Time) time.Time {
	return c.schedule.Next(t.In(c.opts.Location))
}

// Start registers job and begins ticking. Calling Start twice is a no-op.
// The schedule runs until Stop; ctx is not watched.
func (c *CronScheduler) Start(_ context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	runner := cron.New(
		cron.WithLocation(c.opts.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	fire := func() { job(c.now().In(c.opts.Location)) }
	runner.Schedule(c.schedule, cron.FuncJob(fire))
	c.cron = runner

	if c.opts.Logger != nil {
		c.opts.Logger.Info("scheduler started", "expression", c.expr, "next", c.Next(c.now()))
	}
	if c.opts.RunImmediately {
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			fire()
		}()
	}
	runner.Start()
	return nil
}

// Stop halts ticking and waits for running jobs, including an immediate
// run, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.cron
	c.cron = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		<-runner.Stop().Done()
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
