package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCronSchedulerValidatesExpression(t *testing.T) {
	t.Parallel()

	_, err := NewCronScheduler("every tuesday", Options{})
	assert.Error(t, err)

	s, err := NewCronScheduler("", Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultExpression, s.expr)
}

func TestNextUsesLocation(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*60*60)
	s, err := NewCronScheduler("0 6 * * *", Options{Location: tokyo})
	require.NoError(t, err)

	from := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC) // 09:00 JST
	next := s.Next(from)
	assert.True(t, next.Equal(time.Date(2025, 3, 15, 6, 0, 0, 0, tokyo)), "got %s", next)
}

func TestDefaultExpressionRunsEverySixHours(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler(DefaultExpression, Options{})
	require.NoError(t, err)

	next := s.Next(time.Date(2025, 3, 14, 7, 30, 0, 0, time.UTC))
	assert.True(t, next.Equal(time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)), "got %s", next)
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler("0 0 1 1 *", Options{RunImmediately: true})
	require.NoError(t, err)

	fired := make(chan time.Time, 1)
	require.NoError(t, s.Start(context.Background(), func(at time.Time) { fired <- at }))
	require.NoError(t, s.Start(context.Background(), func(time.Time) { t.Error("second start registered a job") }))

	select {
	case at := <-fired:
		assert.Equal(t, time.UTC, at.Location())
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestStopWaitsForRunningJob(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler("0 0 1 1 *", Options{RunImmediately: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, s.Start(ctx, func(time.Time) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	}))
	<-started

	cancel()
	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, finished.Load(), "Stop returned before the job completed")
}

func TestStopGivesUpAtDeadline(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler("0 0 1 1 *", Options{RunImmediately: true})
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.Start(context.Background(), func(time.Time) {
		close(started)
		<-release
	}))
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)
}
