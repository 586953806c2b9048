package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func countingJob(name string, counter *atomic.Int32, err error) Job {
	return JobFunc{JobName: name, Fn: func(context.Context) error {
		counter.Add(1)
		return err
	}}
}

func TestDailyAt_Next(t *testing.T) {
	trigger := DailyAt{Hour: 2, Minute: 30}

	before := time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 14, 2, 30, 0, 0, time.UTC), trigger.Next(before))

	exact := time.Date(2026, 3, 14, 2, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 15, 2, 30, 0, 0, time.UTC), trigger.Next(exact))

	eat := time.FixedZone("EAT", 3*3600)
	local := time.Date(2026, 3, 14, 5, 0, 0, 0, eat) // 02:00 UTC
	assert.Equal(t, time.Date(2026, 3, 14, 2, 30, 0, 0, time.UTC), trigger.Next(local))

	assert.Equal(t, "daily at 02:30 UTC", trigger.String())
}

func TestEvery_Next(t *testing.T) {
	at := time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, at.Add(time.Hour), Every(time.Hour).Next(at))
	assert.Equal(t, "every 1h0m0s", Every(time.Hour).String())
}

func TestScheduler_Register(t *testing.T) {
	s := New(DefaultConfig(), zap.NewNop())
	var n atomic.Int32

	require.NoError(t, s.Register(countingJob("a", &n, nil), Every(time.Hour)))
	assert.ErrorIs(t, s.Register(countingJob("a", &n, nil), Every(time.Hour)), ErrDuplicateJob)
	assert.ErrorIs(t, s.Register(countingJob("b", &n, nil), Every(0)), ErrInvalidTrigger)
	assert.ErrorIs(t, s.Register(countingJob("c", &n, nil), DailyAt{Hour: 24}), ErrInvalidTrigger)
	assert.ErrorIs(t, s.Register(countingJob("d", &n, nil), nil), ErrInvalidTrigger)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())
	assert.ErrorIs(t, s.Register(countingJob("e", &n, nil), Every(time.Hour)), ErrSchedulerRunning)
}

func TestScheduler_RunsIntervalJobs(t *testing.T) {
	s := New(Config{JobTimeout: time.Second, RunOnStart: true}, zap.NewNop())
	var n atomic.Int32
	require.NoError(t, s.Register(countingJob("tick", &n, nil), Every(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return n.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	states := s.States()
	require.Len(t, states, 1)
	assert.Equal(t, JobStatusSuccess, states[0].Status)
	assert.GreaterOrEqual(t, states[0].Runs, 3)
	assert.NotNil(t, states[0].LastFinishedAt)
}

func TestScheduler_TriggerRunsDailyJobEarly(t *testing.T) {
	s := New(DefaultConfig(), zap.NewNop())
	var n atomic.Int32
	require.NoError(t, s.Register(countingJob("nightly", &n, nil), DailyAt{Hour: 2}))

	assert.ErrorIs(t, s.Trigger("nightly"), ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	assert.ErrorIs(t, s.Trigger("missing"), ErrJobNotFound)
	require.NoError(t, s.Trigger("nightly"))
	assert.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_RunNowRecordsFailure(t *testing.T) {
	s := New(DefaultConfig(), zap.NewNop())
	var n atomic.Int32
	require.NoError(t, s.Register(countingJob("broken", &n, errors.New("db down")), Every(time.Hour)))

	err := s.RunNow(context.Background(), "broken")
	assert.EqualError(t, err, "db down")

	state := s.States()[0]
	assert.Equal(t, JobStatusFailed, state.Status)
	assert.Equal(t, 1, state.Failures)
	assert.Equal(t, "db down", state.LastError)

	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrJobNotFound)
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := New(DefaultConfig(), zap.NewNop())
	require.NoError(t, s.Register(JobFunc{JobName: "panicky", Fn: func(context.Context) error {
		panic("boom")
	}}, Every(time.Hour)))

	err := s.RunNow(context.Background(), "panicky")
	assert.ErrorContains(t, err, "job panicky panicked: boom")
	assert.Equal(t, JobStatusFailed, s.States()[0].Status)
}

func TestScheduler_RunsDoNotOverlap(t *testing.T) {
	s := New(DefaultConfig(), zap.NewNop())
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.Register(JobFunc{JobName: "slow", Fn: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}, Every(time.Hour)))

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background(), "slow") }()
	<-started

	assert.ErrorIs(t, s.RunNow(context.Background(), "slow"), ErrJobInProgress)
	close(release)
	require.NoError(t, <-done)
}

func TestScheduler_JobTimeout(t *testing.T) {
	s := New(Config{JobTimeout: 20 * time.Millisecond}, zap.NewNop())
	require.NoError(t, s.Register(JobFunc{JobName: "stuck", Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}, Every(time.Hour)))

	err := s.RunNow(context.Background(), "stuck")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScheduler_StopIdempotent(t *testing.T) {
	s := New(DefaultConfig(), nil)
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
