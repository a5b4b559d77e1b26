package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
	"github.com/couchcryptid/erg5-etl-service/internal/pipeline"
)

type recordingJob struct {
	mu    sync.Mutex
	days  []time.Time
	fails int
	calls chan struct{}
}

func newRecordingJob(fails int) *recordingJob {
	return &recordingJob{fails: fails, calls: make(chan struct{}, 16)}
}

func (j *recordingJob) run(_ context.Context, day time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.days = append(j.days, day)
	defer func() { j.calls <- struct{}{} }()
	if j.fails > 0 {
		j.fails--
		return errors.New("download failed")
	}
	return nil
}

func (j *recordingJob) wait(t *testing.T) {
	t.Helper()
	select {
	case <-j.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not called")
	}
}

func (j *recordingJob) recorded() []time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]time.Time(nil), j.days...)
}

func startScheduler(t *testing.T, s *pipeline.Scheduler) (cancel func()) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return func() {
		cancelCtx()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("scheduler did not stop")
		}
	}
}

func TestScheduler_RunsAtStartAndOnTick(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 1, 6, 30, 0, 0, time.UTC))
	// the package clock is a decoy; days come from the injected clock
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(1999, time.December, 31, 23, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	job := newRecordingJob(0)
	metrics := newTestMetrics()
	s := pipeline.NewScheduler(job.run, 24*time.Hour, 1, clock, slog.Default(), metrics)
	require.Error(t, s.CheckReadiness(context.Background()))

	stop := startScheduler(t, s)
	defer stop()

	job.wait(t)
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(24 * time.Hour)
	job.wait(t)

	assert.Equal(t, []time.Time{
		time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	}, job.recorded())
	require.NoError(t, s.CheckReadiness(context.Background()))
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Runs.WithLabelValues("success")), 0)
}

func TestScheduler_RetriesWithBackoff(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 1, 6, 30, 0, 0, time.UTC))

	job := newRecordingJob(2)
	metrics := newTestMetrics()
	s := pipeline.NewScheduler(job.run, 24*time.Hour, 1, clock, slog.Default(), metrics)

	stop := startScheduler(t, s)
	defer stop()

	job.wait(t)
	// ticker and backoff timer
	require.NoError(t, clock.BlockUntilContext(context.Background(), 2))
	clock.Advance(30 * time.Second)
	job.wait(t)
	require.NoError(t, clock.BlockUntilContext(context.Background(), 2))
	clock.Advance(time.Minute)
	job.wait(t)

	assert.Len(t, job.recorded(), 3)
	assert.Eventually(t, func() bool { return s.CheckReadiness(context.Background()) == nil }, time.Second, 10*time.Millisecond)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Runs.WithLabelValues("error")), 0)
}
