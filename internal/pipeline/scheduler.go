package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
	"github.com/couchcryptid/erg5-etl-service/internal/observability"
)

// Job processes the ERG5 file of one day.
type Job func(ctx context.Context, day time.Time) error

const (
	initialBackoff = 30 * time.Second
	maxBackoff     = 10 * time.Minute
	maxAttempts    = 4
)

// Scheduler runs a Job for the reference day once at start and then on
// every tick of interval.
type Scheduler struct {
	job       Job
	interval  time.Duration
	dayOffset int
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// NewScheduler creates a Scheduler processing the day dayOffset days before
// the current date of clock.
func NewScheduler(job Job, interval time.Duration, dayOffset int, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		job:       job,
		interval:  interval,
		dayOffset: dayOffset,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a run has succeeded.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no run has completed successfully yet")
	}
	return nil
}

// Run blocks until ctx is cancelled. A failed run is retried with
// exponential backoff, up to maxAttempts, before waiting for the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "day_offset", s.dayOffset)
	s.metrics.SchedulerActive.Set(1)
	defer s.metrics.SchedulerActive.Set(0)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runWithRetry(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

func (s *Scheduler) runWithRetry(ctx context.Context) {
	day := domain.DayBefore(s.clock.Now(), s.dayOffset)
	backoff := initialBackoff

	for attempt := 1; ; attempt++ {
		err := s.job(ctx, day)
		if err == nil {
			s.metrics.Runs.WithLabelValues("success").Inc()
			s.metrics.LastSuccessTime.Set(float64(s.clock.Now().Unix()))
			s.ready.Store(true)
			return
		}
		s.metrics.Runs.WithLabelValues("error").Inc()
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("run failed", "day", day.Format(time.DateOnly), "attempt", attempt, "error", err)
		if attempt == maxAttempts {
			return
		}
		if !sleepWithContext(ctx, s.clock, backoff) {
			return
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
