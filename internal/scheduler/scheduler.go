// Package scheduler runs the switch's checks on a schedule inside the
// serve process, for deployments without an external cron
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lcrostarosa/lastword/internal/logging"
)

// Job is the work run at each slot
type Job func(ctx context.Context) error

// Status is a snapshot of the scheduler
type Status struct {
	Running   bool
	LastRun   time.Time
	LastError error
	NextRun   time.Time
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock replaces the wall clock, for tests
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithRetry sets the retry strategy (default: NoRetry)
func WithRetry(r *RetryStrategy) Option {
	return func(s *Scheduler) { s.retry = r }
}

// WithCallbacks sets lifecycle hooks
func WithCallbacks(c *Callbacks) Option {
	return func(s *Scheduler) { s.callbacks = c }
}

// WithRunOnStart runs the job once immediately after Start
func WithRunOnStart() Option {
	return func(s *Scheduler) { s.runOnStart = true }
}

// Scheduler runs a Job at every slot of a Schedule
type Scheduler struct {
	schedule   *Schedule
	job        Job
	clock      clockwork.Clock
	retry      *RetryStrategy
	callbacks  *Callbacks
	runOnStart bool

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastRun   time.Time
	lastError error
	nextRun   time.Time
}

// New creates a scheduler
func New(schedule *Schedule, job Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		schedule: schedule,
		job:      job,
		clock:    clockwork.NewRealClock(),
		retry:    NoRetry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the scheduler loop. It is a no-op when already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.running = true
	go s.loop(ctx, s.done)
}

// Stop cancels the loop and waits for an in-flight run to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// Status returns the scheduler state
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:   s.running,
		LastRun:   s.lastRun,
		LastError: s.lastError,
		NextRun:   s.nextRun,
	}
}

// Schedule returns the active schedule
func (s *Scheduler) Schedule() *Schedule {
	return s.schedule
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if s.runOnStart {
		s.RunNow(ctx, s.clock.Now())
	}

	for {
		next := s.schedule.NextRun(s.clock.Now())
		s.mu.Lock()
		s.nextRun = next
		s.mu.Unlock()

		logging.Info("Next scheduled check",
			logging.String("schedule", s.schedule.String()),
			logging.Time("at", next))

		if !s.sleep(ctx, next.Sub(s.clock.Now())) {
			logging.Info("Scheduler stopped")
			return
		}
		s.RunNow(ctx, next)
	}
}

// sleep waits for d or until ctx is done, reporting whether it slept fully
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d < 0 {
		d = 0
	}
	timer := s.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

// RunNow runs the job for the given slot, retrying per the strategy, and
// returns the last error
func (s *Scheduler) RunNow(ctx context.Context, slot time.Time) error {
	var failures []*RunResult
	for attempt := 1; ; attempt++ {
		result := &RunResult{ScheduledTime: slot, StartTime: s.clock.Now(), Attempt: attempt}
		s.callbacks.runStart(result)

		result.Error = s.job(ctx)
		result.EndTime = s.clock.Now()

		s.mu.Lock()
		s.lastRun = result.EndTime
		s.lastError = result.Error
		s.mu.Unlock()

		if result.Success() {
			logging.Info("Scheduled check completed",
				logging.Int("attempt", attempt),
				logging.Duration("duration", result.Duration()))
			s.callbacks.runSuccess(result)
			return nil
		}

		failures = append(failures, result)
		result.WillRetry = s.retry.ShouldRetry(attempt) && ctx.Err() == nil
		logging.Warn("Scheduled check failed",
			logging.Int("attempt", attempt),
			logging.Bool("will_retry", result.WillRetry),
			logging.Err(result.Error))
		s.callbacks.runFailure(result)

		if !result.WillRetry || !s.sleep(ctx, s.retry.NextDelay(attempt)) {
			s.callbacks.retryExhausted(failures)
			return result.Error
		}
	}
}
