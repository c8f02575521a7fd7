package scheduler

import (
	"math"
	"time"
)

// RetryStrategy defines how a failed run is retried before waiting for the
// next scheduled slot. Retrying a check is safe: state only changes after a
// confirmed send and the terminal send ceiling bounds repeats.
type RetryStrategy struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retries)
	MaxRetries int
	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries
	MaxDelay time.Duration
	// BackoffFactor multiplies the delay after each attempt
	BackoffFactor float64
}

// DefaultRetryStrategy retries three times starting five minutes apart
func DefaultRetryStrategy() *RetryStrategy {
	return &RetryStrategy{
		MaxRetries:    3,
		InitialDelay:  5 * time.Minute,
		MaxDelay:      time.Hour,
		BackoffFactor: 2.0,
	}
}

// NoRetry returns a strategy that never retries
func NoRetry() *RetryStrategy {
	return &RetryStrategy{}
}

// NextDelay returns the delay before retry number attempt (1-indexed)
func (r *RetryStrategy) NextDelay(attempt int) time.Duration {
	if r == nil || attempt < 1 || attempt > r.MaxRetries {
		return 0
	}

	factor := r.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := time.Duration(float64(r.InitialDelay) * math.Pow(factor, float64(attempt-1)))
	if r.MaxDelay > 0 && delay > r.MaxDelay {
		return r.MaxDelay
	}
	return delay
}

// ShouldRetry reports whether another attempt follows attempt number attempt
func (r *RetryStrategy) ShouldRetry(attempt int) bool {
	return r != nil && attempt <= r.MaxRetries
}

// RunResult describes one attempt of a scheduled job
type RunResult struct {
	// ScheduledTime is the slot the attempt belongs to
	ScheduledTime time.Time
	StartTime     time.Time
	EndTime       time.Time
	Error         error
	// Attempt is 1 for the scheduled run, 2+ for retries
	Attempt   int
	WillRetry bool
}

// Success reports whether the attempt finished without error
func (r *RunResult) Success() bool {
	return r.Error == nil
}

// Duration returns how long the attempt took
func (r *RunResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// IsRetry returns true if this was a retry attempt
func (r *RunResult) IsRetry() bool {
	return r.Attempt > 1
}
