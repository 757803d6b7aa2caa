package core

import (
	"context"
	"time"
)

const (
	defaultBackoffInitial = 100 * time.Millisecond
	defaultBackoffMax     = 2 * time.Second
)

type BackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultBackoffInitial
	}
	max := s.Max
	if max <= 0 {
		max = defaultBackoffMax
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// RetryDecision is the outcome of a retry predicate: either retry after a
// delay or give up. Predicates are data; the caller owns the timing.
type RetryDecision struct {
	Retry bool
	After time.Duration
}

func RetryAfter(delay time.Duration) RetryDecision {
	if delay < 0 {
		delay = 0
	}
	return RetryDecision{Retry: true, After: delay}
}

func GiveUp() RetryDecision {
	return RetryDecision{}
}

// RetryPolicy is a pure function of the last error, the attempt index
// (1-based), and the elapsed time since the first attempt.
type RetryPolicy func(lastErr error, attempt int, elapsed time.Duration) RetryDecision

// BackoffRetryPolicy retries up to maxAttempts with the scheduler's delays.
func BackoffRetryPolicy(scheduler BackoffScheduler, maxAttempts int) RetryPolicy {
	return func(_ error, attempt int, _ time.Duration) RetryDecision {
		if maxAttempts > 0 && attempt >= maxAttempts {
			return GiveUp()
		}
		if scheduler == nil {
			return RetryAfter(defaultBackoffInitial)
		}
		return RetryAfter(scheduler.NextDelay(attempt))
	}
}

// WaitWithContext sleeps for delay or returns early with the context error.
func WaitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
