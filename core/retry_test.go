package core

import (
	"context"
	"testing"
	"time"
)

func TestExponentialBackoffScheduler_NextDelay(t *testing.T) {
	scheduler := ExponentialBackoffScheduler{
		Initial: 100 * time.Millisecond,
		Max:     2 * time.Second,
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{5, 1600 * time.Millisecond},
		{6, 2 * time.Second},
		{12, 2 * time.Second},
	}
	for _, tc := range cases {
		if got := scheduler.NextDelay(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: got %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestExponentialBackoffScheduler_Defaults(t *testing.T) {
	scheduler := ExponentialBackoffScheduler{}
	if got := scheduler.NextDelay(1); got != defaultBackoffInitial {
		t.Fatalf("expected default initial, got %s", got)
	}
	if got := scheduler.NextDelay(20); got != defaultBackoffMax {
		t.Fatalf("expected default max, got %s", got)
	}
}

func TestBackoffRetryPolicy_StopsAtMaxAttempts(t *testing.T) {
	policy := BackoffRetryPolicy(ExponentialBackoffScheduler{
		Initial: 10 * time.Millisecond,
		Max:     time.Second,
	}, 3)

	first := policy(nil, 1, 0)
	if !first.Retry || first.After != 10*time.Millisecond {
		t.Fatalf("attempt 1: expected retry after 10ms, got %+v", first)
	}
	second := policy(nil, 2, 15*time.Millisecond)
	if !second.Retry || second.After != 20*time.Millisecond {
		t.Fatalf("attempt 2: expected retry after 20ms, got %+v", second)
	}
	if final := policy(nil, 3, time.Second); final.Retry {
		t.Fatalf("attempt 3: expected give up, got %+v", final)
	}
}

func TestRetryDecisionConstructors(t *testing.T) {
	if d := RetryAfter(-time.Second); !d.Retry || d.After != 0 {
		t.Fatalf("expected negative delay clamped, got %+v", d)
	}
	if d := GiveUp(); d.Retry || d.After != 0 {
		t.Fatalf("expected zero decision, got %+v", d)
	}
}

func TestWaitWithContext(t *testing.T) {
	if err := WaitWithContext(context.Background(), 0); err != nil {
		t.Fatalf("zero delay should not block: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := WaitWithContext(ctx, time.Minute); err == nil {
		t.Fatalf("expected context error for cancelled wait")
	}

	if err := WaitWithContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("short wait: %v", err)
	}
}
