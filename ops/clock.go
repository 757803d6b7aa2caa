package ops

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/goliatone/go-cloudops/core"
)

// Clock is the only time source the pollers use. Sleep returns early with
// the context error when the caller cancels mid-wait.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	return core.WaitWithContext(ctx, d)
}

// jitteredInterval spreads ticks across interval plus or minus jitter so
// many pollers started together do not align their transport calls.
func jitteredInterval(interval, jitter time.Duration) time.Duration {
	if interval <= 0 {
		return 0
	}
	if jitter <= 0 {
		return interval
	}
	if jitter > interval {
		jitter = interval
	}
	offset := time.Duration(rand.Int64N(int64(2*jitter)+1)) - jitter
	delay := interval + offset
	if delay < 0 {
		return 0
	}
	return delay
}
