package ops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-cloudops/core"
)

const (
	defaultPollInterval = time.Second
	defaultPollTimeout  = 30 * time.Minute
)

// WaitOptions tunes one wait invocation. The zero value polls every second
// for up to thirty minutes with no jitter and no transport retries.
type WaitOptions struct {
	Message  string
	Timeout  time.Duration
	Interval time.Duration
	Jitter   time.Duration

	// Retry governs transport failures of the poll call. Nil surfaces the
	// first transport error, which is what interactive callers want.
	Retry core.RetryPolicy
}

func (o WaitOptions) normalize(descriptor Descriptor) WaitOptions {
	if strings.TrimSpace(o.Message) == "" {
		o.Message = descriptor.OperationName
	}
	if o.Interval <= 0 {
		o.Interval = defaultPollInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultPollTimeout
	}
	if o.Jitter < 0 {
		o.Jitter = 0
	}
	return o
}

// Poller drives one remote operation to a terminal state and fetches its
// result. All waits run on the caller's goroutine; the injected clock owns
// every sleep and time read.
type Poller struct {
	Transport Transport
	Clock     Clock
	Reporter  ProgressReporter
}

func NewPoller(transport Transport) *Poller {
	return &Poller{
		Transport: transport,
		Clock:     SystemClock{},
		Reporter:  NopReporter{},
	}
}

// Wait polls descriptor until it reaches a terminal state, then fetches and
// returns the result resource. The result fetch is issued exactly once and
// never retried. Cancellation is observed at tick boundaries; an in-flight
// transport call is allowed to complete first.
func (p *Poller) Wait(ctx context.Context, descriptor Descriptor, opts WaitOptions) (any, error) {
	if p == nil || p.Transport == nil {
		return nil, fmt.Errorf("ops: poller requires a transport")
	}
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}
	opts = opts.normalize(descriptor)
	clock := p.clock()
	reporter := p.reporter()

	startedAt := clock.Now()
	reporter.Progress(opts.Message)

	lastState := StatusPending
	attempt := 0
	nextDelay := jitteredInterval(opts.Interval, opts.Jitter)
	for {
		if ctx.Err() != nil {
			return nil, p.cancelled(reporter, descriptor, lastState)
		}
		if err := clock.Sleep(ctx, nextDelay); err != nil {
			return nil, p.cancelled(reporter, descriptor, lastState)
		}
		if elapsed := clock.Now().Sub(startedAt); elapsed >= opts.Timeout {
			timeoutErr := &TimeoutError{Name: descriptor.OperationName, LastState: lastState, Elapsed: elapsed}
			reporter.Error(timeoutErr.Error())
			return nil, timeoutErr
		}

		snapshot, err := p.Transport.GetOperation(ctx, descriptor)
		if err != nil {
			attempt++
			if opts.Retry != nil {
				decision := opts.Retry(err, attempt, clock.Now().Sub(startedAt))
				if decision.Retry {
					// The retry delay replaces the next tick's interval.
					nextDelay = decision.After
					continue
				}
			}
			transportErr := &TransportError{Name: descriptor.OperationName, Call: "get_operation", Err: err}
			reporter.Error(transportErr.Error())
			return nil, transportErr
		}
		lastState = snapshot.State
		attempt = 0
		nextDelay = jitteredInterval(opts.Interval, opts.Jitter)

		switch snapshot.State {
		case StatusDoneOK:
			return p.fetchResult(ctx, reporter, descriptor, snapshot)
		case StatusDoneError:
			operationErr := &OperationErrors{Name: descriptor.OperationName, Errors: snapshot.Errors}
			reporter.Error(operationErr.Error())
			return nil, operationErr
		default:
			reporter.Progress(opts.Message)
		}
	}
}

func (p *Poller) fetchResult(
	ctx context.Context,
	reporter ProgressReporter,
	descriptor Descriptor,
	snapshot OperationSnapshot,
) (any, error) {
	resultRef := strings.TrimSpace(snapshot.ResultRef)
	if resultRef == "" {
		resultRef = descriptor.ResultRef
	}
	resource, err := p.Transport.GetResult(ctx, resultRef)
	if err != nil {
		transportErr := &TransportError{Name: descriptor.OperationName, Call: "get_result", Err: err}
		reporter.Error(transportErr.Error())
		return nil, transportErr
	}
	return resource, nil
}

func (p *Poller) cancelled(reporter ProgressReporter, descriptor Descriptor, lastState Status) error {
	cancelledErr := &CancelledError{Name: descriptor.OperationName, LastState: lastState}
	reporter.Error(cancelledErr.Error())
	return cancelledErr
}

func (p *Poller) clock() Clock {
	if p != nil && p.Clock != nil {
		return p.Clock
	}
	return SystemClock{}
}

func (p *Poller) reporter() ProgressReporter {
	if p != nil && p.Reporter != nil {
		return p.Reporter
	}
	return NopReporter{}
}
