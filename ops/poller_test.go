package ops

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-cloudops/core"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

type recordingReporter struct {
	progress []string
	warnings []string
	errors   []string
}

func (r *recordingReporter) Progress(message string) {
	r.progress = append(r.progress, message)
}

func (r *recordingReporter) Warning(message string) {
	r.warnings = append(r.warnings, message)
}

func (r *recordingReporter) Error(message string) {
	r.errors = append(r.errors, message)
}

type pollStep struct {
	snapshot OperationSnapshot
	err      error
}

type scriptedTransport struct {
	steps     []pollStep
	resources map[string]any
	fetchErr  error

	pollCalls  int
	fetchCalls int

	afterPoll func(call int)
}

func (t *scriptedTransport) GetOperation(_ context.Context, _ Descriptor) (OperationSnapshot, error) {
	t.pollCalls++
	defer func() {
		if t.afterPoll != nil {
			t.afterPoll(t.pollCalls)
		}
	}()
	if t.pollCalls > len(t.steps) {
		return OperationSnapshot{}, fmt.Errorf("unexpected poll %d", t.pollCalls)
	}
	step := t.steps[t.pollCalls-1]
	return step.snapshot, step.err
}

func (t *scriptedTransport) GetOperationsBatched(context.Context, []Descriptor) ([]BatchPollResult, error) {
	return nil, fmt.Errorf("not scripted")
}

func (t *scriptedTransport) GetResult(_ context.Context, resultRef string) (any, error) {
	t.fetchCalls++
	if t.fetchErr != nil {
		return nil, t.fetchErr
	}
	resource, ok := t.resources[resultRef]
	if !ok {
		return nil, fmt.Errorf("unknown result reference %q", resultRef)
	}
	return resource, nil
}

func (t *scriptedTransport) GetResultsBatched(context.Context, []string) ([]BatchFetchResult, error) {
	return nil, fmt.Errorf("not scripted")
}

func testDescriptor(t *testing.T) Descriptor {
	t.Helper()
	descriptor, err := NewDescriptor("operations/op-1", "compute.operations", "compute.instances")
	if err != nil {
		t.Fatalf("new descriptor: %v", err)
	}
	return descriptor
}

func newTestPoller(transport Transport, clock Clock, reporter ProgressReporter) *Poller {
	poller := NewPoller(transport)
	poller.Clock = clock
	poller.Reporter = reporter
	return poller
}

func TestPoller_WaitToSuccess(t *testing.T) {
	transport := &scriptedTransport{
		steps: []pollStep{
			{snapshot: OperationSnapshot{State: StatusPending}},
			{snapshot: OperationSnapshot{State: StatusPending}},
			{snapshot: OperationSnapshot{State: StatusDoneOK, ResultRef: "R"}},
		},
		resources: map[string]any{"R": "X"},
	}
	reporter := &recordingReporter{}
	poller := newTestPoller(transport, newFakeClock(), reporter)

	resource, err := poller.Wait(context.Background(), testDescriptor(t), WaitOptions{
		Message:  "instance creation",
		Interval: time.Second,
	})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if resource != "X" {
		t.Fatalf("expected resource X, got %v", resource)
	}
	if transport.pollCalls != 3 {
		t.Fatalf("expected 3 polls, got %d", transport.pollCalls)
	}
	if transport.fetchCalls != 1 {
		t.Fatalf("expected exactly one result fetch, got %d", transport.fetchCalls)
	}
	if len(reporter.progress) != 3 {
		t.Fatalf("expected 3 progress events, got %d", len(reporter.progress))
	}
	if reporter.progress[0] != "instance creation" {
		t.Fatalf("unexpected progress message %q", reporter.progress[0])
	}
	if len(reporter.warnings) != 0 || len(reporter.errors) != 0 {
		t.Fatalf("expected no warnings or errors, got %v / %v", reporter.warnings, reporter.errors)
	}
}

func TestPoller_WaitToOperationError(t *testing.T) {
	transport := &scriptedTransport{
		steps: []pollStep{
			{snapshot: OperationSnapshot{State: StatusPending}},
			{snapshot: OperationSnapshot{
				State: StatusDoneError,
				Errors: []OperationError{
					{Code: "BAD", Message: "Something happened"},
				},
			}},
		},
	}
	reporter := &recordingReporter{}
	poller := newTestPoller(transport, newFakeClock(), reporter)

	_, err := poller.Wait(context.Background(), testDescriptor(t), WaitOptions{Interval: time.Second})
	var operationErr *OperationErrors
	if !errors.As(err, &operationErr) {
		t.Fatalf("expected OperationErrors, got %v", err)
	}
	if !strings.Contains(err.Error(), "Something happened") {
		t.Fatalf("expected remote message surfaced, got %q", err.Error())
	}
	if transport.fetchCalls != 0 {
		t.Fatalf("expected no result fetch after DONE_ERROR")
	}
	if len(reporter.errors) != 1 {
		t.Fatalf("expected one error event, got %v", reporter.errors)
	}
}

func TestPoller_WaitTimeoutCarriesLastState(t *testing.T) {
	transport := &scriptedTransport{
		steps: []pollStep{
			{snapshot: OperationSnapshot{State: StatusPending}},
			{snapshot: OperationSnapshot{State: StatusRunning}},
		},
	}
	reporter := &recordingReporter{}
	poller := newTestPoller(transport, newFakeClock(), reporter)

	_, err := poller.Wait(context.Background(), testDescriptor(t), WaitOptions{
		Interval: time.Second,
		Timeout:  3 * time.Second,
	})
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if timeoutErr.LastState != StatusRunning {
		t.Fatalf("expected last observed state RUNNING, got %s", timeoutErr.LastState)
	}
	if transport.pollCalls != 2 {
		t.Fatalf("expected 2 polls before timeout, got %d", transport.pollCalls)
	}
	if transport.fetchCalls != 0 {
		t.Fatalf("expected no result fetch after timeout")
	}
	if len(reporter.errors) != 1 {
		t.Fatalf("expected final error event, got %v", reporter.errors)
	}
}

func TestPoller_WaitCancelledBetweenTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transport := &scriptedTransport{
		steps: []pollStep{
			{snapshot: OperationSnapshot{State: StatusRunning}},
		},
		afterPoll: func(int) { cancel() },
	}
	reporter := &recordingReporter{}
	poller := newTestPoller(transport, newFakeClock(), reporter)

	_, err := poller.Wait(ctx, testDescriptor(t), WaitOptions{Interval: time.Second})
	var cancelledErr *CancelledError
	if !errors.As(err, &cancelledErr) {
		t.Fatalf("expected CancelledError, got %v", err)
	}
	if cancelledErr.LastState != StatusRunning {
		t.Fatalf("expected last state RUNNING, got %s", cancelledErr.LastState)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain")
	}
	if transport.pollCalls != 1 {
		t.Fatalf("expected the in-flight tick to complete and no more, got %d polls", transport.pollCalls)
	}
	if transport.fetchCalls != 0 {
		t.Fatalf("expected no result fetch after cancellation")
	}
	if len(reporter.errors) != 1 {
		t.Fatalf("expected final error event, got %v", reporter.errors)
	}
}

func TestPoller_TransportErrorSurfacedWithoutRetry(t *testing.T) {
	transport := &scriptedTransport{
		steps: []pollStep{
			{err: fmt.Errorf("connection reset")},
		},
	}
	poller := newTestPoller(transport, newFakeClock(), &recordingReporter{})

	_, err := poller.Wait(context.Background(), testDescriptor(t), WaitOptions{Interval: time.Second})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.Call != "get_operation" {
		t.Fatalf("expected get_operation call tagged, got %s", transportErr.Call)
	}
	if transport.pollCalls != 1 {
		t.Fatalf("expected a single poll with no default retry, got %d", transport.pollCalls)
	}
}

func TestPoller_TransportRetryPolicy(t *testing.T) {
	transport := &scriptedTransport{
		steps: []pollStep{
			{err: fmt.Errorf("connection reset")},
			{err: fmt.Errorf("connection reset")},
			{snapshot: OperationSnapshot{State: StatusDoneOK, ResultRef: "R"}},
		},
		resources: map[string]any{"R": "X"},
	}
	poller := newTestPoller(transport, newFakeClock(), &recordingReporter{})

	resource, err := poller.Wait(context.Background(), testDescriptor(t), WaitOptions{
		Interval: time.Second,
		Retry: core.BackoffRetryPolicy(core.ExponentialBackoffScheduler{
			Initial: 10 * time.Millisecond,
			Max:     100 * time.Millisecond,
		}, 5),
	})
	if err != nil {
		t.Fatalf("wait with retry: %v", err)
	}
	if resource != "X" {
		t.Fatalf("expected resource X, got %v", resource)
	}
	if transport.pollCalls != 3 {
		t.Fatalf("expected 3 polls across retries, got %d", transport.pollCalls)
	}
}

func TestPoller_RetryDelayReplacesNextTick(t *testing.T) {
	transport := &scriptedTransport{
		steps: []pollStep{
			{err: fmt.Errorf("connection reset")},
			{snapshot: OperationSnapshot{State: StatusPending}},
			{snapshot: OperationSnapshot{State: StatusDoneOK, ResultRef: "R"}},
		},
		resources: map[string]any{"R": "X"},
	}
	clock := newFakeClock()
	poller := newTestPoller(transport, clock, &recordingReporter{})

	retryDelay := 50 * time.Millisecond
	_, err := poller.Wait(context.Background(), testDescriptor(t), WaitOptions{
		Interval: time.Second,
		Retry: func(error, int, time.Duration) core.RetryDecision {
			return core.RetryAfter(retryDelay)
		},
	})
	if err != nil {
		t.Fatalf("wait with retry: %v", err)
	}
	want := []time.Duration{time.Second, retryDelay, time.Second}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), clock.sleeps)
	}
	for i, d := range want {
		if clock.sleeps[i] != d {
			t.Fatalf("sleep %d: expected %s, got %s", i, d, clock.sleeps[i])
		}
	}
}

func TestPoller_AttemptBudgetResetsAfterSuccessfulPoll(t *testing.T) {
	transport := &scriptedTransport{
		steps: []pollStep{
			{err: fmt.Errorf("connection reset")},
			{snapshot: OperationSnapshot{State: StatusPending}},
			{err: fmt.Errorf("connection reset")},
			{snapshot: OperationSnapshot{State: StatusDoneOK, ResultRef: "R"}},
		},
		resources: map[string]any{"R": "X"},
	}
	poller := newTestPoller(transport, newFakeClock(), &recordingReporter{})

	// Two attempts total; each transient error must count from one again
	// once a poll has succeeded in between.
	resource, err := poller.Wait(context.Background(), testDescriptor(t), WaitOptions{
		Interval: time.Second,
		Retry: core.BackoffRetryPolicy(core.ExponentialBackoffScheduler{
			Initial: 10 * time.Millisecond,
		}, 2),
	})
	if err != nil {
		t.Fatalf("wait with retry: %v", err)
	}
	if resource != "X" {
		t.Fatalf("expected resource X, got %v", resource)
	}
	if transport.pollCalls != 4 {
		t.Fatalf("expected 4 polls, got %d", transport.pollCalls)
	}
}

func TestPoller_ResultFetchIsNeverRetried(t *testing.T) {
	transport := &scriptedTransport{
		steps: []pollStep{
			{snapshot: OperationSnapshot{State: StatusDoneOK, ResultRef: "R"}},
		},
		fetchErr: fmt.Errorf("gateway timeout"),
	}
	poller := newTestPoller(transport, newFakeClock(), &recordingReporter{})

	_, err := poller.Wait(context.Background(), testDescriptor(t), WaitOptions{
		Interval: time.Second,
		Retry: core.BackoffRetryPolicy(core.ExponentialBackoffScheduler{
			Initial: 10 * time.Millisecond,
		}, 5),
	})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.Call != "get_result" {
		t.Fatalf("expected get_result call tagged, got %s", transportErr.Call)
	}
	if transport.fetchCalls != 1 {
		t.Fatalf("expected exactly one fetch attempt, got %d", transport.fetchCalls)
	}
}

func TestPoller_ResultRefFallsBackToDescriptor(t *testing.T) {
	transport := &scriptedTransport{
		steps: []pollStep{
			{snapshot: OperationSnapshot{State: StatusDoneOK}},
		},
		resources: map[string]any{"projects/p/instances/i": "resource"},
	}
	poller := newTestPoller(transport, newFakeClock(), &recordingReporter{})

	descriptor, err := NewDescriptor("operations/op-1", "compute.operations", "compute.instances",
		WithResultRef("projects/p/instances/i"))
	if err != nil {
		t.Fatalf("new descriptor: %v", err)
	}
	resource, err := poller.Wait(context.Background(), descriptor, WaitOptions{Interval: time.Second})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if resource != "resource" {
		t.Fatalf("expected descriptor result reference used, got %v", resource)
	}
}
