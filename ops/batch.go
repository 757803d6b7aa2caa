package ops

import (
	"context"
	"fmt"
	"strings"
)

// BatchResult is one positional entry of a batch wait: either the fetched
// resource or the error that terminated the slot.
type BatchResult struct {
	Resource any
	Err      error
}

type batchSlot struct {
	descriptor Descriptor
	state      Status
	resultRef  string
	resource   any
	err        error
}

func (s *batchSlot) settled() bool {
	return s.err != nil || s.state.Terminal()
}

// BatchPoller drives many remote operations with one batched transport call
// per tick. Slots are independent: a slot's failure never blocks the rest of
// the batch.
type BatchPoller struct {
	Transport Transport
	Clock     Clock
	Reporter  ProgressReporter
}

func NewBatchPoller(transport Transport) *BatchPoller {
	return &BatchPoller{
		Transport: transport,
		Clock:     SystemClock{},
		Reporter:  NopReporter{},
	}
}

// WaitAll polls every descriptor until each is terminal or errored, then
// issues a single batched result fetch for the successful slots. The
// returned slice is positionally aligned with batch. When any slot failed
// the call also returns a MultiError keyed by slot index; the slice is
// complete either way.
//
// A transport failure of the batched poll itself is absorbed and retried on
// the next tick while time remains. An empty batch still issues one empty
// poll and one empty fetch, keeping the code path uniform.
func (p *BatchPoller) WaitAll(ctx context.Context, batch []Descriptor, opts WaitOptions) ([]BatchResult, error) {
	if p == nil || p.Transport == nil {
		return nil, fmt.Errorf("ops: batch poller requires a transport")
	}
	for index, descriptor := range batch {
		if err := descriptor.Validate(); err != nil {
			return nil, fmt.Errorf("ops: batch slot %d: %w", index, err)
		}
	}
	opts = opts.normalize(Descriptor{OperationName: fmt.Sprintf("batch of %d operations", len(batch))})
	clock := p.clock()
	reporter := p.reporter()

	slots := make([]batchSlot, len(batch))
	for index, descriptor := range batch {
		slots[index] = batchSlot{descriptor: descriptor, state: StatusPending}
	}

	startedAt := clock.Now()
	reporter.Progress(opts.Message)

	interrupted := false
	firstTick := true
	for {
		pending := pendingIndexes(slots)
		if !firstTick && len(pending) == 0 {
			break
		}

		if ctx.Err() != nil {
			markCancelled(slots, pending)
			interrupted = true
			break
		}
		if err := clock.Sleep(ctx, jitteredInterval(opts.Interval, opts.Jitter)); err != nil {
			markCancelled(slots, pending)
			interrupted = true
			break
		}
		if elapsed := clock.Now().Sub(startedAt); elapsed >= opts.Timeout {
			for _, index := range pending {
				slots[index].err = &TimeoutError{
					Name:      slots[index].descriptor.OperationName,
					LastState: slots[index].state,
					Elapsed:   elapsed,
				}
			}
			break
		}

		descriptors := make([]Descriptor, 0, len(pending))
		for _, index := range pending {
			descriptors = append(descriptors, slots[index].descriptor)
		}
		results, err := p.Transport.GetOperationsBatched(ctx, descriptors)
		firstTick = false
		if err != nil {
			reporter.Warning(fmt.Sprintf("batched poll failed, will retry: %v", err))
			continue
		}
		if len(results) != len(pending) {
			reporter.Warning(fmt.Sprintf("batched poll returned %d slots for %d operations, will retry",
				len(results), len(pending)))
			continue
		}

		for position, result := range results {
			index := pending[position]
			slot := &slots[index]
			if result.Err != nil {
				slot.err = &TransportError{
					Name: slot.descriptor.OperationName,
					Call: "get_operation",
					Err:  result.Err,
				}
				continue
			}
			slot.state = result.Snapshot.State
			switch result.Snapshot.State {
			case StatusDoneOK:
				slot.resultRef = strings.TrimSpace(result.Snapshot.ResultRef)
				if slot.resultRef == "" {
					slot.resultRef = slot.descriptor.ResultRef
				}
			case StatusDoneError:
				slot.err = &OperationErrors{
					Name:   slot.descriptor.OperationName,
					Errors: result.Snapshot.Errors,
				}
			}
		}

		if len(pendingIndexes(slots)) > 0 {
			reporter.Progress(opts.Message)
		}
	}

	p.fetchResults(ctx, slots, interrupted)

	results := make([]BatchResult, len(slots))
	errorsByIndex := map[int]error{}
	for index := range slots {
		if slots[index].err != nil {
			results[index] = BatchResult{Err: slots[index].err}
			errorsByIndex[index] = slots[index].err
			continue
		}
		results[index] = BatchResult{Resource: slots[index].resource}
	}
	multiErr := newMultiError(errorsByIndex)
	if multiErr != nil {
		reporter.Error(multiErr.Error())
		return results, multiErr
	}
	return results, nil
}

// fetchResults issues the single batched result fetch for every slot that
// reached DONE_OK. After a cancellation the fetch still runs, detached from
// the cancelled context, so completed slots keep their results.
func (p *BatchPoller) fetchResults(ctx context.Context, slots []batchSlot, interrupted bool) {
	fetchable := make([]int, 0, len(slots))
	resultRefs := make([]string, 0, len(slots))
	for index := range slots {
		if slots[index].err == nil && slots[index].state == StatusDoneOK {
			fetchable = append(fetchable, index)
			resultRefs = append(resultRefs, slots[index].resultRef)
		}
	}

	fetchCtx := ctx
	if interrupted {
		fetchCtx = context.WithoutCancel(ctx)
	}
	fetched, err := p.Transport.GetResultsBatched(fetchCtx, resultRefs)
	if err != nil || len(fetched) != len(fetchable) {
		if err == nil {
			err = fmt.Errorf("ops: batched fetch returned %d slots for %d references", len(fetched), len(fetchable))
		}
		for _, index := range fetchable {
			slots[index].err = &TransportError{
				Name: slots[index].descriptor.OperationName,
				Call: "get_results_batched",
				Err:  err,
			}
		}
		return
	}
	for position, result := range fetched {
		index := fetchable[position]
		if result.Err != nil {
			slots[index].err = &TransportError{
				Name: slots[index].descriptor.OperationName,
				Call: "get_result",
				Err:  result.Err,
			}
			continue
		}
		slots[index].resource = result.Resource
	}
}

func pendingIndexes(slots []batchSlot) []int {
	pending := make([]int, 0, len(slots))
	for index := range slots {
		if !slots[index].settled() {
			pending = append(pending, index)
		}
	}
	return pending
}

func markCancelled(slots []batchSlot, pending []int) {
	for _, index := range pending {
		slots[index].err = &CancelledError{
			Name:      slots[index].descriptor.OperationName,
			LastState: slots[index].state,
		}
	}
}

func (p *BatchPoller) clock() Clock {
	if p != nil && p.Clock != nil {
		return p.Clock
	}
	return SystemClock{}
}

func (p *BatchPoller) reporter() ProgressReporter {
	if p != nil && p.Reporter != nil {
		return p.Reporter
	}
	return NopReporter{}
}
