package ops

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// OperationErrors carries the structured errors a remote operation finished
// with. The rendered message contains every remote message verbatim.
type OperationErrors struct {
	Name   string
	Errors []OperationError
}

func (e *OperationErrors) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return fmt.Sprintf("ops: operation %s failed", e.operationName())
	}
	rendered := make([]string, 0, len(e.Errors))
	for _, operationError := range e.Errors {
		rendered = append(rendered, operationError.Error())
	}
	return fmt.Sprintf("ops: operation %s failed: %s", e.operationName(), strings.Join(rendered, "; "))
}

func (e *OperationErrors) operationName() string {
	if e == nil || strings.TrimSpace(e.Name) == "" {
		return "<unknown>"
	}
	return e.Name
}

// TimeoutError reports that polling exceeded the configured deadline. It
// carries the most recently observed state as context.
type TimeoutError struct {
	Name      string
	LastState Status
	Elapsed   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("ops: timed out waiting for operation %s after %s, last state %s",
		e.Name, e.Elapsed, e.LastState)
}

// CancelledError reports that the caller cancelled the wait between ticks.
// The remote operation is left running; nothing attempts to cancel it.
type CancelledError struct {
	Name      string
	LastState Status
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("ops: wait for operation %s cancelled, last state %s", e.Name, e.LastState)
}

func (e *CancelledError) Unwrap() error {
	return context.Canceled
}

// TransportError wraps a failed transport call so callers can tell a wire
// failure from a remote operation failure.
type TransportError struct {
	Name string
	Call string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ops: %s for operation %s failed: %v", e.Call, e.Name, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MultiError aggregates per-slot failures of a batch wait, keyed by the
// slot's position in the input batch.
type MultiError struct {
	ErrorsByIndex map[int]error
}

func newMultiError(errorsByIndex map[int]error) *MultiError {
	if len(errorsByIndex) == 0 {
		return nil
	}
	return &MultiError{ErrorsByIndex: errorsByIndex}
}

func (e *MultiError) Error() string {
	if e == nil || len(e.ErrorsByIndex) == 0 {
		return "ops: batch wait failed"
	}
	indexes := make([]int, 0, len(e.ErrorsByIndex))
	for index := range e.ErrorsByIndex {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	rendered := make([]string, 0, len(indexes))
	for _, index := range indexes {
		rendered = append(rendered, fmt.Sprintf("[%d] %v", index, e.ErrorsByIndex[index]))
	}
	return fmt.Sprintf("ops: %d of batch failed: %s", len(indexes), strings.Join(rendered, "; "))
}

func (e *MultiError) Unwrap() []error {
	if e == nil {
		return nil
	}
	indexes := make([]int, 0, len(e.ErrorsByIndex))
	for index := range e.ErrorsByIndex {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	unwrapped := make([]error, 0, len(indexes))
	for _, index := range indexes {
		unwrapped = append(unwrapped, e.ErrorsByIndex[index])
	}
	return unwrapped
}
