package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-cloudops/ops"
)

// UnsupportedTransport stands in for operation services that have no
// configured backend yet. Every call fails with a configuration error that
// names the service.
type UnsupportedTransport struct {
	service string
	reason  string
}

func NewUnsupportedTransport(service string, reason string) *UnsupportedTransport {
	return &UnsupportedTransport{
		service: strings.TrimSpace(strings.ToLower(service)),
		reason:  strings.TrimSpace(reason),
	}
}

func (t *UnsupportedTransport) Service() string {
	if t == nil {
		return ""
	}
	return t.service
}

func (t *UnsupportedTransport) RecognizesService(tag string) bool {
	if t == nil {
		return false
	}
	return strings.TrimSpace(strings.ToLower(tag)) == t.service
}

func (t *UnsupportedTransport) GetOperation(context.Context, ops.Descriptor) (ops.OperationSnapshot, error) {
	return ops.OperationSnapshot{}, t.configurationError()
}

func (t *UnsupportedTransport) GetOperationsBatched(context.Context, []ops.Descriptor) ([]ops.BatchPollResult, error) {
	return nil, t.configurationError()
}

func (t *UnsupportedTransport) GetResult(context.Context, string) (any, error) {
	return nil, t.configurationError()
}

func (t *UnsupportedTransport) GetResultsBatched(context.Context, []string) ([]ops.BatchFetchResult, error) {
	return nil, t.configurationError()
}

func (t *UnsupportedTransport) configurationError() error {
	if t == nil {
		return fmt.Errorf("transport: transport is nil")
	}
	if t.reason != "" {
		return fmt.Errorf(
			"transport: %s transport is not configured: %s",
			t.service,
			t.reason,
		)
	}
	return fmt.Errorf("transport: %s transport is not configured", t.service)
}

var _ ops.Transport = (*UnsupportedTransport)(nil)
var _ ops.ServiceRecognizer = (*UnsupportedTransport)(nil)
