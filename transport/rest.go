// Package transport provides concrete ops.Transport implementations. The REST
// transport speaks a small JSON protocol over HTTP: one GET per operation
// poll, one POST per batched poll, and mirror calls for result fetches.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-cloudops/ops"
)

const defaultHTTPClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTTransport drives remote operations over HTTP. Endpoint shape:
//
//	GET  {base}/{operationService}/{operationName}
//	POST {base}/{operationService}:batchPoll   {"operations": [names]}
//	GET  {base}/{resultRef}
//	POST {base}/resources:batchGet             {"refs": [refs]}
//
// Poll responses decode into operation snapshots; result responses decode
// into arbitrary JSON resources.
type RESTTransport struct {
	Client               HTTPDoer
	BaseURL              string
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewRESTTransport(baseURL string, client HTTPDoer) *RESTTransport {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPClientTimeout}
	}
	return &RESTTransport{
		Client:               client,
		BaseURL:              strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

type snapshotPayload struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	ResultRef string `json:"result_ref,omitempty"`
	Errors    []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

func (p snapshotPayload) toSnapshot() ops.OperationSnapshot {
	snapshot := ops.OperationSnapshot{
		Name:      p.Name,
		State:     ops.Status(strings.TrimSpace(strings.ToUpper(p.State))),
		ResultRef: p.ResultRef,
	}
	for _, remote := range p.Errors {
		snapshot.Errors = append(snapshot.Errors, ops.OperationError{
			Code:    remote.Code,
			Message: remote.Message,
		})
	}
	return snapshot
}

func (t *RESTTransport) GetOperation(ctx context.Context, descriptor ops.Descriptor) (ops.OperationSnapshot, error) {
	if err := t.ready(); err != nil {
		return ops.OperationSnapshot{}, err
	}
	endpoint, err := t.endpoint(descriptor.OperationService, descriptor.OperationName)
	if err != nil {
		return ops.OperationSnapshot{}, err
	}

	var payload snapshotPayload
	if err := t.roundTrip(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return ops.OperationSnapshot{}, err
	}
	return payload.toSnapshot(), nil
}

func (t *RESTTransport) GetOperationsBatched(ctx context.Context, descriptors []ops.Descriptor) ([]ops.BatchPollResult, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	service, err := uniformOperationService(descriptors)
	if err != nil {
		return nil, err
	}
	endpoint, err := t.endpoint(service + ":batchPoll")
	if err != nil {
		return nil, err
	}

	names := make([]string, len(descriptors))
	for i, descriptor := range descriptors {
		names[i] = descriptor.OperationName
	}
	request := map[string]any{"operations": names}
	var payload struct {
		Results []struct {
			Snapshot *snapshotPayload `json:"snapshot,omitempty"`
			Error    string           `json:"error,omitempty"`
		} `json:"results"`
	}
	if err := t.roundTrip(ctx, http.MethodPost, endpoint, request, &payload); err != nil {
		return nil, err
	}
	if len(payload.Results) != len(descriptors) {
		return nil, transportError(
			fmt.Sprintf("transport: batched poll returned %d results for %d operations", len(payload.Results), len(descriptors)),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"operation_service": service},
		)
	}

	results := make([]ops.BatchPollResult, len(descriptors))
	for i, slot := range payload.Results {
		if strings.TrimSpace(slot.Error) != "" {
			results[i] = ops.BatchPollResult{Err: transportError(
				slot.Error,
				goerrors.CategoryExternal,
				http.StatusBadGateway,
				map[string]any{"operation": descriptors[i].OperationName},
			)}
			continue
		}
		if slot.Snapshot == nil {
			results[i] = ops.BatchPollResult{Err: transportError(
				"transport: batched poll slot has neither snapshot nor error",
				goerrors.CategoryExternal,
				http.StatusBadGateway,
				map[string]any{"operation": descriptors[i].OperationName},
			)}
			continue
		}
		results[i] = ops.BatchPollResult{Snapshot: slot.Snapshot.toSnapshot()}
	}
	return results, nil
}

func (t *RESTTransport) GetResult(ctx context.Context, resultRef string) (any, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	endpoint, err := t.endpoint(resultRef)
	if err != nil {
		return nil, err
	}
	var resource any
	if err := t.roundTrip(ctx, http.MethodGet, endpoint, nil, &resource); err != nil {
		return nil, err
	}
	return resource, nil
}

func (t *RESTTransport) GetResultsBatched(ctx context.Context, resultRefs []string) ([]ops.BatchFetchResult, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	endpoint, err := t.endpoint("resources:batchGet")
	if err != nil {
		return nil, err
	}

	request := map[string]any{"refs": resultRefs}
	var payload struct {
		Results []struct {
			Resource json.RawMessage `json:"resource,omitempty"`
			Error    string          `json:"error,omitempty"`
		} `json:"results"`
	}
	if err := t.roundTrip(ctx, http.MethodPost, endpoint, request, &payload); err != nil {
		return nil, err
	}
	if len(payload.Results) != len(resultRefs) {
		return nil, transportError(
			fmt.Sprintf("transport: batched fetch returned %d results for %d refs", len(payload.Results), len(resultRefs)),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			nil,
		)
	}

	results := make([]ops.BatchFetchResult, len(resultRefs))
	for i, slot := range payload.Results {
		if strings.TrimSpace(slot.Error) != "" {
			results[i] = ops.BatchFetchResult{Err: transportError(
				slot.Error,
				goerrors.CategoryExternal,
				http.StatusBadGateway,
				map[string]any{"result_ref": resultRefs[i]},
			)}
			continue
		}
		var resource any
		if err := json.Unmarshal(slot.Resource, &resource); err != nil {
			results[i] = ops.BatchFetchResult{Err: transportWrapError(
				err,
				goerrors.CategoryExternal,
				"transport: decode batched resource",
				http.StatusBadGateway,
				map[string]any{"result_ref": resultRefs[i]},
			)}
			continue
		}
		results[i] = ops.BatchFetchResult{Resource: resource}
	}
	return results, nil
}

func (t *RESTTransport) ready() error {
	if t == nil || t.Client == nil {
		return transportError(
			"transport: rest transport requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if strings.TrimSpace(t.BaseURL) == "" {
		return transportError(
			"transport: rest transport requires a base url",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}
	return nil
}

func (t *RESTTransport) endpoint(segments ...string) (string, error) {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, strings.TrimRight(t.BaseURL, "/"))
	for _, segment := range segments {
		segment = strings.Trim(strings.TrimSpace(segment), "/")
		if segment == "" {
			return "", transportError(
				"transport: endpoint path segment is required",
				goerrors.CategoryBadInput,
				http.StatusBadRequest,
				nil,
			)
		}
		parts = append(parts, segment)
	}
	endpoint := strings.Join(parts, "/")
	if _, err := url.Parse(endpoint); err != nil {
		return "", transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid endpoint url",
			http.StatusBadRequest,
			map[string]any{"url": endpoint},
		)
	}
	return endpoint, nil
}

func (t *RESTTransport) roundTrip(ctx context.Context, method, endpoint string, body any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return transportWrapError(
				err,
				goerrors.CategoryInternal,
				"transport: encode request body",
				http.StatusInternalServerError,
				map[string]any{"url": endpoint},
			)
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"method": method, "url": endpoint},
		)
	}
	for key, value := range t.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	httpRes, err := t.Client.Do(httpReq)
	if err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: execute http request",
			http.StatusBadGateway,
			map[string]any{"method": method, "url": endpoint},
		)
	}
	defer httpRes.Body.Close()

	limit := t.MaxResponseBodyBytes
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}
	responseBody, err := io.ReadAll(io.LimitReader(httpRes.Body, limit+1))
	if err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode, "url": endpoint},
		)
	}
	if int64(len(responseBody)) > limit {
		return transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", limit),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode, "response_limit_b": limit},
		)
	}
	if httpRes.StatusCode < http.StatusOK || httpRes.StatusCode >= http.StatusMultipleChoices {
		return transportError(
			fmt.Sprintf("transport: remote returned status %d", httpRes.StatusCode),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"status_code": httpRes.StatusCode,
				"url":         endpoint,
				"body":        string(truncateBody(responseBody, 512)),
			},
		)
	}

	if out == nil || len(bytes.TrimSpace(responseBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: decode response body",
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode, "url": endpoint},
		)
	}
	return nil
}

func uniformOperationService(descriptors []ops.Descriptor) (string, error) {
	if len(descriptors) == 0 {
		return "operations", nil
	}
	service := strings.TrimSpace(descriptors[0].OperationService)
	for _, descriptor := range descriptors[1:] {
		if strings.TrimSpace(descriptor.OperationService) != service {
			return "", transportError(
				"transport: batched poll requires a single operation service",
				goerrors.CategoryBadInput,
				http.StatusBadRequest,
				map[string]any{"operation_service": service},
			)
		}
	}
	return service, nil
}

func truncateBody(body []byte, max int) []byte {
	if len(body) <= max {
		return body
	}
	return body[:max]
}

var _ ops.Transport = (*RESTTransport)(nil)
