package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-cloudops/core"
	"github.com/goliatone/go-cloudops/ops"
)

func testDescriptor(t *testing.T, name string) ops.Descriptor {
	t.Helper()
	descriptor, err := ops.NewDescriptor(name, "compute.operations", "compute.instances")
	if err != nil {
		t.Fatalf("new descriptor: %v", err)
	}
	return descriptor
}

func TestRESTTransport_GetOperationDecodesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("expected GET method, got %s", r.Method)
		}
		if r.URL.Path != "/compute.operations/operations/op-1" {
			t.Fatalf("unexpected poll path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Fatalf("expected default header to be sent, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":       "operations/op-1",
			"state":      "done_ok",
			"result_ref": "instances/i-1",
		})
	}))
	defer server.Close()

	transport := NewRESTTransport(server.URL, server.Client())
	transport.DefaultHeaders["Authorization"] = "Bearer token-1"

	snapshot, err := transport.GetOperation(context.Background(), testDescriptor(t, "operations/op-1"))
	if err != nil {
		t.Fatalf("get operation: %v", err)
	}
	if snapshot.State != ops.StatusDoneOK {
		t.Fatalf("expected normalized DONE_OK state, got %q", snapshot.State)
	}
	if snapshot.ResultRef != "instances/i-1" {
		t.Fatalf("unexpected result ref %q", snapshot.ResultRef)
	}
}

func TestRESTTransport_GetOperationSurfacesRemoteErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":  "operations/op-err",
			"state": "DONE_ERROR",
			"errors": []map[string]string{
				{"code": "QUOTA_EXCEEDED", "message": "regional quota exhausted"},
			},
		})
	}))
	defer server.Close()

	transport := NewRESTTransport(server.URL, server.Client())
	snapshot, err := transport.GetOperation(context.Background(), testDescriptor(t, "operations/op-err"))
	if err != nil {
		t.Fatalf("get operation: %v", err)
	}
	if snapshot.State != ops.StatusDoneError {
		t.Fatalf("expected DONE_ERROR state, got %q", snapshot.State)
	}
	if len(snapshot.Errors) != 1 || snapshot.Errors[0].Code != "QUOTA_EXCEEDED" {
		t.Fatalf("unexpected remote errors: %#v", snapshot.Errors)
	}
}

func TestRESTTransport_NonSuccessStatusMapsToTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	transport := NewRESTTransport(server.URL, server.Client())
	_, err := transport.GetOperation(context.Background(), testDescriptor(t, "operations/op-1"))
	if err == nil {
		t.Fatalf("expected remote status error")
	}
	var richErr *goerrors.Error
	if !errors.As(err, &richErr) {
		t.Fatalf("expected goerrors envelope, got %T", err)
	}
	if richErr.TextCode != core.CloudopsErrorTransport {
		t.Fatalf("expected transport text code, got %q", richErr.TextCode)
	}
	if richErr.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %v", richErr.Category)
	}
}

func TestRESTTransport_BatchedPollMapsSlots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST method, got %s", r.Method)
		}
		if r.URL.Path != "/compute.operations:batchPoll" {
			t.Fatalf("unexpected batch path %q", r.URL.Path)
		}
		var request struct {
			Operations []string `json:"operations"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Fatalf("decode batch request: %v", err)
		}
		if len(request.Operations) != 2 || request.Operations[0] != "operations/op-0" {
			t.Fatalf("unexpected batch request operations: %v", request.Operations)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"snapshot": map[string]any{"name": "operations/op-0", "state": "RUNNING"}},
				{"error": "operation vanished"},
			},
		})
	}))
	defer server.Close()

	transport := NewRESTTransport(server.URL, server.Client())
	batch := []ops.Descriptor{
		testDescriptor(t, "operations/op-0"),
		testDescriptor(t, "operations/op-1"),
	}
	results, err := transport.GetOperationsBatched(context.Background(), batch)
	if err != nil {
		t.Fatalf("batched poll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(results))
	}
	if results[0].Err != nil || results[0].Snapshot.State != ops.StatusRunning {
		t.Fatalf("unexpected first slot: %#v", results[0])
	}
	if results[1].Err == nil || !strings.Contains(results[1].Err.Error(), "operation vanished") {
		t.Fatalf("expected per-slot remote error, got %v", results[1].Err)
	}
}

func TestRESTTransport_BatchedPollRejectsMixedServices(t *testing.T) {
	computeOp := testDescriptor(t, "operations/op-0")
	dnsOp, err := ops.NewDescriptor("operations/op-1", "dns.operations", "dns.records")
	if err != nil {
		t.Fatalf("new descriptor: %v", err)
	}

	transport := NewRESTTransport("http://localhost:0", http.DefaultClient)
	_, err = transport.GetOperationsBatched(context.Background(), []ops.Descriptor{computeOp, dnsOp})
	if err == nil {
		t.Fatalf("expected mixed service batch to be rejected")
	}
	var richErr *goerrors.Error
	if !errors.As(err, &richErr) || richErr.TextCode != core.CloudopsErrorBadInput {
		t.Fatalf("expected bad input envelope, got %v", err)
	}
}

func TestRESTTransport_ResultFetches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/instances/i-1":
			_ = json.NewEncoder(w).Encode(map[string]any{"name": "i-1", "zone": "us-central1-a"})
		case r.Method == http.MethodPost && r.URL.Path == "/resources:batchGet":
			var request struct {
				Refs []string `json:"refs"`
			}
			if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
				t.Fatalf("decode batch fetch request: %v", err)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"resource": map[string]any{"name": "i-1"}},
					{"error": "resource gone"},
				},
			})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	transport := NewRESTTransport(server.URL, server.Client())

	resource, err := transport.GetResult(context.Background(), "instances/i-1")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	decoded, ok := resource.(map[string]any)
	if !ok || decoded["zone"] != "us-central1-a" {
		t.Fatalf("unexpected resource: %#v", resource)
	}

	results, err := transport.GetResultsBatched(context.Background(), []string{"instances/i-1", "instances/i-2"})
	if err != nil {
		t.Fatalf("batched fetch: %v", err)
	}
	if results[0].Err != nil {
		t.Fatalf("expected first slot resource, got error %v", results[0].Err)
	}
	if results[1].Err == nil || !strings.Contains(results[1].Err.Error(), "resource gone") {
		t.Fatalf("expected second slot error, got %v", results[1].Err)
	}
}

func TestRESTTransport_RequiresBaseURL(t *testing.T) {
	transport := NewRESTTransport("  ", http.DefaultClient)
	_, err := transport.GetOperation(context.Background(), testDescriptor(t, "operations/op-1"))
	if err == nil {
		t.Fatalf("expected missing base url error")
	}
}

func TestUnsupportedTransport_RecognizesAndFails(t *testing.T) {
	transport := NewUnsupportedTransport("Spanner.Operations", "no backend wired")
	if !transport.RecognizesService("spanner.operations") {
		t.Fatalf("expected case-insensitive service recognition")
	}
	if transport.RecognizesService("compute.operations") {
		t.Fatalf("expected foreign service tag to be rejected")
	}

	_, err := transport.GetOperation(context.Background(), ops.Descriptor{OperationName: "operations/op-1"})
	if err == nil || !strings.Contains(err.Error(), "no backend wired") {
		t.Fatalf("expected configuration error with reason, got %v", err)
	}
}
