package ops

import (
	"fmt"
	"strings"
)

// Status is the observed state of a remote operation. DoneOK and DoneError
// are terminal; no further polling happens after either is observed.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusDoneOK    Status = "DONE_OK"
	StatusDoneError Status = "DONE_ERROR"
)

func (s Status) Terminal() bool {
	return s == StatusDoneOK || s == StatusDoneError
}

// OperationError is one structured error reported by the remote side of an
// operation that finished in DONE_ERROR.
type OperationError struct {
	Code    string
	Message string
}

func (e OperationError) Error() string {
	code := strings.TrimSpace(e.Code)
	if code == "" {
		return e.Message
	}
	return code + ": " + e.Message
}

// OperationSnapshot is one poll observation: the state plus, depending on
// the state, the remote errors or the reference used to fetch the result.
type OperationSnapshot struct {
	Name      string
	State     Status
	Errors    []OperationError
	ResultRef string
}

// ServiceRecognizer reports whether a transport knows how to reach a given
// service tag. Descriptor construction consults it when provided.
type ServiceRecognizer interface {
	RecognizesService(tag string) bool
}

// Descriptor names one remote operation: where to poll it, where to fetch
// the result once it succeeds, and which reference to fetch. Immutable after
// construction.
type Descriptor struct {
	OperationName    string
	OperationService string
	ResultService    string
	ResultRef        string
}

type DescriptorOption func(*descriptorBuilder)

type descriptorBuilder struct {
	resultRef  string
	recognizer ServiceRecognizer
}

func WithResultRef(ref string) DescriptorOption {
	return func(b *descriptorBuilder) {
		b.resultRef = ref
	}
}

func WithServiceRecognizer(recognizer ServiceRecognizer) DescriptorOption {
	return func(b *descriptorBuilder) {
		b.recognizer = recognizer
	}
}

func NewDescriptor(operationName, operationService, resultService string, options ...DescriptorOption) (Descriptor, error) {
	builder := descriptorBuilder{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	operationName = strings.TrimSpace(operationName)
	operationService = strings.TrimSpace(operationService)
	resultService = strings.TrimSpace(resultService)
	if operationName == "" {
		return Descriptor{}, fmt.Errorf("ops: operation name is required")
	}
	if operationService == "" || resultService == "" {
		return Descriptor{}, fmt.Errorf("ops: operation and result service tags are required")
	}
	if builder.recognizer != nil {
		for _, tag := range []string{operationService, resultService} {
			if !builder.recognizer.RecognizesService(tag) {
				return Descriptor{}, fmt.Errorf("ops: service tag %q is not recognized by the transport", tag)
			}
		}
	}

	return Descriptor{
		OperationName:    operationName,
		OperationService: operationService,
		ResultService:    resultService,
		ResultRef:        strings.TrimSpace(builder.resultRef),
	}, nil
}

func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.OperationName) == "" {
		return fmt.Errorf("ops: operation name is required")
	}
	if strings.TrimSpace(d.OperationService) == "" || strings.TrimSpace(d.ResultService) == "" {
		return fmt.Errorf("ops: operation and result service tags are required")
	}
	return nil
}

func (d Descriptor) String() string {
	return fmt.Sprintf("operation{name=%s service=%s}", d.OperationName, d.OperationService)
}
