package ops

import "context"

// BatchPollResult is one slot of a batched poll response. Err marks a slot
// whose poll failed at the transport level; the snapshot is meaningless then.
type BatchPollResult struct {
	Snapshot OperationSnapshot
	Err      error
}

// BatchFetchResult is one slot of a batched result fetch.
type BatchFetchResult struct {
	Resource any
	Err      error
}

// Transport is the wire capability the pollers consume. Batched calls must
// translate to a single underlying request; responses are positionally
// aligned with the request slice. Implementations live outside this package.
type Transport interface {
	GetOperation(ctx context.Context, descriptor Descriptor) (OperationSnapshot, error)
	GetOperationsBatched(ctx context.Context, descriptors []Descriptor) ([]BatchPollResult, error)
	GetResult(ctx context.Context, resultRef string) (any, error)
	GetResultsBatched(ctx context.Context, resultRefs []string) ([]BatchFetchResult, error)
}
