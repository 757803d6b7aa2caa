package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-cloudops/core"
	"github.com/goliatone/go-cloudops/ops"
)

// CredentialMutatingService is the slice of the credential service the
// mutating commands need.
type CredentialMutatingService interface {
	PutCredential(ctx context.Context, accountID string, credential core.Credential) error
	DeleteCredential(ctx context.Context, accountID string) error
}

// OperationWaiter drives a single remote operation to completion.
type OperationWaiter interface {
	Wait(ctx context.Context, descriptor ops.Descriptor, opts ops.WaitOptions) (any, error)
}

// BatchWaiter drives a batch of remote operations to completion.
type BatchWaiter interface {
	WaitAll(ctx context.Context, batch []ops.Descriptor, opts ops.WaitOptions) ([]ops.BatchResult, error)
}

type StoreCredentialCommand struct {
	service CredentialMutatingService
}

func NewStoreCredentialCommand(service CredentialMutatingService) *StoreCredentialCommand {
	return &StoreCredentialCommand{service: service}
}

func (c *StoreCredentialCommand) Execute(ctx context.Context, msg StoreCredentialMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credential service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.service.PutCredential(ctx, msg.AccountID, msg.Credential)
}

type DeleteCredentialCommand struct {
	service CredentialMutatingService
}

func NewDeleteCredentialCommand(service CredentialMutatingService) *DeleteCredentialCommand {
	return &DeleteCredentialCommand{service: service}
}

func (c *DeleteCredentialCommand) Execute(ctx context.Context, msg DeleteCredentialMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credential service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.service.DeleteCredential(ctx, msg.AccountID)
}

type WaitOperationCommand struct {
	waiter OperationWaiter
}

func NewWaitOperationCommand(waiter OperationWaiter) *WaitOperationCommand {
	return &WaitOperationCommand{waiter: waiter}
}

func (c *WaitOperationCommand) Execute(ctx context.Context, msg WaitOperationMessage) error {
	if c == nil || c.waiter == nil {
		return commandDependencyError("command: operation waiter is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	resource, err := c.waiter.Wait(ctx, msg.Descriptor, msg.Options)
	if err != nil {
		return err
	}
	storeResult(ctx, resource)
	return nil
}

type WaitBatchCommand struct {
	waiter BatchWaiter
}

func NewWaitBatchCommand(waiter BatchWaiter) *WaitBatchCommand {
	return &WaitBatchCommand{waiter: waiter}
}

// Execute stores the positional batch results even when some slots failed,
// then surfaces the per-slot failures as the command error.
func (c *WaitBatchCommand) Execute(ctx context.Context, msg WaitBatchMessage) error {
	if c == nil || c.waiter == nil {
		return commandDependencyError("command: batch waiter is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	results, err := c.waiter.WaitAll(ctx, msg.Batch, msg.Options)
	if results != nil {
		storeResult(ctx, results)
	}
	return err
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
