package command

import (
	"github.com/goliatone/go-cloudops/core"
	"github.com/goliatone/go-cloudops/ops"
)

const (
	TypeStoreCredential  = "cloudops.command.credential.store"
	TypeDeleteCredential = "cloudops.command.credential.delete"
	TypeWaitOperation    = "cloudops.command.operation.wait"
	TypeWaitBatch        = "cloudops.command.operation.wait_batch"
)

// StoreCredentialMessage replaces the credential stored for an account.
type StoreCredentialMessage struct {
	AccountID  string
	Credential core.Credential
}

func (StoreCredentialMessage) Type() string { return TypeStoreCredential }

func (m StoreCredentialMessage) Validate() error {
	if err := core.ValidateAccountID(m.AccountID); err != nil {
		return commandWrapValidation(err, "command: invalid account id")
	}
	if err := m.Credential.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid credential")
	}
	return nil
}

// DeleteCredentialMessage removes an account's stored credential. Deleting
// an account that was never stored is not an error.
type DeleteCredentialMessage struct {
	AccountID string
}

func (DeleteCredentialMessage) Type() string { return TypeDeleteCredential }

func (m DeleteCredentialMessage) Validate() error {
	if err := core.ValidateAccountID(m.AccountID); err != nil {
		return commandWrapValidation(err, "command: invalid account id")
	}
	return nil
}

// WaitOperationMessage blocks until one remote operation reaches a terminal
// state and stores the fetched resource in the caller's result collector.
type WaitOperationMessage struct {
	Descriptor ops.Descriptor
	Options    ops.WaitOptions
}

func (WaitOperationMessage) Type() string { return TypeWaitOperation }

func (m WaitOperationMessage) Validate() error {
	if err := m.Descriptor.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid operation descriptor")
	}
	return nil
}

// WaitBatchMessage blocks until every operation in the batch settles and
// stores the positional results in the caller's result collector. An empty
// batch is valid and settles immediately.
type WaitBatchMessage struct {
	Batch   []ops.Descriptor
	Options ops.WaitOptions
}

func (WaitBatchMessage) Type() string { return TypeWaitBatch }

func (m WaitBatchMessage) Validate() error {
	for index, descriptor := range m.Batch {
		if err := descriptor.Validate(); err != nil {
			return commandWrapValidation(err, formatBatchSlotField(index))
		}
	}
	return nil
}
