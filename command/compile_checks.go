package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-cloudops/core"
	"github.com/goliatone/go-cloudops/ops"
)

var (
	_ gocmd.Commander[StoreCredentialMessage]  = (*StoreCredentialCommand)(nil)
	_ gocmd.Commander[DeleteCredentialMessage] = (*DeleteCredentialCommand)(nil)
	_ gocmd.Commander[WaitOperationMessage]    = (*WaitOperationCommand)(nil)
	_ gocmd.Commander[WaitBatchMessage]        = (*WaitBatchCommand)(nil)

	_ CredentialMutatingService = (*core.Service)(nil)
	_ OperationWaiter           = (*ops.Poller)(nil)
	_ BatchWaiter               = (*ops.BatchPoller)(nil)
)
