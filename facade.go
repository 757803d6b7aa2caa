package cloudops

import (
	"fmt"

	cloudopscommand "github.com/goliatone/go-cloudops/command"
	"github.com/goliatone/go-cloudops/ops"
	cloudopsquery "github.com/goliatone/go-cloudops/query"
)

// CommandQueryService is the service surface the facade wires commands and
// queries against. *core.Service satisfies it.
type CommandQueryService interface {
	cloudopscommand.CredentialMutatingService
	cloudopsquery.CredentialReader
}

type Commands struct {
	StoreCredential  *cloudopscommand.StoreCredentialCommand
	DeleteCredential *cloudopscommand.DeleteCredentialCommand
	WaitOperation    *cloudopscommand.WaitOperationCommand
	WaitBatch        *cloudopscommand.WaitBatchCommand
}

type Queries struct {
	GetCredential *cloudopsquery.GetCredentialQuery
	ListAccounts  *cloudopsquery.ListAccountsQuery
}

// Facade bundles the command and query handlers over one service instance so
// callers register them with a dispatcher in one place.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	transport   ops.Transport
	clock       ops.Clock
	reporter    ops.ProgressReporter
	waiter      cloudopscommand.OperationWaiter
	batchWaiter cloudopscommand.BatchWaiter
}

// WithOperationTransport builds the wait commands on top of the given
// transport using the default pollers.
func WithOperationTransport(transport ops.Transport) FacadeOption {
	return func(options *facadeOptions) {
		options.transport = transport
	}
}

func WithOperationClock(clock ops.Clock) FacadeOption {
	return func(options *facadeOptions) {
		options.clock = clock
	}
}

func WithProgressReporter(reporter ops.ProgressReporter) FacadeOption {
	return func(options *facadeOptions) {
		options.reporter = reporter
	}
}

// WithOperationWaiter overrides the single-operation waiter. Takes precedence
// over WithOperationTransport.
func WithOperationWaiter(waiter cloudopscommand.OperationWaiter) FacadeOption {
	return func(options *facadeOptions) {
		options.waiter = waiter
	}
}

// WithBatchWaiter overrides the batch waiter. Takes precedence over
// WithOperationTransport.
func WithBatchWaiter(waiter cloudopscommand.BatchWaiter) FacadeOption {
	return func(options *facadeOptions) {
		options.batchWaiter = waiter
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("cloudops: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	waiter := cfg.waiter
	batchWaiter := cfg.batchWaiter
	if cfg.transport != nil {
		if waiter == nil {
			poller := ops.NewPoller(cfg.transport)
			if cfg.clock != nil {
				poller.Clock = cfg.clock
			}
			if cfg.reporter != nil {
				poller.Reporter = cfg.reporter
			}
			waiter = poller
		}
		if batchWaiter == nil {
			batchPoller := ops.NewBatchPoller(cfg.transport)
			if cfg.clock != nil {
				batchPoller.Clock = cfg.clock
			}
			if cfg.reporter != nil {
				batchPoller.Reporter = cfg.reporter
			}
			batchWaiter = batchPoller
		}
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		StoreCredential:  cloudopscommand.NewStoreCredentialCommand(service),
		DeleteCredential: cloudopscommand.NewDeleteCredentialCommand(service),
	}
	if waiter != nil {
		facade.commands.WaitOperation = cloudopscommand.NewWaitOperationCommand(waiter)
	}
	if batchWaiter != nil {
		facade.commands.WaitBatch = cloudopscommand.NewWaitBatchCommand(batchWaiter)
	}
	facade.queries = Queries{
		GetCredential: cloudopsquery.NewGetCredentialQuery(service),
		ListAccounts:  cloudopsquery.NewListAccountsQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
