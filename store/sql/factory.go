package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-cloudops/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db    *bun.DB
	codec core.CredentialCodec
	retry core.RetryPolicy

	credentialStore *CredentialStore
}

type FactoryOption func(*RepositoryFactory)

func WithCredentialCodec(codec core.CredentialCodec) FactoryOption {
	return func(f *RepositoryFactory) {
		f.codec = codec
	}
}

func WithBusyRetryPolicy(policy core.RetryPolicy) FactoryOption {
	return func(f *RepositoryFactory) {
		f.retry = policy
	}
}

func NewRepositoryFactory(options ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(factory)
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, options ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(options...)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, options ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(options...)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.credentialStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

// UseBusyRetryPolicy installs the contention retry policy when none was
// configured through WithBusyRetryPolicy. The service layer calls this to
// hand down the policy derived from its store config.
func (f *RepositoryFactory) UseBusyRetryPolicy(policy core.RetryPolicy) {
	if f == nil || policy == nil || f.retry != nil {
		return
	}
	f.retry = policy
	if f.credentialStore != nil {
		f.credentialStore.retry = policy
	}
}

func (f *RepositoryFactory) CredentialStore() core.CredentialStore {
	if f == nil {
		return nil
	}
	return f.credentialStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	credentialRepo := repository.NewRepository[*accountCredentialRecord](f.db, accountCredentialHandlers())
	if validator, ok := credentialRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid credential repository wiring: %w", err)
		}
	}

	codec := f.codec
	if codec == nil {
		codec = core.JSONCredentialCodec{}
	}
	retry := f.retry
	if retry == nil {
		storeCfg := core.DefaultConfig().Store
		retry = core.BackoffRetryPolicy(core.ExponentialBackoffScheduler{
			Initial: storeCfg.BusyRetryInitial,
			Max:     storeCfg.BusyRetryMax,
		}, storeCfg.BusyRetryAttempts)
	}
	f.credentialStore = &CredentialStore{
		db:    f.db,
		repo:  credentialRepo,
		codec: codec,
		retry: retry,
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
