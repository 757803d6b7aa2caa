package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Service is the credential-management entry point: validation, error
// mapping, and instrumentation around the configured CredentialStore. It
// carries no process-wide state; everything is injected at construction.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	credentialStore   CredentialStore
	credentialCodec   CredentialCodec
	jobEnqueuer       JobEnqueuer
	busyScheduler     BackoffScheduler
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	CredentialStore   CredentialStore
	CredentialCodec   CredentialCodec
	JobEnqueuer       JobEnqueuer
	BusyScheduler     BackoffScheduler
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("cloudops", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("cloudops"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.credentialCodec == nil {
		builder.credentialCodec = JSONCredentialCodec{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.busyScheduler == nil {
		builder.busyScheduler = ExponentialBackoffScheduler{
			Initial: finalConfig.Store.BusyRetryInitial,
			Max:     finalConfig.Store.BusyRetryMax,
		}
	}

	if builder.credentialStore == nil && builder.repositoryFactory != nil {
		if tuned, ok := builder.repositoryFactory.(interface{ UseBusyRetryPolicy(RetryPolicy) }); ok {
			tuned.UseBusyRetryPolicy(BackoffRetryPolicy(builder.busyScheduler, finalConfig.Store.BusyRetryAttempts))
		}
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				builder.credentialStore = storeProvider.CredentialStore()
			}
		}
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		credentialStore:   builder.credentialStore,
		credentialCodec:   builder.credentialCodec,
		jobEnqueuer:       builder.jobEnqueuer,
		busyScheduler:     builder.busyScheduler,
	}, nil
}

func NewServiceWithDependencies(cfg Config, deps ServiceDependencies) (*Service, error) {
	return NewService(cfg,
		WithLogger(deps.Logger),
		WithLoggerProvider(deps.LoggerProvider),
		WithMetricsRecorder(deps.MetricsRecorder),
		WithErrorFactory(deps.ErrorFactory),
		WithErrorMapper(deps.ErrorMapper),
		WithPersistenceClient(deps.PersistenceClient),
		WithRepositoryFactory(deps.RepositoryFactory),
		WithConfigProvider(deps.ConfigProvider),
		WithOptionsResolver(deps.OptionsResolver),
		WithCredentialStore(deps.CredentialStore),
		WithCredentialCodec(deps.CredentialCodec),
		WithJobEnqueuer(deps.JobEnqueuer),
		WithBusyBackoffScheduler(deps.BusyScheduler),
	)
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Logger() Logger {
	if s == nil {
		return nil
	}
	return s.logger
}

func (s *Service) CredentialStore() CredentialStore {
	if s == nil {
		return nil
	}
	return s.credentialStore
}

func (s *Service) CredentialCodec() CredentialCodec {
	if s == nil {
		return nil
	}
	return s.credentialCodec
}

// BusyRetryPolicy is the bounded retry predicate the store layer uses for
// write-lock contention.
func (s *Service) BusyRetryPolicy() RetryPolicy {
	if s == nil {
		return BackoffRetryPolicy(nil, 0)
	}
	return BackoffRetryPolicy(s.busyScheduler, s.config.Store.BusyRetryAttempts)
}

// PutCredential writes or replaces the credential stored under accountID.
func (s *Service) PutCredential(ctx context.Context, accountID string, credential Credential) error {
	startedAt := time.Now()
	err := s.putCredential(ctx, accountID, credential)
	s.observeOperation(ctx, startedAt, "credential_put", err, map[string]any{
		"account_id": accountID,
		"variant":    string(credential.Variant),
		"projection": string(credential.Projection),
	})
	return err
}

func (s *Service) putCredential(ctx context.Context, accountID string, credential Credential) error {
	if s == nil || s.credentialStore == nil {
		return s.mapError(fmt.Errorf("core: credential store is not configured"))
	}
	if err := ValidateAccountID(accountID); err != nil {
		return s.mapError(err)
	}
	if err := credential.Validate(); err != nil {
		return s.mapError(err)
	}
	if err := s.credentialStore.Put(ctx, accountID, credential); err != nil {
		return s.mapError(err)
	}
	return nil
}

// GetCredential loads the credential stored under accountID, translated to
// the requested projection.
func (s *Service) GetCredential(ctx context.Context, accountID string, projection Projection) (Credential, error) {
	startedAt := time.Now()
	credential, err := s.getCredential(ctx, accountID, projection)
	s.observeOperation(ctx, startedAt, "credential_get", err, map[string]any{
		"account_id": accountID,
		"projection": string(projection),
	})
	return credential, err
}

func (s *Service) getCredential(ctx context.Context, accountID string, projection Projection) (Credential, error) {
	if s == nil || s.credentialStore == nil {
		return Credential{}, s.mapError(fmt.Errorf("core: credential store is not configured"))
	}
	if err := ValidateAccountID(accountID); err != nil {
		return Credential{}, s.mapError(err)
	}
	if err := projection.Validate(); err != nil {
		return Credential{}, s.mapError(err)
	}
	credential, err := s.credentialStore.Get(ctx, accountID, projection)
	if err != nil {
		return Credential{}, s.mapError(err)
	}
	return credential, nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]string, error) {
	startedAt := time.Now()
	accounts, err := s.listAccounts(ctx)
	s.observeOperation(ctx, startedAt, "credential_list", err, map[string]any{
		"count": len(accounts),
	})
	return accounts, err
}

func (s *Service) listAccounts(ctx context.Context) ([]string, error) {
	if s == nil || s.credentialStore == nil {
		return nil, s.mapError(fmt.Errorf("core: credential store is not configured"))
	}
	accounts, err := s.credentialStore.ListAccounts(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return accounts, nil
}

// DeleteCredential removes the row for accountID. Deleting an absent account
// succeeds.
func (s *Service) DeleteCredential(ctx context.Context, accountID string) error {
	startedAt := time.Now()
	err := s.deleteCredential(ctx, accountID)
	s.observeOperation(ctx, startedAt, "credential_delete", err, map[string]any{
		"account_id": accountID,
	})
	return err
}

func (s *Service) deleteCredential(ctx context.Context, accountID string) error {
	if s == nil || s.credentialStore == nil {
		return s.mapError(fmt.Errorf("core: credential store is not configured"))
	}
	if err := ValidateAccountID(accountID); err != nil {
		return s.mapError(err)
	}
	if err := s.credentialStore.Delete(ctx, accountID); err != nil {
		return s.mapError(err)
	}
	return nil
}

// DeferWait enqueues a deferred wait so a worker can drive the operation to
// completion outside the caller's process.
func (s *Service) DeferWait(ctx context.Context, jobID string, parameters map[string]any) error {
	if s == nil || s.jobEnqueuer == nil {
		return s.mapError(fmt.Errorf("core: job enqueuer is not configured"))
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return s.mapError(fmt.Errorf("core: job id is required"))
	}
	msg := &JobExecutionMessage{
		JobID:          jobID,
		Parameters:     copyAnyMap(parameters),
		IdempotencyKey: uuid.NewString(),
	}
	if err := s.jobEnqueuer.Enqueue(ctx, msg); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	if mapped := s.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper != nil {
		if mapped := mapper(err); mapped != nil {
			return mapped
		}
	}
	return err
}

func copyAnyMap(values map[string]any) map[string]any {
	if len(values) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}
