package cloudops

import "github.com/goliatone/go-cloudops/core"

type Config = core.Config

type PollConfig = core.PollConfig

type StoreConfig = core.StoreConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Credential = core.Credential
type CredentialVariant = core.CredentialVariant
type Projection = core.Projection
type CredentialStore = core.CredentialStore
type CredentialCodec = core.CredentialCodec
type RetryPolicy = core.RetryPolicy
type BackoffScheduler = core.BackoffScheduler

var (
	WithLogger               = core.WithLogger
	WithLoggerProvider       = core.WithLoggerProvider
	WithMetricsRecorder      = core.WithMetricsRecorder
	WithErrorFactory         = core.WithErrorFactory
	WithErrorMapper          = core.WithErrorMapper
	WithPersistenceClient    = core.WithPersistenceClient
	WithRepositoryFactory    = core.WithRepositoryFactory
	WithConfigProvider       = core.WithConfigProvider
	WithOptionsResolver      = core.WithOptionsResolver
	WithCredentialStore      = core.WithCredentialStore
	WithCredentialCodec      = core.WithCredentialCodec
	WithJobEnqueuer          = core.WithJobEnqueuer
	WithBusyBackoffScheduler = core.WithBusyBackoffScheduler
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	return core.NewService(cfg, options...)
}

func NewServiceWithDependencies(cfg Config, deps ServiceDependencies) (*Service, error) {
	return core.NewServiceWithDependencies(cfg, deps)
}
