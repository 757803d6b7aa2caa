package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-cloudops/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const credentialCacheKeyPrefix = "go-cloudops::account_credential::v1"

// CachedCredentialStore wraps a CredentialStore with a read-through cache
// keyed per account and projection. Writes and deletes invalidate both
// projection keys so a stale projection is never served after a replace.
type CachedCredentialStore struct {
	base  core.CredentialStore
	cache repositorycache.CacheService
}

func NewCachedCredentialStore(
	base core.CredentialStore,
	cacheService repositorycache.CacheService,
) (*CachedCredentialStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base credential store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: credential cache service is required")
	}
	return &CachedCredentialStore{base: base, cache: cacheService}, nil
}

// CredentialCacheKey returns the deterministic cache key contract for
// credential reads: go-cloudops::account_credential::v1::<account>::<projection>
// with the account segment URL-path escaped.
func CredentialCacheKey(accountID string, projection core.Projection) (string, error) {
	if err := core.ValidateAccountID(accountID); err != nil {
		return "", err
	}
	if err := projection.Validate(); err != nil {
		return "", err
	}
	return strings.Join([]string{
		credentialCacheKeyPrefix,
		url.PathEscape(accountID),
		string(projection),
	}, "::"), nil
}

func (s *CachedCredentialStore) Put(ctx context.Context, accountID string, credential core.Credential) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if err := s.base.Put(ctx, accountID, credential); err != nil {
		return err
	}
	return s.invalidate(ctx, accountID)
}

func (s *CachedCredentialStore) Get(ctx context.Context, accountID string, projection core.Projection) (core.Credential, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Credential{}, fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	cacheKey, err := CredentialCacheKey(accountID, projection)
	if err != nil {
		return core.Credential{}, err
	}

	credential, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Credential, error) {
		fetched, fetchErr := s.base.Get(ctx, accountID, projection)
		if fetchErr != nil {
			return core.Credential{}, fetchErr
		}
		return fetched.Clone(), nil
	})
	if err != nil {
		return core.Credential{}, err
	}
	return credential.Clone(), nil
}

func (s *CachedCredentialStore) ListAccounts(ctx context.Context) ([]string, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	return s.base.ListAccounts(ctx)
}

func (s *CachedCredentialStore) Delete(ctx context.Context, accountID string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if err := s.base.Delete(ctx, accountID); err != nil {
		return err
	}
	return s.invalidate(ctx, accountID)
}

func (s *CachedCredentialStore) invalidate(ctx context.Context, accountID string) error {
	for _, projection := range []core.Projection{core.ProjectionLegacy, core.ProjectionModern} {
		cacheKey, err := CredentialCacheKey(accountID, projection)
		if err != nil {
			return err
		}
		if err := s.cache.Delete(ctx, cacheKey); err != nil {
			return err
		}
	}
	return nil
}
