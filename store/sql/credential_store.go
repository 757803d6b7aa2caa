package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-cloudops/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CredentialStore keeps one credential row per account id. Writes replace
// the previous row inside a single transaction, so a concurrent reader sees
// either the old credential or the new one, never a mix. Write-lock
// contention is retried through the injected retry policy and surfaces as a
// busy error once the policy gives up.
type CredentialStore struct {
	db    *bun.DB
	repo  repository.Repository[*accountCredentialRecord]
	codec core.CredentialCodec
	retry core.RetryPolicy
}

func (s *CredentialStore) Put(ctx context.Context, accountID string, credential core.Credential) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	if err := core.ValidateAccountID(accountID); err != nil {
		return err
	}
	if err := credential.Validate(); err != nil {
		return err
	}

	payload, err := s.credentialCodec().Encode(credential)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	record := &accountCredentialRecord{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		Variant:        string(credential.Variant),
		Projection:     string(credential.Projection),
		Payload:        payload,
		PayloadFormat:  s.credentialCodec().Format(),
		PayloadVersion: s.credentialCodec().Version(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	return s.withBusyRetry(ctx, func() error {
		return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, deleteErr := tx.NewDelete().
				Model((*accountCredentialRecord)(nil)).
				Where("account_id = ?", accountID).
				Exec(ctx); deleteErr != nil {
				return deleteErr
			}
			_, createErr := s.repo.CreateTx(ctx, tx, record)
			return createErr
		})
	})
}

func (s *CredentialStore) Get(ctx context.Context, accountID string, projection core.Projection) (core.Credential, error) {
	if s == nil || s.repo == nil {
		return core.Credential{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	if err := core.ValidateAccountID(accountID); err != nil {
		return core.Credential{}, err
	}
	if err := projection.Validate(); err != nil {
		return core.Credential{}, err
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("account_id", "=", accountID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Credential{}, err
	}
	if len(records) == 0 {
		return core.Credential{}, fmt.Errorf("%w: %q", core.ErrAccountNotFound, accountID)
	}
	return core.DecodeAs(s.credentialCodec(), records[0].Payload, projection)
}

func (s *CredentialStore) ListAccounts(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: credential store is not configured")
	}
	accounts := []string{}
	if err := s.db.NewSelect().
		Model((*accountCredentialRecord)(nil)).
		Column("account_id").
		Order("account_id ASC").
		Scan(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Delete removes the account's row. Deleting an absent account succeeds.
func (s *CredentialStore) Delete(ctx context.Context, accountID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	if err := core.ValidateAccountID(accountID); err != nil {
		return err
	}
	return s.withBusyRetry(ctx, func() error {
		_, err := s.db.NewDelete().
			Model((*accountCredentialRecord)(nil)).
			Where("account_id = ?", accountID).
			Exec(ctx)
		return err
	})
}

func (s *CredentialStore) withBusyRetry(ctx context.Context, operation func() error) error {
	startedAt := time.Now()
	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil || !isBusyError(err) {
			return err
		}
		if s.retry == nil {
			return err
		}
		decision := s.retry(err, attempt, time.Since(startedAt))
		if !decision.Retry {
			return fmt.Errorf("sqlstore: write lock held after %d attempts: %w", attempt, err)
		}
		if waitErr := core.WaitWithContext(ctx, decision.After); waitErr != nil {
			return waitErr
		}
	}
}

func (s *CredentialStore) credentialCodec() core.CredentialCodec {
	if s != nil && s.codec != nil {
		return s.codec
	}
	return core.JSONCredentialCodec{}
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "busy")
}
