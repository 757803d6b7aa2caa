package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-cloudops/core"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func newBusyTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open("sqlite3", "file:busy-retry-test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCredentialStore_BusyRetryBoundedAttempts(t *testing.T) {
	store := &CredentialStore{
		retry: core.BackoffRetryPolicy(core.ExponentialBackoffScheduler{
			Initial: time.Millisecond,
			Max:     time.Millisecond,
		}, 3),
	}

	calls := 0
	err := store.withBusyRetry(context.Background(), func() error {
		calls++
		return fmt.Errorf("database is locked")
	})
	if calls != 3 {
		t.Fatalf("expected 3 attempts before giving up, got %d", calls)
	}
	if err == nil || !strings.Contains(err.Error(), "write lock held after 3 attempts") {
		t.Fatalf("expected lock-held error after bounded retries, got %v", err)
	}
	if !isBusyError(err) {
		t.Fatalf("expected the surfaced error to stay busy-classified, got %v", err)
	}
}

func TestCredentialStore_BusyRetryRecoversWhenLockClears(t *testing.T) {
	store := &CredentialStore{
		retry: core.BackoffRetryPolicy(core.ExponentialBackoffScheduler{
			Initial: time.Millisecond,
			Max:     time.Millisecond,
		}, 5),
	}

	calls := 0
	err := store.withBusyRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected retry to succeed once the lock cleared, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestCredentialStore_NonBusyErrorsAreNotRetried(t *testing.T) {
	store := &CredentialStore{
		retry: core.BackoffRetryPolicy(core.ExponentialBackoffScheduler{}, 5),
	}

	calls := 0
	err := store.withBusyRetry(context.Background(), func() error {
		calls++
		return fmt.Errorf("constraint violation")
	})
	if calls != 1 {
		t.Fatalf("expected a single attempt for a non-busy error, got %d", calls)
	}
	if err == nil || !strings.Contains(err.Error(), "constraint violation") {
		t.Fatalf("expected the original error surfaced, got %v", err)
	}
}

func TestRepositoryFactory_DefaultsBusyRetryPolicy(t *testing.T) {
	factory, err := NewRepositoryFactoryFromDB(newBusyTestDB(t))
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}

	retry := factory.credentialStore.retry
	if retry == nil {
		t.Fatalf("expected a default busy retry policy")
	}
	decision := retry(fmt.Errorf("database is locked"), 1, 0)
	if !decision.Retry || decision.After != 100*time.Millisecond {
		t.Fatalf("expected first retry after 100ms, got %+v", decision)
	}
	if final := retry(fmt.Errorf("database is locked"), 5, time.Second); final.Retry {
		t.Fatalf("expected give up at the default attempt budget, got %+v", final)
	}
}

func TestRepositoryFactory_UseBusyRetryPolicy(t *testing.T) {
	handed := func(error, int, time.Duration) core.RetryDecision {
		return core.RetryAfter(7 * time.Millisecond)
	}

	factory, err := NewRepositoryFactoryFromDB(newBusyTestDB(t))
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	factory.UseBusyRetryPolicy(handed)
	if got := factory.credentialStore.retry(nil, 1, 0).After; got != 7*time.Millisecond {
		t.Fatalf("expected handed-down policy installed, got delay %s", got)
	}

	explicit := func(error, int, time.Duration) core.RetryDecision {
		return core.RetryAfter(42 * time.Millisecond)
	}
	configured, err := NewRepositoryFactoryFromDB(newBusyTestDB(t), WithBusyRetryPolicy(explicit))
	if err != nil {
		t.Fatalf("new configured factory: %v", err)
	}
	configured.UseBusyRetryPolicy(handed)
	if got := configured.credentialStore.retry(nil, 1, 0).After; got != 42*time.Millisecond {
		t.Fatalf("expected the explicit option to win, got delay %s", got)
	}
}
