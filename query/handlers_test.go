package query

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-cloudops/core"
)

type stubCredentialReader struct {
	getFn  func(ctx context.Context, accountID string, projection core.Projection) (core.Credential, error)
	listFn func(ctx context.Context) ([]string, error)
}

func (s stubCredentialReader) GetCredential(ctx context.Context, accountID string, projection core.Projection) (core.Credential, error) {
	return s.getFn(ctx, accountID, projection)
}

func (s stubCredentialReader) ListAccounts(ctx context.Context) ([]string, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

func TestGetCredentialQuery_DelegatesToReader(t *testing.T) {
	expected := core.NewModernUserCredential(core.UserCredential{
		ClientID:     "c",
		ClientSecret: "s",
		RefreshToken: "r",
	})

	reader := stubCredentialReader{
		getFn: func(_ context.Context, accountID string, projection core.Projection) (core.Credential, error) {
			if accountID != "alice" {
				t.Fatalf("expected account alice, got %q", accountID)
			}
			if projection != core.ProjectionModern {
				t.Fatalf("expected modern projection, got %q", projection)
			}
			return expected, nil
		},
	}

	qry := NewGetCredentialQuery(reader)
	got, err := qry.Query(context.Background(), GetCredentialMessage{
		AccountID:  "alice",
		Projection: core.ProjectionModern,
	})
	if err != nil {
		t.Fatalf("query credential: %v", err)
	}
	if !core.Equal(got, expected) {
		t.Fatalf("unexpected credential: %#v", got)
	}
}

func TestGetCredentialQuery_RejectsInvalidMessage(t *testing.T) {
	qry := NewGetCredentialQuery(stubCredentialReader{
		getFn: func(context.Context, string, core.Projection) (core.Credential, error) {
			t.Fatalf("reader must not be called for invalid input")
			return core.Credential{}, nil
		},
	})

	_, err := qry.Query(context.Background(), GetCredentialMessage{
		AccountID:  "alice",
		Projection: core.Projection("sideways"),
	})
	if !errors.Is(err, core.ErrUnknownProjection) {
		t.Fatalf("expected unknown projection error, got %v", err)
	}
}

func TestGetCredentialQuery_PropagatesNotFound(t *testing.T) {
	qry := NewGetCredentialQuery(stubCredentialReader{
		getFn: func(context.Context, string, core.Projection) (core.Credential, error) {
			return core.Credential{}, core.ErrAccountNotFound
		},
	})

	_, err := qry.Query(context.Background(), GetCredentialMessage{
		AccountID:  "ghost",
		Projection: core.ProjectionLegacy,
	})
	if !errors.Is(err, core.ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestListAccountsQuery_DelegatesToReader(t *testing.T) {
	qry := NewListAccountsQuery(stubCredentialReader{
		getFn: func(context.Context, string, core.Projection) (core.Credential, error) {
			return core.Credential{}, nil
		},
		listFn: func(context.Context) ([]string, error) {
			return []string{"alice", "bob"}, nil
		},
	})

	accounts, err := qry.Query(context.Background(), ListAccountsMessage{})
	if err != nil {
		t.Fatalf("query accounts: %v", err)
	}
	if len(accounts) != 2 || accounts[0] != "alice" || accounts[1] != "bob" {
		t.Fatalf("unexpected accounts: %v", accounts)
	}
}
