package query

import (
	"context"

	"github.com/goliatone/go-cloudops/core"
)

// CredentialReader is the slice of the credential service the read-side
// queries need.
type CredentialReader interface {
	GetCredential(ctx context.Context, accountID string, projection core.Projection) (core.Credential, error)
	ListAccounts(ctx context.Context) ([]string, error)
}

type GetCredentialQuery struct {
	reader CredentialReader
}

func NewGetCredentialQuery(reader CredentialReader) *GetCredentialQuery {
	return &GetCredentialQuery{reader: reader}
}

func (q *GetCredentialQuery) Query(ctx context.Context, msg GetCredentialMessage) (core.Credential, error) {
	if q == nil || q.reader == nil {
		return core.Credential{}, queryDependencyError("query: credential reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Credential{}, err
	}
	return q.reader.GetCredential(ctx, msg.AccountID, msg.Projection)
}

type ListAccountsQuery struct {
	reader CredentialReader
}

func NewListAccountsQuery(reader CredentialReader) *ListAccountsQuery {
	return &ListAccountsQuery{reader: reader}
}

func (q *ListAccountsQuery) Query(ctx context.Context, _ ListAccountsMessage) ([]string, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: credential reader is required")
	}
	return q.reader.ListAccounts(ctx)
}
