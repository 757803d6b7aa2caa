package query

import (
	"github.com/goliatone/go-cloudops/core"
)

const (
	TypeGetCredential = "cloudops.query.credential.get"
	TypeListAccounts  = "cloudops.query.account.list"
)

// GetCredentialMessage loads one account's credential under the requested
// projection.
type GetCredentialMessage struct {
	AccountID  string
	Projection core.Projection
}

func (GetCredentialMessage) Type() string { return TypeGetCredential }

func (m GetCredentialMessage) Validate() error {
	if err := core.ValidateAccountID(m.AccountID); err != nil {
		return queryWrapValidation(err, "query: invalid account id")
	}
	if err := m.Projection.Validate(); err != nil {
		return queryWrapValidation(err, "query: invalid projection")
	}
	return nil
}

// ListAccountsMessage lists every stored account id.
type ListAccountsMessage struct{}

func (ListAccountsMessage) Type() string { return TypeListAccounts }

func (ListAccountsMessage) Validate() error { return nil }
