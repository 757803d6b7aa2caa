package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-cloudops/core"
)

var (
	_ gocmd.Querier[GetCredentialMessage, core.Credential] = (*GetCredentialQuery)(nil)
	_ gocmd.Querier[ListAccountsMessage, []string]         = (*ListAccountsQuery)(nil)

	_ CredentialReader = (*core.Service)(nil)
)
