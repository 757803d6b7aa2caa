// Package identity resolves account references to concrete stored account
// ids. A reference is either an exact account id, the "active" alias, or a
// unique prefix of a stored id.
package identity

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-cloudops/core"
)

const (
	// AliasActive resolves to the configured active account.
	AliasActive = "active"

	// ActiveAccountEnvVar names the active account when no explicit one is
	// configured on the resolver.
	ActiveAccountEnvVar = "CLOUDOPS_ACCOUNT"
)

var ErrNoActiveAccount = errors.New("identity: no active account configured")
var ErrAmbiguousAccount = errors.New("identity: account reference is ambiguous")

type AccountNotFoundError struct {
	Ref   string
	Cause error
}

func (e *AccountNotFoundError) Error() string {
	if e == nil {
		return core.ErrAccountNotFound.Error()
	}
	message := core.ErrAccountNotFound.Error()
	if strings.TrimSpace(e.Ref) != "" {
		message += ": " + strings.TrimSpace(e.Ref)
	}
	if e.Cause != nil {
		message += ": " + e.Cause.Error()
	}
	return message
}

func (e *AccountNotFoundError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return core.ErrAccountNotFound
	}
	return errors.Join(core.ErrAccountNotFound, e.Cause)
}

func (e *AccountNotFoundError) ToCloudopsError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(core.CloudopsErrorAccountNotFound)
}

func accountNotFound(ref string, cause error) error {
	return &AccountNotFoundError{Ref: ref, Cause: cause}
}

// AccountLister is the slice of the credential surface resolution needs.
// core.Service and every credential store satisfy it.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]string, error)
}

type Config struct {
	Lister        AccountLister
	ActiveAccount string
	LookupEnv     func(key string) (string, bool)
}

type Resolver struct {
	lister    AccountLister
	active    string
	lookupEnv func(key string) (string, bool)
}

func NewResolver(cfg Config) *Resolver {
	lookupEnv := cfg.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return &Resolver{
		lister:    cfg.Lister,
		active:    strings.TrimSpace(cfg.ActiveAccount),
		lookupEnv: lookupEnv,
	}
}

// Resolve maps ref to a stored account id. The empty reference and the
// "active" alias resolve through the configured active account, then the
// environment, then a sole stored account. Anything else must match a stored
// id exactly or be a unique prefix of one.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if r == nil || r.lister == nil {
		return "", accountNotFound(ref, errors.New("identity: resolver has no account lister"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	accounts, err := r.lister.ListAccounts(ctx)
	if err != nil {
		return "", err
	}
	sort.Strings(accounts)

	ref = strings.TrimSpace(ref)
	if ref == "" || strings.EqualFold(ref, AliasActive) {
		return r.resolveActive(accounts)
	}

	for _, account := range accounts {
		if account == ref {
			return account, nil
		}
	}

	matches := make([]string, 0, 1)
	for _, account := range accounts {
		if strings.HasPrefix(account, ref) {
			matches = append(matches, account)
		}
	}
	switch len(matches) {
	case 0:
		return "", accountNotFound(ref, nil)
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousAccountError{Ref: ref, Candidates: matches}
	}
}

// ActiveAccount reports the account the "active" alias resolves to without
// consulting stored accounts.
func (r *Resolver) ActiveAccount() (string, bool) {
	if r == nil {
		return "", false
	}
	if r.active != "" {
		return r.active, true
	}
	if value, ok := r.lookupEnv(ActiveAccountEnvVar); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

func (r *Resolver) resolveActive(accounts []string) (string, error) {
	if active, ok := r.ActiveAccount(); ok {
		for _, account := range accounts {
			if account == active {
				return account, nil
			}
		}
		return "", accountNotFound(active, nil)
	}
	if len(accounts) == 1 {
		return accounts[0], nil
	}
	return "", ErrNoActiveAccount
}

type AmbiguousAccountError struct {
	Ref        string
	Candidates []string
}

func (e *AmbiguousAccountError) Error() string {
	if e == nil {
		return ErrAmbiguousAccount.Error()
	}
	return ErrAmbiguousAccount.Error() + ": " + strings.TrimSpace(e.Ref) +
		" matches " + strings.Join(e.Candidates, ", ")
}

func (e *AmbiguousAccountError) Unwrap() error {
	return ErrAmbiguousAccount
}

func (e *AmbiguousAccountError) ToCloudopsError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.CloudopsErrorBadInput)
}
