package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAccountID   = errors.New("core: invalid account id")
	ErrAccountNotFound    = errors.New("core: account not found")
	ErrUnsupportedVariant = errors.New("core: variant has no counterpart in target projection")
	ErrUnknownVariant     = errors.New("core: unknown credential variant")
	ErrUnknownProjection  = errors.New("core: unknown credential projection")
	ErrCorruptCredential  = errors.New("core: corrupt credential payload")
)

// WellKnownTokenURI is the token endpoint the modern projection assumes when
// no explicit token URI is attached to a credential.
const WellKnownTokenURI = "https://oauth2.googleapis.com/token"

const maxAccountIDLength = 256

type CredentialVariant string

const (
	VariantUser              CredentialVariant = "user"
	VariantServiceAccount    CredentialVariant = "service_account"
	VariantP12ServiceAccount CredentialVariant = "p12_service_account"
	VariantExternal          CredentialVariant = "external"
)

func (v CredentialVariant) Validate() error {
	switch v {
	case VariantUser, VariantServiceAccount, VariantP12ServiceAccount, VariantExternal:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownVariant, string(v))
}

// Projection selects one of the two in-memory credential models. A projection
// is chosen independently at write time and at read time; the store accepts
// either on write and produces either on read.
type Projection string

const (
	ProjectionLegacy Projection = "legacy"
	ProjectionModern Projection = "modern"
)

func (p Projection) Validate() error {
	switch p {
	case ProjectionLegacy, ProjectionModern:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownProjection, string(p))
}

// UserCredential carries a three-legged OAuth refresh-token credential.
// TokenURI is stored explicitly under the legacy projection; under the modern
// projection an empty TokenURI means the well-known endpoint.
type UserCredential struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURI     string
	RaptToken    string
}

// ServiceAccountCredential carries a PEM-keyed service account identity.
type ServiceAccountCredential struct {
	ClientID      string
	Email         string
	PrivateKeyID  string
	PrivateKeyPEM string
	TokenURI      string
	ProjectID     string
}

// P12Credential carries a PKCS#12-keyed service account identity. It has no
// projection-specific fields; both projections observe the same three fields.
type P12Credential struct {
	Email    string
	Password string
	KeyBytes []byte
}

// ExternalCredential is an opaque serialized credential plus a discriminator.
// It cannot be translated between projections.
type ExternalCredential struct {
	Kind string
	Blob []byte
}

// Credential is the tagged union over the supported variants. Exactly one of
// the variant pointers is set, matching Variant. Extra retains payload fields
// this version does not recognize so they survive a store/load round trip.
type Credential struct {
	Variant    CredentialVariant
	Projection Projection

	User           *UserCredential
	ServiceAccount *ServiceAccountCredential
	P12            *P12Credential
	External       *ExternalCredential

	Extra map[string]json.RawMessage
}

func NewLegacyUserCredential(fields UserCredential) Credential {
	return newUserCredential(ProjectionLegacy, fields)
}

func NewModernUserCredential(fields UserCredential) Credential {
	return newUserCredential(ProjectionModern, fields)
}

func NewLegacyServiceAccountCredential(fields ServiceAccountCredential) Credential {
	return newServiceAccountCredential(ProjectionLegacy, fields)
}

func NewModernServiceAccountCredential(fields ServiceAccountCredential) Credential {
	return newServiceAccountCredential(ProjectionModern, fields)
}

func NewLegacyP12Credential(fields P12Credential) Credential {
	return newP12Credential(ProjectionLegacy, fields)
}

func NewModernP12Credential(fields P12Credential) Credential {
	return newP12Credential(ProjectionModern, fields)
}

func NewExternalCredential(projection Projection, fields ExternalCredential) Credential {
	clone := fields
	clone.Blob = append([]byte(nil), fields.Blob...)
	return Credential{
		Variant:    VariantExternal,
		Projection: projection,
		External:   &clone,
	}
}

func newUserCredential(projection Projection, fields UserCredential) Credential {
	clone := fields
	return Credential{
		Variant:    VariantUser,
		Projection: projection,
		User:       &clone,
	}
}

func newServiceAccountCredential(projection Projection, fields ServiceAccountCredential) Credential {
	clone := fields
	return Credential{
		Variant:        VariantServiceAccount,
		Projection:     projection,
		ServiceAccount: &clone,
	}
}

func newP12Credential(projection Projection, fields P12Credential) Credential {
	clone := fields
	clone.KeyBytes = append([]byte(nil), fields.KeyBytes...)
	return Credential{
		Variant:    VariantP12ServiceAccount,
		Projection: projection,
		P12:        &clone,
	}
}

func (c Credential) Validate() error {
	if err := c.Variant.Validate(); err != nil {
		return err
	}
	if err := c.Projection.Validate(); err != nil {
		return err
	}
	switch c.Variant {
	case VariantUser:
		if c.User == nil {
			return fmt.Errorf("%w: user fields are required", ErrCorruptCredential)
		}
		if strings.TrimSpace(c.User.ClientID) == "" {
			return fmt.Errorf("core: user credential client id is required")
		}
		if strings.TrimSpace(c.User.RefreshToken) == "" {
			return fmt.Errorf("core: user credential refresh token is required")
		}
	case VariantServiceAccount:
		if c.ServiceAccount == nil {
			return fmt.Errorf("%w: service account fields are required", ErrCorruptCredential)
		}
		if strings.TrimSpace(c.ServiceAccount.Email) == "" {
			return fmt.Errorf("core: service account email is required")
		}
		if strings.TrimSpace(c.ServiceAccount.PrivateKeyPEM) == "" {
			return fmt.Errorf("core: service account private key is required")
		}
	case VariantP12ServiceAccount:
		if c.P12 == nil {
			return fmt.Errorf("%w: p12 fields are required", ErrCorruptCredential)
		}
		if strings.TrimSpace(c.P12.Email) == "" {
			return fmt.Errorf("core: p12 service account email is required")
		}
		if len(c.P12.KeyBytes) == 0 {
			return fmt.Errorf("core: p12 key bytes are required")
		}
	case VariantExternal:
		if c.External == nil {
			return fmt.Errorf("%w: external fields are required", ErrCorruptCredential)
		}
		if strings.TrimSpace(c.External.Kind) == "" {
			return fmt.Errorf("core: external credential kind is required")
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate field structs without
// aliasing the original.
func (c Credential) Clone() Credential {
	out := c
	if c.User != nil {
		clone := *c.User
		out.User = &clone
	}
	if c.ServiceAccount != nil {
		clone := *c.ServiceAccount
		out.ServiceAccount = &clone
	}
	if c.P12 != nil {
		clone := *c.P12
		clone.KeyBytes = append([]byte(nil), c.P12.KeyBytes...)
		out.P12 = &clone
	}
	if c.External != nil {
		clone := *c.External
		clone.Blob = append([]byte(nil), c.External.Blob...)
		out.External = &clone
	}
	if len(c.Extra) > 0 {
		extra := make(map[string]json.RawMessage, len(c.Extra))
		for key, value := range c.Extra {
			extra[key] = append(json.RawMessage(nil), value...)
		}
		out.Extra = extra
	}
	return out
}

// Project translates a credential into the target projection. The conversion
// is total for user, PEM service account, and P12 variants. External
// credentials are opaque and only valid under the projection that produced
// them.
//
// Translation rules:
//   - user, legacy -> modern: all fields carried, including the rapt token.
//   - user, modern -> legacy: an implicit (empty) token URI is materialized
//     to WellKnownTokenURI, since the legacy projection stores it explicitly.
//   - service account: all six fields carried both ways; the token URI is
//     materialized the same way on downgrade.
//   - p12: projection changes the tag only, no field translation applies.
func Project(c Credential, target Projection) (Credential, error) {
	if err := target.Validate(); err != nil {
		return Credential{}, err
	}
	if err := c.Variant.Validate(); err != nil {
		return Credential{}, err
	}
	out := c.Clone()
	if c.Projection == target {
		return out, nil
	}

	switch c.Variant {
	case VariantUser:
		if target == ProjectionLegacy && strings.TrimSpace(out.User.TokenURI) == "" {
			out.User.TokenURI = WellKnownTokenURI
		}
	case VariantServiceAccount:
		if target == ProjectionLegacy && strings.TrimSpace(out.ServiceAccount.TokenURI) == "" {
			out.ServiceAccount.TokenURI = WellKnownTokenURI
		}
	case VariantP12ServiceAccount:
		// Tag change only.
	case VariantExternal:
		return Credential{}, fmt.Errorf("%w: %s -> %s", ErrUnsupportedVariant, c.Projection, target)
	}
	out.Projection = target
	return out, nil
}

// Equal compares the externally observable field set of two credentials,
// ignoring the projection tag. Token URIs are compared after normalization:
// an empty token URI is equivalent to the well-known endpoint.
func Equal(a, b Credential) bool {
	if a.Variant != b.Variant {
		return false
	}
	switch a.Variant {
	case VariantUser:
		if a.User == nil || b.User == nil {
			return a.User == b.User
		}
		return a.User.ClientID == b.User.ClientID &&
			a.User.ClientSecret == b.User.ClientSecret &&
			a.User.RefreshToken == b.User.RefreshToken &&
			tokenURIEqual(a.User.TokenURI, b.User.TokenURI) &&
			a.User.RaptToken == b.User.RaptToken
	case VariantServiceAccount:
		if a.ServiceAccount == nil || b.ServiceAccount == nil {
			return a.ServiceAccount == b.ServiceAccount
		}
		return a.ServiceAccount.ClientID == b.ServiceAccount.ClientID &&
			a.ServiceAccount.Email == b.ServiceAccount.Email &&
			a.ServiceAccount.PrivateKeyID == b.ServiceAccount.PrivateKeyID &&
			a.ServiceAccount.PrivateKeyPEM == b.ServiceAccount.PrivateKeyPEM &&
			tokenURIEqual(a.ServiceAccount.TokenURI, b.ServiceAccount.TokenURI) &&
			a.ServiceAccount.ProjectID == b.ServiceAccount.ProjectID
	case VariantP12ServiceAccount:
		if a.P12 == nil || b.P12 == nil {
			return a.P12 == b.P12
		}
		return a.P12.Email == b.P12.Email &&
			a.P12.Password == b.P12.Password &&
			bytes.Equal(a.P12.KeyBytes, b.P12.KeyBytes)
	case VariantExternal:
		if a.External == nil || b.External == nil {
			return a.External == b.External
		}
		return a.External.Kind == b.External.Kind &&
			bytes.Equal(a.External.Blob, b.External.Blob)
	}
	return false
}

func tokenURIEqual(a, b string) bool {
	return effectiveTokenURI(a) == effectiveTokenURI(b)
}

func effectiveTokenURI(uri string) string {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return WellKnownTokenURI
	}
	return uri
}

// String renders the credential with every secret field redacted. Safe to log.
func (c Credential) String() string {
	switch c.Variant {
	case VariantUser:
		if c.User == nil {
			return fmt.Sprintf("credential{variant=%s projection=%s}", c.Variant, c.Projection)
		}
		return fmt.Sprintf("credential{variant=%s projection=%s client_id=%s token_uri=%s}",
			c.Variant, c.Projection, c.User.ClientID, effectiveTokenURI(c.User.TokenURI))
	case VariantServiceAccount:
		if c.ServiceAccount == nil {
			return fmt.Sprintf("credential{variant=%s projection=%s}", c.Variant, c.Projection)
		}
		return fmt.Sprintf("credential{variant=%s projection=%s email=%s key_id=%s}",
			c.Variant, c.Projection, c.ServiceAccount.Email, c.ServiceAccount.PrivateKeyID)
	case VariantP12ServiceAccount:
		if c.P12 == nil {
			return fmt.Sprintf("credential{variant=%s projection=%s}", c.Variant, c.Projection)
		}
		return fmt.Sprintf("credential{variant=%s projection=%s email=%s}",
			c.Variant, c.Projection, c.P12.Email)
	default:
		return fmt.Sprintf("credential{variant=%s projection=%s}", c.Variant, c.Projection)
	}
}

// ValidateAccountID enforces the store key contract: a non-empty printable
// string of at most 256 bytes, compared case-sensitively.
func ValidateAccountID(accountID string) error {
	if accountID == "" || len(accountID) > maxAccountIDLength {
		return fmt.Errorf("%w: must be 1-%d bytes", ErrInvalidAccountID, maxAccountIDLength)
	}
	for _, r := range accountID {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: contains non-printable byte", ErrInvalidAccountID)
		}
	}
	return nil
}
