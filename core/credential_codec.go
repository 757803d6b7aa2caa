package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	CredentialPayloadFormatJSONV1 = "account_credential_json"
	CredentialPayloadVersionV1    = 1
)

// CredentialCodec converts credentials to and from the canonical stored
// payload. Payloads are version tagged; field order is irrelevant; fields a
// codec does not recognize are retained on decode and written back on encode.
type CredentialCodec interface {
	Format() string
	Version() int
	Encode(credential Credential) ([]byte, error)
	Decode(payload []byte) (Credential, error)
}

type JSONCredentialCodec struct{}

func (JSONCredentialCodec) Format() string {
	return CredentialPayloadFormatJSONV1
}

func (JSONCredentialCodec) Version() int {
	return CredentialPayloadVersionV1
}

// credentialPayloadKeys are the fields this codec version understands. Any
// other key round-trips through Credential.Extra untouched.
var credentialPayloadKeys = []string{
	"variant",
	"projection",
	"client_id",
	"client_secret",
	"refresh_token",
	"token_uri",
	"rapt_token",
	"service_account_email",
	"private_key_id",
	"private_key_pem",
	"project_id",
	"private_key_password",
	"private_key_pkcs12",
	"external_kind",
	"external_blob",
}

func (JSONCredentialCodec) Encode(credential Credential) ([]byte, error) {
	if err := credential.Variant.Validate(); err != nil {
		return nil, err
	}
	if err := credential.Projection.Validate(); err != nil {
		return nil, err
	}

	payload := map[string]json.RawMessage{}
	for key, value := range credential.Extra {
		payload[key] = append(json.RawMessage(nil), value...)
	}

	setString := func(key, value string) error {
		if value == "" {
			delete(payload, key)
			return nil
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("core: encode credential field %s: %w", key, err)
		}
		payload[key] = encoded
		return nil
	}
	setBytes := func(key string, value []byte) error {
		if len(value) == 0 {
			delete(payload, key)
			return nil
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("core: encode credential field %s: %w", key, err)
		}
		payload[key] = encoded
		return nil
	}

	steps := []func() error{
		func() error { return setString("variant", string(credential.Variant)) },
		func() error { return setString("projection", string(credential.Projection)) },
	}
	switch credential.Variant {
	case VariantUser:
		if credential.User == nil {
			return nil, fmt.Errorf("%w: user fields are required", ErrCorruptCredential)
		}
		user := credential.User
		steps = append(steps,
			func() error { return setString("client_id", user.ClientID) },
			func() error { return setString("client_secret", user.ClientSecret) },
			func() error { return setString("refresh_token", user.RefreshToken) },
			func() error { return setString("token_uri", user.TokenURI) },
			func() error { return setString("rapt_token", user.RaptToken) },
		)
	case VariantServiceAccount:
		if credential.ServiceAccount == nil {
			return nil, fmt.Errorf("%w: service account fields are required", ErrCorruptCredential)
		}
		account := credential.ServiceAccount
		steps = append(steps,
			func() error { return setString("client_id", account.ClientID) },
			func() error { return setString("service_account_email", account.Email) },
			func() error { return setString("private_key_id", account.PrivateKeyID) },
			func() error { return setString("private_key_pem", account.PrivateKeyPEM) },
			func() error { return setString("token_uri", account.TokenURI) },
			func() error { return setString("project_id", account.ProjectID) },
		)
	case VariantP12ServiceAccount:
		if credential.P12 == nil {
			return nil, fmt.Errorf("%w: p12 fields are required", ErrCorruptCredential)
		}
		p12 := credential.P12
		steps = append(steps,
			func() error { return setString("service_account_email", p12.Email) },
			func() error { return setString("private_key_password", p12.Password) },
			func() error { return setBytes("private_key_pkcs12", p12.KeyBytes) },
		)
	case VariantExternal:
		if credential.External == nil {
			return nil, fmt.Errorf("%w: external fields are required", ErrCorruptCredential)
		}
		external := credential.External
		steps = append(steps,
			func() error { return setString("external_kind", external.Kind) },
			func() error { return setBytes("external_blob", external.Blob) },
		)
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("core: encode credential payload: %w", err)
	}
	return encoded, nil
}

func (JSONCredentialCodec) Decode(payload []byte) (Credential, error) {
	if len(payload) == 0 {
		return Credential{}, fmt.Errorf("%w: empty payload", ErrCorruptCredential)
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrCorruptCredential, err)
	}

	getString := func(key string) (string, error) {
		value, ok := raw[key]
		if !ok {
			return "", nil
		}
		var decoded string
		if err := json.Unmarshal(value, &decoded); err != nil {
			return "", fmt.Errorf("%w: field %s: %v", ErrCorruptCredential, key, err)
		}
		return decoded, nil
	}
	getBytes := func(key string) ([]byte, error) {
		value, ok := raw[key]
		if !ok {
			return nil, nil
		}
		var decoded []byte
		if err := json.Unmarshal(value, &decoded); err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrCorruptCredential, key, err)
		}
		return decoded, nil
	}

	variantTag, err := getString("variant")
	if err != nil {
		return Credential{}, err
	}
	projectionTag, err := getString("projection")
	if err != nil {
		return Credential{}, err
	}
	variant := CredentialVariant(strings.TrimSpace(variantTag))
	if err := variant.Validate(); err != nil {
		return Credential{}, err
	}
	projection := Projection(strings.TrimSpace(projectionTag))
	if err := projection.Validate(); err != nil {
		return Credential{}, err
	}

	credential := Credential{Variant: variant, Projection: projection}
	switch variant {
	case VariantUser:
		user := UserCredential{}
		if user.ClientID, err = getString("client_id"); err != nil {
			return Credential{}, err
		}
		if user.ClientSecret, err = getString("client_secret"); err != nil {
			return Credential{}, err
		}
		if user.RefreshToken, err = getString("refresh_token"); err != nil {
			return Credential{}, err
		}
		if user.TokenURI, err = getString("token_uri"); err != nil {
			return Credential{}, err
		}
		if user.RaptToken, err = getString("rapt_token"); err != nil {
			return Credential{}, err
		}
		credential.User = &user
	case VariantServiceAccount:
		account := ServiceAccountCredential{}
		if account.ClientID, err = getString("client_id"); err != nil {
			return Credential{}, err
		}
		if account.Email, err = getString("service_account_email"); err != nil {
			return Credential{}, err
		}
		if account.PrivateKeyID, err = getString("private_key_id"); err != nil {
			return Credential{}, err
		}
		if account.PrivateKeyPEM, err = getString("private_key_pem"); err != nil {
			return Credential{}, err
		}
		if account.TokenURI, err = getString("token_uri"); err != nil {
			return Credential{}, err
		}
		if account.ProjectID, err = getString("project_id"); err != nil {
			return Credential{}, err
		}
		credential.ServiceAccount = &account
	case VariantP12ServiceAccount:
		p12 := P12Credential{}
		if p12.Email, err = getString("service_account_email"); err != nil {
			return Credential{}, err
		}
		if p12.Password, err = getString("private_key_password"); err != nil {
			return Credential{}, err
		}
		if p12.KeyBytes, err = getBytes("private_key_pkcs12"); err != nil {
			return Credential{}, err
		}
		credential.P12 = &p12
	case VariantExternal:
		external := ExternalCredential{}
		if external.Kind, err = getString("external_kind"); err != nil {
			return Credential{}, err
		}
		if external.Blob, err = getBytes("external_blob"); err != nil {
			return Credential{}, err
		}
		credential.External = &external
	}

	known := map[string]struct{}{}
	for _, key := range credentialPayloadKeys {
		known[key] = struct{}{}
	}
	for key, value := range raw {
		if _, ok := known[key]; ok {
			continue
		}
		if credential.Extra == nil {
			credential.Extra = map[string]json.RawMessage{}
		}
		credential.Extra[key] = append(json.RawMessage(nil), value...)
	}

	return credential, nil
}

// DecodeAs decodes a stored payload and projects it into the projection the
// caller asked for.
func DecodeAs(codec CredentialCodec, payload []byte, requested Projection) (Credential, error) {
	if codec == nil {
		return Credential{}, fmt.Errorf("core: credential codec is required")
	}
	decoded, err := codec.Decode(payload)
	if err != nil {
		return Credential{}, err
	}
	if decoded.Projection == requested {
		return decoded, nil
	}
	return Project(decoded, requested)
}
