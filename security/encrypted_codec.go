package security

import (
	"context"
	"fmt"

	"github.com/goliatone/go-cloudops/core"
)

// EncryptedCredentialCodec seals encoded credential payloads before they
// reach the store and opens them on the way back. It satisfies
// core.CredentialCodec, so it drops into the service via WithCredentialCodec.
type EncryptedCredentialCodec struct {
	base     core.CredentialCodec
	provider SecretProvider
}

func NewEncryptedCredentialCodec(base core.CredentialCodec, provider SecretProvider) (*EncryptedCredentialCodec, error) {
	if base == nil {
		base = core.JSONCredentialCodec{}
	}
	if provider == nil {
		return nil, fmt.Errorf("security: encrypted codec requires a secret provider")
	}
	return &EncryptedCredentialCodec{base: base, provider: provider}, nil
}

func (c *EncryptedCredentialCodec) Format() string {
	if c == nil || c.base == nil {
		return ""
	}
	return c.base.Format() + "+sealed"
}

func (c *EncryptedCredentialCodec) Version() int {
	if c == nil || c.base == nil {
		return 0
	}
	return c.base.Version()
}

func (c *EncryptedCredentialCodec) Encode(credential core.Credential) ([]byte, error) {
	if c == nil || c.provider == nil {
		return nil, fmt.Errorf("security: encrypted codec is not configured")
	}
	plaintext, err := c.base.Encode(credential)
	if err != nil {
		return nil, err
	}
	return c.provider.Encrypt(context.Background(), plaintext)
}

func (c *EncryptedCredentialCodec) Decode(payload []byte) (core.Credential, error) {
	if c == nil || c.provider == nil {
		return core.Credential{}, fmt.Errorf("security: encrypted codec is not configured")
	}
	plaintext, err := c.provider.Decrypt(context.Background(), payload)
	if err != nil {
		return core.Credential{}, err
	}
	return c.base.Decode(plaintext)
}

var _ core.CredentialCodec = (*EncryptedCredentialCodec)(nil)
