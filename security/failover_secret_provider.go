package security

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type SecretProviderFailurePolicy string

const (
	SecretProviderFailurePolicyStrict   SecretProviderFailurePolicy = "strict_fail"
	SecretProviderFailurePolicyFallback SecretProviderFailurePolicy = "fallback_allowed"
)

// SecretProviderDiagnostic is one failover event: a primary failure, a
// fallback failure, or a fallback success.
type SecretProviderDiagnostic struct {
	OccurredAt time.Time
	Operation  string
	Policy     SecretProviderFailurePolicy
	Outcome    string
	Error      string
}

type SecretProviderDiagnosticHook func(event SecretProviderDiagnostic)

type FailoverOption func(*FailoverSecretProvider)

// FailoverSecretProvider seals with the primary key and, under the fallback
// policy, opens payloads the primary can no longer read. That is the shape a
// key rotation leaves behind: new writes under the new key, old rows still
// sealed under the previous one.
type FailoverSecretProvider struct {
	primary        SecretProvider
	fallback       SecretProvider
	policy         SecretProviderFailurePolicy
	diagnosticHook SecretProviderDiagnosticHook
}

func NewFailoverSecretProvider(primary SecretProvider, opts ...FailoverOption) (*FailoverSecretProvider, error) {
	if primary == nil {
		return nil, fmt.Errorf("security: primary secret provider is required")
	}
	provider := &FailoverSecretProvider{
		primary: primary,
		policy:  SecretProviderFailurePolicyStrict,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(provider)
	}
	provider.policy = normalizeFailurePolicy(provider.policy)
	if provider.policy == SecretProviderFailurePolicyFallback && provider.fallback == nil {
		return nil, fmt.Errorf("security: fallback policy requires a configured fallback secret provider")
	}
	return provider, nil
}

func WithFallbackSecretProvider(provider SecretProvider) FailoverOption {
	return func(f *FailoverSecretProvider) {
		if f == nil {
			return
		}
		f.fallback = provider
	}
}

func WithSecretProviderFailurePolicy(policy SecretProviderFailurePolicy) FailoverOption {
	return func(f *FailoverSecretProvider) {
		if f == nil {
			return
		}
		f.policy = normalizeFailurePolicy(policy)
	}
}

func WithSecretProviderDiagnostics(hook SecretProviderDiagnosticHook) FailoverOption {
	return func(f *FailoverSecretProvider) {
		if f == nil {
			return
		}
		f.diagnosticHook = hook
	}
}

func (p *FailoverSecretProvider) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("security: plaintext is required")
	}
	return p.callWithFailover("encrypt", func(provider SecretProvider) ([]byte, error) {
		return provider.Encrypt(ctx, plaintext)
	})
}

func (p *FailoverSecretProvider) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("security: ciphertext is required")
	}
	return p.callWithFailover("decrypt", func(provider SecretProvider) ([]byte, error) {
		return provider.Decrypt(ctx, ciphertext)
	})
}

func (p *FailoverSecretProvider) callWithFailover(operation string, call func(SecretProvider) ([]byte, error)) ([]byte, error) {
	out, err := call(p.primary)
	if err == nil {
		return out, nil
	}
	p.emit(operation, "primary_failed", err)
	if p.policy != SecretProviderFailurePolicyFallback || p.fallback == nil {
		return nil, fmt.Errorf("security: primary %s failed with %s policy: %w", operation, p.policy, err)
	}
	out, fallbackErr := call(p.fallback)
	if fallbackErr != nil {
		p.emit(operation, "fallback_failed", fallbackErr)
		return nil, fmt.Errorf("security: primary %s failed: %v; fallback %s failed: %w", operation, err, operation, fallbackErr)
	}
	p.emit(operation, "fallback_succeeded", err)
	return out, nil
}

// Metadata reports the key id and version new payloads are sealed under,
// which is always the primary's key.
func (p *FailoverSecretProvider) Metadata() (string, int) {
	if p == nil {
		return "", 0
	}
	if keyID, version, ok := readProviderMetadata(p.primary); ok {
		return keyID, version
	}
	if keyID, version, ok := readProviderMetadata(p.fallback); ok {
		return keyID, version
	}
	return "", 0
}

func (p *FailoverSecretProvider) emit(operation string, outcome string, err error) {
	if p == nil || p.diagnosticHook == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	p.diagnosticHook(SecretProviderDiagnostic{
		OccurredAt: time.Now().UTC(),
		Operation:  operation,
		Policy:     p.policy,
		Outcome:    outcome,
		Error:      msg,
	})
}

func normalizeFailurePolicy(policy SecretProviderFailurePolicy) SecretProviderFailurePolicy {
	normalized := SecretProviderFailurePolicy(strings.ToLower(strings.TrimSpace(string(policy))))
	if normalized == SecretProviderFailurePolicyFallback {
		return SecretProviderFailurePolicyFallback
	}
	return SecretProviderFailurePolicyStrict
}

func readProviderMetadata(provider SecretProvider) (string, int, bool) {
	if provider == nil {
		return "", 0, false
	}
	metadataProvider, ok := provider.(interface{ Metadata() (string, int) })
	if !ok {
		return "", 0, false
	}
	keyID, version := metadataProvider.Metadata()
	keyID = strings.TrimSpace(keyID)
	if keyID == "" || version <= 0 {
		return "", 0, false
	}
	return keyID, version, true
}

var _ SecretProvider = (*FailoverSecretProvider)(nil)
