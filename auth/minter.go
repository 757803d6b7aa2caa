// Package auth mints short-lived access tokens from stored credentials. User
// credentials exchange their refresh token at the token endpoint; service
// account credentials sign a JWT assertion and exchange that. Minted tokens
// are cached per credential until shortly before expiry.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-cloudops/core"
)

const jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

const defaultAssertionTTL = time.Hour
const defaultRenewBefore = 2 * time.Minute
const defaultTokenTTL = time.Hour

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Token is one minted access token.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

func (t Token) Valid(now time.Time) bool {
	return strings.TrimSpace(t.AccessToken) != "" && t.ExpiresAt.After(now)
}

type MinterConfig struct {
	Scopes       []string
	AssertionTTL time.Duration
	RenewBefore  time.Duration
	Now          func() time.Time
}

type cachedToken struct {
	token Token
}

// Minter exchanges stored credentials for access tokens.
type Minter struct {
	client HTTPDoer
	config MinterConfig

	mu    sync.Mutex
	cache map[string]cachedToken
}

func NewMinter(client HTTPDoer, cfg MinterConfig) *Minter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.AssertionTTL <= 0 {
		cfg.AssertionTTL = defaultAssertionTTL
	}
	if cfg.RenewBefore <= 0 {
		cfg.RenewBefore = defaultRenewBefore
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	cfg.Scopes = normalizeScopes(cfg.Scopes)
	return &Minter{
		client: client,
		config: cfg,
		cache:  map[string]cachedToken{},
	}
}

// Mint returns an access token for the credential, reusing a cached token
// while it stays valid past the renew window.
func (m *Minter) Mint(ctx context.Context, credential core.Credential) (Token, error) {
	if m == nil || m.client == nil {
		return Token{}, fmt.Errorf("auth: minter requires an http client")
	}
	if err := credential.Validate(); err != nil {
		return Token{}, err
	}

	cacheKey := mintCacheKey(credential, m.config.Scopes)
	if token, ok := m.lookupCachedToken(cacheKey); ok {
		return token, nil
	}

	var token Token
	var err error
	switch credential.Variant {
	case core.VariantUser:
		token, err = m.mintUserToken(ctx, *credential.User)
	case core.VariantServiceAccount:
		token, err = m.mintServiceAccountToken(ctx, *credential.ServiceAccount)
	case core.VariantP12ServiceAccount:
		return Token{}, fmt.Errorf(
			"%w: p12 key bundles cannot be signed without a pkcs#12 decoder; convert the key to pem first",
			core.ErrUnsupportedVariant,
		)
	default:
		return Token{}, fmt.Errorf(
			"%w: external credentials mint through their owning tool",
			core.ErrUnsupportedVariant,
		)
	}
	if err != nil {
		return Token{}, err
	}

	m.storeCachedToken(cacheKey, token)
	return token, nil
}

func (m *Minter) mintUserToken(ctx context.Context, fields core.UserCredential) (Token, error) {
	tokenURI := firstNonEmpty(fields.TokenURI, core.WellKnownTokenURI)

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", fields.ClientID)
	form.Set("client_secret", fields.ClientSecret)
	form.Set("refresh_token", fields.RefreshToken)
	if len(m.config.Scopes) > 0 {
		form.Set("scope", strings.Join(m.config.Scopes, " "))
	}
	if strings.TrimSpace(fields.RaptToken) != "" {
		form.Set("rapt", strings.TrimSpace(fields.RaptToken))
	}

	return m.exchange(ctx, tokenURI, form)
}

func (m *Minter) mintServiceAccountToken(ctx context.Context, fields core.ServiceAccountCredential) (Token, error) {
	tokenURI := firstNonEmpty(fields.TokenURI, core.WellKnownTokenURI)

	now := m.config.Now().UTC()
	claims := map[string]any{
		"iss": fields.Email,
		"sub": fields.Email,
		"aud": tokenURI,
		"iat": now.Unix(),
		"exp": now.Add(m.config.AssertionTTL).Unix(),
	}
	if len(m.config.Scopes) > 0 {
		claims["scope"] = strings.Join(m.config.Scopes, " ")
	}
	assertion, err := buildRS256JWT(fields.PrivateKeyID, fields.PrivateKeyPEM, claims)
	if err != nil {
		return Token{}, err
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrantType)
	form.Set("assertion", assertion)

	return m.exchange(ctx, tokenURI, form)
}

func (m *Minter) exchange(ctx context.Context, tokenURI string, form url.Values) (Token, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("auth: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := m.client.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("auth: execute token request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Token{}, fmt.Errorf("auth: read token response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return Token{}, fmt.Errorf(
			"auth: token endpoint returned status %d: %s",
			res.StatusCode,
			strings.TrimSpace(string(truncate(body, 256))),
		)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Token{}, fmt.Errorf("auth: decode token response: %w", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return Token{}, fmt.Errorf("auth: token endpoint returned no access token")
	}

	tokenType := firstNonEmpty(payload.TokenType, "Bearer")
	ttl := time.Duration(payload.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return Token{
		AccessToken: payload.AccessToken,
		TokenType:   tokenType,
		ExpiresAt:   m.config.Now().UTC().Add(ttl),
	}, nil
}

func (m *Minter) lookupCachedToken(cacheKey string) (Token, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cached, ok := m.cache[cacheKey]
	if !ok {
		return Token{}, false
	}
	now := m.config.Now().UTC()
	if !cached.token.ExpiresAt.After(now.Add(m.config.RenewBefore)) {
		delete(m.cache, cacheKey)
		return Token{}, false
	}
	return cached.token, true
}

func (m *Minter) storeCachedToken(cacheKey string, token Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[cacheKey] = cachedToken{token: token}
}

func mintCacheKey(credential core.Credential, scopes []string) string {
	parts := []string{string(credential.Variant)}
	switch credential.Variant {
	case core.VariantUser:
		if credential.User != nil {
			parts = append(parts, credential.User.ClientID, credential.User.RefreshToken, credential.User.RaptToken)
		}
	case core.VariantServiceAccount:
		if credential.ServiceAccount != nil {
			parts = append(parts, credential.ServiceAccount.Email, credential.ServiceAccount.PrivateKeyID)
		}
	}
	parts = append(parts, strings.Join(scopes, "|"))
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:16])
}

func truncate(body []byte, max int) []byte {
	if len(body) <= max {
		return body
	}
	return body[:max]
}
