package extraction

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"invoice-ocr-backend/config"
)

// Tokens are refreshed this long before their reported expiry.
const refreshBuffer = 5 * time.Minute

// TokenSource yields a bearer token for the extraction API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenCache performs the OAuth2 client-credentials exchange and caches the
// token for its validity window. The mutex is held across the exchange, so
// concurrent callers at an expiry boundary trigger exactly one request; the
// rest reuse the fresh token.
type TokenCache struct {
	cc *clientcredentials.Config

	mu  sync.Mutex
	tok *oauth2.Token
	now func() time.Time
}

func NewTokenCache(cfg config.ExtractionConfig) *TokenCache {
	return &TokenCache{
		cc: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		now: time.Now,
	}
}

func (tc *TokenCache) Token(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.valid() {
		return tc.tok.AccessToken, nil
	}

	tok, err := tc.cc.Token(ctx)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	tc.tok = tok
	return tok.AccessToken, nil
}

// valid reports whether the cached token can still be used. A token without
// a reported expiry is trusted until a Clear.
func (tc *TokenCache) valid() bool {
	if tc.tok == nil || tc.tok.AccessToken == "" {
		return false
	}
	if tc.tok.Expiry.IsZero() {
		return true
	}
	return tc.now().Before(tc.tok.Expiry.Add(-refreshBuffer))
}

// Clear drops the cached token, forcing a new exchange on the next call.
func (tc *TokenCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.tok = nil
}
