package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	tokenTTL  = 15 * time.Minute
	tokenSkew = time.Minute
)

// TokenSource acquires and caches the provider's anonymous bearer token.
// It is an explicit injected object with its own lifecycle; nothing here is
// package-global, so two clients never share credential state by accident.
type TokenSource struct {
	authURL string
	client  *http.Client
	log     *zap.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time
	now    func() time.Time
}

// NewTokenSource creates a TokenSource for the given auth endpoint.
func NewTokenSource(authURL string, client *http.Client, log *zap.Logger) *TokenSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenSource{
		authURL: authURL,
		client:  client,
		log:     log,
		now:     time.Now,
	}
}

// Token returns the cached token, refreshing it when it is within the
// safety skew of expiry.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.now().Before(t.expiry.Add(-tokenSkew)) {
		return t.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.authURL, bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request anonymous token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("anonymous token: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("anonymous token: empty accessToken")
	}

	t.token = result.AccessToken
	t.expiry = t.now().Add(tokenTTL)
	t.log.Debug("anonymous token refreshed", zap.Time("expiry", t.expiry))
	return t.token, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
// Called after an upstream 401.
func (t *TokenSource) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expiry = time.Time{}
}
