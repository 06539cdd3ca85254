// Package oauthtoken caches an OAuth2 refresh-token exchange for the
// breach oracle's bearer auth, refreshing it on expiry.
package oauthtoken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Config holds the client credentials and endpoints needed to exchange a
// refresh token for a short-lived access token.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
	Scope        string

	// CacheDuration is how long a fetched token is reused before a refresh
	// is attempted. Defaults to 3000s (50 minutes) if zero.
	CacheDuration time.Duration
}

type cachedToken struct {
	accessToken string
	issuedAt    time.Time
}

// Manager caches a single OAuth access token behind a mutex, refreshing it
// via a refresh_token grant when it expires.
type Manager struct {
	cfg    Config
	client *http.Client

	mu    sync.Mutex
	token *cachedToken
}

// NewManager constructs a token manager for the given config.
func NewManager(cfg Config) *Manager {
	if cfg.CacheDuration <= 0 {
		cfg.CacheDuration = 3000 * time.Second
	}
	return &Manager{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// GetToken returns a cached access token if still fresh, otherwise fetches
// a new one. The mutex is never held across the HTTP call: if two callers
// race on an expired cache, both may fetch — an acceptable at-least-once
// refresh per the protocol's design.
func (m *Manager) GetToken(ctx context.Context) (string, error) {
	if tok, ok := m.cachedToken(); ok {
		return tok, nil
	}

	form := url.Values{}
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", m.cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", m.cfg.RefreshToken)
	form.Set("scope", m.cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("oauthtoken: build request: %w", err)
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("user-agent", "Mozilla/5.0 (compatible; leakcheck-core)")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oauthtoken: token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("oauthtoken: reading token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("oauthtoken: token request failed with status %d: %s", resp.StatusCode, snippet(body))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("oauthtoken: parsing token response: %w: %s", err, snippet(body))
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("oauthtoken: received empty access token")
	}

	m.mu.Lock()
	m.token = &cachedToken{accessToken: parsed.AccessToken, issuedAt: time.Now()}
	m.mu.Unlock()

	return parsed.AccessToken, nil
}

// CheckConnection attempts a token fetch and reports success, swallowing
// the error — it exists only for status reporting, never as a fatal check.
func (m *Manager) CheckConnection(ctx context.Context) bool {
	_, err := m.GetToken(ctx)
	return err == nil
}

func (m *Manager) cachedToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil {
		return "", false
	}
	if time.Since(m.token.issuedAt) >= m.cfg.CacheDuration {
		return "", false
	}
	return m.token.accessToken, true
}

func snippet(body []byte) string {
	const max = 500
	s := string(body)
	if len(s) > max {
		return s[:max]
	}
	return s
}
