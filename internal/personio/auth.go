package personio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/internal/httpclient"
)

// tokenLifetime is how long we trust a fetched token. Personio tokens last
// about an hour; the constant stays below that so a token is never presented
// right at the boundary. Deliberately not derived from the server response.
const tokenLifetime = 3500 * time.Second

// authPath is the Personio OAuth-style token endpoint.
const authPath = "/v1/auth"

// TokenManager owns the single bearer credential for the configured Personio
// tenant. The credential never leaves this type; callers get header values
// via Token. Refresh is mutex-serialized so concurrent callers cannot race
// duplicate authentication calls.
type TokenManager struct {
	logger       *zap.Logger
	client       *http.Client
	baseURL      string
	clientID     string
	clientSecret string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenManager creates a TokenManager for one client_id/client_secret pair.
func NewTokenManager(logger *zap.Logger, baseURL, clientID, clientSecret string) *TokenManager {
	return &TokenManager{
		logger:       logger,
		client:       &http.Client{Timeout: 10 * time.Second},
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// Token returns a valid bearer token, authenticating only when the held
// credential is absent or expired. Authentication failures are never retried
// here; they propagate so the caller can abort the run.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.expiresAt) {
		return m.token, nil
	}

	token, err := m.authenticate(ctx)
	if err != nil {
		return "", err
	}

	// Replaced wholesale; no partial update.
	m.token = token
	m.expiresAt = time.Now().Add(tokenLifetime)

	m.logger.Info("personio.auth.token_refreshed",
		zap.Time("expires_at", m.expiresAt))

	return m.token, nil
}

type authRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type authResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

func (m *TokenManager) authenticate(ctx context.Context) (string, error) {
	payload, err := json.Marshal(authRequest{
		ClientID:     m.clientID,
		ClientSecret: m.clientSecret,
	})
	if err != nil {
		return "", authFailure(m.baseURL+authPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+authPath, bytes.NewReader(payload))
	if err != nil {
		return "", authFailure(m.baseURL+authPath, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", authFailure(m.baseURL+authPath, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", &httpclient.Error{
			Kind:   httpclient.KindAuth,
			Status: resp.StatusCode,
			URL:    m.baseURL + authPath,
			Err:    fmt.Errorf("auth endpoint returned %d", resp.StatusCode),
		}
	}

	var tokenResp authResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", authFailure(m.baseURL+authPath, fmt.Errorf("decode auth response: %w", err))
	}

	if tokenResp.Data.Token == "" {
		return "", authFailure(m.baseURL+authPath, fmt.Errorf("auth response carries no data.token"))
	}

	return tokenResp.Data.Token, nil
}

func authFailure(url string, err error) *httpclient.Error {
	return &httpclient.Error{Kind: httpclient.KindAuth, URL: url, Err: err}
}
