package personio

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/internal/httpclient"
)

func authServer(t *testing.T, calls *atomic.Int32, token string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/auth", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		calls.Add(1)

		body, _ := io.ReadAll(r.Body)
		var req authRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "client-1", req.ClientID)
		assert.Equal(t, "hunter2", req.ClientSecret)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"token": token},
		})
	}))
}

func TestTokenManager_FetchesOnFirstUse(t *testing.T) {
	var calls atomic.Int32
	srv := authServer(t, &calls, "tok-abc")
	defer srv.Close()

	tm := NewTokenManager(zap.NewNop(), srv.URL, "client-1", "hunter2")

	token, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)
	assert.EqualValues(t, 1, calls.Load())
}

func TestTokenManager_ReusesValidToken(t *testing.T) {
	var calls atomic.Int32
	srv := authServer(t, &calls, "tok-abc")
	defer srv.Close()

	tm := NewTokenManager(zap.NewNop(), srv.URL, "client-1", "hunter2")

	_, err := tm.Token(context.Background())
	require.NoError(t, err)
	token, err := tm.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "tok-abc", token)
	assert.EqualValues(t, 1, calls.Load(), "second call must be served from the cached credential")
}

func TestTokenManager_RefreshesExpiredToken(t *testing.T) {
	var calls atomic.Int32
	srv := authServer(t, &calls, "tok-new")
	defer srv.Close()

	tm := NewTokenManager(zap.NewNop(), srv.URL, "client-1", "hunter2")
	tm.token = "tok-old"
	tm.expiresAt = time.Now().Add(-time.Second)

	token, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-new", token)
	assert.EqualValues(t, 1, calls.Load())
}

func TestTokenManager_MissingTokenFieldIsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "data": {}}`))
	}))
	defer srv.Close()

	tm := NewTokenManager(zap.NewNop(), srv.URL, "client-1", "hunter2")

	_, err := tm.Token(context.Background())
	require.Error(t, err)
	assert.True(t, httpclient.IsAuthFailure(err))
}

func TestTokenManager_RejectedCredentialsIsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	tm := NewTokenManager(zap.NewNop(), srv.URL, "client-1", "wrong")

	_, err := tm.Token(context.Background())
	require.Error(t, err)
	assert.True(t, httpclient.IsAuthFailure(err))

	var he *httpclient.Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusForbidden, he.Status)
}
