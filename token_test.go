package live

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bt-bridge/gemini-live/shared"
)

func TestCreateEphemeralToken(t *testing.T) {
	var gotKey string
	var gotReq tokenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, sonic.Unmarshal(body, &gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"auth_tokens/abc123"}`))
	}))
	defer srv.Close()

	token, err := CreateEphemeralToken(context.Background(), shared.NewNopLogger(), "long-lived-key", TokenOptions{
		Endpoint: srv.URL,
		Uses:     2,
		TTL:      time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, "auth_tokens/abc123", token)
	assert.Equal(t, "long-lived-key", gotKey)
	assert.Equal(t, 2, gotReq.Uses)
	assert.NotEmpty(t, gotReq.ExpireTime)
}

func TestCreateEphemeralTokenDefaultsUses(t *testing.T) {
	var gotReq tokenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, sonic.Unmarshal(body, &gotReq))
		_, _ = w.Write([]byte(`{"name":"auth_tokens/single"}`))
	}))
	defer srv.Close()

	token, err := CreateEphemeralToken(context.Background(), shared.NewNopLogger(), "k", TokenOptions{Endpoint: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "auth_tokens/single", token)
	assert.Equal(t, 1, gotReq.Uses)
	assert.Empty(t, gotReq.ExpireTime)
}

func TestCreateEphemeralTokenRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := CreateEphemeralToken(context.Background(), shared.NewNopLogger(), "bad-key", TokenOptions{Endpoint: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestCreateEphemeralTokenGuards(t *testing.T) {
	_, err := CreateEphemeralToken(context.Background(), nil, "k", TokenOptions{})
	assert.ErrorIs(t, err, shared.ErrNoLogger)
	_, err = CreateEphemeralToken(context.Background(), shared.NewNopLogger(), "", TokenOptions{})
	assert.ErrorIs(t, err, shared.ErrNoAPIKey)
}
