package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buzz-lite/delivery-coordinator/pkg/logger"
)

func newTestGateway(t *testing.T, baseURL string) (*GreenAPIGateway, *Allowlist) {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)

	allow := NewAllowlist()
	g, err := NewGreenAPIGateway(Config{
		BaseURL:    baseURL,
		InstanceID: "1101000001",
		Token:      "test-token",
		Timeout:    time.Second,
	}, allow, log)
	require.NoError(t, err)
	return g, allow
}

func TestSend(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g, allow := newTestGateway(t, srv.URL)
	allow.Add("972521234567")

	err := g.Send(context.Background(), "972521234567", "שלום")
	require.NoError(t, err)
	assert.Equal(t, "/waInstance1101000001/sendMessage/test-token", gotPath)
	assert.Equal(t, "972521234567@c.us", gotBody.ChatID)
	assert.Equal(t, "שלום", gotBody.Message)
}

func TestSendBlockedByAllowlist(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	g, _ := newTestGateway(t, srv.URL)

	err := g.Send(context.Background(), "972521234567", "שלום")
	assert.ErrorIs(t, err, ErrNotAllowed)
	assert.False(t, called, "no network call may happen for a blocked phone")
}

func TestSendProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g, allow := newTestGateway(t, srv.URL)
	allow.Add("972521234567")

	err := g.Send(context.Background(), "972521234567", "שלום")
	assert.Error(t, err)
}

func TestNewGatewayRequiresCredentials(t *testing.T) {
	log, err := logger.New("error")
	require.NoError(t, err)

	_, err = NewGreenAPIGateway(Config{}, NewAllowlist(), log)
	assert.Error(t, err)
}

func TestAllowlist(t *testing.T) {
	allow := NewAllowlist()
	assert.False(t, allow.Allowed("972521234567"))

	allow.Add("972521234567", "972527654321")
	assert.True(t, allow.Allowed("972521234567"))
	assert.True(t, allow.Allowed("972527654321"))
	assert.Equal(t, 2, allow.Len())
}
