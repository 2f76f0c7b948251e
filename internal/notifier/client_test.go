package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/intinc/interact-engine/internal/config"
	"github.com/intinc/interact-engine/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, enabled bool) *Client {
	return NewClient(&config.TeamsConfig{WebhookURL: url, Enabled: enabled}, logger.New("error", "console", ""))
}

func TestSendCardPostsMessageCard(t *testing.T) {
	var got MessageCard
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL, true)
	err := client.SendRuleTriggered(context.Background(), "alice@corp.test", "attendance-streak", 25, "Event Regular")
	require.NoError(t, err)

	assert.Equal(t, "MessageCard", got.Type)
	assert.Equal(t, `Rule "attendance-streak" triggered`, got.Summary)
	require.Len(t, got.Sections, 1)
	assert.Contains(t, got.Sections[0].Facts, Fact{Name: "Points", Value: "25"})
	assert.Contains(t, got.Sections[0].Facts, Fact{Name: "Badge", Value: "Event Regular"})
}

func TestSendCardDisabledIsNoOp(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	require.NoError(t, client.SendText(context.Background(), "hello"))
	assert.False(t, called)
}

func TestSendCardNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL, true)
	err := client.SendText(context.Background(), "hello")
	assert.ErrorContains(t, err, "status 502")
}

func TestSendMonthlyDigest(t *testing.T) {
	var got MessageCard
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := newTestClient(server.URL, true)
	entries := []DigestEntry{
		{UserEmail: "alice@corp.test", Points: 120},
		{UserEmail: "bob@corp.test", Points: 95},
	}
	require.NoError(t, client.SendMonthlyDigest(context.Background(), "July 2026", entries))

	require.Len(t, got.Sections, 1)
	require.Len(t, got.Sections[0].Facts, 2)
	assert.Equal(t, "#1 alice@corp.test", got.Sections[0].Facts[0].Name)
	assert.Equal(t, "120 points", got.Sections[0].Facts[0].Value)
}

func TestSendMonthlyDigestEmptySkips(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1", true)
	assert.NoError(t, client.SendMonthlyDigest(context.Background(), "July 2026", nil))
}
