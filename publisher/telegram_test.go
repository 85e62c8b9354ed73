package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDryRunWithoutCredentials(t *testing.T) {
	tg := NewTelegram("", "", zap.NewNop())
	assert.True(t, tg.DryRun())
	assert.NoError(t, tg.Publish(context.Background(), "hello", "https://example.com"))
}

func TestPublishSendsMessage(t *testing.T) {
	var got sendMessageRequest
	var path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegramWithBase(srv.URL, "token123", "@channel", zap.NewNop())
	require.False(t, tg.DryRun())

	err := tg.Publish(context.Background(), "breaking news", "https://example.com/a")
	require.NoError(t, err)

	assert.Equal(t, "/bottoken123/sendMessage", path)
	assert.Equal(t, "@channel", got.ChatID)
	assert.Equal(t, "breaking news\n\nhttps://example.com/a", got.Text)
	assert.Equal(t, "HTML", got.ParseMode)
}

func TestPublishSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	tg := NewTelegramWithBase(srv.URL, "token123", "@channel", zap.NewNop())

	err := tg.Publish(context.Background(), "text", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
