package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"newsgate/analytics"
	"newsgate/config"
	"newsgate/history"
	"newsgate/ratelimit"
	"newsgate/repository"
)

func newTestServer(t *testing.T, settings config.Settings) (*httptest.Server, *history.Store) {
	t.Helper()

	hist, err := history.Open(filepath.Join(t.TempDir(), "posts.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	srv := NewServer(ratelimit.New(hist, settings), analytics.New(hist), hist, zap.NewNop(), 0)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, hist
}

func enabledSettings() config.Settings {
	return config.Settings{MaxPostsPerDay: 10, MinIntervalMinutes: 0, SimilarityThreshold: 0.85, Enabled: true}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, enabledSettings())

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCanPost(t *testing.T) {
	ts, _ := newTestServer(t, enabledSettings())

	resp, err := http.Get(ts.URL + "/can-post")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["can_post"])
	assert.Equal(t, "ok", body["reason"])
}

func TestCanPostDisabled(t *testing.T) {
	settings := enabledSettings()
	settings.Enabled = false
	ts, _ := newTestServer(t, settings)

	resp, err := http.Get(ts.URL + "/can-post")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["can_post"])
	assert.Equal(t, "disabled", body["reason"])
}

func TestStats(t *testing.T) {
	ts, hist := newTestServer(t, enabledSettings())
	require.NoError(t, hist.Record(repository.PostRecord{
		ID: "p1", NewsItemID: "n1", Source: "TechCrunch", PostedAt: time.Now().UTC(),
	}))

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats analytics.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalPosts)
	assert.Equal(t, 1, stats.Today)
}

func TestEngagementRoundtrip(t *testing.T) {
	ts, hist := newTestServer(t, enabledSettings())
	require.NoError(t, hist.Record(repository.PostRecord{
		ID: "p1", NewsItemID: "n1", Source: "TechCrunch", PostedAt: time.Now().UTC(),
	}))

	resp, err := http.Post(ts.URL+"/engagement", "application/json",
		strings.NewReader(`{"news_item_id":"n1","views":42,"clicks":7}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	posts, err := hist.AllPosts()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(42), posts[0].Views)
	assert.Equal(t, int64(7), posts[0].Clicks)
}

func TestEngagementValidation(t *testing.T) {
	ts, _ := newTestServer(t, enabledSettings())

	resp, err := http.Post(ts.URL+"/engagement", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/engagement")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
