package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmd/internal/models"
	"gmd/internal/providers"
	"gmd/internal/services"
	"gmd/internal/testutil"
	"gmd/internal/webhook"
)

type stubRegistrar struct {
	state webhook.State
}

func (s *stubRegistrar) Register(_ context.Context) error   { return nil }
func (s *stubRegistrar) Unregister(_ context.Context) error { return nil }
func (s *stubRegistrar) State() webhook.State               { return s.state }
func (s *stubRegistrar) RemoteIDs() []string                { return nil }

func newApiController(coordinator *testutil.MockCoordinator, cache *testutil.MockCache) *ApiController {
	return NewApiController(&testutil.MockLogger{}, coordinator, &stubRegistrar{state: webhook.StateActive}, cache)
}

func sampleSnapshot() *models.MetricsSnapshot {
	return &models.MetricsSnapshot{
		Members:           models.MemberCounts{Total: 100, Paid: 20, Free: 75, Comped: 5},
		Posts:             models.PostCounts{Published: 40},
		NewsletterMembers: map[string]int{"nl1": 80},
		CapturedAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGetSnapshot_ServesCurrent(t *testing.T) {
	coordinator := &testutil.MockCoordinator{Snapshot: sampleSnapshot(), OK: true}
	ac := newApiController(coordinator, testutil.NewMockCache())

	w := httptest.NewRecorder()
	ac.GetSnapshot(w, httptest.NewRequest(http.MethodGet, "/snapshot", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got models.MetricsSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 100, got.Members.Total)
	assert.Equal(t, 40, got.Posts.Published)
}

func TestGetSnapshot_UnavailableBeforeFirstPoll(t *testing.T) {
	coordinator := &testutil.MockCoordinator{}
	ac := newApiController(coordinator, testutil.NewMockCache())

	w := httptest.NewRecorder()
	ac.GetSnapshot(w, httptest.NewRequest(http.MethodGet, "/snapshot", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp unavailableResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Available)
	assert.Equal(t, "no data fetched yet", resp.Reason)
}

func TestGetSnapshot_UnavailableReasons(t *testing.T) {
	cases := []struct {
		name   string
		status services.Status
		reason string
	}{
		{"poll failures", services.Status{HasSnapshot: true}, "too many consecutive poll failures"},
		{"reauth", services.Status{HasSnapshot: true, ReauthRequired: true}, "reauthentication required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			coordinator := &testutil.MockCoordinator{Snapshot: sampleSnapshot(), OK: false, Stat: tc.status}
			ac := newApiController(coordinator, testutil.NewMockCache())

			w := httptest.NewRecorder()
			ac.GetSnapshot(w, httptest.NewRequest(http.MethodGet, "/snapshot", nil))

			require.Equal(t, http.StatusServiceUnavailable, w.Code)
			var resp unavailableResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.reason, resp.Reason)
		})
	}
}

func TestGetSnapshot_CacheKeyTracksCaptureTime(t *testing.T) {
	coordinator := &testutil.MockCoordinator{Snapshot: sampleSnapshot(), OK: true}
	cache := testutil.NewMockCache()
	ac := newApiController(coordinator, cache)

	w := httptest.NewRecorder()
	ac.GetSnapshot(w, httptest.NewRequest(http.MethodGet, "/snapshot", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, cache.Data, 1)

	// A webhook patch advances CapturedAt, so the stale body is skipped.
	patched := sampleSnapshot()
	patched.Members.Total = 101
	patched.CapturedAt = patched.CapturedAt.Add(time.Second)
	coordinator.Snapshot = patched

	w = httptest.NewRecorder()
	ac.GetSnapshot(w, httptest.NewRequest(http.MethodGet, "/snapshot", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got models.MetricsSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 101, got.Members.Total)
	assert.Len(t, cache.Data, 2)
}

func TestServeFromCache_FailuresAreLogged(t *testing.T) {
	cases := []struct {
		name    string
		compute func() (any, error)
	}{
		// goccy/go-json cannot marshal a func value.
		{"encode failure", func() (any, error) { return func() {}, nil }},
		{"compute failure", func() (any, error) { return nil, context.DeadlineExceeded }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger := &testutil.MockLogger{}
			ac := NewApiController(logger, &testutil.MockCoordinator{}, &stubRegistrar{}, testutil.NewMockCache())

			w := httptest.NewRecorder()
			ac.serveFromCacheOrCompute(w, "snapshot:test", tc.compute)

			require.Equal(t, http.StatusInternalServerError, w.Code)
			entries := logger.Entries()
			require.Len(t, entries, 1)
			assert.Equal(t, "error", entries[0].Level)
			assert.Equal(t, providers.TypeApi, entries[0].Type)
		})
	}
}

func TestGetNewsletters(t *testing.T) {
	coordinator := &testutil.MockCoordinator{Snapshot: sampleSnapshot(), OK: true}
	ac := newApiController(coordinator, testutil.NewMockCache())

	w := httptest.NewRecorder()
	ac.GetNewsletters(w, httptest.NewRequest(http.MethodGet, "/newsletters", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, map[string]int{"nl1": 80}, got)
}

func TestGetNewsletters_EmptyMapNotNull(t *testing.T) {
	snap := sampleSnapshot()
	snap.NewsletterMembers = nil
	coordinator := &testutil.MockCoordinator{Snapshot: snap, OK: true}
	ac := newApiController(coordinator, testutil.NewMockCache())

	w := httptest.NewRecorder()
	ac.GetNewsletters(w, httptest.NewRequest(http.MethodGet, "/newsletters", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestGetStatus(t *testing.T) {
	coordinator := &testutil.MockCoordinator{
		Stat: services.Status{
			SiteTitle:   "My Blog",
			HasSnapshot: true,
			Available:   true,
		},
	}
	ac := newApiController(coordinator, testutil.NewMockCache())

	w := httptest.NewRecorder()
	ac.GetStatus(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "My Blog", got["site_title"])
	assert.Equal(t, true, got["available"])
	assert.Equal(t, "active", got["webhook_state"])
}
