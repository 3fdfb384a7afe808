// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/placecore/internal/cache"
	"github.com/ManuGH/placecore/internal/clock"
	"github.com/ManuGH/placecore/internal/config"
	"github.com/ManuGH/placecore/internal/events"
	"github.com/ManuGH/placecore/internal/fonts"
	"github.com/ManuGH/placecore/internal/health"
	"github.com/ManuGH/placecore/internal/recordstore"
	"github.com/ManuGH/placecore/internal/session"
	"github.com/ManuGH/placecore/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv     *Server
	session *session.Manager
	events  *events.MemoryStore
	fonts   *fonts.Registry
	cache   cache.Cache
	clk     *clock.Manual
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	records := recordstore.New(recordstore.NewMemoryBackend())
	t.Cleanup(func() { _ = records.Close() })

	clk := clock.NewManual(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	f := &fixture{
		session: session.NewManager(settings.New(records, ""), session.Config{}, nil, session.WithClock(clk)),
		events:  events.NewMemoryStore(events.DefaultHistoryLimit),
		fonts:   fonts.NewRegistry(records, clk),
		cache:   cache.NewMemoryCache(0),
		clk:     clk,
	}
	t.Cleanup(func() { _ = f.cache.Close() })

	cfg := config.Defaults()
	cfg.Store.Redis.Password = "hunter2"
	f.srv = New(Deps{
		Session: f.session,
		Events:  f.events,
		Fonts:   f.fonts,
		Cache:   f.cache,
		Config:  func() config.Config { return cfg },
	}, Options{})
	return f
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthAndReadiness(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())

	hm := health.NewManager("test")
	hm.RegisterChecker(health.CheckerFunc{CheckName: "store", Fn: func(context.Context) health.CheckResult {
		return health.CheckResult{Status: health.StatusUnhealthy, Error: errors.New("store offline").Error()}
	}})
	f.srv.deps.Health = hm

	w = f.do(t, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "store offline")

	w = f.do(t, http.MethodGet, "/healthz?verbose=true")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unhealthy"`)
}

func TestSessionEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.SetSessionID(ctx, "s-1"))

	w := f.do(t, http.MethodGet, "/debug/session")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "s-1", body["sessionId"])
	assert.Equal(t, "active", body["phase"])
	assert.Equal(t, false, body["expiredByTime"])

	w = f.do(t, http.MethodPost, "/debug/session/clear")
	assert.Equal(t, http.StatusNoContent, w.Code)

	st, err := f.session.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.PhaseUnset, st.Phase())
}

func TestSessionEndpoint_ExpiryFollowsManagerClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.SetSessionID(ctx, "s-1"))

	f.clk.Advance(f.session.Config().Duration + time.Second)

	w := f.do(t, http.MethodGet, "/debug/session")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["expiredByTime"])
}

func TestEventEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.events.AddUntriggeredEvents(ctx, []events.UntriggeredEvent{{
		Key:     events.CorrelationKey{GUID: "g1", EventType: events.SignalImpression.Raw()},
		Payload: `{"id":"p1"}`,
	}}))
	require.NoError(t, f.events.MarkAsTriggered(ctx, []events.TriggerSignal{{
		ParentGUID: "g1",
		EventType:  events.SignalImpression,
		EventTime:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}}))

	w := f.do(t, http.MethodGet, "/debug/events/triggered")
	require.Equal(t, http.StatusOK, w.Code)
	var triggered []events.TriggeredEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &triggered))
	require.Len(t, triggered, 1)
	assert.Equal(t, "g1", triggered[0].ParentGUID)

	w = f.do(t, http.MethodGet, "/debug/events/untriggered")
	require.Equal(t, http.StatusOK, w.Code)
	var untriggered []events.UntriggeredEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &untriggered))
	assert.Len(t, untriggered, 1)

	w = f.do(t, http.MethodPost, "/debug/events/flush")
	assert.Equal(t, http.StatusNoContent, w.Code)

	require.NoError(t, f.events.Close())
	w = f.do(t, http.MethodPost, "/debug/events/flush")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEmptyEventListsAreArrays(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/debug/events/triggered")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestFontsAndCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.fonts.Record(ctx, "https://cdn.example/a.ttf", "Inter"))
	f.cache.Set("layout:x", []byte("{}"), time.Minute)

	w := f.do(t, http.MethodGet, "/debug/fonts")
	require.Equal(t, http.StatusOK, w.Code)
	var idx map[string]map[string]time.Time
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &idx))
	assert.Contains(t, idx, "https://cdn.example/a.ttf")

	w = f.do(t, http.MethodGet, "/debug/cache")
	require.Equal(t, http.StatusOK, w.Code)
	var stats cache.CacheStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Sets)
}

func TestConfigIsMasked(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/debug/config")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.Contains(t, w.Body.String(), `"password":"***"`)
}

func TestMissingDepsAnswer404(t *testing.T) {
	srv := New(Deps{}, Options{})
	for _, path := range []string{"/debug/session", "/debug/events/triggered", "/debug/fonts", "/debug/cache", "/debug/config", "/nope"} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/healthz")
	w := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "placecore_debug_http_request_duration_seconds")
}

func TestStartAndShutdown(t *testing.T) {
	f := newFixture(t)
	srv := New(f.srv.deps, Options{ListenAddr: "127.0.0.1:0"})
	addr, err := srv.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}
