// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/placecore/internal/clock"
	"github.com/ManuGH/placecore/internal/config"
	"github.com/ManuGH/placecore/internal/recordstore"
	"github.com/ManuGH/placecore/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(name string, status Status) Checker {
	return CheckerFunc{CheckName: name, Fn: func(context.Context) CheckResult {
		return CheckResult{Status: status}
	}}
}

func TestReady_Aggregation(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []Status
		wantReady bool
		want      Status
	}{
		{"no checkers", nil, true, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, true, StatusHealthy},
		{"degraded stays ready", []Status{StatusHealthy, StatusDegraded}, true, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, false, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("test")
			for i, s := range tt.statuses {
				m.RegisterChecker(fixed(string(rune('a'+i)), s))
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestHealth_VerboseOnly(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(fixed("store", StatusUnhealthy))

	quiet := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, quiet.Status)
	assert.Empty(t, quiet.Checks)

	verbose := m.Health(context.Background(), true)
	assert.Equal(t, StatusUnhealthy, verbose.Status)
	assert.Contains(t, verbose.Checks, "store")
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(fixed("store", StatusUnhealthy))

	w := httptest.NewRecorder()
	m.ServeReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)

	w = httptest.NewRecorder()
	m.ServeHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

type failingBackend struct{ recordstore.Backend }

func (failingBackend) Write(context.Context, string, []byte, recordstore.WriteOptions) error {
	return errors.New("disk full")
}

func TestRecordStoreChecker(t *testing.T) {
	ok := NewRecordStoreChecker(recordstore.New(recordstore.NewMemoryBackend()))
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	broken := NewRecordStoreChecker(recordstore.New(failingBackend{recordstore.NewMemoryBackend()}))
	res := broken.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Contains(t, res.Error, "disk full")
}

func TestBreakerChecker(t *testing.T) {
	assert.Equal(t, StatusHealthy, NewBreakerChecker(nil).Check(context.Background()).Status)

	clk := clock.NewManual(time.Unix(0, 0))
	cb := resilience.NewCircuitBreaker("dispatch", 1, time.Minute, resilience.WithClock(clk))
	c := NewBreakerChecker(cb)
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	cb.Record(errors.New("upstream 503"))
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)
}

func TestPerformStartupChecks_CreatesStoreDir(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.Path = filepath.Join(t.TempDir(), "nested", "records")
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))

	info, err := os.Stat(cfg.Store.Path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPerformStartupChecks_RejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	cfg := config.Defaults()
	cfg.Store.Path = file
	require.Error(t, PerformStartupChecks(context.Background(), cfg))
}
