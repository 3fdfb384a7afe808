package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ManuGH/placecore/internal/dispatch"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchOptions_DefaultsRetryEveryRequestFully(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	cfg := Defaults()
	// Keep the retry bound and breaker settings; only skip the waits.
	cfg.Dispatch.Backoff = 0
	cfg.Dispatch.MaxBackoff = 0
	opts := cfg.DispatchOptions()
	nop := zerolog.Nop()
	opts.Logger = &nop
	d := dispatch.New(opts)
	t.Cleanup(d.Close)

	want := int32(1 + dispatch.DefaultMaxRetries)
	for i := 0; i < 8; i++ {
		hits.Store(0)
		_, err := d.Do(context.Background(), dispatch.Request{URL: srv.URL})

		var de *dispatch.Error
		require.ErrorAs(t, err, &de, "request %d", i)
		assert.Equal(t, dispatch.FailureServerStatus, de.Kind, "request %d", i)
		assert.Equal(t, http.StatusServiceUnavailable, de.Status, "request %d", i)
		assert.Equal(t, int(want), de.Attempts, "request %d", i)
		assert.Equal(t, want, hits.Load(), "request %d", i)
	}
}

func TestDispatchOptions_CarriesPolicy(t *testing.T) {
	cfg := Defaults()
	cfg.Dispatch.MaxRetries = 1
	opts := cfg.DispatchOptions()
	require.NotNil(t, opts.Policy)
	assert.Equal(t, 1, opts.Policy.MaxRetries)
	assert.Equal(t, 2, opts.Policy.MaxAttempts())
}
