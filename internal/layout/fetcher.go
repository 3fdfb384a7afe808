// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package layout fetches placement layouts through the dispatcher, caches the
// responses for the life of the session and hands the event templates they
// carry to the correlation store.
package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/placecore/internal/cache"
	"github.com/ManuGH/placecore/internal/dispatch"
	"github.com/ManuGH/placecore/internal/events"
	xglog "github.com/ManuGH/placecore/internal/log"
	"github.com/ManuGH/placecore/internal/session"
	"github.com/rs/zerolog"
)

// DefaultTTL bounds how long a cached layout is served.
const DefaultTTL = 5 * time.Minute

// Doer is the dispatcher surface used here.
type Doer interface {
	Do(ctx context.Context, req dispatch.Request) (*dispatch.Response, error)
}

// Envelope is the part of a layout response this package understands. The
// remaining fields are passed through untouched.
type Envelope struct {
	Events []events.UntriggeredEvent `json:"events"`
}

// Result is a fetched layout.
type Result struct {
	Body      []byte
	FromCache bool
	Templates int
}

// Fetcher serves layouts.
type Fetcher struct {
	doer   Doer
	cache  cache.Cache
	events events.Store
	ttl    time.Duration
	policy *dispatch.RetryPolicy
	logger zerolog.Logger
}

// Options configures a Fetcher. Cache and Events are optional.
type Options struct {
	Cache  cache.Cache
	Events events.Store
	TTL    time.Duration
	Policy *dispatch.RetryPolicy
}

// NewFetcher builds a Fetcher.
func NewFetcher(doer Doer, opts Options) *Fetcher {
	f := &Fetcher{
		doer:   doer,
		cache:  opts.Cache,
		events: opts.Events,
		ttl:    opts.TTL,
		policy: opts.Policy,
		logger: xglog.WithComponent("layout"),
	}
	if f.cache == nil {
		f.cache = cache.NewNoOpCache()
	}
	if f.ttl <= 0 {
		f.ttl = DefaultTTL
	}
	return f
}

// Fetch returns the layout at url, from cache when possible. body is sent as
// the request payload when non-empty.
func (f *Fetcher) Fetch(ctx context.Context, url string, body []byte) (*Result, error) {
	key := cacheKey(url, body)
	if cached, ok := f.cache.Get(key); ok {
		return &Result{Body: cached, FromCache: true}, nil
	}

	method := http.MethodGet
	if len(body) > 0 {
		method = http.MethodPost
	}
	resp, err := f.doer.Do(ctx, dispatch.Request{
		URL:    url,
		Method: method,
		Body:   body,
		Kind:   dispatch.KindLayout,
		Policy: f.policy,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch layout: %w", err)
	}

	n, err := f.ingest(ctx, resp.Body)
	if err != nil {
		return nil, err
	}
	f.cache.Set(key, resp.Body, f.ttl)
	return &Result{Body: resp.Body, Templates: n}, nil
}

// ingest stores the event templates carried by a layout response. A body that
// is not a JSON object carries none.
func (f *Fetcher) ingest(ctx context.Context, body []byte) (int, error) {
	if f.events == nil || len(body) == 0 {
		return 0, nil
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		f.logger.Debug().Err(err).Msg("layout response carries no event envelope")
		return 0, nil
	}
	if len(env.Events) == 0 {
		return 0, nil
	}
	if err := f.events.AddUntriggeredEvents(ctx, env.Events); err != nil {
		return 0, fmt.Errorf("store event templates: %w", err)
	}
	return len(env.Events), nil
}

// SessionInvalidated drops cached layouts; they belong to the old session.
func (f *Fetcher) SessionInvalidated(_ context.Context, reason session.Reason) {
	f.cache.Clear()
	f.logger.Debug().Str(xglog.FieldReason, string(reason)).Msg("layout cache cleared")
}

// Stats exposes cache statistics.
func (f *Fetcher) Stats() cache.CacheStats { return f.cache.Stats() }

func cacheKey(url string, body []byte) string {
	if len(body) == 0 {
		return "layout:" + url
	}
	return fmt.Sprintf("layout:%s#%x", url, body)
}

var _ session.Observer = (*Fetcher)(nil)
