// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"time"

	"github.com/ManuGH/placecore/internal/dispatch"
	"github.com/ManuGH/placecore/internal/recordstore"
	"github.com/ManuGH/placecore/internal/telemetry"
	"github.com/ManuGH/placecore/internal/validate"
)

// Validate reports every invalid field at once. It does not touch the
// filesystem; the data directory is created at startup.
func Validate(cfg Config) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("logLevel", err.Error(), cfg.LogLevel)
	}
	if cfg.Store.Path == "" {
		v.NotEmpty("dataDir", cfg.DataDir)
	}

	v.OneOf("store.backend", cfg.Store.Backend, []string{
		recordstore.BackendFile,
		recordstore.BackendMemory,
		recordstore.BackendBadger,
		recordstore.BackendSqlite,
		recordstore.BackendRedis,
	})
	if cfg.Store.Backend == recordstore.BackendRedis {
		v.NotEmpty("store.redis.addr", cfg.Store.Redis.Addr)
		v.NonNegative("store.redis.db", cfg.Store.Redis.DB)
	}

	if cfg.Session.Duration <= 0 || cfg.Session.Duration%time.Second != 0 {
		v.AddError("session.duration", "must be a positive whole number of seconds", cfg.Session.Duration)
	}
	v.Positive("session.maxUsage", cfg.Session.MaxUsage)

	v.DurationRange("events.debounce", cfg.Events.Debounce, 0, time.Minute)
	v.Positive("events.historyLimit", cfg.Events.HistoryLimit)

	v.Range("dispatch.maxRetries", cfg.Dispatch.MaxRetries, 0, 10)
	v.DurationRange("dispatch.backoff", cfg.Dispatch.Backoff, 0, time.Minute)
	if cfg.Dispatch.MaxBackoff < cfg.Dispatch.Backoff {
		v.AddError("dispatch.maxBackoff", "must not be smaller than dispatch.backoff", cfg.Dispatch.MaxBackoff)
	}
	v.DurationRange("dispatch.timeout", cfg.Dispatch.Timeout, time.Second, 10*time.Minute)
	v.PositiveFloat("dispatch.rateLimit", cfg.Dispatch.RateLimit, true)
	v.NonNegative("dispatch.rateBurst", cfg.Dispatch.RateBurst)
	v.NonNegative("dispatch.breakerThreshold", cfg.Dispatch.BreakerThreshold)
	if cfg.Dispatch.BreakerThreshold > 0 && cfg.Dispatch.BreakerResetTimeout <= 0 {
		v.AddError("dispatch.breakerResetTimeout", "must be positive when the breaker is enabled", cfg.Dispatch.BreakerResetTimeout)
	}

	v.NotEmpty("headers.protocolVersion", cfg.Headers.ProtocolVersion)
	v.NotEmpty("headers.platform", cfg.Headers.Platform)
	if cfg.Headers.Locale != "" && dispatch.CanonicalLocale(cfg.Headers.Locale) == "" {
		v.AddError("headers.locale", fmt.Sprintf("not a BCP 47 language tag: %q", cfg.Headers.Locale), cfg.Headers.Locale)
	}

	if cfg.Layout.Endpoint != "" {
		v.URL("layout.endpoint", cfg.Layout.Endpoint, []string{"http", "https"})
	}
	v.OneOf("layout.cacheBackend", cfg.Layout.CacheBackend, []string{CacheMemory, CacheRedis, CacheNone})
	if cfg.Layout.CacheBackend != CacheNone && cfg.Layout.CacheTTL <= 0 {
		v.AddError("layout.cacheTTL", "must be positive when caching is enabled", cfg.Layout.CacheTTL)
	}
	if cfg.Layout.CacheBackend == CacheRedis {
		v.NotEmpty("layout.redis.addr", cfg.Layout.Redis.Addr)
	}

	if cfg.Fonts.MaxAge < 0 {
		v.AddError("fonts.maxAge", "cannot be negative", cfg.Fonts.MaxAge)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{telemetry.ExporterGRPC, telemetry.ExporterHTTP})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("telemetry.samplingRate", "must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}

	v.ListenAddr("debug.listenAddr", cfg.Debug.ListenAddr)
	v.NonNegative("debug.requestsPerMinute", cfg.Debug.RequestsPerMinute)

	return v.Err()
}
