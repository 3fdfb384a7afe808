// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads placecore configuration from defaults, an optional
// YAML file and PLACECORE_* environment variables, and supports hot reload.
package config

import (
	"path/filepath"
	"time"

	"github.com/ManuGH/placecore/internal/cache"
	"github.com/ManuGH/placecore/internal/dispatch"
	"github.com/ManuGH/placecore/internal/events"
	"github.com/ManuGH/placecore/internal/recordstore"
	"github.com/ManuGH/placecore/internal/session"
	"github.com/ManuGH/placecore/internal/telemetry"
	"golang.org/x/time/rate"
)

// Layout cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config is the full process configuration.
type Config struct {
	DataDir   string          `yaml:"dataDir"`
	LogLevel  string          `yaml:"logLevel"`
	Store     StoreConfig     `yaml:"store"`
	Session   SessionConfig   `yaml:"session"`
	Events    EventsConfig    `yaml:"events"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Headers   HeadersConfig   `yaml:"headers"`
	Layout    LayoutConfig    `yaml:"layout"`
	Fonts     FontsConfig     `yaml:"fonts"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Debug     DebugConfig     `yaml:"debug"`
}

type StoreConfig struct {
	// Backend is one of file, memory, badger, sqlite, redis.
	Backend string `yaml:"backend"`
	// Path defaults to <dataDir>/records.
	Path  string      `yaml:"path"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type SessionConfig struct {
	Duration time.Duration `yaml:"duration"`
	MaxUsage int           `yaml:"maxUsage"`
}

type EventsConfig struct {
	Debounce     time.Duration `yaml:"debounce"`
	HistoryLimit int           `yaml:"historyLimit"`
}

type DispatchConfig struct {
	MaxRetries int           `yaml:"maxRetries"`
	Extended   bool          `yaml:"extendedRetry"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"maxBackoff"`
	Timeout    time.Duration `yaml:"timeout"`
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64 `yaml:"rateLimit"`
	RateBurst int     `yaml:"rateBurst"`

	// BreakerThreshold zero leaves the circuit breaker off.
	BreakerThreshold    int           `yaml:"breakerThreshold"`
	BreakerResetTimeout time.Duration `yaml:"breakerResetTimeout"`
}

type HeadersConfig struct {
	ProtocolVersion string `yaml:"protocolVersion"`
	Platform        string `yaml:"platform"`
	PlatformVersion string `yaml:"platformVersion"`
	SDKVersion      string `yaml:"sdkVersion"`
	Locale          string `yaml:"locale"`
}

type LayoutConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	CacheBackend string        `yaml:"cacheBackend"`
	CacheTTL     time.Duration `yaml:"cacheTTL"`
	Redis        RedisConfig   `yaml:"redis"`
}

type FontsConfig struct {
	MaxAge time.Duration `yaml:"maxAge"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

type DebugConfig struct {
	// ListenAddr enables the debug HTTP server when set.
	ListenAddr string `yaml:"listenAddr"`
	// RequestsPerMinute limits each client IP; zero disables limiting.
	RequestsPerMinute int `yaml:"requestsPerMinute"`
}

// Defaults returns the configuration used before the file and environment
// are applied.
func Defaults() Config {
	policy := dispatch.DefaultRetryPolicy()
	return Config{
		DataDir:  "data",
		LogLevel: "info",
		Store: StoreConfig{
			Backend: recordstore.BackendFile,
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "placecore:"},
		},
		Session: SessionConfig{
			Duration: session.DefaultDuration,
			MaxUsage: session.DefaultMaxUsage,
		},
		Events: EventsConfig{
			Debounce:     events.DefaultDebounce,
			HistoryLimit: events.DefaultHistoryLimit,
		},
		Dispatch: DispatchConfig{
			MaxRetries:          policy.MaxRetries,
			Backoff:             policy.Backoff,
			MaxBackoff:          policy.MaxBackoff,
			Timeout:             30 * time.Second,
			BreakerThreshold:    0,
			BreakerResetTimeout: 30 * time.Second,
		},
		Headers: HeadersConfig{
			ProtocolVersion: "1.0",
			Platform:        "Go",
			Locale:          "en-US",
		},
		Layout: LayoutConfig{
			CacheBackend: CacheMemory,
			CacheTTL:     5 * time.Minute,
			Redis:        RedisConfig{Addr: "localhost:6379", Prefix: "placecore:cache:"},
		},
		Fonts: FontsConfig{MaxAge: 30 * 24 * time.Hour},
		Telemetry: TelemetryConfig{
			Exporter:     telemetry.ExporterGRPC,
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "development",
		},
		Debug: DebugConfig{RequestsPerMinute: 120},
	}
}

// StorePath resolves the record store location.
func (c Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.DataDir, "records")
}

// BackendConfig maps the store section onto recordstore options.
func (c Config) BackendConfig() recordstore.BackendConfig {
	return recordstore.BackendConfig{
		Backend: c.Store.Backend,
		Path:    c.StorePath(),
		Redis: recordstore.RedisConfig{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
			Prefix:   c.Store.Redis.Prefix,
		},
	}
}

func (c Config) SessionConfig() session.Config {
	return session.Config{Duration: c.Session.Duration, MaxUsage: c.Session.MaxUsage}
}

func (c Config) RetryPolicy() dispatch.RetryPolicy {
	return dispatch.RetryPolicy{
		MaxRetries: c.Dispatch.MaxRetries,
		Extended:   c.Dispatch.Extended,
		Backoff:    c.Dispatch.Backoff,
		MaxBackoff: c.Dispatch.MaxBackoff,
	}
}

// DispatchOptions fills everything except Session, HTTPClient and Logger.
func (c Config) DispatchOptions() dispatch.Options {
	limit := rate.Inf
	if c.Dispatch.RateLimit > 0 {
		limit = rate.Limit(c.Dispatch.RateLimit)
	}
	policy := c.RetryPolicy()
	return dispatch.Options{
		Timeout:             c.Dispatch.Timeout,
		Policy:              &policy,
		RateLimit:           limit,
		RateLimitBurst:      c.Dispatch.RateBurst,
		Headers:             dispatch.HeaderConfig(c.Headers),
		BreakerThreshold:    c.Dispatch.BreakerThreshold,
		BreakerResetTimeout: c.Dispatch.BreakerResetTimeout,
	}
}

func (c Config) CacheRedisConfig() cache.RedisConfig {
	return cache.RedisConfig(c.Layout.Redis)
}

func (c Config) TelemetryConfig(service, version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    c.Telemetry.Environment,
		ExporterType:   c.Telemetry.Exporter,
		Endpoint:       c.Telemetry.Endpoint,
		SamplingRate:   c.Telemetry.SamplingRate,
	}
}
