// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader applies defaults, then the YAML file, then the environment.
type Loader struct {
	configPath      string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty path skips the file layer.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:      configPath,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path, possibly empty.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) envString(key, defaultVal string) string {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load returns a validated configuration. Precedence: ENV > file > defaults.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.mergeFile(&cfg); err != nil {
			return Config{}, err
		}
	}

	l.mergeEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (l *Loader) mergeFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return decodeStrict(data, cfg)
}

// decodeStrict overlays YAML onto cfg, rejecting unknown keys.
func decodeStrict(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *Config) {
	cfg.DataDir = l.envString("DATA_DIR", cfg.DataDir)
	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)

	cfg.Store.Backend = l.envString("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = l.envString("STORE_PATH", cfg.Store.Path)
	cfg.Store.Redis.Addr = l.envString("STORE_REDIS_ADDR", cfg.Store.Redis.Addr)
	cfg.Store.Redis.Password = l.envString("STORE_REDIS_PASSWORD", cfg.Store.Redis.Password)
	cfg.Store.Redis.DB = l.envInt("STORE_REDIS_DB", cfg.Store.Redis.DB)
	cfg.Store.Redis.Prefix = l.envString("STORE_REDIS_PREFIX", cfg.Store.Redis.Prefix)

	cfg.Session.Duration = l.envDuration("SESSION_DURATION", cfg.Session.Duration)
	cfg.Session.MaxUsage = l.envInt("SESSION_MAX_USAGE", cfg.Session.MaxUsage)

	cfg.Events.Debounce = l.envDuration("EVENTS_DEBOUNCE", cfg.Events.Debounce)
	cfg.Events.HistoryLimit = l.envInt("EVENTS_HISTORY_LIMIT", cfg.Events.HistoryLimit)

	cfg.Dispatch.MaxRetries = l.envInt("DISPATCH_MAX_RETRIES", cfg.Dispatch.MaxRetries)
	cfg.Dispatch.Extended = l.envBool("DISPATCH_EXTENDED_RETRY", cfg.Dispatch.Extended)
	cfg.Dispatch.Backoff = l.envDuration("DISPATCH_BACKOFF", cfg.Dispatch.Backoff)
	cfg.Dispatch.MaxBackoff = l.envDuration("DISPATCH_MAX_BACKOFF", cfg.Dispatch.MaxBackoff)
	cfg.Dispatch.Timeout = l.envDuration("DISPATCH_TIMEOUT", cfg.Dispatch.Timeout)
	cfg.Dispatch.RateLimit = l.envFloat("DISPATCH_RATE_LIMIT", cfg.Dispatch.RateLimit)
	cfg.Dispatch.RateBurst = l.envInt("DISPATCH_RATE_BURST", cfg.Dispatch.RateBurst)
	cfg.Dispatch.BreakerThreshold = l.envInt("DISPATCH_BREAKER_THRESHOLD", cfg.Dispatch.BreakerThreshold)
	cfg.Dispatch.BreakerResetTimeout = l.envDuration("DISPATCH_BREAKER_RESET", cfg.Dispatch.BreakerResetTimeout)

	cfg.Headers.ProtocolVersion = l.envString("PROTOCOL_VERSION", cfg.Headers.ProtocolVersion)
	cfg.Headers.Platform = l.envString("PLATFORM", cfg.Headers.Platform)
	cfg.Headers.PlatformVersion = l.envString("PLATFORM_VERSION", cfg.Headers.PlatformVersion)
	cfg.Headers.SDKVersion = l.envString("SDK_VERSION", cfg.Headers.SDKVersion)
	cfg.Headers.Locale = l.envString("LOCALE", cfg.Headers.Locale)

	cfg.Layout.Endpoint = l.envString("LAYOUT_ENDPOINT", cfg.Layout.Endpoint)
	cfg.Layout.CacheBackend = l.envString("LAYOUT_CACHE_BACKEND", cfg.Layout.CacheBackend)
	cfg.Layout.CacheTTL = l.envDuration("LAYOUT_CACHE_TTL", cfg.Layout.CacheTTL)
	cfg.Layout.Redis.Addr = l.envString("LAYOUT_REDIS_ADDR", cfg.Layout.Redis.Addr)
	cfg.Layout.Redis.Password = l.envString("LAYOUT_REDIS_PASSWORD", cfg.Layout.Redis.Password)
	cfg.Layout.Redis.DB = l.envInt("LAYOUT_REDIS_DB", cfg.Layout.Redis.DB)
	cfg.Layout.Redis.Prefix = l.envString("LAYOUT_REDIS_PREFIX", cfg.Layout.Redis.Prefix)

	cfg.Fonts.MaxAge = l.envDuration("FONTS_MAX_AGE", cfg.Fonts.MaxAge)

	cfg.Telemetry.Enabled = l.envBool("TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString("TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)

	cfg.Debug.ListenAddr = l.envString("DEBUG_LISTEN", cfg.Debug.ListenAddr)
	cfg.Debug.RequestsPerMinute = l.envInt("DEBUG_REQUESTS_PER_MINUTE", cfg.Debug.RequestsPerMinute)
}
