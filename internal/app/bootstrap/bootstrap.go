// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bootstrap is the placecore composition root.
package bootstrap

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/placecore/internal/api"
	"github.com/ManuGH/placecore/internal/cache"
	"github.com/ManuGH/placecore/internal/clock"
	"github.com/ManuGH/placecore/internal/config"
	"github.com/ManuGH/placecore/internal/dispatch"
	"github.com/ManuGH/placecore/internal/events"
	"github.com/ManuGH/placecore/internal/fonts"
	"github.com/ManuGH/placecore/internal/health"
	"github.com/ManuGH/placecore/internal/layout"
	xglog "github.com/ManuGH/placecore/internal/log"
	"github.com/ManuGH/placecore/internal/recordstore"
	"github.com/ManuGH/placecore/internal/session"
	"github.com/ManuGH/placecore/internal/settings"
	"github.com/ManuGH/placecore/internal/telemetry"
	"github.com/rs/zerolog"
)

const serviceName = "placecore"

// fontEvictInterval spaces background font registry evictions.
const fontEvictInterval = 6 * time.Hour

// Container holds every wired service of one placecore process.
type Container struct {
	Config  config.Config
	Holder  *config.Holder
	Version string
	Logger  zerolog.Logger

	Records    *recordstore.Store
	Settings   *settings.Store
	Session    *session.Manager
	Events     *events.DurableStore
	Dispatcher *dispatch.Dispatcher
	Layout     *layout.Fetcher
	Fonts      *fonts.Registry
	Cache      cache.Cache
	Health     *health.Manager
	Telemetry  *telemetry.Provider
	// API is nil unless debug.listenAddr is set.
	API *api.Server

	clock Clock

	startOnce sync.Once
	closeOnce sync.Once
	closeErr  error
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// WireServices loads configuration from configPath (optional) and the
// environment, then builds the dependency graph.
func WireServices(ctx context.Context, version, configPath string) (*Container, error) {
	if ctx == nil {
		return nil, errors.New("wire services context is nil")
	}
	xglog.Configure(xglog.Config{Level: "info", Service: serviceName, Version: version})

	loader := config.NewLoader(strings.TrimSpace(configPath))
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	c, err := Wire(ctx, cfg, Options{Version: version})
	if err != nil {
		return nil, err
	}
	c.Holder = config.NewHolder(cfg, loader)

	source := "env+defaults"
	if loader.Path() != "" {
		source = "file"
	}
	c.Logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str(xglog.FieldPath, loader.Path()).
		Msg("loaded configuration")
	return c, nil
}

// Clock is the time source shared by every service.
type Clock interface {
	clock.Clock
	clock.Scheduler
}

// Options tune Wire for tests and embedding.
type Options struct {
	Version string
	// Clock defaults to the wall clock.
	Clock Clock
	// Backend replaces the configured record store backend.
	Backend recordstore.Backend
	// DispatchOverride adjusts dispatcher options after they are derived
	// from the configuration.
	DispatchOverride func(*dispatch.Options)
}

// Wire builds the graph from an already validated configuration. Services
// are created bottom-up: records, settings, session, events, dispatcher,
// layout, fonts.
func Wire(ctx context.Context, cfg config.Config, opts Options) (*Container, error) {
	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: serviceName, Version: opts.Version})
	logger := xglog.WithComponent("bootstrap")

	if configBytes, err := json.Marshal(cfg); err == nil {
		logger.Info().
			Str("event", "config.snapshot").
			Str("sha256", fmt.Sprintf("%x", sha256.Sum256(configBytes))).
			Msg("configuration snapshot fingerprint")
	}

	var clk Clock = clock.Real{}
	if opts.Clock != nil {
		clk = opts.Clock
	}
	c := &Container{Config: cfg, Version: opts.Version, Logger: logger, clock: clk}

	tp, err := telemetry.NewProvider(ctx, cfg.TelemetryConfig(serviceName, opts.Version))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	c.Telemetry = tp

	backend := opts.Backend
	if backend == nil {
		if err := health.PerformStartupChecks(ctx, cfg); err != nil {
			_ = c.Close(ctx)
			return nil, err
		}
		backend, err = recordstore.OpenBackend(cfg.BackendConfig())
		if err != nil {
			_ = c.Close(ctx)
			return nil, fmt.Errorf("open record store: %w", err)
		}
	}
	c.Records = recordstore.New(backend,
		recordstore.WithName(cfg.Store.Backend),
		recordstore.WithLogger(xglog.WithComponent("recordstore")),
	)
	c.Settings = settings.New(c.Records, "")

	if err := c.wireCache(cfg); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	// The layout fetcher observes session clears but depends on the
	// dispatcher, which depends on the session manager.
	var fetcher *layout.Fetcher
	invalidate := session.ObserverFunc(func(ctx context.Context, reason session.Reason) {
		if fetcher != nil {
			fetcher.SessionInvalidated(ctx, reason)
		}
	})
	c.Session = session.NewManager(c.Settings, cfg.SessionConfig(), []session.Observer{invalidate},
		session.WithClock(clk),
		session.WithLogger(xglog.WithComponent("session")),
	)

	eventsLogger := xglog.WithComponent("events")
	c.Events = events.NewDurableStore(c.Records, events.DurableOptions{
		Debounce:     cfg.Events.Debounce,
		HistoryLimit: cfg.Events.HistoryLimit,
		Scheduler:    clk,
		Logger:       &eventsLogger,
	})

	dispatchLogger := xglog.WithComponent("dispatch")
	dopts := cfg.DispatchOptions()
	dopts.Session = c.Session
	dopts.Logger = &dispatchLogger
	if opts.DispatchOverride != nil {
		opts.DispatchOverride(&dopts)
	}
	c.Dispatcher = dispatch.New(dopts)

	fetcher = layout.NewFetcher(c.Dispatcher, layout.Options{
		Cache:  c.Cache,
		Events: c.Events,
		TTL:    cfg.Layout.CacheTTL,
	})
	c.Layout = fetcher

	c.Fonts = fonts.NewRegistry(c.Records, clk)

	c.Health = health.NewManager(opts.Version)
	c.Health.RegisterChecker(health.NewRecordStoreChecker(c.Records))
	c.Health.RegisterChecker(health.NewBreakerChecker(c.Dispatcher.Breaker()))

	if cfg.Debug.ListenAddr != "" {
		tracing := ""
		if tp.Enabled() {
			tracing = serviceName + "-debug"
		}
		c.API = api.New(api.Deps{
			Session: c.Session,
			Events:  c.Events,
			Fonts:   c.Fonts,
			Cache:   c.Cache,
			Config:  c.currentConfig,
			Health:  c.Health,
		}, api.Options{
			ListenAddr:        cfg.Debug.ListenAddr,
			RequestsPerMinute: cfg.Debug.RequestsPerMinute,
			TracingService:    tracing,
		})
	}

	logger.Info().
		Str("event", "bootstrap.wired").
		Str(xglog.FieldStore, cfg.Store.Backend).
		Str("layout_cache", cfg.Layout.CacheBackend).
		Bool("debug_api", c.API != nil).
		Msg("services wired")
	return c, nil
}

func (c *Container) wireCache(cfg config.Config) error {
	switch cfg.Layout.CacheBackend {
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(cfg.CacheRedisConfig(), xglog.WithComponent("cache.redis"))
		if err != nil {
			return fmt.Errorf("layout cache: %w", err)
		}
		c.Cache = rc
	case config.CacheNone:
		c.Cache = cache.NewNoOpCache()
	default:
		c.Cache = cache.NewMemoryCache(time.Minute, cache.WithClock(c.clock))
	}
	return nil
}

func (c *Container) currentConfig() config.Config {
	if c.Holder != nil {
		return c.Holder.Get()
	}
	return c.Config
}

// Start launches background work: the config watcher, the debug API and
// periodic font eviction. It is idempotent.
func (c *Container) Start(ctx context.Context) error {
	var err error
	c.startOnce.Do(func() {
		ctx, c.cancel = context.WithCancel(ctx)

		if c.Holder != nil {
			if err = c.Holder.StartWatcher(ctx); err != nil {
				return
			}
			updates := make(chan config.Config, 1)
			c.Holder.RegisterListener(updates)
			c.wg.Add(1)
			go c.applyReloads(ctx, updates)
		}

		if c.API != nil {
			if _, err = c.API.Start(); err != nil {
				return
			}
		}

		if c.Config.Fonts.MaxAge > 0 {
			c.wg.Add(1)
			go c.evictFonts(ctx)
		}
	})
	return err
}

// applyReloads applies the settings that can change at runtime.
func (c *Container) applyReloads(ctx context.Context, updates <-chan config.Config) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-updates:
			if err := xglog.SetLevel(cfg.LogLevel); err != nil {
				c.Logger.Warn().Err(err).Msg("ignoring log level from reloaded config")
			}
		}
	}
}

func (c *Container) evictFonts(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(fontEvictInterval)
	defer ticker.Stop()
	for {
		c.EvictFonts(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// EvictFonts drops font registry entries older than fonts.maxAge.
func (c *Container) EvictFonts(ctx context.Context) {
	emptied, err := c.Fonts.Evict(ctx, c.Config.Fonts.MaxAge)
	if err != nil {
		if ctx.Err() == nil {
			c.Logger.Warn().Err(err).Msg("font eviction failed")
		}
		return
	}
	if len(emptied) > 0 {
		c.Logger.Info().Int("urls", len(emptied)).Msg("evicted stale fonts")
	}
}

// Close stops background work, flushes pending event signals and releases
// stores in reverse construction order.
func (c *Container) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		if c.Holder != nil {
			c.Holder.Stop()
		}
		c.wg.Wait()

		var errs []error
		if c.API != nil {
			errs = append(errs, c.API.Shutdown(ctx))
		}
		if c.Events != nil {
			errs = append(errs, c.Events.Close())
		}
		if c.Dispatcher != nil {
			c.Dispatcher.Close()
		}
		if c.Cache != nil {
			errs = append(errs, c.Cache.Close())
		}
		if c.Records != nil {
			errs = append(errs, c.Records.Close())
		}
		errs = append(errs, c.Telemetry.Shutdown(ctx))
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
