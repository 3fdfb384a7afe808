// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the local debug and introspection endpoints of a
// placecore process.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ManuGH/placecore/internal/api/middleware"
	"github.com/ManuGH/placecore/internal/cache"
	"github.com/ManuGH/placecore/internal/config"
	"github.com/ManuGH/placecore/internal/events"
	"github.com/ManuGH/placecore/internal/fonts"
	"github.com/ManuGH/placecore/internal/health"
	xglog "github.com/ManuGH/placecore/internal/log"
	"github.com/ManuGH/placecore/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps are the services the debug API reads from. Nil services answer 404.
type Deps struct {
	Session *session.Manager
	Events  events.Store
	Fonts   *fonts.Registry
	Cache   interface{ Stats() cache.CacheStats }
	// Config returns the live configuration; secrets are masked on output.
	Config func() config.Config
	// Health serves /healthz and /readyz; without it both answer 200.
	Health *health.Manager
}

// Options configure the HTTP listener and middleware stack.
type Options struct {
	ListenAddr        string
	RequestsPerMinute int
	TracingService    string
}

// Server is the debug HTTP server.
type Server struct {
	deps   Deps
	router *chi.Mux
	srv    *http.Server
	logger zerolog.Logger
}

// New builds the router. Nothing listens until Start.
func New(deps Deps, opts Options) *Server {
	s := &Server{
		deps:   deps,
		logger: xglog.WithComponent("api"),
	}
	s.router = middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        opts.TracingService,
		EnableLogging:         true,
		RequestsPerMinute:     opts.RequestsPerMinute,
	})
	s.routes()
	s.srv = &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	r := s.router
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/debug", func(r chi.Router) {
		r.Get("/session", s.handleSession)
		r.Post("/session/clear", s.handleSessionClear)
		r.Get("/events/triggered", s.handleTriggered)
		r.Get("/events/untriggered", s.handleUntriggered)
		r.Post("/events/flush", s.handleEventsFlush)
		r.Get("/fonts", s.handleFonts)
		r.Get("/cache", s.handleCache)
		r.Get("/config", s.handleConfig)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { writeNotFound(w) })
}

// Start listens on the configured address and serves in the background.
// It returns the bound address, which differs from the configured one for
// port 0.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	addr := ln.Addr().String()
	s.logger.Info().
		Str("event", "api.listening").
		Str("addr", addr).
		Msg("debug API listening")

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Str("event", "api.serve_failed").Msg("debug API stopped")
		}
	}()
	return addr, nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
