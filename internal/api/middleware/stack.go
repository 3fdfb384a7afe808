// SPDX-License-Identifier: MIT

// Package middleware holds the HTTP middleware of the placecore debug API.
package middleware

import (
	"time"

	"github.com/go-chi/chi/v5"
)

// StackConfig configures the debug API middleware stack.
type StackConfig struct {
	EnableSecurityHeaders bool
	EnableMetrics         bool
	TracingService        string // empty disables tracing
	EnableLogging         bool

	// RequestsPerMinute limits each client IP; zero disables limiting.
	RequestsPerMinute int
}

// NewRouter constructs a chi router with the stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack installs the middleware in a fixed order: recovery first, rate
// limiting last.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders)
	}
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(AccessLog)
	}
	if cfg.RequestsPerMinute > 0 {
		r.Use(RateLimit(RateLimitConfig{
			RequestLimit: cfg.RequestsPerMinute,
			WindowSize:   time.Minute,
		}))
	}
}
