// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// scope is the set of correlation ids a context carries. It is copied on
// every change so parent contexts never observe a child's ids.
type scope struct {
	requestID string
	sessionID string
}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(ctxKey{}).(scope)
	return s
}

func withScope(ctx context.Context, s scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, s)
}

// ContextWithRequestID tags ctx with the id sent as X-Request-ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	s := scopeFrom(ctx)
	s.requestID = id
	return withScope(ctx, s)
}

// ContextWithSessionID tags ctx with the session id a request runs under.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	s := scopeFrom(ctx)
	s.sessionID = id
	return withScope(ctx, s)
}

func RequestIDFromContext(ctx context.Context) string { return scopeFrom(ctx).requestID }

func SessionIDFromContext(ctx context.Context) string { return scopeFrom(ctx).sessionID }

// WithContext adds the ids carried by ctx to logger. Without ids the logger
// is returned unchanged.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	s := scopeFrom(ctx)
	if s == (scope{}) {
		return logger
	}
	b := logger.With()
	if s.requestID != "" {
		b = b.Str(FieldRequestID, s.requestID)
	}
	if s.sessionID != "" {
		b = b.Str(FieldSessionID, s.sessionID)
	}
	return b.Logger()
}

// FromContext returns the logger attached with zerolog's WithContext, or the
// base logger enriched with the ids in ctx.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	l := WithContext(ctx, Base())
	return &l
}
