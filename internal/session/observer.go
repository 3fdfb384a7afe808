// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import "context"

// Reason names why a session was cleared.
type Reason string

const (
	ReasonExpiredByTime  Reason = "expired_by_time"
	ReasonExpiredByUsage Reason = "expired_by_usage"
	ReasonOwnerChanged   Reason = "owner_changed"
	ReasonReplaced       Reason = "replaced"
	ReasonExplicit       Reason = "explicit"
)

// Observer is notified after every session clear. Calls are synchronous and
// happen after the clear has been persisted.
type Observer interface {
	SessionInvalidated(ctx context.Context, reason Reason)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, reason Reason)

func (f ObserverFunc) SessionInvalidated(ctx context.Context, reason Reason) { f(ctx, reason) }
