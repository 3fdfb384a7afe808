// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package events correlates untriggered event templates with incoming trigger
// signals and keeps a bounded, newest-first history of the resulting records.
//
// Two implementations share the same matching rules: MemoryStore processes
// signals immediately, DurableStore persists both sets through a record store
// and debounces bursts of signals into a single matching pass.
package events

import (
	"context"
	"errors"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("events: store closed")

// Store is the correlation store API.
type Store interface {
	// AddUntriggeredEvents appends every valid template. Invalid templates are
	// dropped silently and duplicates are kept.
	AddUntriggeredEvents(ctx context.Context, templates []UntriggeredEvent) error
	// MarkAsTriggered matches signals against the stored templates.
	MarkAsTriggered(ctx context.Context, signals []TriggerSignal) error
	// TriggeredEvents returns the triggered set, newest first.
	TriggeredEvents(ctx context.Context) ([]TriggeredEvent, error)
	// UntriggeredEvents returns the stored templates.
	UntriggeredEvents(ctx context.Context) ([]UntriggeredEvent, error)
	// Clear empties both sets and drops any pending signals.
	Clear(ctx context.Context) error
	// Flush processes pending signals now.
	Flush(ctx context.Context) error
	// Close flushes and releases the store.
	Close() error
}
