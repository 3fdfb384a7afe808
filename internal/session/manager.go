// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session tracks the server-issued session id: its usage count, its
// inactivity window and the owner tag it belongs to.
//
// Every operation is a single atomic transform over the session settings
// record, so concurrent callers never observe a half-cleared session.
// Observers registered at construction are told about every clear.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/placecore/internal/clock"
	xglog "github.com/ManuGH/placecore/internal/log"
	"github.com/ManuGH/placecore/internal/metrics"
	"github.com/ManuGH/placecore/internal/recordstore"
	"github.com/ManuGH/placecore/internal/settings"
	"github.com/rs/zerolog"
)

const (
	DefaultDuration = 1800 * time.Second
	DefaultMaxUsage = 50
)

var (
	// ErrEmptySessionID is returned by SetSessionID for an empty id.
	ErrEmptySessionID = errors.New("session: empty session id")
	// ErrInvalidDuration is returned for a non-positive session duration.
	ErrInvalidDuration = errors.New("session: duration must be positive")
)

// Config holds the session policy.
type Config struct {
	Duration time.Duration
	MaxUsage int
}

func (c Config) withDefaults() Config {
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
	if c.MaxUsage <= 0 {
		c.MaxUsage = DefaultMaxUsage
	}
	return c
}

// Manager is the session lifecycle state machine.
type Manager struct {
	settings  *settings.Store
	cfg       Config
	observers []Observer
	clock     clock.Clock
	logger    zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager builds a Manager. The observer list is fixed for its lifetime.
func NewManager(store *settings.Store, cfg Config, observers []Observer, opts ...Option) *Manager {
	m := &Manager{
		settings:  store,
		cfg:       cfg.withDefaults(),
		observers: append([]Observer(nil), observers...),
		clock:     clock.Real{},
		logger:    xglog.WithComponent("session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the effective policy.
func (m *Manager) Config() Config { return m.cfg }

// State returns the current session snapshot without mutating it.
func (m *Manager) State(ctx context.Context) (State, error) {
	v, err := m.settings.Snapshot(ctx)
	if err != nil {
		return State{}, err
	}
	return decodeState(v, m.cfg.Duration), nil
}

// Expired reports whether st has run past its duration on the manager's
// clock.
func (m *Manager) Expired(st State) bool {
	return st.ExpiredAt(m.clock.Now())
}

// SessionIDForRequest is the expiring accessor used before layout fetches.
// The usage count is incremented first, so the call that crosses the usage
// limit is counted too. An expired session is cleared and reported absent.
func (m *Manager) SessionIDForRequest(ctx context.Context) (string, bool, error) {
	var (
		id      string
		expired Reason
	)
	_, err := m.settings.Update(ctx, func(v settings.Values) error {
		now := m.clock.Now()
		st := decodeState(v, m.cfg.Duration)
		st.UsageCount++

		switch {
		case st.ExpiredAt(now):
			expired = ReasonExpiredByTime
		case st.UsageCount > m.cfg.MaxUsage:
			expired = ReasonExpiredByUsage
		}
		if expired != "" {
			clearValues(v)
			return nil
		}

		if err := v.Set(KeyUsageCount, st.UsageCount); err != nil {
			return err
		}
		if err := touch(v, now); err != nil {
			return err
		}
		id = st.SessionID
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("session lookup: %w", err)
	}
	if expired != "" {
		m.notify(ctx, expired)
	}
	metrics.RecordSessionLookup("expiring", id != "")
	return id, id != "", nil
}

// SessionIDWithoutExpiring is a pure read used for non-layout requests.
func (m *Manager) SessionIDWithoutExpiring(ctx context.Context) (string, bool, error) {
	st, err := m.State(ctx)
	if err != nil {
		return "", false, fmt.Errorf("session lookup: %w", err)
	}
	metrics.RecordSessionLookup("non_expiring", st.SessionID != "")
	return st.SessionID, st.SessionID != "", nil
}

// UpdateSessionID stores a server-issued id. nil clears the session; the
// currently stored id is a no-op that keeps usage and activity untouched.
// Any other id replaces the session and starts its inactivity window.
func (m *Manager) UpdateSessionID(ctx context.Context, id *string) error {
	if id == nil {
		return m.Clear(ctx, ReasonExplicit)
	}
	changed := false
	_, err := m.settings.Update(ctx, func(v settings.Values) error {
		cur, _ := v.String(KeySessionID)
		if cur == *id {
			return recordstore.ErrNoChange
		}
		changed = true
		clearValues(v)
		if err := v.Set(KeySessionID, *id); err != nil {
			return err
		}
		return touch(v, m.clock.Now())
	})
	if err != nil {
		return fmt.Errorf("update session id: %w", err)
	}
	if changed {
		m.logger.Info().Str(xglog.FieldSessionID, *id).Msg("session id replaced")
		m.notify(ctx, ReasonReplaced)
	}
	return nil
}

// SetSessionID is the public setter. Empty ids are rejected.
func (m *Manager) SetSessionID(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptySessionID
	}
	return m.UpdateSessionID(ctx, &id)
}

// SetSessionDuration overrides the inactivity window for the current
// session. The override is dropped on the next clear.
func (m *Manager) SetSessionDuration(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ErrInvalidDuration
	}
	if err := m.settings.Set(ctx, KeySessionDuration, d.Seconds()); err != nil {
		return fmt.Errorf("set session duration: %w", err)
	}
	return nil
}

// MarkFetchSucceeded refreshes the activity timestamp after a successful fetch.
func (m *Manager) MarkFetchSucceeded(ctx context.Context) error {
	_, err := m.settings.Update(ctx, func(v settings.Values) error {
		return touch(v, m.clock.Now())
	})
	if err != nil {
		return fmt.Errorf("mark fetch: %w", err)
	}
	return nil
}

// SetOwnerTag binds the session to tag. A different tag clears the session
// before it is stored; the same tag is a no-op.
func (m *Manager) SetOwnerTag(ctx context.Context, tag string) error {
	changed := false
	_, err := m.settings.Update(ctx, func(v settings.Values) error {
		cur, ok := v.String(KeyOwnerTag)
		if ok && cur == tag {
			return recordstore.ErrNoChange
		}
		changed = true
		clearValues(v)
		return v.Set(KeyOwnerTag, tag)
	})
	if err != nil {
		return fmt.Errorf("set owner tag: %w", err)
	}
	if changed {
		m.logger.Info().Str(xglog.FieldOwnerTag, tag).Msg("owner tag changed")
		m.notify(ctx, ReasonOwnerChanged)
	}
	return nil
}

// Clear resets the session and notifies every observer before returning.
func (m *Manager) Clear(ctx context.Context, reason Reason) error {
	_, err := m.settings.Update(ctx, func(v settings.Values) error {
		clearValues(v)
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.notify(ctx, reason)
	return nil
}

func (m *Manager) notify(ctx context.Context, reason Reason) {
	metrics.RecordSessionInvalidation(string(reason))
	m.logger.Debug().Str(xglog.FieldReason, string(reason)).Int("observers", len(m.observers)).Msg("session cleared")
	for _, o := range m.observers {
		o.SessionInvalidated(ctx, reason)
	}
}
