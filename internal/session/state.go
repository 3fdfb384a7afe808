// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"time"

	"github.com/ManuGH/placecore/internal/settings"
)

// Persisted setting keys.
const (
	KeySessionID       = "sessionId"
	KeyUsageCount      = "sessionUsageCount"
	KeyLastActivity    = "lastExecuteCallDate"
	KeySessionDuration = "currentSessionDuration"
	KeyOwnerTag        = "tagId"
)

// Phase is the lifecycle position of the stored session.
type Phase string

const (
	PhaseUnset  Phase = "unset"
	PhaseActive Phase = "active"
)

// State is a decoded snapshot of the session record.
type State struct {
	SessionID       string    `json:"sessionId,omitempty"`
	UsageCount      int       `json:"usageCount"`
	LastActivity    time.Time `json:"lastActivityTime,omitempty"`
	DurationSeconds float64   `json:"sessionDurationSeconds"`
	OwnerTag        string    `json:"ownerTagId,omitempty"`
}

// Phase reports Active when a session id is stored.
func (s State) Phase() Phase {
	if s.SessionID == "" {
		return PhaseUnset
	}
	return PhaseActive
}

// ExpiredAt reports whether the session is past its inactivity window at now.
// A session that never recorded activity is not expired.
func (s State) ExpiredAt(now time.Time) bool {
	if s.LastActivity.IsZero() {
		return false
	}
	return now.Sub(s.LastActivity).Seconds() > s.DurationSeconds
}

func decodeState(v settings.Values, defaultDuration time.Duration) State {
	st := State{DurationSeconds: defaultDuration.Seconds()}
	st.SessionID, _ = v.String(KeySessionID)
	st.UsageCount, _ = v.Int(KeyUsageCount)
	st.LastActivity, _ = v.Time(KeyLastActivity)
	if d, ok := v.Float(KeySessionDuration); ok && d > 0 {
		st.DurationSeconds = d
	}
	st.OwnerTag, _ = v.String(KeyOwnerTag)
	return st
}

// clearValues resets everything except the owner tag.
func clearValues(v settings.Values) {
	v.Delete(KeySessionID)
	v.Delete(KeyUsageCount)
	v.Delete(KeyLastActivity)
	v.Delete(KeySessionDuration)
}

func touch(v settings.Values, now time.Time) error {
	return v.Set(KeyLastActivity, now.UTC())
}
