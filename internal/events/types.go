// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import "time"

// EventType names a trigger signal kind. The raw string is what templates
// carry in their correlation key.
type EventType string

const (
	SignalImpression      EventType = "SignalImpression"
	SignalViewed          EventType = "SignalViewed"
	SignalActivation      EventType = "SignalActivation"
	SignalResponse        EventType = "SignalResponse"
	SignalLoadStart       EventType = "SignalLoadStart"
	SignalLoadComplete    EventType = "SignalLoadComplete"
	SignalUserInteraction EventType = "SignalUserInteraction"
	SignalDismissal       EventType = "SignalDismissal"
)

// Raw returns the wire name.
func (t EventType) Raw() string { return string(t) }

const (
	// TimeLayout renders eventTime in UTC with millisecond precision.
	TimeLayout = "2006-01-02T15:04:05.000Z07:00"
	// DefaultHistoryLimit caps the triggered set.
	DefaultHistoryLimit = 50
)

// FormatEventTime renders t the way triggered records store it.
func FormatEventTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// CorrelationKey matches a template to incoming signals.
type CorrelationKey struct {
	GUID      string `json:"guid"`
	EventType string `json:"eventType"`
}

// UntriggeredEvent is a template delivered with a response. It is emitted as
// a triggered record every time a matching signal arrives.
type UntriggeredEvent struct {
	Key     CorrelationKey `json:"correlationKey"`
	Payload string         `json:"payload"`
}

// Valid reports whether both key components are present.
func (e UntriggeredEvent) Valid() bool {
	return e.Key.GUID != "" && e.Key.EventType != ""
}

// TriggerSignal reports that something happened to the placement identified
// by ParentGUID.
type TriggerSignal struct {
	ParentGUID string    `json:"parentGuid"`
	EventType  EventType `json:"eventType"`
	EventTime  time.Time `json:"eventTime"`
}

// Key returns the correlation key the signal matches against.
func (s TriggerSignal) Key() CorrelationKey {
	return CorrelationKey{GUID: s.ParentGUID, EventType: s.EventType.Raw()}
}

// TriggeredEvent is a matched template stamped with the signal time.
type TriggeredEvent struct {
	ParentGUID string `json:"parentGuid"`
	EventType  string `json:"eventType"`
	EventTime  string `json:"eventTime"`
	Payload    string `json:"payload"`
}
