// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"slices"
	"sort"
	"time"
)

// filterValid drops templates with an incomplete correlation key.
func filterValid(in []UntriggeredEvent) (valid []UntriggeredEvent, dropped int) {
	valid = make([]UntriggeredEvent, 0, len(in))
	for _, e := range in {
		if !e.Valid() {
			dropped++
			continue
		}
		valid = append(valid, e)
	}
	return valid, dropped
}

// match emits one record per (signal, template) pair whose keys are equal.
// Templates are not consumed.
func match(templates []UntriggeredEvent, signals []TriggerSignal) []TriggeredEvent {
	if len(templates) == 0 || len(signals) == 0 {
		return nil
	}
	var out []TriggeredEvent
	for _, sig := range signals {
		key := sig.Key()
		stamp := FormatEventTime(sig.EventTime)
		for _, tpl := range templates {
			if tpl.Key != key {
				continue
			}
			out = append(out, TriggeredEvent{
				ParentGUID: key.GUID,
				EventType:  key.EventType,
				EventTime:  stamp,
				Payload:    tpl.Payload,
			})
		}
	}
	return out
}

// merge combines added with current, newest first, capped at limit.
func merge(current, added []TriggeredEvent, limit int) []TriggeredEvent {
	out := make([]TriggeredEvent, 0, len(current)+len(added))
	out = append(out, added...)
	out = append(out, current...)
	sortByRecency(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortByRecency(events []TriggeredEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return newer(events[i].EventTime, events[j].EventTime)
	})
}

func newer(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA != nil || errB != nil {
		return a > b
	}
	return ta.After(tb)
}

func sameEvents(a, b []TriggeredEvent) bool {
	return slices.Equal(a, b)
}
