// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 2, 3, 4, 5, 6, 789_000_000, time.UTC)

func TestFormatEventTime(t *testing.T) {
	assert.Equal(t, "2026-02-03T04:05:06.789Z", FormatEventTime(t0))

	plus2 := time.FixedZone("plus2", 2*60*60)
	assert.Equal(t, "2026-02-03T04:05:06.789Z", FormatEventTime(t0.In(plus2)))
}

func TestFilterValid(t *testing.T) {
	in := []UntriggeredEvent{
		{Key: CorrelationKey{GUID: "g1", EventType: "SignalImpression"}, Payload: "p1"},
		{Key: CorrelationKey{GUID: "", EventType: "SignalImpression"}, Payload: "no-guid"},
		{Key: CorrelationKey{GUID: "g2", EventType: ""}, Payload: "no-type"},
		{Key: CorrelationKey{GUID: "g1", EventType: "SignalImpression"}, Payload: "p1"},
	}
	valid, dropped := filterValid(in)
	assert.Equal(t, 2, dropped)
	assert.Len(t, valid, 2, "duplicates are kept")
}

func TestMatch_OneRecordPerMatchingTemplate(t *testing.T) {
	templates := []UntriggeredEvent{
		{Key: CorrelationKey{GUID: "g1", EventType: "SignalImpression"}, Payload: "a"},
		{Key: CorrelationKey{GUID: "g1", EventType: "SignalImpression"}, Payload: "b"},
		{Key: CorrelationKey{GUID: "g1", EventType: "SignalViewed"}, Payload: "c"},
		{Key: CorrelationKey{GUID: "g2", EventType: "SignalImpression"}, Payload: "d"},
	}
	got := match(templates, []TriggerSignal{{ParentGUID: "g1", EventType: SignalImpression, EventTime: t0}})

	want := []TriggeredEvent{
		{ParentGUID: "g1", EventType: "SignalImpression", EventTime: FormatEventTime(t0), Payload: "a"},
		{ParentGUID: "g1", EventType: "SignalImpression", EventTime: FormatEventTime(t0), Payload: "b"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("match mismatch (-want +got):\n%s", diff)
	}
}

func TestMatch_NoMatch(t *testing.T) {
	templates := []UntriggeredEvent{
		{Key: CorrelationKey{GUID: "g1", EventType: "SignalImpression"}, Payload: "a"},
	}
	cases := map[string]TriggerSignal{
		"guid differs":       {ParentGUID: "g2", EventType: SignalImpression, EventTime: t0},
		"event type differs": {ParentGUID: "g1", EventType: SignalViewed, EventTime: t0},
		"case differs":       {ParentGUID: "G1", EventType: SignalImpression, EventTime: t0},
	}
	for name, sig := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, match(templates, []TriggerSignal{sig}))
		})
	}
	assert.Empty(t, match(nil, []TriggerSignal{cases["guid differs"]}))
	assert.Empty(t, match(templates, nil))
}

func TestMatch_TemplateReusedAcrossSignals(t *testing.T) {
	templates := []UntriggeredEvent{
		{Key: CorrelationKey{GUID: "g1", EventType: "SignalImpression"}, Payload: "a"},
	}
	signals := []TriggerSignal{
		{ParentGUID: "g1", EventType: SignalImpression, EventTime: t0},
		{ParentGUID: "g1", EventType: SignalImpression, EventTime: t0.Add(time.Second)},
	}
	assert.Len(t, match(templates, signals), 2)
}

func TestMerge_NewestFirstAndCapped(t *testing.T) {
	var added []TriggeredEvent
	for i := 0; i < 60; i++ {
		added = append(added, TriggeredEvent{
			ParentGUID: "g1",
			EventType:  "SignalImpression",
			EventTime:  FormatEventTime(t0.Add(time.Duration(i) * time.Second)),
		})
	}
	got := merge(nil, added, 50)
	assert.Len(t, got, 50)
	assert.Equal(t, FormatEventTime(t0.Add(59*time.Second)), got[0].EventTime)
	assert.Equal(t, FormatEventTime(t0.Add(10*time.Second)), got[49].EventTime)
}

func TestNewer_FallsBackToStringOrder(t *testing.T) {
	assert.True(t, newer("b", "a"))
	assert.False(t, newer("a", "b"))
	assert.True(t, newer(FormatEventTime(t0.Add(time.Millisecond)), FormatEventTime(t0)))
}
