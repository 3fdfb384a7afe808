// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Whatever the arrival order, the triggered set holds the newest
// min(n, limit) records, newest first.
func TestProperty_TriggeredSetIsNewestBounded(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("bounded and ordered", prop.ForAll(
		func(offsets []int) bool {
			ctx := context.Background()
			s := NewMemoryStore(DefaultHistoryLimit)
			if err := s.AddUntriggeredEvents(ctx, []UntriggeredEvent{
				{Key: CorrelationKey{GUID: "g", EventType: SignalViewed.Raw()}, Payload: "p"},
			}); err != nil {
				return false
			}
			for _, off := range offsets {
				sig := TriggerSignal{ParentGUID: "g", EventType: SignalViewed, EventTime: t0.Add(time.Duration(off) * time.Millisecond)}
				if err := s.MarkAsTriggered(ctx, []TriggerSignal{sig}); err != nil {
					return false
				}
			}
			got, err := s.TriggeredEvents(ctx)
			if err != nil {
				return false
			}

			want := append([]int(nil), offsets...)
			sort.Sort(sort.Reverse(sort.IntSlice(want)))
			if len(want) > DefaultHistoryLimit {
				want = want[:DefaultHistoryLimit]
			}
			if len(got) != len(want) {
				return false
			}
			for i, off := range want {
				if got[i].EventTime != FormatEventTime(t0.Add(time.Duration(off)*time.Millisecond)) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1_000_000)),
	))

	properties.TestingRun(t)
}
