// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsUntriggeredAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "placecore_events_untriggered_added_total",
		Help: "Untriggered event templates accepted",
	})

	eventsInvalidDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "placecore_events_invalid_dropped_total",
		Help: "Untriggered event templates dropped for a missing guid or event type",
	})

	eventsTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placecore_events_triggered_total",
		Help: "Triggered event records produced by matching, by event type",
	}, []string{"event_type"})

	eventsDebounceFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placecore_events_debounce_flushes_total",
		Help: "Debounced batches processed, by trigger (timer|flush)",
	}, []string{"trigger"})

	eventsDebounceBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "placecore_events_debounce_batch_size",
		Help:    "Number of trigger signals processed per debounced batch",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})

	eventsProcessErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "placecore_events_process_errors_total",
		Help: "Debounced batches that failed to persist",
	})
)

// RecordUntriggeredAdded counts accepted and dropped templates for one add call.
func RecordUntriggeredAdded(accepted, dropped int) {
	eventsUntriggeredAdded.Add(float64(accepted))
	eventsInvalidDropped.Add(float64(dropped))
}

// RecordTriggered counts one produced triggered record.
func RecordTriggered(eventType string) {
	eventsTriggered.WithLabelValues(eventType).Inc()
}

// RecordDebounceFlush records one processed batch.
func RecordDebounceFlush(trigger string, size int) {
	eventsDebounceFlushes.WithLabelValues(trigger).Inc()
	eventsDebounceBatchSize.Observe(float64(size))
}

// RecordEventsProcessError counts a batch that could not be persisted.
func RecordEventsProcessError() {
	eventsProcessErrors.Inc()
}
