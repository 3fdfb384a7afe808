// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placecore_dispatch_attempts_total",
		Help: "Total number of HTTP request attempts issued by the dispatcher",
	}, []string{"kind", "status_class"})

	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "placecore_dispatch_attempt_duration_seconds",
		Help:    "Duration of dispatcher HTTP request attempts",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 8),
	}, []string{"kind", "status_class"})

	dispatchRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placecore_dispatch_retries_total",
		Help: "Number of retries performed by the dispatcher",
	}, []string{"kind", "status_class"})

	dispatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placecore_dispatch_outcomes_total",
		Help: "Logical request outcomes (success|terminal|exhausted|canceled)",
	}, []string{"kind", "outcome"})
)

// StatusClass buckets an attempt result for metric labels.
func StatusClass(err error, status int) string {
	if err != nil {
		return "error"
	}
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status > 0:
		return "1xx"
	}
	return "unknown"
}

// RecordDispatchAttempt records a single HTTP attempt.
func RecordDispatchAttempt(kind string, status int, d time.Duration, err error, retry bool) {
	class := StatusClass(err, status)
	dispatchAttempts.WithLabelValues(kind, class).Inc()
	dispatchDuration.WithLabelValues(kind, class).Observe(d.Seconds())
	if retry {
		dispatchRetries.WithLabelValues(kind, class).Inc()
	}
}

// RecordDispatchOutcome records the final outcome of a logical request.
func RecordDispatchOutcome(kind, outcome string) {
	dispatchOutcomes.WithLabelValues(kind, outcome).Inc()
}
