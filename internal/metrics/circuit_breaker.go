// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "placecore_circuit_breaker_state",
		Help: "1 for the state the named breaker is in, 0 for the others",
	}, []string{"breaker", "state"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placecore_circuit_breaker_trips_total",
		Help: "Transitions to open, by cause (threshold|probe_failed)",
	}, []string{"breaker", "cause"})

	breakerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placecore_circuit_breaker_rejections_total",
		Help: "Calls refused while the breaker was open",
	}, []string{"breaker"})
)

// Breaker states as exported in the state label.
var breakerStates = [...]string{"closed", "half-open", "open"}

// SetCircuitBreakerState marks state as the active one for breaker.
func SetCircuitBreakerState(breaker, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		breakerState.WithLabelValues(breaker, s).Set(v)
	}
}

func RecordCircuitBreakerTrip(breaker, cause string) {
	breakerTrips.WithLabelValues(breaker, cause).Inc()
}

func RecordCircuitBreakerRejection(breaker string) {
	breakerRejections.WithLabelValues(breaker).Inc()
}
