// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placecore_session_invalidations_total",
		Help: "Session clears by reason",
	}, []string{"reason"})

	sessionLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placecore_session_lookups_total",
		Help: "Session id lookups by accessor (expiring|non_expiring) and outcome (hit|absent)",
	}, []string{"accessor", "outcome"})
)

// RecordSessionInvalidation counts a session clear.
func RecordSessionInvalidation(reason string) {
	sessionInvalidations.WithLabelValues(reason).Inc()
}

// RecordSessionLookup counts a session id lookup.
func RecordSessionLookup(accessor string, present bool) {
	outcome := "absent"
	if present {
		outcome = "hit"
	}
	sessionLookups.WithLabelValues(accessor, outcome).Inc()
}
