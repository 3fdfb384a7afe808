// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store operation results.
const (
	ResultOK    = "ok"
	ResultMiss  = "miss"
	ResultSkip  = "skip"
	ResultError = "error"
)

var (
	storeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placecore_store_operations_total",
		Help: "Record store operations by store, operation and result (ok|miss|skip|error)",
	}, []string{"store", "op", "result"})

	storeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "placecore_store_operation_duration_seconds",
		Help:    "Duration of record store operations including time spent waiting on the write barrier",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2.0, 12),
	}, []string{"store", "op"})
)

// ObserveStoreOp records one record store operation.
func ObserveStoreOp(store, op, result string, d time.Duration) {
	storeOperations.WithLabelValues(store, op, result).Inc()
	storeDuration.WithLabelValues(store, op).Observe(d.Seconds())
}
