// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histogramCount(t *testing.T, obs prometheus.Observer) uint64 {
	t.Helper()
	h, ok := obs.(prometheus.Histogram)
	require.True(t, ok, "observer is not a prometheus.Histogram")
	metric := &dto.Metric{}
	require.NoError(t, h.Write(metric))
	return metric.GetHistogram().GetSampleCount()
}

func TestStatusClass(t *testing.T) {
	cases := []struct {
		err    error
		status int
		want   string
	}{
		{errors.New("boom"), 0, "error"},
		{nil, 503, "5xx"},
		{nil, 401, "4xx"},
		{nil, 304, "3xx"},
		{nil, 200, "2xx"},
		{nil, 101, "1xx"},
		{nil, 0, "unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusClass(tc.err, tc.status))
	}
}

func TestRecordDispatchAttempt_CountsRetries(t *testing.T) {
	before := testutil.ToFloat64(dispatchRetries.WithLabelValues("metrics_test", "5xx"))
	RecordDispatchAttempt("metrics_test", 503, 10*time.Millisecond, nil, true)
	RecordDispatchAttempt("metrics_test", 503, 10*time.Millisecond, nil, false)
	after := testutil.ToFloat64(dispatchRetries.WithLabelValues("metrics_test", "5xx"))
	assert.Equal(t, before+1, after)
}

func TestObserveStoreOp(t *testing.T) {
	before := testutil.ToFloat64(storeOperations.WithLabelValues("metrics_test", "read", ResultMiss))
	ObserveStoreOp("metrics_test", "read", ResultMiss, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(storeOperations.WithLabelValues("metrics_test", "read", ResultMiss)))
}

func TestSetCircuitBreakerState_OneHot(t *testing.T) {
	SetCircuitBreakerState("metrics_test", "open")
	assert.Equal(t, 1.0, testutil.ToFloat64(breakerState.WithLabelValues("metrics_test", "open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(breakerState.WithLabelValues("metrics_test", "closed")))
}

func TestRecordDispatchAttempt_ObservesDuration(t *testing.T) {
	hist := dispatchDuration.WithLabelValues("metrics_hist", "2xx")
	before := histogramCount(t, hist)
	RecordDispatchAttempt("metrics_hist", 200, 20*time.Millisecond, nil, false)
	assert.Equal(t, before+1, histogramCount(t, hist))
}

func TestDebounceBatchSize(t *testing.T) {
	before := histogramCount(t, eventsDebounceBatchSize)
	RecordDebounceFlush("timer", 3)
	assert.Equal(t, before+1, histogramCount(t, eventsDebounceBatchSize))
}

func TestRecordCircuitBreakerRejection(t *testing.T) {
	c := breakerRejections.WithLabelValues("metrics_test")
	before := testutil.ToFloat64(c)
	RecordCircuitBreakerRejection("metrics_test")
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
