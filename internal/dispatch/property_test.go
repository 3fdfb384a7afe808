// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
)

type statusTransport struct {
	status int
	calls  atomic.Int32
}

func (s *statusTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	s.calls.Add(1)
	return &http.Response{
		StatusCode: s.status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    r,
	}, nil
}

var statuses = []int{400, 401, 403, 404, 429, 500, 502, 503, 504}

// A request failing with the same status every time is attempted 1+N times
// when the status is retryable and exactly once otherwise.
func TestProperty_RetryBound(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	nop := zerolog.Nop()

	properties.Property("attempt count", prop.ForAll(
		func(retries int, idx int) bool {
			status := statuses[idx]
			tr := &statusTransport{status: status}
			d := New(Options{HTTPClient: &http.Client{Transport: tr}, Logger: &nop})
			_, err := d.Do(context.Background(), Request{URL: "http://placecore.test/", Policy: &RetryPolicy{MaxRetries: retries}})
			if err == nil {
				return false
			}
			want := int32(1)
			if retryableStatus(status) {
				want = int32(retries + 1)
			}
			return tr.calls.Load() == want
		},
		gen.IntRange(0, 6),
		gen.IntRange(0, len(statuses)-1),
	))

	properties.TestingRun(t)
}
