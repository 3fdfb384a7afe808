// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"math/rand"
	"sync"
	"time"
)

const (
	DefaultMaxRetries = 3
	defaultBackoff    = 200 * time.Millisecond
	defaultMaxBackoff = 2 * time.Second
)

// RetryPolicy bounds the retries of one logical request.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Extended also retries connectivity failures.
	Extended bool
	// Backoff is the base wait before the first retry; zero disables waiting.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// DefaultRetryPolicy returns the policy used when neither the request nor
// the dispatcher Options carry one.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Backoff:    defaultBackoff,
		MaxBackoff: defaultMaxBackoff,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if p.MaxBackoff < p.Backoff {
		p.MaxBackoff = p.Backoff
	}
	return p
}

// MaxAttempts is 1 + MaxRetries.
func (p RetryPolicy) MaxAttempts() int {
	return p.normalized().MaxRetries + 1
}

type jitter struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newJitter() *jitter {
	return &jitter{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))} // #nosec G404 -- jitter only
}

func (j *jitter) int63n(n int64) int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rnd.Int63n(n)
}

// backoffFor returns the wait after the given zero-based retry.
func (p RetryPolicy) backoffFor(retry int, j *jitter) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	if retry > 16 {
		retry = 16
	}
	wait := p.Backoff * time.Duration(1<<retry)
	if wait > p.MaxBackoff {
		wait = p.MaxBackoff
	}
	return wait + time.Duration(j.int63n(int64(wait/5+1)))
}
