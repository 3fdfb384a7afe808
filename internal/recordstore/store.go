// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/placecore/internal/log"
	"github.com/ManuGH/placecore/internal/metrics"
	"github.com/rs/zerolog"
)

// Store wraps a Backend with a write barrier:
//   - reads run concurrently with each other;
//   - writes, deletes and updates run one at a time, in arrival order;
//   - an exclusive operation blocks new reads until it completes, so readers
//     observe either the fully-old or the fully-new value.
//
// Store also owns JSON encoding and failure classification. A missing record
// is reported as ErrNotFound and is never logged.
type Store struct {
	backend Backend
	name    string
	logger  zerolog.Logger

	rw     sync.RWMutex
	gate   *fifoGate
	closed atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithName sets the store label used in logs and metrics.
func WithName(name string) Option {
	return func(s *Store) { s.name = name }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New wraps backend. The Store takes ownership; Close closes the backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		name:    "default",
		gate:    newFIFOGate(),
	}
	s.logger = xglog.WithComponent("recordstore")
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str(xglog.FieldStore, s.name).Logger()
	return s
}

// Name returns the store label.
func (s *Store) Name() string { return s.name }

// ReadRaw returns the stored bytes of name.
func (s *Store) ReadRaw(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.rw.RLock()
	data, err := s.backend.Read(ctx, name)
	s.rw.RUnlock()
	err = ioError("read", name, err)
	s.observe(ctx, "read", name, err, start)
	return data, err
}

// Read decodes the record name into out.
func (s *Store) Read(ctx context.Context, name string, out any) error {
	data, err := s.ReadRaw(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		err = serializationError("read", name, err)
		s.diagnose(ctx, "read", name, err)
		return err
	}
	return nil
}

// Exists reports whether name is present.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	if s.closed.Load() {
		return false, ErrClosed
	}
	s.rw.RLock()
	ok, err := s.backend.Exists(ctx, name)
	s.rw.RUnlock()
	err = ioError("exists", name, err)
	s.observe(ctx, "exists", name, err, start)
	return ok, err
}

// Write encodes v as JSON and persists it under name behind the barrier.
func (s *Store) Write(ctx context.Context, name string, v any, opts WriteOptions) error {
	return s.exclusive(ctx, s.gate.take(), "write", name, func() error {
		data, err := json.Marshal(v)
		if err != nil {
			return serializationError("write", name, err)
		}
		return ioError("write", name, s.backend.Write(ctx, name, data, opts))
	})
}

// WriteRaw persists data under name behind the barrier.
func (s *Store) WriteRaw(ctx context.Context, name string, data []byte, opts WriteOptions) error {
	return s.exclusive(ctx, s.gate.take(), "write", name, func() error {
		return ioError("write", name, s.backend.Write(ctx, name, data, opts))
	})
}

// Delete removes name behind the barrier. Deleting an absent record succeeds.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.exclusive(ctx, s.gate.take(), "delete", name, func() error {
		return ioError("delete", name, s.backend.Delete(ctx, name))
	})
}

// UpdateFunc receives the current bytes (found=false on a miss) and returns
// the bytes to store. Returning ErrNoChange commits nothing and is not an error.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// Update runs a read-modify-write of name as one exclusive operation. No
// other reader or writer of this Store interleaves with it.
func (s *Store) Update(ctx context.Context, name string, opts WriteOptions, fn UpdateFunc) error {
	return s.exclusive(ctx, s.gate.take(), "update", name, func() error {
		return s.update(ctx, name, opts, fn)
	})
}

func (s *Store) update(ctx context.Context, name string, opts WriteOptions, fn UpdateFunc) error {
	current, err := s.backend.Read(ctx, name)
	found := true
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return ioError("update", name, err)
		}
		found = false
		current = nil
	}
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	return ioError("update", name, s.backend.Write(ctx, name, next, opts))
}

// WriteAsync queues a Write and returns a channel that receives its result.
// The barrier position is reserved before WriteAsync returns, so writes queued
// from one goroutine apply in call order.
func (s *Store) WriteAsync(ctx context.Context, name string, v any, opts WriteOptions) <-chan error {
	ticket := s.gate.take()
	return s.async(func() error {
		return s.exclusive(ctx, ticket, "write", name, func() error {
			data, err := json.Marshal(v)
			if err != nil {
				return serializationError("write", name, err)
			}
			return ioError("write", name, s.backend.Write(ctx, name, data, opts))
		})
	})
}

// DeleteAsync queues a Delete. See WriteAsync for ordering.
func (s *Store) DeleteAsync(ctx context.Context, name string) <-chan error {
	ticket := s.gate.take()
	return s.async(func() error {
		return s.exclusive(ctx, ticket, "delete", name, func() error {
			return ioError("delete", name, s.backend.Delete(ctx, name))
		})
	})
}

// UpdateAsync queues an Update. See WriteAsync for ordering.
func (s *Store) UpdateAsync(ctx context.Context, name string, opts WriteOptions, fn UpdateFunc) <-chan error {
	ticket := s.gate.take()
	return s.async(func() error {
		return s.exclusive(ctx, ticket, "update", name, func() error {
			return s.update(ctx, name, opts, fn)
		})
	})
}

// Close waits for queued exclusive operations and closes the backend.
func (s *Store) Close() error {
	ticket := s.gate.take()
	s.gate.wait(ticket)
	defer s.gate.done()
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.rw.Lock()
	defer s.rw.Unlock()
	return s.backend.Close()
}

func (s *Store) async(fn func() error) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- fn()
	}()
	return ch
}

// exclusive waits for ticket's turn, then runs fn with readers excluded.
func (s *Store) exclusive(ctx context.Context, ticket uint64, op, name string, fn func() error) error {
	start := time.Now()
	s.gate.wait(ticket)
	defer s.gate.done()

	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.rw.Lock()
	err := fn()
	s.rw.Unlock()

	if errors.Is(err, ErrNoChange) {
		metrics.ObserveStoreOp(s.name, op, metrics.ResultSkip, time.Since(start))
		return nil
	}
	s.observe(ctx, op, name, err, start)
	return err
}

func (s *Store) observe(ctx context.Context, op, name string, err error, start time.Time) {
	result := metrics.ResultOK
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = metrics.ResultMiss
	default:
		result = metrics.ResultError
		s.diagnose(ctx, op, name, err)
	}
	metrics.ObserveStoreOp(s.name, op, result, time.Since(start))
}

func (s *Store) diagnose(ctx context.Context, op, name string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	l := xglog.WithContext(ctx, s.logger)
	l.Warn().
		Err(err).
		Str(xglog.FieldOp, op).
		Str(xglog.FieldRecord, name).
		Str("kind", string(KindOf(err))).
		Msg("record store operation failed")
}
