// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"context"
	"sync"

	"github.com/ManuGH/placecore/internal/metrics"
)

// MemoryStore keeps both sets in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	limit       int
	untriggered []UntriggeredEvent
	triggered   []TriggeredEvent
	closed      bool
}

// NewMemoryStore returns an empty store capped at limit triggered records
// (DefaultHistoryLimit when limit <= 0).
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) AddUntriggeredEvents(_ context.Context, templates []UntriggeredEvent) error {
	valid, dropped := filterValid(templates)
	metrics.RecordUntriggeredAdded(len(valid), dropped)
	if len(valid) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.untriggered = append(s.untriggered, valid...)
	return nil
}

func (s *MemoryStore) MarkAsTriggered(_ context.Context, signals []TriggerSignal) error {
	if len(signals) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	matched := match(s.untriggered, signals)
	if len(matched) == 0 {
		return nil
	}
	for _, e := range matched {
		metrics.RecordTriggered(e.EventType)
	}
	next := merge(s.triggered, matched, s.limit)
	if !sameEvents(next, s.triggered) {
		s.triggered = next
	}
	return nil
}

func (s *MemoryStore) TriggeredEvents(context.Context) ([]TriggeredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TriggeredEvent(nil), s.triggered...), nil
}

func (s *MemoryStore) UntriggeredEvents(context.Context) ([]UntriggeredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]UntriggeredEvent(nil), s.untriggered...), nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.untriggered = nil
	s.triggered = nil
	return nil
}

// Flush has nothing to do; signals are processed on arrival.
func (s *MemoryStore) Flush(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
