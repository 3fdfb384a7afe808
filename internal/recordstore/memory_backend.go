// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordstore

import (
	"context"
	"sync"
)

// MemoryBackend keeps records in process memory. Used for tests and hosts
// without a writable data directory.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string][]byte)}
}

func (b *MemoryBackend) Read(_ context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.records[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *MemoryBackend) Write(_ context.Context, name string, data []byte, _ WriteOptions) error {
	if err := validateName(name); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[name] = append([]byte(nil), data...)
	return nil
}

func (b *MemoryBackend) Exists(_ context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.records[name]
	return ok, nil
}

func (b *MemoryBackend) Delete(_ context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.records, name)
	return nil
}

func (b *MemoryBackend) Close() error { return nil }

var _ Backend = (*MemoryBackend)(nil)
