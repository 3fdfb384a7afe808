// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"context"
	"sync"

	"github.com/ManuGH/placecore/internal/recordstore"
)

type countingBackend struct {
	recordstore.Backend
	mu     sync.Mutex
	counts map[string]int
}

func (b *countingBackend) Write(ctx context.Context, name string, data []byte, opts recordstore.WriteOptions) error {
	b.mu.Lock()
	if b.counts == nil {
		b.counts = map[string]int{}
	}
	b.counts[name]++
	b.mu.Unlock()
	return b.Backend.Write(ctx, name, data, opts)
}

func (b *countingBackend) writes(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[name]
}
