// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordstore

import "sync"

// fifoGate admits exclusive operations strictly in ticket order. A ticket is
// drawn at arrival, so an asynchronous write queued before a second one is
// always applied first.
type fifoGate struct {
	mu      sync.Mutex
	cond    *sync.Cond
	next    uint64
	serving uint64
}

func newFIFOGate() *fifoGate {
	g := &fifoGate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *fifoGate) take() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.next
	g.next++
	return t
}

func (g *fifoGate) wait(ticket uint64) {
	g.mu.Lock()
	for g.serving != ticket {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

func (g *fifoGate) done() {
	g.mu.Lock()
	g.serving++
	g.mu.Unlock()
	g.cond.Broadcast()
}
