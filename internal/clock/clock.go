// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package clock abstracts wall-clock reads and deferred callbacks so that
// session expiry and debounce windows can be driven deterministically in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Timer is a cancellable scheduled task. Stop reports whether the call
// prevented the task from running.
type Timer interface {
	Stop() bool
}

// Scheduler arms deferred tasks that run on their own goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the production clock backed by package time.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Manual is a test clock. Time only moves when Advance or Set is called, and
// tasks armed through AfterFunc run synchronously inside Advance once due.
//
// Thread-safety: all methods are safe for concurrent use.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	m       *Manual
	at      time.Time
	seq     uint64
	f       func()
	stopped bool
	fired   bool
}

// NewManual creates a manual clock positioned at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc arms f to run once the clock has been advanced by at least d.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d and runs every task that became due,
// in deadline order. Tasks run without the clock lock held, so they may arm
// new timers or read Now.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	m.runUntil(target)
}

// Set jumps the clock to t. Moving backwards never fires tasks.
func (m *Manual) Set(t time.Time) {
	m.runUntil(t)
}

// Pending reports the number of armed tasks that have neither fired nor been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (m *Manual) runUntil(target time.Time) {
	for {
		m.mu.Lock()
		due := m.nextDueLocked(target)
		if due == nil {
			m.now = target
			m.compactLocked()
			m.mu.Unlock()
			return
		}
		if due.at.After(m.now) {
			m.now = due.at
		}
		due.fired = true
		m.mu.Unlock()
		due.f()
	}
}

func (m *Manual) nextDueLocked(target time.Time) *manualTimer {
	var live []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired && !t.at.After(target) {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].at.Equal(live[j].at) {
			return live[i].seq < live[j].seq
		}
		return live[i].at.Before(live[j].at)
	})
	return live[0]
}

func (m *Manual) compactLocked() {
	out := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	m.timers = out
}

var (
	_ Clock     = Real{}
	_ Scheduler = Real{}
	_ Clock     = (*Manual)(nil)
	_ Scheduler = (*Manual)(nil)
)
