// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/placecore/internal/clock"
	xglog "github.com/ManuGH/placecore/internal/log"
	"github.com/ManuGH/placecore/internal/metrics"
	"github.com/ManuGH/placecore/internal/recordstore"
	"github.com/rs/zerolog"
)

const (
	UntriggeredRecord = "untriggered_events.json"
	TriggeredRecord   = "triggered_events.json"
	DefaultDebounce   = 500 * time.Millisecond
)

// DurableOptions configures a DurableStore. Zero values select defaults.
type DurableOptions struct {
	Debounce     time.Duration
	HistoryLimit int
	Scheduler    clock.Scheduler
	Logger       *zerolog.Logger
}

// DurableStore persists templates and triggered records as two records and
// debounces MarkAsTriggered: signals accumulate in a pending batch and the
// batch is processed once the debounce window passes without a new call.
type DurableStore struct {
	records  *recordstore.Store
	debounce time.Duration
	limit    int
	sched    clock.Scheduler
	logger   zerolog.Logger

	// procMu serializes batch processing against Clear and Close so that a
	// batch never lands after a clear that was requested before it ran.
	procMu sync.Mutex

	mu      sync.Mutex
	pending []TriggerSignal
	timer   clock.Timer
	gen     uint64
	closed  bool
}

// NewDurableStore builds a DurableStore over records.
func NewDurableStore(records *recordstore.Store, opts DurableOptions) *DurableStore {
	d := &DurableStore{
		records:  records,
		debounce: opts.Debounce,
		limit:    opts.HistoryLimit,
		sched:    opts.Scheduler,
	}
	if d.debounce <= 0 {
		d.debounce = DefaultDebounce
	}
	if d.limit <= 0 {
		d.limit = DefaultHistoryLimit
	}
	if d.sched == nil {
		d.sched = clock.Real{}
	}
	if opts.Logger != nil {
		d.logger = *opts.Logger
	} else {
		d.logger = xglog.WithComponent("events")
	}
	return d
}

func (d *DurableStore) AddUntriggeredEvents(ctx context.Context, templates []UntriggeredEvent) error {
	valid, dropped := filterValid(templates)
	metrics.RecordUntriggeredAdded(len(valid), dropped)
	if dropped > 0 {
		d.logger.Debug().Int("dropped", dropped).Msg("dropped templates without correlation key")
	}
	if len(valid) == 0 {
		return nil
	}
	if d.isClosed() {
		return ErrClosed
	}
	_, err := recordstore.Transform(ctx, d.records, UntriggeredRecord, []UntriggeredEvent(nil),
		func(cur []UntriggeredEvent) ([]UntriggeredEvent, error) {
			return append(cur, valid...), nil
		})
	if err != nil {
		return fmt.Errorf("add untriggered events: %w", err)
	}
	return nil
}

// MarkAsTriggered queues signals and re-arms the debounce window. The
// signals are matched when the window elapses, on Flush, or on Close.
func (d *DurableStore) MarkAsTriggered(_ context.Context, signals []TriggerSignal) error {
	if len(signals) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.pending = append(d.pending, signals...)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.sched.AfterFunc(d.debounce, func() { d.fire(gen) })
	return nil
}

func (d *DurableStore) fire(gen uint64) {
	d.procMu.Lock()
	defer d.procMu.Unlock()

	batch, ok := d.take(gen)
	if !ok {
		return
	}
	d.processBatch(context.Background(), "timer", batch)
}

// take claims the pending batch if gen is still the armed generation.
func (d *DurableStore) take(gen uint64) ([]TriggerSignal, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || gen != d.gen {
		return nil, false
	}
	batch := d.pending
	d.pending = nil
	d.timer = nil
	return batch, len(batch) > 0
}

// cancelPending disarms the timer and returns whatever was queued.
func (d *DurableStore) cancelPending() []TriggerSignal {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	batch := d.pending
	d.pending = nil
	return batch
}

func (d *DurableStore) processBatch(ctx context.Context, trigger string, batch []TriggerSignal) error {
	metrics.RecordDebounceFlush(trigger, len(batch))
	err := d.process(ctx, batch)
	if err != nil {
		metrics.RecordEventsProcessError()
		d.logger.Error().Err(err).Int(xglog.FieldBatchSize, len(batch)).Str("trigger", trigger).Msg("failed to process trigger signals")
	}
	return err
}

func (d *DurableStore) process(ctx context.Context, batch []TriggerSignal) error {
	templates, err := recordstore.GetOr(ctx, d.records, UntriggeredRecord, []UntriggeredEvent(nil))
	if err != nil {
		return fmt.Errorf("load untriggered events: %w", err)
	}
	matched := match(templates, batch)
	if len(matched) == 0 {
		d.logger.Debug().Int(xglog.FieldBatchSize, len(batch)).Msg("no template matched")
		return nil
	}
	for _, e := range matched {
		metrics.RecordTriggered(e.EventType)
	}
	_, err = recordstore.Transform(ctx, d.records, TriggeredRecord, []TriggeredEvent(nil),
		func(cur []TriggeredEvent) ([]TriggeredEvent, error) {
			next := merge(cur, matched, d.limit)
			if sameEvents(next, cur) {
				return cur, recordstore.ErrNoChange
			}
			return next, nil
		})
	if err != nil {
		return fmt.Errorf("store triggered events: %w", err)
	}
	d.logger.Debug().Int(xglog.FieldBatchSize, len(batch)).Int("matched", len(matched)).Msg("trigger signals processed")
	return nil
}

func (d *DurableStore) TriggeredEvents(ctx context.Context) ([]TriggeredEvent, error) {
	out, err := recordstore.GetOr(ctx, d.records, TriggeredRecord, []TriggeredEvent(nil))
	if err != nil {
		return nil, fmt.Errorf("load triggered events: %w", err)
	}
	return out, nil
}

func (d *DurableStore) UntriggeredEvents(ctx context.Context) ([]UntriggeredEvent, error) {
	out, err := recordstore.GetOr(ctx, d.records, UntriggeredRecord, []UntriggeredEvent(nil))
	if err != nil {
		return nil, fmt.Errorf("load untriggered events: %w", err)
	}
	return out, nil
}

// Pending reports the number of queued signals.
func (d *DurableStore) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Clear cancels the debounce window and deletes both records.
func (d *DurableStore) Clear(ctx context.Context) error {
	d.procMu.Lock()
	defer d.procMu.Unlock()

	if d.isClosed() {
		return ErrClosed
	}
	if dropped := d.cancelPending(); len(dropped) > 0 {
		d.logger.Debug().Int(xglog.FieldBatchSize, len(dropped)).Msg("pending trigger signals dropped by clear")
	}
	return errors.Join(
		d.records.Delete(ctx, UntriggeredRecord),
		d.records.Delete(ctx, TriggeredRecord),
	)
}

// Flush processes the pending batch immediately.
func (d *DurableStore) Flush(ctx context.Context) error {
	d.procMu.Lock()
	defer d.procMu.Unlock()

	if d.isClosed() {
		return ErrClosed
	}
	batch := d.cancelPending()
	if len(batch) == 0 {
		return nil
	}
	return d.processBatch(ctx, "flush", batch)
}

// Close flushes pending signals and rejects further mutations. The
// underlying record store is owned by the caller.
func (d *DurableStore) Close() error {
	d.procMu.Lock()
	defer d.procMu.Unlock()

	batch := d.cancelPending()
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return d.processBatch(context.Background(), "flush", batch)
}

func (d *DurableStore) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*DurableStore)(nil)
)
