// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/placecore/internal/clock"
	"github.com/ManuGH/placecore/internal/recordstore"
	"github.com/ManuGH/placecore/internal/settings"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type recorder struct {
	mu      sync.Mutex
	reasons []Reason
}

func (r *recorder) SessionInvalidated(_ context.Context, reason Reason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *recorder) got() []Reason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reason(nil), r.reasons...)
}

type fixture struct {
	m     *Manager
	clk   *clock.Manual
	obs   *recorder
	store *settings.Store
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	b, err := recordstore.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	rs := recordstore.New(b, recordstore.WithName("session"), recordstore.WithLogger(zerolog.Nop()))
	t.Cleanup(func() { _ = rs.Close() })

	st := settings.New(rs, "session.json")
	clk := clock.NewManual(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	obs := &recorder{}
	m := NewManager(st, cfg, []Observer{obs}, WithClock(clk), WithLogger(zerolog.Nop()))
	return &fixture{m: m, clk: clk, obs: obs, store: st}
}

func TestNewManager_Defaults(t *testing.T) {
	f := newFixture(t, Config{})
	assert.Equal(t, DefaultDuration, f.m.Config().Duration)
	assert.Equal(t, DefaultMaxUsage, f.m.Config().MaxUsage)
}

func TestSessionIDForRequest_UnsetIsAbsent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	id, ok, err := f.m.SessionIDForRequest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)

	st, err := f.m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.UsageCount)
	assert.Equal(t, PhaseUnset, st.Phase())
}

func TestSessionIDForRequest_ExpiredByTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Duration: 30 * time.Minute})
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))

	id, ok, err := f.m.SessionIDForRequest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s1", id)

	f.clk.Advance(30*time.Minute + time.Second)

	id, ok, err = f.m.SessionIDForRequest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)

	st, err := f.m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.UsageCount)
	assert.Empty(t, st.SessionID)
	assert.True(t, st.LastActivity.IsZero())
	assert.Equal(t, []Reason{ReasonReplaced, ReasonExpiredByTime}, f.obs.got())
}

func TestExpired_UsesManagerClockAndOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Duration: 30 * time.Minute})
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))
	require.NoError(t, f.m.SetSessionDuration(ctx, time.Minute))

	st, err := f.m.State(ctx)
	require.NoError(t, err)
	assert.False(t, f.m.Expired(st))

	f.clk.Advance(time.Minute + time.Second)
	assert.True(t, f.m.Expired(st), "issued duration replaces the configured one")
	assert.False(t, f.m.Expired(State{}), "unset session never expires by time")
}

func TestSessionIDForRequest_ExactlyAtDurationIsValid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Duration: time.Minute})
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))

	f.clk.Advance(time.Minute)
	_, ok, err := f.m.SessionIDForRequest(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessionIDForRequest_ActivityExtendsWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Duration: time.Minute})
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))

	for i := 0; i < 5; i++ {
		f.clk.Advance(50 * time.Second)
		_, ok, err := f.m.SessionIDForRequest(ctx)
		require.NoError(t, err)
		require.True(t, ok, "call %d", i)
	}
}

func TestSessionIDForRequest_ExpiredByUsage(t *testing.T) {
	ctx := context.Background()
	const maxUsage = 50
	f := newFixture(t, Config{MaxUsage: maxUsage})
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))

	for i := 1; i <= maxUsage; i++ {
		id, ok, err := f.m.SessionIDForRequest(ctx)
		require.NoError(t, err)
		require.True(t, ok, "call %d", i)
		require.Equal(t, "s1", id)

		st, err := f.m.State(ctx)
		require.NoError(t, err)
		require.Equal(t, i, st.UsageCount)
	}

	id, ok, err := f.m.SessionIDForRequest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)

	st, err := f.m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.UsageCount)
	assert.Empty(t, st.SessionID)
	assert.Equal(t, []Reason{ReasonReplaced, ReasonExpiredByUsage}, f.obs.got())
}

func TestSessionIDWithoutExpiring_DoesNotMutate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Duration: time.Minute})
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))
	before, err := f.m.State(ctx)
	require.NoError(t, err)

	f.clk.Advance(time.Hour)
	for i := 0; i < 3; i++ {
		id, ok, err := f.m.SessionIDWithoutExpiring(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "s1", id)
	}

	after, err := f.m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdateSessionID_SameIDIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))
	_, _, err := f.m.SessionIDForRequest(ctx)
	require.NoError(t, err)
	before, err := f.m.State(ctx)
	require.NoError(t, err)

	f.clk.Advance(time.Minute)
	same := "s1"
	require.NoError(t, f.m.UpdateSessionID(ctx, &same))

	after, err := f.m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []Reason{ReasonReplaced}, f.obs.got())
}

func TestUpdateSessionID_ReplaceResetsUsage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))
	for i := 0; i < 3; i++ {
		_, _, err := f.m.SessionIDForRequest(ctx)
		require.NoError(t, err)
	}

	f.clk.Advance(time.Second)
	next := "s2"
	require.NoError(t, f.m.UpdateSessionID(ctx, &next))

	st, err := f.m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s2", st.SessionID)
	assert.Equal(t, 0, st.UsageCount)
	assert.True(t, f.clk.Now().Equal(st.LastActivity))
	assert.Equal(t, []Reason{ReasonReplaced, ReasonReplaced}, f.obs.got())
}

func TestUpdateSessionID_NilClears(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))
	require.NoError(t, f.m.UpdateSessionID(ctx, nil))

	_, ok, err := f.m.SessionIDWithoutExpiring(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []Reason{ReasonReplaced, ReasonExplicit}, f.obs.got())
}

func TestSetSessionID_RejectsEmpty(t *testing.T) {
	f := newFixture(t, Config{})
	err := f.m.SetSessionID(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptySessionID)
	assert.Empty(t, f.obs.got())
}

func TestSetOwnerTag_IdempotentForSameTag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	require.NoError(t, f.m.SetOwnerTag(ctx, "tag-a"))
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))

	require.NoError(t, f.m.SetOwnerTag(ctx, "tag-a"))
	require.NoError(t, f.m.SetOwnerTag(ctx, "tag-a"))

	id, ok, err := f.m.SessionIDWithoutExpiring(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "s1", id)
	assert.Equal(t, []Reason{ReasonOwnerChanged, ReasonReplaced}, f.obs.got())
}

func TestSetOwnerTag_ChangeClearsBeforeStoring(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	require.NoError(t, f.m.SetOwnerTag(ctx, "tag-a"))
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))

	require.NoError(t, f.m.SetOwnerTag(ctx, "tag-b"))

	st, err := f.m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tag-b", st.OwnerTag)
	assert.Empty(t, st.SessionID)
	assert.Equal(t, []Reason{ReasonOwnerChanged, ReasonReplaced, ReasonOwnerChanged}, f.obs.got())
}

func TestSetSessionDuration_OverrideUntilClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Duration: time.Hour})
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))
	require.NoError(t, f.m.SetSessionDuration(ctx, 10*time.Second))

	st, err := f.m.State(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, st.DurationSeconds, 1e-9)

	f.clk.Advance(11 * time.Second)
	_, ok, err := f.m.SessionIDForRequest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	st, err = f.m.State(ctx)
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), st.DurationSeconds, 1e-9)

	require.ErrorIs(t, f.m.SetSessionDuration(ctx, 0), ErrInvalidDuration)
}

func TestMarkFetchSucceeded_RefreshesActivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Duration: time.Minute})
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))

	f.clk.Advance(50 * time.Second)
	require.NoError(t, f.m.MarkFetchSucceeded(ctx))
	f.clk.Advance(50 * time.Second)

	id, ok, err := f.m.SessionIDForRequest(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "s1", id)
}

func TestClear_NotifiesEveryObserverOnce(t *testing.T) {
	ctx := context.Background()
	b := recordstore.NewMemoryBackend()
	rs := recordstore.New(b, recordstore.WithLogger(zerolog.Nop()))
	t.Cleanup(func() { _ = rs.Close() })

	first, second := &recorder{}, &recorder{}
	var calls []string
	third := ObserverFunc(func(_ context.Context, r Reason) { calls = append(calls, string(r)) })
	m := NewManager(settings.New(rs, "session.json"), Config{}, []Observer{first, second, third}, WithLogger(zerolog.Nop()))

	require.NoError(t, m.Clear(ctx, ReasonExplicit))
	assert.Equal(t, []Reason{ReasonExplicit}, first.got())
	assert.Equal(t, []Reason{ReasonExplicit}, second.got())
	assert.Equal(t, []string{"explicit"}, calls)
}

func TestObserverSeesClearedState(t *testing.T) {
	ctx := context.Background()
	b := recordstore.NewMemoryBackend()
	rs := recordstore.New(b, recordstore.WithLogger(zerolog.Nop()))
	t.Cleanup(func() { _ = rs.Close() })

	var m *Manager
	var seen State
	obs := ObserverFunc(func(ctx context.Context, _ Reason) {
		st, err := m.State(ctx)
		require.NoError(t, err)
		seen = st
	})
	m = NewManager(settings.New(rs, "session.json"), Config{}, []Observer{obs}, WithLogger(zerolog.Nop()))

	require.NoError(t, m.SetSessionID(ctx, "s1"))
	require.NoError(t, m.Clear(ctx, ReasonExplicit))
	assert.Empty(t, seen.SessionID)
	assert.Equal(t, 0, seen.UsageCount)
}

func TestSessionIDForRequest_ConcurrentCallsCountEveryUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{MaxUsage: 1000})
	require.NoError(t, f.m.SetSessionID(ctx, "s1"))

	const n = 40
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, _, err := f.m.SessionIDForRequest(ctx)
			return err
		})
	}
	require.NoError(t, g.Wait())

	st, err := f.m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, st.UsageCount)
}
