// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package settings is a small persisted key→value store for scalar SDK
// state. All keys live in one record so that several keys can change in one
// atomic transform.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuGH/placecore/internal/recordstore"
)

// DefaultRecord is the record name used when none is given.
const DefaultRecord = "settings.json"

// Values is a decoded settings snapshot. Values are kept as raw JSON so the
// store does not need to know the type of every key.
type Values map[string]json.RawMessage

// Has reports whether key is set.
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// String returns the string stored under key.
func (v Values) String(key string) (string, bool) {
	var s string
	if !v.decode(key, &s) {
		return "", false
	}
	return s, true
}

// Int returns the integer stored under key.
func (v Values) Int(key string) (int, bool) {
	var n int
	if !v.decode(key, &n) {
		return 0, false
	}
	return n, true
}

// Float returns the float stored under key.
func (v Values) Float(key string) (float64, bool) {
	var f float64
	if !v.decode(key, &f) {
		return 0, false
	}
	return f, true
}

// Time returns the timestamp stored under key.
func (v Values) Time(key string) (time.Time, bool) {
	var t time.Time
	if !v.decode(key, &t) {
		return time.Time{}, false
	}
	return t, true
}

// Set encodes value under key.
func (v Values) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %q: %w", key, err)
	}
	v[key] = raw
	return nil
}

// Delete removes key.
func (v Values) Delete(key string) {
	delete(v, key)
}

func (v Values) decode(key string, out any) bool {
	raw, ok := v[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (v Values) clone() Values {
	out := make(Values, len(v))
	for k, raw := range v {
		out[k] = append(json.RawMessage(nil), raw...)
	}
	return out
}

// Store persists Values through a record store.
type Store struct {
	records *recordstore.Store
	name    string
}

// New returns a settings store backed by the record name (DefaultRecord when empty).
func New(records *recordstore.Store, name string) *Store {
	if name == "" {
		name = DefaultRecord
	}
	return &Store{records: records, name: name}
}

// Snapshot returns the current values. A missing record yields empty Values.
func (s *Store) Snapshot(ctx context.Context) (Values, error) {
	v, err := recordstore.GetOr(ctx, s.records, s.name, Values{})
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = Values{}
	}
	return v, nil
}

// Update applies fn to a copy of the current values as one atomic transform.
// fn may return recordstore.ErrNoChange to commit nothing. The committed
// snapshot is returned.
func (s *Store) Update(ctx context.Context, fn func(Values) error) (Values, error) {
	return recordstore.Transform(ctx, s.records, s.name, Values{}, func(cur Values) (Values, error) {
		if cur == nil {
			cur = Values{}
		}
		next := cur.clone()
		if err := fn(next); err != nil {
			return cur, err
		}
		return next, nil
	})
}

// Get decodes a single key. found is false when the key is unset.
func (s *Store) Get(ctx context.Context, key string, out any) (bool, error) {
	v, err := s.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return v.decode(key, out), nil
}

// Set stores a single key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	_, err := s.Update(ctx, func(v Values) error { return v.Set(key, value) })
	return err
}

// Remove deletes a single key.
func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.Update(ctx, func(v Values) error {
		if !v.Has(key) {
			return recordstore.ErrNoChange
		}
		v.Delete(key)
		return nil
	})
	return err
}
