// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordstore

import (
	"context"
	"encoding/json"
	"errors"
)

// Get reads and decodes name. found is false on a cache miss, which is not an error.
func Get[T any](ctx context.Context, s *Store, name string) (value T, found bool, err error) {
	err = s.Read(ctx, name, &value)
	if err != nil {
		var zero T
		if errors.Is(err, ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return value, true, nil
}

// GetOr reads name and falls back to def on a cache miss.
func GetOr[T any](ctx context.Context, s *Store, name string, def T) (T, error) {
	v, found, err := Get[T](ctx, s, name)
	if err != nil {
		return def, err
	}
	if !found {
		return def, nil
	}
	return v, nil
}

// TransformFunc maps the current value to the next one. Returning ErrNoChange
// leaves the record untouched.
type TransformFunc[T any] func(current T) (T, error)

// Transform is the atomic read-modify-write primitive: under the write
// barrier it reads name (or def when absent), applies fn and writes the
// result. It returns the committed value, or the unchanged current value when
// fn returned ErrNoChange. Parent directories are created as needed.
func Transform[T any](ctx context.Context, s *Store, name string, def T, fn TransformFunc[T]) (T, error) {
	var committed T
	err := s.Update(ctx, name, WriteOptions{CreateIntermediateDirectories: true}, transformBytes(name, def, fn, &committed))
	return committed, err
}

// TransformAsync queues a Transform and reports its result on the returned channel.
func TransformAsync[T any](ctx context.Context, s *Store, name string, def T, fn TransformFunc[T]) <-chan error {
	var committed T
	return s.UpdateAsync(ctx, name, WriteOptions{CreateIntermediateDirectories: true}, transformBytes(name, def, fn, &committed))
}

func transformBytes[T any](name string, def T, fn TransformFunc[T], committed *T) UpdateFunc {
	return func(current []byte, found bool) ([]byte, error) {
		value := def
		if found {
			var decoded T
			if err := json.Unmarshal(current, &decoded); err != nil {
				return nil, serializationError("update", name, err)
			}
			value = decoded
		}
		next, err := fn(value)
		if err != nil {
			if errors.Is(err, ErrNoChange) {
				*committed = value
			}
			return nil, err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return nil, serializationError("update", name, err)
		}
		*committed = next
		return data, nil
	}
}
