// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a cache miss. It is never logged or counted as a failure.
	ErrNotFound = errors.New("recordstore: record not found")
	// ErrInvalidName rejects record names that are empty or escape the store root.
	ErrInvalidName = errors.New("recordstore: invalid record name")
	// ErrNoChange may be returned by an Update/Transform function to commit nothing.
	ErrNoChange = errors.New("recordstore: no change")
	// ErrClosed is returned for operations on a closed store.
	ErrClosed = errors.New("recordstore: store closed")
)

// Kind classifies a diagnosed store failure.
type Kind string

const (
	KindIO            Kind = "io"
	KindSerialization Kind = "serialization"
)

// Error is a structured, diagnosable store failure. Cache misses are never
// reported as *Error; use errors.Is(err, ErrNotFound) for those.
type Error struct {
	Kind Kind
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("recordstore: %s %q: %s failure: %v", e.Op, e.Name, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a cache miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// KindOf returns the failure kind of err, or "" when err is nil, a cache
// miss, or not a store failure.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func ioError(op, name string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: KindIO, Op: op, Name: name, Err: err}
}

func serializationError(op, name string, err error) error {
	return &Error{Kind: KindSerialization, Op: op, Name: name, Err: err}
}
