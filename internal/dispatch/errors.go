// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrRetryable matches failures that stayed retryable until the retry
	// budget ran out.
	ErrRetryable = errors.New("dispatch: retries exhausted")
	// ErrTerminal matches failures surfaced without further retries.
	ErrTerminal = errors.New("dispatch: terminal failure")
	// ErrUnauthorized matches a 401 response.
	ErrUnauthorized = errors.New("dispatch: unauthorized")
	// ErrNotConnected matches a missing network connection.
	ErrNotConnected = errors.New("dispatch: not connected to internet")
	// ErrBodyTooLarge matches a response body over the read limit.
	ErrBodyTooLarge = errors.New("dispatch: response body too large")
)

// Error is the final failure of a logical request.
type Error struct {
	Kind     Failure
	Status   int
	Body     string
	Reason   string
	Attempts int
	// Exhausted is set when the last failure was retryable.
	Exhausted bool
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("dispatch failed after %d attempt(s): %s", e.Attempts, e.Kind)
	if e.Status > 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRetryable:
		return e.Exhausted
	case ErrTerminal:
		return !e.Exhausted
	case ErrUnauthorized:
		return e.Kind == FailureUnauthorized
	case ErrNotConnected:
		return e.Kind == FailureNotConnected
	}
	return false
}

// Message returns the response body, or the failure description when there
// is no body.
func (e *Error) Message() string {
	if e.Body != "" {
		return e.Body
	}
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func reasonFor(f Failure, extended bool) string {
	switch {
	case f == FailureUnauthorized:
		return ReasonUnauthorized
	case f == FailureNotConnected && !extended:
		return ReasonNotConnected
	}
	return ""
}
