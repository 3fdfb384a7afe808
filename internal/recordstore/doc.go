// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package recordstore persists named JSON records.
//
// A Backend stores raw bytes (file, memory, badger, sqlite, redis). Store
// decorates a Backend with the write barrier and JSON encoding every other
// component relies on. All mutation of a shared record goes through Update or
// the generic Transform helper; callers never read-then-write on their own.
//
// Failure taxonomy:
//   - ErrNotFound: cache miss, silent.
//   - *Error{Kind: KindSerialization}: corrupt or unencodable record.
//   - *Error{Kind: KindIO}: backend failure (permissions, disk full, network).
package recordstore
