// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordstore

import (
	"context"
	"strings"
)

// WriteOptions tunes a single write.
type WriteOptions struct {
	// CreateIntermediateDirectories makes the file backend create the parent
	// directory of a nested record name before writing. Other backends ignore it.
	CreateIntermediateDirectories bool
}

// Backend persists raw record bytes under a name. Implementations must make a
// completed Write atomic: a reader sees either the previous value or the new
// one, never a prefix. Backends are not required to serialize a
// read-modify-write; Store layers that on top.
type Backend interface {
	// Read returns ErrNotFound when the record does not exist.
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte, opts WriteOptions) error
	Exists(ctx context.Context, name string) (bool, error)
	// Delete succeeds when the record is already absent.
	Delete(ctx context.Context, name string) error
	Close() error
}

// validateName rejects names that cannot address a record in any backend.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if strings.Contains(name, "\\") || strings.ContainsRune(name, 0) {
		return ErrInvalidName
	}
	return nil
}
