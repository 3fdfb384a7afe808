// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	xglog "github.com/ManuGH/placecore/internal/log"
	"github.com/google/renameio/v2"
)

// FileBackend stores one file per record below a root directory. Writes go
// through renameio (temp file, fsync, rename), so a crash mid-write leaves the
// previous file intact.
type FileBackend struct {
	root string
	perm os.FileMode
}

// NewFileBackend creates the root directory if needed and returns a backend
// rooted there.
func NewFileBackend(root string) (*FileBackend, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("file backend root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve file backend root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create file backend root: %w", err)
	}
	return &FileBackend{root: abs, perm: 0o600}, nil
}

// Root returns the absolute root directory.
func (b *FileBackend) Root() string { return b.root }

// path confines name below the root. Segment-based so ".." inside a file
// name is allowed but escaping the root is not.
func (b *FileBackend) path(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == "." || clean == ".." ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidName, name)
	}
	return filepath.Join(b.root, clean), nil
}

func (b *FileBackend) Read(ctx context.Context, name string) ([]byte, error) {
	p, err := b.path(name)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- path is confined below the backend root
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *FileBackend) Write(ctx context.Context, name string, data []byte, opts WriteOptions) error {
	logger := xglog.FromContext(ctx)

	p, err := b.path(name)
	if err != nil {
		return err
	}
	if opts.CreateIntermediateDirectories {
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return fmt.Errorf("create parent directory: %w", err)
		}
	}

	pendingFile, err := renameio.NewPendingFile(p, renameio.WithPermissions(b.perm))
	if err != nil {
		return fmt.Errorf("create pending record file: %w", err)
	}
	defer func() {
		// renameio removes the temp file if it was never committed
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Str(xglog.FieldRecord, name).Msg("cleanup pending record file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write record data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace record file: %w", err)
	}
	return nil
}

func (b *FileBackend) Exists(ctx context.Context, name string) (bool, error) {
	p, err := b.path(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (b *FileBackend) Delete(ctx context.Context, name string) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }

var _ Backend = (*FileBackend)(nil)
