// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend stores records as keys in an embedded Badger database.
// key = "rec:<name>".
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadgerBackend opens (or creates) a Badger database at path. An empty
// path opens an in-memory database.
func OpenBadgerBackend(path string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func badgerKey(name string) []byte { return []byte("rec:" + name) }

func (b *BadgerBackend) Read(_ context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(name))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (b *BadgerBackend) Write(_ context.Context, name string, data []byte, _ WriteOptions) error {
	if err := validateName(name); err != nil {
		return err
	}
	buf := append([]byte(nil), data...)
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(name), buf)
	})
}

func (b *BadgerBackend) Exists(_ context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(name))
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *BadgerBackend) Delete(_ context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(name))
	})
}

func (b *BadgerBackend) Close() error { return b.db.Close() }

var _ Backend = (*BadgerBackend)(nil)
