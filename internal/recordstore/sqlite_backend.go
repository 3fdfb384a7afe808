// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

const sqliteSchemaVersion = 1

// SqliteConfig defines SQLite operational parameters.
type SqliteConfig struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultSqliteConfig returns WAL-friendly defaults.
func DefaultSqliteConfig() SqliteConfig {
	return SqliteConfig{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// SqliteBackend stores records as rows of a single table.
type SqliteBackend struct {
	db *sql.DB
}

// OpenSqliteBackend opens the database at dbPath with mandatory PRAGMAs applied
// to every pooled connection and migrates the schema.
func OpenSqliteBackend(dbPath string, cfg SqliteConfig) (*SqliteBackend, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}

	b := &SqliteBackend{db: db}
	if err := b.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migration failed: %w", err)
	}
	return b, nil
}

func (b *SqliteBackend) migrate() error {
	var current int
	if err := b.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= sqliteSchemaVersion {
		return nil
	}

	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS records (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);`); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (b *SqliteBackend) Read(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	var data []byte
	err := b.db.QueryRowContext(ctx, "SELECT data FROM records WHERE name = ?", name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *SqliteBackend) Write(ctx context.Context, name string, data []byte, _ WriteOptions) error {
	if err := validateName(name); err != nil {
		return err
	}
	_, err := b.db.ExecContext(ctx, `
	INSERT INTO records (name, data, updated_at_ms) VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at_ms = excluded.updated_at_ms`,
		name, data, time.Now().UnixMilli())
	return err
}

func (b *SqliteBackend) Exists(ctx context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	var one int
	err := b.db.QueryRowContext(ctx, "SELECT 1 FROM records WHERE name = ?", name).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *SqliteBackend) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	_, err := b.db.ExecContext(ctx, "DELETE FROM records WHERE name = ?", name)
	return err
}

func (b *SqliteBackend) Close() error { return b.db.Close() }

var _ Backend = (*SqliteBackend)(nil)
