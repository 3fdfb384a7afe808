// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordstore

import (
	"fmt"
	"os"
	"path/filepath"

	xglog "github.com/ManuGH/placecore/internal/log"
)

// Backend names accepted by OpenBackend.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSqlite = "sqlite"
	BackendRedis  = "redis"
)

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	Backend string
	// Path is the root directory (file), database directory (badger) or
	// database file (sqlite).
	Path  string
	Redis RedisConfig
}

// OpenBackend creates a Backend based on the configuration.
func OpenBackend(cfg BackendConfig) (Backend, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendFile
	}

	switch backend {
	case BackendFile:
		return NewFileBackend(cfg.Path)
	case BackendMemory:
		return NewMemoryBackend(), nil
	case BackendBadger:
		return OpenBadgerBackend(cfg.Path)
	case BackendSqlite:
		path := cfg.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "records.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		return OpenSqliteBackend(path, DefaultSqliteConfig())
	case BackendRedis:
		return OpenRedisBackend(cfg.Redis, xglog.WithComponent("recordstore.redis"))
	default:
		return nil, fmt.Errorf("unknown record store backend: %s", backend)
	}
}
