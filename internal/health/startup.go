// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/placecore/internal/config"
	"github.com/ManuGH/placecore/internal/log"
	"github.com/ManuGH/placecore/internal/recordstore"
	"github.com/rs/zerolog"
)

// PerformStartupChecks prepares and verifies the local environment before
// any store is opened.
func PerformStartupChecks(_ context.Context, cfg config.Config) error {
	logger := log.WithComponent("startup-check")

	switch cfg.Store.Backend {
	case recordstore.BackendFile, recordstore.BackendBadger:
		if err := ensureWritableDir(logger, cfg.StorePath()); err != nil {
			return fmt.Errorf("store directory check failed: %w", err)
		}
	case recordstore.BackendSqlite:
		dir := cfg.StorePath()
		if filepath.Ext(dir) != "" {
			dir = filepath.Dir(dir)
		}
		if err := ensureWritableDir(logger, dir); err != nil {
			return fmt.Errorf("store directory check failed: %w", err)
		}
	case recordstore.BackendMemory:
		logger.Warn().
			Str("store_backend", cfg.Store.Backend).
			Msg("in-memory record store; session and event state is lost on exit")
	}

	if cfg.Store.Backend != recordstore.BackendMemory {
		tempDir := filepath.Clean(os.TempDir())
		storePath := filepath.Clean(cfg.StorePath())
		if tempDir != "." && strings.HasPrefix(storePath, tempDir+string(filepath.Separator)) {
			logger.Warn().
				Str(log.FieldPath, storePath).
				Msg("record store is under the temp directory; state may be lost on reboot")
		}
	}

	if cfg.Layout.Endpoint == "" {
		logger.Info().Msg("layout endpoint not configured; fetches need an explicit URL")
	}

	logger.Debug().Msg("startup checks passed")
	return nil
}

func ensureWritableDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	f, err := os.CreateTemp(path, ".write_test")
	if err != nil {
		return fmt.Errorf("directory is not writable: %s: %w", path, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	logger.Debug().Str(log.FieldPath, path).Msg("store directory is writable")
	return nil
}
