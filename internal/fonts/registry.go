// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fonts records which font files have been downloaded and when.
// Only bookkeeping lives here; fetching and registering the font files is
// the host's job.
package fonts

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ManuGH/placecore/internal/clock"
	xglog "github.com/ManuGH/placecore/internal/log"
	"github.com/ManuGH/placecore/internal/recordstore"
	"github.com/rs/zerolog"
)

const (
	RegistryRecord = "fonts/font_registry.json"
	URLsRecord     = "fonts/font_urls.json"
)

// Entries maps a font name to the time it was saved.
type Entries map[string]time.Time

// Index maps a font URL to its entries.
type Index map[string]Entries

// Registry tracks downloaded fonts in two records: the index and the ordered
// list of known URLs. Both are mutated only through atomic transforms.
type Registry struct {
	records *recordstore.Store
	clock   clock.Clock
	logger  zerolog.Logger
}

// NewRegistry builds a Registry. c defaults to the wall clock.
func NewRegistry(records *recordstore.Store, c clock.Clock) *Registry {
	if c == nil {
		c = clock.Real{}
	}
	return &Registry{records: records, clock: c, logger: xglog.WithComponent("fonts")}
}

// Record notes that fontName was saved from fontURL now.
func (r *Registry) Record(ctx context.Context, fontURL, fontName string) error {
	if fontURL == "" || fontName == "" {
		return errors.New("fonts: url and name are required")
	}
	now := r.clock.Now().UTC()
	_, err := recordstore.Transform(ctx, r.records, RegistryRecord, Index{}, func(idx Index) (Index, error) {
		if idx == nil {
			idx = Index{}
		}
		entries := idx[fontURL]
		if entries == nil {
			entries = Entries{}
		}
		entries[fontName] = now
		idx[fontURL] = entries
		return idx, nil
	})
	if err != nil {
		return fmt.Errorf("record font: %w", err)
	}
	_, err = recordstore.Transform(ctx, r.records, URLsRecord, []string(nil), func(urls []string) ([]string, error) {
		if slices.Contains(urls, fontURL) {
			return urls, recordstore.ErrNoChange
		}
		return append(urls, fontURL), nil
	})
	if err != nil {
		return fmt.Errorf("record font url: %w", err)
	}
	r.logger.Debug().Str(xglog.FieldURL, fontURL).Str("font", fontName).Msg("font recorded")
	return nil
}

// Known returns the font URLs in the order they were first recorded.
func (r *Registry) Known(ctx context.Context) ([]string, error) {
	return recordstore.GetOr(ctx, r.records, URLsRecord, []string(nil))
}

// Index returns the full registry.
func (r *Registry) Index(ctx context.Context) (Index, error) {
	idx, err := recordstore.GetOr(ctx, r.records, RegistryRecord, Index{})
	if err != nil {
		return nil, err
	}
	if idx == nil {
		idx = Index{}
	}
	return idx, nil
}

// Fonts returns the entries saved from fontURL.
func (r *Registry) Fonts(ctx context.Context, fontURL string) (Entries, error) {
	idx, err := r.Index(ctx)
	if err != nil {
		return nil, err
	}
	return idx[fontURL], nil
}

// Evict drops entries saved more than maxAge ago. URLs left without entries
// are removed from both records. It returns the evicted URLs.
func (r *Registry) Evict(ctx context.Context, maxAge time.Duration) ([]string, error) {
	cutoff := r.clock.Now().Add(-maxAge)
	var emptied []string
	_, err := recordstore.Transform(ctx, r.records, RegistryRecord, Index{}, func(idx Index) (Index, error) {
		changed := false
		for url, entries := range idx {
			for name, savedAt := range entries {
				if savedAt.Before(cutoff) {
					delete(entries, name)
					changed = true
				}
			}
			if len(entries) == 0 {
				delete(idx, url)
				emptied = append(emptied, url)
				changed = true
			}
		}
		if !changed {
			return idx, recordstore.ErrNoChange
		}
		return idx, nil
	})
	if err != nil {
		return nil, fmt.Errorf("evict fonts: %w", err)
	}
	if len(emptied) == 0 {
		return nil, nil
	}
	_, err = recordstore.Transform(ctx, r.records, URLsRecord, []string(nil), func(urls []string) ([]string, error) {
		kept := slices.DeleteFunc(slices.Clone(urls), func(u string) bool {
			return slices.Contains(emptied, u)
		})
		if len(kept) == len(urls) {
			return urls, recordstore.ErrNoChange
		}
		return kept, nil
	})
	if err != nil {
		return nil, fmt.Errorf("evict font urls: %w", err)
	}
	slices.Sort(emptied)
	r.logger.Info().Int("evicted", len(emptied)).Msg("font urls evicted")
	return emptied, nil
}

// Clear removes both records.
func (r *Registry) Clear(ctx context.Context) error {
	return errors.Join(
		r.records.Delete(ctx, RegistryRecord),
		r.records.Delete(ctx, URLsRecord),
	)
}
