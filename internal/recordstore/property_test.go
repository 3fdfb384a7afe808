// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
)

// TestTransformAtomicityProperty: for any N >= 1, N concurrent single-item
// appends leave exactly N distinct items.
func TestTransformAtomicityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("concurrent appends are never lost", prop.ForAll(
		func(n int) bool {
			ctx := context.Background()
			s := New(NewMemoryBackend(), WithLogger(zerolog.Nop()))
			defer s.Close()

			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, _ = Transform(ctx, s, "p.json", map[string]bool{}, func(cur map[string]bool) (map[string]bool, error) {
						cur[fmt.Sprintf("k%d", i)] = true
						return cur, nil
					})
				}(i)
			}
			wg.Wait()

			got, found, err := Get[map[string]bool](ctx, s, "p.json")
			return err == nil && found && len(got) == n
		},
		gen.IntRange(1, 80),
	))

	properties.TestingRun(t)
}
