// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics owns the Prometheus collectors exported by placecore.
// Collectors are registered on the default registry via promauto; callers
// only use the Record*/Observe* helpers.
package metrics
