// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/placecore/internal/recordstore"
	"github.com/ManuGH/placecore/internal/resilience"
)

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	CheckName string
	Fn        func(ctx context.Context) CheckResult
}

func (c CheckerFunc) Name() string                          { return c.CheckName }
func (c CheckerFunc) Check(ctx context.Context) CheckResult { return c.Fn(ctx) }

// ProbeRecord is written and read back by the record store check.
const ProbeRecord = "health_probe"

// RecordStoreChecker round-trips a probe record through the store.
type RecordStoreChecker struct {
	records *recordstore.Store
	timeout time.Duration
}

func NewRecordStoreChecker(records *recordstore.Store) *RecordStoreChecker {
	return &RecordStoreChecker{records: records, timeout: 2 * time.Second}
}

func (c *RecordStoreChecker) Name() string { return "record_store" }

func (c *RecordStoreChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stamp := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
	if err := c.records.WriteRaw(ctx, ProbeRecord, stamp, recordstore.WriteOptions{}); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: "write failed"}
	}
	got, err := c.records.ReadRaw(ctx, ProbeRecord)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: "read failed"}
	}
	if string(got) != string(stamp) {
		return CheckResult{Status: StatusUnhealthy, Message: "read back a different value"}
	}
	return CheckResult{Status: StatusHealthy, Message: c.records.Name()}
}

// BreakerChecker reports the dispatcher circuit breaker. An open breaker
// degrades the process but does not make it unready.
type BreakerChecker struct {
	breaker *resilience.CircuitBreaker
}

func NewBreakerChecker(b *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{breaker: b}
}

func (c *BreakerChecker) Name() string { return "dispatch_breaker" }

func (c *BreakerChecker) Check(context.Context) CheckResult {
	if c.breaker == nil {
		return CheckResult{Status: StatusHealthy, Message: "disabled"}
	}
	state := c.breaker.State()
	if state == resilience.StateOpen {
		return CheckResult{Status: StatusDegraded, Message: string(state)}
	}
	return CheckResult{Status: StatusHealthy, Message: string(state)}
}
