// Package metrics defines the collector interface the ledger and workers
// report to. Implementations export to a backend (see metrics/prometheus).
package metrics

import (
	"time"
)

// Collector records ledger and worker activity.
type Collector interface {
	// Ledger operations. errorClass is "none" on success.
	RecordApply(kind string, errorClass string, duration time.Duration)
	RecordReverse(kind string, errorClass string, duration time.Duration)

	// Lock contention on the per-account lock table.
	RecordLockWait(accounts int, wait time.Duration)

	// Recurring processor
	RecordRecurringFired(frequency string, success bool)
	RecordTemplateDeactivated(frequency string)

	// Event bus
	RecordEventPublished(eventType string, success bool)
	RecordEventExported(eventType string, success bool, duration time.Duration)
}

// NoOpCollector is the default collector when metrics are not needed.
type NoOpCollector struct{}

func (NoOpCollector) RecordApply(kind string, errorClass string, duration time.Duration)   {}
func (NoOpCollector) RecordReverse(kind string, errorClass string, duration time.Duration) {}
func (NoOpCollector) RecordLockWait(accounts int, wait time.Duration)                      {}
func (NoOpCollector) RecordRecurringFired(frequency string, success bool)                  {}
func (NoOpCollector) RecordTemplateDeactivated(frequency string)                           {}
func (NoOpCollector) RecordEventPublished(eventType string, success bool)                  {}
func (NoOpCollector) RecordEventExported(eventType string, success bool, d time.Duration)  {}
