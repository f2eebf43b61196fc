package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCollector_RecordApply(t *testing.T) {
	pc := NewPrometheusCollector("test")
	registry := prometheus.NewRegistry()
	if err := pc.Register(registry); err != nil {
		t.Fatalf("Register: %v", err)
	}

	pc.RecordApply("expense", "none", time.Millisecond)
	pc.RecordApply("expense", "none", time.Millisecond)
	pc.RecordApply("transfer", "balance_rule_violation", time.Millisecond)

	if got := testutil.ToFloat64(pc.applies.WithLabelValues("expense", "none")); got != 2 {
		t.Errorf("expense applies = %v, want 2", got)
	}
	if got := testutil.ToFloat64(pc.applies.WithLabelValues("transfer", "balance_rule_violation")); got != 1 {
		t.Errorf("rejected transfer applies = %v, want 1", got)
	}
}

func TestPrometheusCollector_DoubleRegisterFails(t *testing.T) {
	pc := NewPrometheusCollector("test")
	registry := prometheus.NewRegistry()
	pc.MustRegister(registry)

	if err := pc.Register(registry); err == nil {
		t.Error("expected error registering the same collectors twice")
	}
}

func TestPrometheusCollector_RecurringAndEvents(t *testing.T) {
	pc := NewPrometheusCollector("test")

	pc.RecordRecurringFired("monthly", true)
	pc.RecordRecurringFired("monthly", false)
	pc.RecordTemplateDeactivated("monthly")
	pc.RecordEventPublished("applied", true)
	pc.RecordEventExported("applied", true, 10*time.Millisecond)

	if got := testutil.ToFloat64(pc.recurringFired.WithLabelValues("monthly", "true")); got != 1 {
		t.Errorf("fired ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pc.templatesDeactivated.WithLabelValues("monthly")); got != 1 {
		t.Errorf("deactivated = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pc.eventsPublished.WithLabelValues("applied", "true")); got != 1 {
		t.Errorf("published = %v, want 1", got)
	}
}
