package prometheus

import (
	"strconv"
	"time"

	"conti/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements metrics.Collector for Prometheus.
type PrometheusCollector struct {
	namespace string

	// Ledger
	applies      *prometheus.CounterVec
	reversals    *prometheus.CounterVec
	applyLatency *prometheus.HistogramVec
	lockWait     *prometheus.HistogramVec

	// Recurring processor
	recurringFired       *prometheus.CounterVec
	templatesDeactivated *prometheus.CounterVec

	// Event bus
	eventsPublished *prometheus.CounterVec
	eventsExported  *prometheus.CounterVec
	exportLatency   *prometheus.HistogramVec
}

var _ metrics.Collector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		namespace: namespace,
		applies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_applies_total",
				Help:      "Total number of ledger apply operations by transaction kind and error class",
			},
			[]string{"kind", "error"},
		),
		reversals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_reversals_total",
				Help:      "Total number of ledger reversals by transaction kind and error class",
			},
			[]string{"kind", "error"},
		),
		applyLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_operation_duration_seconds",
				Help:      "Duration of ledger operations",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		lockWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_lock_wait_seconds",
				Help:      "Time spent waiting for per-account locks",
				Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
			},
			[]string{"accounts"},
		),
		recurringFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recurring_fired_total",
				Help:      "Total number of recurring occurrences fired by frequency and outcome",
			},
			[]string{"frequency", "success"},
		),
		templatesDeactivated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recurring_templates_deactivated_total",
				Help:      "Total number of recurring templates that reached their end date",
			},
			[]string{"frequency"},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Total number of ledger events published",
			},
			[]string{"type", "success"},
		),
		eventsExported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_exported_total",
				Help:      "Total number of ledger events exported to sheets",
			},
			[]string{"type", "success"},
		),
		exportLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "export_duration_seconds",
				Help:      "Duration of ledger event exports",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
	}
}

// Register registers all metrics with the provided registry.
func (pc *PrometheusCollector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pc.applies,
		pc.reversals,
		pc.applyLatency,
		pc.lockWait,
		pc.recurringFired,
		pc.templatesDeactivated,
		pc.eventsPublished,
		pc.eventsExported,
		pc.exportLatency,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// MustRegister registers all metrics and panics on error.
func (pc *PrometheusCollector) MustRegister(registry prometheus.Registerer) {
	if err := pc.Register(registry); err != nil {
		panic(err)
	}
}

func (pc *PrometheusCollector) RecordApply(kind string, errorClass string, duration time.Duration) {
	pc.applies.WithLabelValues(kind, errorClass).Inc()
	pc.applyLatency.WithLabelValues("apply").Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordReverse(kind string, errorClass string, duration time.Duration) {
	pc.reversals.WithLabelValues(kind, errorClass).Inc()
	pc.applyLatency.WithLabelValues("reverse").Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordLockWait(accounts int, wait time.Duration) {
	pc.lockWait.WithLabelValues(strconv.Itoa(accounts)).Observe(wait.Seconds())
}

func (pc *PrometheusCollector) RecordRecurringFired(frequency string, success bool) {
	pc.recurringFired.WithLabelValues(frequency, strconv.FormatBool(success)).Inc()
}

func (pc *PrometheusCollector) RecordTemplateDeactivated(frequency string) {
	pc.templatesDeactivated.WithLabelValues(frequency).Inc()
}

func (pc *PrometheusCollector) RecordEventPublished(eventType string, success bool) {
	pc.eventsPublished.WithLabelValues(eventType, strconv.FormatBool(success)).Inc()
}

func (pc *PrometheusCollector) RecordEventExported(eventType string, success bool, duration time.Duration) {
	pc.eventsExported.WithLabelValues(eventType, strconv.FormatBool(success)).Inc()
	pc.exportLatency.WithLabelValues(eventType).Observe(duration.Seconds())
}
