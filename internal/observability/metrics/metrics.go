// Package metrics exposes Prometheus instrumentation for the automation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for job metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeRetried   = "retried"
	OutcomeCancelled = "cancelled"
)

// JobMetrics records worker activity. All methods are nil-safe so callers can
// run without a registry in tests.
type JobMetrics struct {
	jobsScheduled *prometheus.CounterVec
	jobsProcessed *prometheus.CounterVec
	jobsSkipped   prometheus.Counter
	tickDuration  prometheus.Histogram
	intentsMarked prometheus.Counter
}

// NewJobMetrics registers the worker metric set on reg.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	factory := promauto.With(reg)
	return &JobMetrics{
		jobsScheduled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "automation_jobs_scheduled_total",
			Help: "Jobs created by the scheduler, by trigger type.",
		}, []string{"trigger_type"}),
		jobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "automation_jobs_processed_total",
			Help: "Claimed jobs by final outcome of the attempt.",
		}, []string{"outcome"}),
		jobsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "automation_jobs_skipped_total",
			Help: "Schedule requests skipped because an active job already existed.",
		}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "automation_worker_tick_duration_seconds",
			Help:    "Duration of one worker tick.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		intentsMarked: factory.NewCounter(prometheus.CounterOpts{
			Name: "automation_intents_flagged_total",
			Help: "Checkout intents flagged as abandoned by the scanner.",
		}),
	}
}

// JobScheduled records one successfully scheduled job.
func (m *JobMetrics) JobScheduled(triggerType string) {
	if m == nil {
		return
	}
	m.jobsScheduled.WithLabelValues(triggerType).Inc()
}

// JobSkipped records one schedule request suppressed by the idempotency gate.
func (m *JobMetrics) JobSkipped() {
	if m == nil {
		return
	}
	m.jobsSkipped.Inc()
}

// JobProcessed records the outcome of one claimed job attempt.
func (m *JobMetrics) JobProcessed(outcome string) {
	if m == nil {
		return
	}
	m.jobsProcessed.WithLabelValues(outcome).Inc()
}

// TickObserved records the duration of one worker tick.
func (m *JobMetrics) TickObserved(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}

// IntentFlagged records one checkout intent picked up by the scanner.
func (m *JobMetrics) IntentFlagged() {
	if m == nil {
		return
	}
	m.intentsMarked.Inc()
}
