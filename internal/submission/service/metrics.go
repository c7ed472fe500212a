package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the submission pipeline.
type Metrics struct {
	Submissions      *prometheus.CounterVec
	EnqueueFailures  prometheus.Counter
	CacheLookups     *prometheus.CounterVec
	Processed        *prometheus.CounterVec
	BackfillRows     prometheus.Counter
	BackfillDuration prometheus.Histogram
}

// NewMetrics registers submission metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blurifier_submissions_total",
			Help: "Submissions by outcome",
		}, []string{"outcome"}), // outcome: "created", "deduplicated"
		EnqueueFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "blurifier_submission_enqueue_failures_total",
			Help: "Created submissions whose task could not be enqueued",
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blurifier_result_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		}, []string{"outcome"}), // outcome: "hit", "miss", "error"
		Processed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blurifier_redactions_total",
			Help: "Process calls by outcome",
		}, []string{"outcome"}), // outcome: "redacted", "already_processed"
		BackfillRows: f.NewCounter(prometheus.CounterOpts{
			Name: "blurifier_backfill_rows_total",
			Help: "Rows redacted by the backfill pass",
		}),
		BackfillDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "blurifier_backfill_duration_seconds",
			Help:    "Duration of one backfill pass",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
	}
}

func (m *Metrics) incSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) incEnqueueFailure() {
	if m != nil {
		m.EnqueueFailures.Inc()
	}
}

func (m *Metrics) incCache(outcome string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) incProcessed(outcome string) {
	if m != nil {
		m.Processed.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) observeBackfill(rows int, seconds float64) {
	if m != nil {
		m.BackfillRows.Add(float64(rows))
		m.BackfillDuration.Observe(seconds)
	}
}
