package tasks

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers dispatch and execution of redaction tasks.
type Metrics struct {
	Enqueued     prometheus.Counter
	Deduplicated prometheus.Counter
	EnqueueFails prometheus.Counter
	Outcomes     *prometheus.CounterVec
	Retries      prometheus.Counter
	Duration     prometheus.Histogram
}

// NewMetrics registers task metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Enqueued: f.NewCounter(prometheus.CounterOpts{
			Name: "blurifier_tasks_enqueued_total",
			Help: "Redaction tasks published to the queue",
		}),
		Deduplicated: f.NewCounter(prometheus.CounterOpts{
			Name: "blurifier_tasks_deduplicated_total",
			Help: "Enqueue calls skipped because a task for the hash already exists",
		}),
		EnqueueFails: f.NewCounter(prometheus.CounterOpts{
			Name: "blurifier_tasks_enqueue_failures_total",
			Help: "Enqueue calls that failed to reach the queue",
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blurifier_tasks_outcomes_total",
			Help: "Finished redaction tasks by terminal state",
		}, []string{"state"}),
		Retries: f.NewCounter(prometheus.CounterOpts{
			Name: "blurifier_tasks_retries_total",
			Help: "Task attempts that failed and were retried",
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "blurifier_tasks_duration_seconds",
			Help:    "Wall time of a task across all attempts",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}),
	}
}

func (m *Metrics) incEnqueued() {
	if m != nil {
		m.Enqueued.Inc()
	}
}

func (m *Metrics) incDeduplicated() {
	if m != nil {
		m.Deduplicated.Inc()
	}
}

func (m *Metrics) incEnqueueFailure() {
	if m != nil {
		m.EnqueueFails.Inc()
	}
}

func (m *Metrics) incRetry() {
	if m != nil {
		m.Retries.Inc()
	}
}

func (m *Metrics) observeOutcome(state string, d time.Duration) {
	if m != nil {
		m.Outcomes.WithLabelValues(state).Inc()
		m.Duration.Observe(d.Seconds())
	}
}
