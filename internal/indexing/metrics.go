package indexing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Passes   prometheus.Counter
	Indexed  prometheus.Counter
	Failed   prometheus.Counter
	Duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Passes: f.NewCounter(prometheus.CounterOpts{
			Name: "blurifier_sweep_passes_total",
			Help: "Completed sweep passes",
		}),
		Indexed: f.NewCounter(prometheus.CounterOpts{
			Name: "blurifier_sweep_indexed_total",
			Help: "Submissions indexed and watermarked",
		}),
		Failed: f.NewCounter(prometheus.CounterOpts{
			Name: "blurifier_sweep_failed_total",
			Help: "Submissions that failed to index and stay eligible",
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "blurifier_sweep_duration_seconds",
			Help:    "Sweep pass duration",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observePass(r Result) {
	if m == nil {
		return
	}
	m.Passes.Inc()
	m.Indexed.Add(float64(r.Indexed))
	m.Failed.Add(float64(r.Failed))
	m.Duration.Observe(r.Duration.Seconds())
}
