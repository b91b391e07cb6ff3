package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the AMY
// EPW generation batch.
type Metrics struct {
	FilesProcessed prometheus.Counter
	FilesAccepted  prometheus.Counter
	FilesRejected  *prometheus.CounterVec // label: reason
	BatchRunning   prometheus.Gauge

	// Gap repair metrics.
	ValuesFilled *prometheus.CounterVec // label: method={interpolated,imputed}

	// Per-file timing and completeness.
	FillDuration prometheus.Histogram
	MissingRows  prometheus.Histogram
}

// NewMetrics creates and registers all batch metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesProcessed,
		m.FilesAccepted,
		m.FilesRejected,
		m.BatchRunning,
		m.ValuesFilled,
		m.FillDuration,
		m.MissingRows,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so parallel
// tests avoid "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amy_epw",
			Name:      "files_processed_total",
			Help:      "Total station-year files run through the batch.",
		}),
		FilesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amy_epw",
			Name:      "files_accepted_total",
			Help:      "Station-year files that produced a merged EPW output.",
		}),
		FilesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amy_epw",
			Name:      "files_rejected_total",
			Help:      "Station-year files rejected, by reason.",
		}, []string{"reason"}),
		BatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "amy_epw",
			Name:      "batch_running",
			Help:      "1 while a generation batch is active, 0 otherwise.",
		}),
		ValuesFilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amy_epw",
			Name:      "values_filled_total",
			Help:      "Missing field values repaired, by fill method.",
		}, []string{"method"}),
		FillDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "amy_epw",
			Name:      "fill_duration_seconds",
			Help:      "Duration of one file's analyze-fill-merge-write cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		MissingRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "amy_epw",
			Name:      "missing_rows",
			Help:      "Total missing hourly rows per analyzed station-year.",
			Buckets:   []float64{0, 1, 10, 50, 100, 250, 500, 700, 1000, 2000},
		}),
	}
}
