package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wind_repower"

// Metrics holds the Prometheus counters, histograms, and gauges for the pipeline.
type Metrics struct {
	TargetsRun     *prometheus.CounterVec   // labels: target, outcome={success,failure}
	TargetDuration *prometheus.HistogramVec // labels: target
	TargetRunning  prometheus.Gauge

	// Download metrics.
	DownloadAttempts *prometheus.CounterVec   // labels: source={uswtdb,cds}, outcome={success,error}
	DownloadBytes    *prometheus.CounterVec   // labels: source
	DownloadDuration *prometheus.HistogramVec // labels: source
	CircuitState     *prometheus.GaugeVec     // labels: name; 0 closed, 1 half-open, 2 open

	// Calculation metrics.
	StageItems *prometheus.CounterVec // labels: stage, item={turbines,months,figures,...}

	// Run event publishing.
	EventsPublished prometheus.Counter
	EventErrors     prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.TargetsRun,
		m.TargetDuration,
		m.TargetRunning,
		m.DownloadAttempts,
		m.DownloadBytes,
		m.DownloadDuration,
		m.CircuitState,
		m.StageItems,
		m.EventsPublished,
		m.EventErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		TargetsRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "targets_run_total",
			Help:      "Targets run by outcome.",
		}, []string{"target", "outcome"}),
		TargetDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "target_duration_seconds",
			Help:      "Wall time of a target run.",
			Buckets:   []float64{0.1, 1, 10, 60, 300, 900, 3600, 4 * 3600, 12 * 3600},
		}, []string{"target"}),
		TargetRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_running",
			Help:      "1 while a target is executing, 0 otherwise.",
		}),
		DownloadAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_attempts_total",
			Help:      "Download attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		DownloadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes written to disk by downloads.",
		}, []string{"source"}),
		DownloadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Duration of a single successful download.",
			Buckets:   []float64{1, 5, 30, 60, 300, 900, 1800, 3600},
		}, []string{"source"}),
		CircuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"name"}),
		StageItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_items_total",
			Help:      "Items processed by calculation stages.",
		}, []string{"stage", "item"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_events_published_total",
			Help:      "Run events written to Kafka.",
		}),
		EventErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_event_errors_total",
			Help:      "Run events that could not be written.",
		}),
	}
}

// WriteTextfile dumps the default registry in the node exporter textfile
// format. It is a no-op for an empty path.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
