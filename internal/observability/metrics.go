package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "erg5_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the dump pipeline.
type Metrics struct {
	MessagesRead       prometheus.Counter
	MessagesClassified *prometheus.CounterVec // labels: product
	MessagesSkipped    prometheus.Counter
	RecordsExtracted   *prometheus.CounterVec // labels: product
	MissingValues      *prometheus.CounterVec // labels: product
	OutOfGridPoints    *prometheus.CounterVec // labels: product
	LoadErrors         *prometheus.CounterVec // labels: loader

	// Download metrics.
	Downloads        *prometheus.CounterVec   // labels: kind={grib,timeseries}, outcome={success,error}
	DownloadDuration *prometheus.HistogramVec // labels: kind
	DownloadBytes    *prometheus.CounterVec   // labels: kind

	// Run metrics.
	Runs            *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration     prometheus.Histogram
	LastSuccessTime prometheus.Gauge
	SchedulerActive prometheus.Gauge

	registry *prometheus.Registry
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_read_total",
			Help:      "Total GRIB messages read from the source stream.",
		}),
		MessagesClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_classified_total",
			Help:      "Messages matched to a product signature.",
		}, []string{"product"}),
		MessagesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_skipped_total",
			Help:      "Messages that matched no product signature.",
		}),
		RecordsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_extracted_total",
			Help:      "Cell records extracted per product.",
		}, []string{"product"}),
		MissingValues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_values_total",
			Help:      "Records whose value was the missing-value sentinel.",
		}, []string{"product"}),
		OutOfGridPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "out_of_grid_points_total",
			Help:      "Records without a cell id.",
		}, []string{"product"}),
		LoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Loader failures by loader name.",
		}, []string{"loader"}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Open-data downloads by kind and outcome.",
		}, []string{"kind", "outcome"}),
		DownloadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Duration of open-data downloads.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"kind"}),
		DownloadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes downloaded by kind.",
		}, []string{"kind"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed dump runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete download-extract-load run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		LastSuccessTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		SchedulerActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_active",
			Help:      "1 while the scheduler loop is running, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesRead,
		m.MessagesClassified,
		m.MessagesSkipped,
		m.RecordsExtracted,
		m.MissingValues,
		m.OutOfGridPoints,
		m.LoadErrors,
		m.Downloads,
		m.DownloadDuration,
		m.DownloadBytes,
		m.Runs,
		m.RunDuration,
		m.LastSuccessTime,
		m.SchedulerActive,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(m.collectors()...)
	return m
}

// Gatherer returns the registry the metrics were registered with.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m.registry != nil {
		return m.registry
	}
	return prometheus.DefaultGatherer
}

// WriteTextfile writes the current metrics in the text exposition format, for
// the node exporter textfile collector used by one-shot runs.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Gatherer())
}
