package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for capture and compilation.
type Metrics struct {
	// Capture metrics.
	ItemsScanned   prometheus.Counter
	SourceFetches  *prometheus.CounterVec // labels: outcome={success,error}
	SnapshotsSaved prometheus.Counter
	CaptureRunning prometheus.Gauge

	// Corpus metrics.
	SnapshotsLoaded     prometheus.Counter
	SnapshotLoadFaults  prometheus.Counter
	SnapshotsPublished  *prometheus.CounterVec // labels: outcome={success,error}
	CompileDuration     prometheus.Histogram
	FramesCompiled      prometheus.Gauge
	LastCompileUnixTime prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: outcome={resolved,not_found,failed}
	GeocodeCache       *prometheus.CounterVec   // labels: result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider={nominatim,mapbox}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.ItemsScanned,
		m.SourceFetches,
		m.SnapshotsSaved,
		m.CaptureRunning,
		m.SnapshotsLoaded,
		m.SnapshotLoadFaults,
		m.SnapshotsPublished,
		m.CompileDuration,
		m.FramesCompiled,
		m.LastCompileUnixTime,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ItemsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mention_heatmap",
			Name:      "items_scanned_total",
			Help:      "Total ranked items scanned for place mentions.",
		}),
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mention_heatmap",
			Name:      "source_fetches_total",
			Help:      "Ranked-item source fetches by outcome.",
		}, []string{"outcome"}),
		SnapshotsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mention_heatmap",
			Name:      "snapshots_saved_total",
			Help:      "Total snapshots persisted.",
		}),
		CaptureRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mention_heatmap",
			Name:      "pipeline_running",
			Help:      "1 while the periodic runner is active, 0 otherwise.",
		}),
		SnapshotsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mention_heatmap",
			Name:      "snapshots_loaded_total",
			Help:      "Total snapshots loaded from the corpus.",
		}),
		SnapshotLoadFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mention_heatmap",
			Name:      "snapshot_load_faults_total",
			Help:      "Corpus entries skipped because they could not be parsed.",
		}),
		SnapshotsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mention_heatmap",
			Name:      "snapshots_published_total",
			Help:      "Snapshots published to Kafka by outcome.",
		}, []string{"outcome"}),
		CompileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mention_heatmap",
			Name:      "compile_duration_seconds",
			Help:      "Duration of a full corpus compilation pass.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		FramesCompiled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mention_heatmap",
			Name:      "frames_compiled",
			Help:      "Number of frames in the most recently compiled series.",
		}),
		LastCompileUnixTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mention_heatmap",
			Name:      "last_compile_timestamp_seconds",
			Help:      "Unix time of the last successful compilation.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mention_heatmap",
			Name:      "geocode_requests_total",
			Help:      "Geocoding lookups by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mention_heatmap",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mention_heatmap",
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
	}
}
