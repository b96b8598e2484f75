package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flood_exposure"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// scenario pipeline.
type Metrics struct {
	ScenariosConsumed prometheus.Counter
	ReportsProduced   prometheus.Counter
	AnalysisErrors    prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Analysis metrics.
	AnalysisDuration     *prometheus.HistogramVec // labels: method={bathtub,hand}
	FloodedAreaKM2       prometheus.Histogram
	PolygonCache         *prometheus.CounterVec // labels: result={hit,miss}
	PolygonBuildDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.ScenariosConsumed,
		m.ReportsProduced,
		m.AnalysisErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.AnalysisDuration,
		m.FloodedAreaKM2,
		m.PolygonCache,
		m.PolygonBuildDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		ScenariosConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_consumed_total",
			Help:      help("Total scenario requests read from the source topic."),
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_produced_total",
			Help:      help("Total exposure reports written to the sink topic."),
		}),
		AnalysisErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_errors_total",
			Help:      help("Total scenarios that failed to parse or analyze."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 when the pipeline is active, 0 when shut down."),
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      help("Number of scenario messages per batch extracted from Kafka."),
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      help("Duration of a complete batch extract-analyze-load cycle."),
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      help("Duration of a single scenario analysis by flood method."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
		FloodedAreaKM2: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flooded_area_km2",
			Help:      help("Flooded area per analyzed scenario in square kilometres."),
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		PolygonCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polygon_cache_total",
			Help:      help("Flood polygon cache lookups by result."),
		}, []string{"result"}),
		PolygonBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "polygon_build_duration_seconds",
			Help:      help("Duration of flood mask vectorization on cache misses."),
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}
