// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by every counter
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// MetricsManager manages Prometheus metrics for DropScrapexter. A nil
// manager is valid and records nothing.
type MetricsManager struct {
	registry *prometheus.Registry

	// Extraction metrics
	extractionsTotal *prometheus.CounterVec
	extractionTime   *prometheus.HistogramVec
	extractionErrors *prometheus.CounterVec

	// Retrieval metrics
	fetchAttempts *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	// Batch metrics
	batchURLs   *prometheus.CounterVec
	batchesSize prometheus.Histogram

	// Storage metrics
	storageOps *prometheus.CounterVec

	// System metrics
	goroutineCount prometheus.Gauge

	namespace string
	subsystem string
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace       string `yaml:"namespace" json:"namespace"`
	Subsystem       string `yaml:"subsystem" json:"subsystem"`
	EnableGoMetrics bool   `yaml:"enable_go_metrics" json:"enable_go_metrics"`
}

// NewMetricsManager creates a new metrics manager with its own registry
func NewMetricsManager(config MetricsConfig) *MetricsManager {
	if config.Namespace == "" {
		config.Namespace = "dropscrapexter"
	}
	if config.Subsystem == "" {
		config.Subsystem = "extractor"
	}

	mm := &MetricsManager{
		registry:  prometheus.NewRegistry(),
		namespace: config.Namespace,
		subsystem: config.Subsystem,
	}

	if config.EnableGoMetrics {
		mm.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	mm.initializeMetrics()
	return mm
}

// initializeMetrics initializes all Prometheus metrics
func (mm *MetricsManager) initializeMetrics() {
	factory := promauto.With(mm.registry)

	mm.extractionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "extractions_total",
			Help:      "Total number of product extractions",
		},
		[]string{"pipeline", "source", "outcome"},
	)

	mm.extractionTime = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent extracting one product, retrieval included",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"pipeline"},
	)

	mm.extractionErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "extraction_errors_total",
			Help:      "Failed extractions by error kind",
		},
		[]string{"pipeline", "kind"},
	)

	mm.fetchAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "fetch_attempts_total",
			Help:      "Attempts against retrieval endpoints",
		},
		[]string{"endpoint", "outcome"},
	)

	mm.fetchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of single retrieval attempts",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"endpoint"},
	)

	mm.batchURLs = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "batch_urls_total",
			Help:      "URLs processed by batch imports",
		},
		[]string{"outcome"},
	)

	mm.batchesSize = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "batch_size",
			Help:      "Number of URLs per batch import",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50},
		},
	)

	mm.storageOps = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "storage_operations_total",
			Help:      "Draft storage operations",
		},
		[]string{"operation", "outcome"},
	)

	mm.goroutineCount = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "goroutines",
			Help:      "Number of goroutines at last scrape of the health endpoint",
		},
	)
}

// RecordExtraction records one finished extraction
func (mm *MetricsManager) RecordExtraction(pipeline, source, outcome string, duration time.Duration) {
	if mm == nil {
		return
	}
	mm.extractionsTotal.WithLabelValues(pipeline, source, outcome).Inc()
	mm.extractionTime.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// RecordExtractionError records the kind of a failed extraction
func (mm *MetricsManager) RecordExtractionError(pipeline, kind string) {
	if mm == nil {
		return
	}
	mm.extractionErrors.WithLabelValues(pipeline, kind).Inc()
}

// RecordFetchAttempt records one attempt against a retrieval endpoint
func (mm *MetricsManager) RecordFetchAttempt(endpoint, outcome string, duration time.Duration) {
	if mm == nil {
		return
	}
	mm.fetchAttempts.WithLabelValues(endpoint, outcome).Inc()
	mm.fetchDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordBatch records the size of a batch import
func (mm *MetricsManager) RecordBatch(size int) {
	if mm == nil {
		return
	}
	mm.batchesSize.Observe(float64(size))
}

// RecordBatchURL records the outcome of one URL in a batch
func (mm *MetricsManager) RecordBatchURL(outcome string) {
	if mm == nil {
		return
	}
	mm.batchURLs.WithLabelValues(outcome).Inc()
}

// RecordStorageOp records a storage operation outcome
func (mm *MetricsManager) RecordStorageOp(operation string, err error) {
	if mm == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	mm.storageOps.WithLabelValues(operation, outcome).Inc()
}

// UpdateGoroutineCount samples the current goroutine count
func (mm *MetricsManager) UpdateGoroutineCount() {
	if mm == nil {
		return
	}
	mm.goroutineCount.Set(float64(runtime.NumGoroutine()))
}

// Registry exposes the underlying registry, mainly for tests
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// MetricsHandler returns an HTTP handler for metrics endpoint
func (mm *MetricsManager) MetricsHandler() http.Handler {
	if mm == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{})
}
