// Package prometheus exposes pipeline metrics for watch mode, where the
// process stays alive long enough for scraping to matter.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chemroute"

// DefaultDurationBuckets cover per-file processing, which is dominated by
// the recognition model call and can run for minutes.
var DefaultDurationBuckets = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800}

// Metrics holds all pipeline metrics, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	FilesProcessedTotal *prometheus.CounterVec
	FileDuration        prometheus.Histogram
	ReactionsExtracted  prometheus.Counter
	ImagesGenerated     prometheus.Counter
	ImagesFailed        prometheus.Counter
	StageErrorsTotal    *prometheus.CounterVec
	BatchesTotal        *prometheus.CounterVec
	WatchQueueDepth     prometheus.Gauge
}

// NewMetrics registers every metric and returns the aggregate.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())

	m := &Metrics{
		registry: registry,
		FilesProcessedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "PDF files processed, by outcome.",
		}, []string{"status"}),
		FileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "End-to-end processing time per PDF.",
			Buckets:   DefaultDurationBuckets,
		}),
		ReactionsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_extracted_total",
			Help:      "Reactions recognized across all files.",
		}),
		ImagesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_generated_total",
			Help:      "Structure images rendered successfully.",
		}),
		ImagesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_failed_total",
			Help:      "Structure depictions that failed or were rejected.",
		}),
		StageErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Errors recorded per pipeline stage.",
		}, []string{"stage"}),
		BatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batch runs, by outcome.",
		}, []string{"status"}),
		WatchQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watch_queue_depth",
			Help:      "Files waiting to be processed in watch mode.",
		}),
	}

	registry.MustRegister(
		m.FilesProcessedTotal,
		m.FileDuration,
		m.ReactionsExtracted,
		m.ImagesGenerated,
		m.ImagesFailed,
		m.StageErrorsTotal,
		m.BatchesTotal,
		m.WatchQueueDepth,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveFile records one finished file.
func (m *Metrics) ObserveFile(success bool, elapsed time.Duration, reactions, images int) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.FilesProcessedTotal.WithLabelValues(status).Inc()
	m.FileDuration.Observe(elapsed.Seconds())
	m.ReactionsExtracted.Add(float64(reactions))
	m.ImagesGenerated.Add(float64(images))
}
