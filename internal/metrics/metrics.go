package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the API.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ScansTotal          *prometheus.CounterVec
	ScanDuration        prometheus.Histogram
	DetectedItemsTotal  *prometheus.CounterVec
	ScanQueueDepth      prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers the metrics on a fresh registry so several instances can
// coexist (tests build one per app).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		ScansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splay_scans_total",
				Help: "Scans by final status.",
			},
			[]string{"status"}, // done, failed
		),
		ScanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "splay_scan_processing_seconds",
				Help:    "Time from dequeue to a terminal scan status.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		DetectedItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splay_detected_items_total",
				Help: "Detected furniture items by category.",
			},
			[]string{"category"},
		),
		ScanQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "splay_scan_queue_depth",
				Help: "Scans waiting for a worker.",
			},
		),
		gatherer: reg,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveScan(status string, seconds float64) {
	m.ScansTotal.WithLabelValues(status).Inc()
	m.ScanDuration.Observe(seconds)
}

func (m *Metrics) IncDetectedItem(category string) {
	m.DetectedItemsTotal.WithLabelValues(category).Inc()
}
