package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains Prometheus metrics of the ingestion server.
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	UploadSize      prometheus.Histogram

	ClassifierFallbacks prometheus.Counter
	StoreErrors         prometheus.Counter
	registry            *prometheus.Registry
}

// NewHTTPMetrics creates and registers the ingestion server metrics.
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{registry: registry}
	m.RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trapwatch_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	m.RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trapwatch_http_request_duration_seconds",
		Help:    "Time taken to serve HTTP requests",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
	}, []string{"method", "route"})

	m.UploadSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trapwatch_upload_size_bytes",
		Help:    "Size of uploaded camera images",
		Buckets: prometheus.ExponentialBuckets(BucketStart1KB, BucketFactor2, BucketCount15),
	})

	m.ClassifierFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trapwatch_classifier_fallbacks_total",
		Help: "Total number of events evaluated with the placeholder prediction",
	})

	m.StoreErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trapwatch_store_errors_total",
		Help: "Total number of decisions or images that could not be stored",
	})

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}
	return m, nil
}

// RecordRequest records a served request.
func (m *HTTPMetrics) RecordRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveUploadSize records the size of an uploaded image.
func (m *HTTPMetrics) ObserveUploadSize(bytes int) {
	m.UploadSize.Observe(float64(bytes))
}

// RecordClassifierFallback counts an event that used the placeholder prediction.
func (m *HTTPMetrics) RecordClassifierFallback() {
	m.ClassifierFallbacks.Inc()
}

// RecordStoreError counts a failed write of a decision or image.
func (m *HTTPMetrics) RecordStoreError() {
	m.StoreErrors.Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RequestsTotal.Describe(ch)
	m.RequestDuration.Describe(ch)
	m.UploadSize.Describe(ch)
	m.ClassifierFallbacks.Describe(ch)
	m.StoreErrors.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RequestsTotal.Collect(ch)
	m.RequestDuration.Collect(ch)
	m.UploadSize.Collect(ch)
	m.ClassifierFallbacks.Collect(ch)
	m.StoreErrors.Collect(ch)
}
