package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics contains Prometheus metrics of the notification dispatcher.
type NotificationMetrics struct {
	SentTotal     *prometheus.CounterVec
	FailuresTotal *prometheus.CounterVec
	DroppedTotal  *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
	registry      *prometheus.Registry
}

// NewNotificationMetrics creates and registers notification metrics.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{registry: registry}
	m.SentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trapwatch_notifications_sent_total",
		Help: "Total number of notifications delivered",
	}, []string{"provider"})

	m.FailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trapwatch_notification_failures_total",
		Help: "Total number of failed notification deliveries",
	}, []string{"provider"})

	m.DroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trapwatch_notifications_dropped_total",
		Help: "Total number of notifications dropped before delivery",
	}, []string{"reason"}) // reason: queue_full, rate_limited

	m.QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trapwatch_notification_queue_depth",
		Help: "Number of notifications waiting for delivery",
	})

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

// RecordSent records a successful delivery.
func (m *NotificationMetrics) RecordSent(provider string) {
	m.SentTotal.WithLabelValues(provider).Inc()
}

// RecordFailure records a failed delivery.
func (m *NotificationMetrics) RecordFailure(provider string) {
	m.FailuresTotal.WithLabelValues(provider).Inc()
}

// RecordDropped records a notification that was not queued.
func (m *NotificationMetrics) RecordDropped(reason string) {
	m.DroppedTotal.WithLabelValues(reason).Inc()
}

// SetQueueDepth sets the current queue depth.
func (m *NotificationMetrics) SetQueueDepth(n int) {
	m.QueueDepth.Set(float64(n))
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.SentTotal.Describe(ch)
	m.FailuresTotal.Describe(ch)
	m.DroppedTotal.Describe(ch)
	m.QueueDepth.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.SentTotal.Collect(ch)
	m.FailuresTotal.Collect(ch)
	m.DroppedTotal.Collect(ch)
	m.QueueDepth.Collect(ch)
}
