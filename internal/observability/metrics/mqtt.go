package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTT failure stages.
const (
	MQTTStageConnect        = "connect"
	MQTTStageNotConnected   = "not_connected"
	MQTTStagePublish        = "publish"
	MQTTStageTimeout        = "timeout"
	MQTTStageConnectionLost = "connection_lost"
)

// MQTTMetrics tracks the detection publisher. It implements mqtt.Metrics.
type MQTTMetrics struct {
	Connected       prometheus.Gauge
	Reconnects      prometheus.Counter
	PublishedTotal  *prometheus.CounterVec
	FailuresTotal   *prometheus.CounterVec
	PayloadBytes    prometheus.Histogram
	PublishDuration prometheus.Histogram

	collectors []prometheus.Collector
}

// NewMQTTMetrics creates and registers the MQTT publisher metrics.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trapwatch_mqtt_connected",
			Help: "1 while the detection publisher is connected to the broker",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trapwatch_mqtt_reconnects_total",
			Help: "Reconnection attempts after the broker connection was lost",
		}),
		PublishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trapwatch_mqtt_published_total",
			Help: "Detections acknowledged by the broker",
		}, []string{"topic"}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trapwatch_mqtt_failures_total",
			Help: "Broker connection and publish failures",
		}, []string{"stage"}),
		PayloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trapwatch_mqtt_payload_bytes",
			Help:    "Size of published detection payloads",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount12),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trapwatch_mqtt_publish_duration_seconds",
			Help:    "Time until the broker acknowledged a detection",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
	}
	m.collectors = []prometheus.Collector{
		m.Connected, m.Reconnects, m.PublishedTotal, m.FailuresTotal, m.PayloadBytes, m.PublishDuration,
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

// SetConnected records the broker connection state.
func (m *MQTTMetrics) SetConnected(connected bool) {
	if connected {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}

// RecordReconnect counts one reconnection attempt.
func (m *MQTTMetrics) RecordReconnect() {
	m.Reconnects.Inc()
}

// RecordFailure counts a failure at one of the MQTTStage values.
func (m *MQTTMetrics) RecordFailure(stage string) {
	m.FailuresTotal.WithLabelValues(stage).Inc()
}

// RecordPublished records an acknowledged publish.
func (m *MQTTMetrics) RecordPublished(topic string, payloadBytes int, elapsed time.Duration) {
	m.PublishedTotal.WithLabelValues(topic).Inc()
	m.PayloadBytes.Observe(float64(payloadBytes))
	m.PublishDuration.Observe(elapsed.Seconds())
}

// Describe implements prometheus.Collector.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}
