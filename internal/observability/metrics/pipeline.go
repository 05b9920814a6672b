package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/trapwatch/internal/detection"
)

// PipelineMetrics contains Prometheus metrics of the decision engine.
type PipelineMetrics struct {
	DecisionsTotal     *prometheus.CounterVec
	ReasonsTotal       *prometheus.CounterVec
	DegradedTotal      *prometheus.CounterVec
	Confidence         prometheus.Histogram
	ImageQuality       prometheus.Histogram
	EvaluationDuration prometheus.Histogram
	registry           *prometheus.Registry
}

// NewPipelineMetrics creates and registers the decision engine metrics.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trapwatch_decisions_total",
		Help: "Total number of detection decisions",
	}, []string{"species", "quality", "saved", "notified"})

	m.ReasonsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trapwatch_decision_reasons_total",
		Help: "Total number of penalties and rejections applied to decisions",
	}, []string{"reason"})

	m.DegradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trapwatch_degraded_inputs_total",
		Help: "Total number of evaluations that continued with a neutral fallback",
	}, []string{"reason"})

	m.Confidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trapwatch_decision_confidence",
		Help:    "Final confidence of detection decisions",
		Buckets: confidenceBuckets,
	})

	m.ImageQuality = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trapwatch_image_quality_score",
		Help:    "Composite image quality score of evaluated images",
		Buckets: confidenceBuckets,
	})

	m.EvaluationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trapwatch_evaluation_duration_seconds",
		Help:    "Time taken to evaluate one event",
		Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount15),
	})
}

// RecordDecision records one decision and the time it took.
func (m *PipelineMetrics) RecordDecision(d *detection.Decision, elapsed time.Duration) {
	if d == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(d.Species, string(d.Quality), strconv.FormatBool(d.ShouldSave), strconv.FormatBool(d.ShouldNotify)).Inc()
	for _, r := range d.Reasons {
		m.ReasonsTotal.WithLabelValues(r).Inc()
	}
	m.EvaluationDuration.Observe(elapsed.Seconds())
	if d.IsFiltered() {
		return
	}
	m.Confidence.Observe(d.Confidence)
	if d.ImageQuality.Analyzed {
		m.ImageQuality.Observe(d.ImageQuality.QualityScore)
	}
}

// RecordDegraded records an input that fell back to a neutral value.
func (m *PipelineMetrics) RecordDegraded(reason string) {
	m.DegradedTotal.WithLabelValues(reason).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DecisionsTotal.Describe(ch)
	m.ReasonsTotal.Describe(ch)
	m.DegradedTotal.Describe(ch)
	m.Confidence.Describe(ch)
	m.ImageQuality.Describe(ch)
	m.EvaluationDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DecisionsTotal.Collect(ch)
	m.ReasonsTotal.Collect(ch)
	m.DegradedTotal.Collect(ch)
	m.Confidence.Collect(ch)
	m.ImageQuality.Collect(ch)
	m.EvaluationDuration.Collect(ch)
}
