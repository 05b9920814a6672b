// Package pipeline turns one camera-trap event into a detection decision.
//
// The Engine combines the species normalizer, image quality analysis,
// duplicate and burst detection, rank-gap analysis, the temporal context of
// the camera and the species activity prior. It never writes to storage; the
// caller persists or discards the returned decision.
package pipeline

import (
	"context"
	"image"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/trapwatch/internal/activity"
	"github.com/tphakala/trapwatch/internal/dedup"
	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/ensemble"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/imagequality"
	"github.com/tphakala/trapwatch/internal/logger"
	"github.com/tphakala/trapwatch/internal/species"
	"github.com/tphakala/trapwatch/internal/temporal"
)

// HistoryLookup returns detections stored for a camera at or after since.
type HistoryLookup interface {
	RecentDetections(ctx context.Context, cameraID string, since time.Time) ([]detection.HistoryRecord, error)
}

// HistoryLookupFunc adapts a function to HistoryLookup.
type HistoryLookupFunc func(ctx context.Context, cameraID string, since time.Time) ([]detection.HistoryRecord, error)

// RecentDetections implements HistoryLookup.
func (f HistoryLookupFunc) RecentDetections(ctx context.Context, cameraID string, since time.Time) ([]detection.HistoryRecord, error) {
	return f(ctx, cameraID, since)
}

// ImageAnalyzer scores an encoded image. On decode failure it returns neutral
// metrics, a nil image and the decode error.
type ImageAnalyzer interface {
	AnalyzeBytes(data []byte) (detection.ImageQualityMetrics, image.Image, error)
}

// Recorder receives pipeline observations, typically Prometheus collectors.
type Recorder interface {
	RecordDecision(d *detection.Decision, elapsed time.Duration)
	RecordDegraded(reason string)
}

// Event is one ingestion event.
type Event struct {
	CameraID    string
	Timestamp   time.Time // Capture time; its location defines local time
	Image       []byte
	Predictions detection.PredictionSet
}

// Engine evaluates events. It holds only immutable configuration and is safe
// for concurrent use.
type Engine struct {
	cfg        Config
	normalizer *species.Normalizer
	thresholds *species.Thresholds
	activity   *activity.Model
	history    HistoryLookup
	analyzer   ImageAnalyzer
	dedup      *dedup.Detector
	ensemble   *ensemble.Analyzer
	temporal   *temporal.Tracker
	recorder   Recorder
	log        logger.Logger

	fingerprinter dedup.Fingerprinter
	imageLoader   dedup.ImageLoader
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithImageAnalyzer replaces the default image quality analyzer.
func WithImageAnalyzer(a ImageAnalyzer) Option {
	return func(e *Engine) { e.analyzer = a }
}

// WithFingerprinter replaces the perceptual hash used for duplicate detection.
func WithFingerprinter(f dedup.Fingerprinter) Option {
	return func(e *Engine) { e.fingerprinter = f }
}

// WithImageLoader lets the duplicate detector fingerprint stored images that
// have no persisted fingerprint.
func WithImageLoader(l dedup.ImageLoader) Option {
	return func(e *Engine) { e.imageLoader = l }
}

// NewEngine creates an engine. Nil tables select empty defaults: default
// aliases and filters, the default threshold for every species and a
// multiplier of 1 for every species.
func NewEngine(cfg Config, normalizer *species.Normalizer, thresholds *species.Thresholds, model *activity.Model, history HistoryLookup, opts ...Option) *Engine {
	if normalizer == nil {
		normalizer = species.NewNormalizer(nil, nil)
	}
	if thresholds == nil {
		thresholds = species.NewThresholds(species.DefaultThreshold, nil)
	}
	if model == nil {
		model = activity.NewModel(nil, nil)
	}

	e := &Engine{
		cfg:           cfg.withDefaults(),
		normalizer:    normalizer,
		thresholds:    thresholds,
		activity:      model,
		history:       history,
		log:           GetLogger(),
		fingerprinter: dedup.PHash{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.analyzer == nil {
		e.analyzer = imagequality.NewAnalyzer(e.cfg.Quality)
	}

	dedupOpts := []dedup.Option{dedup.WithLogger(e.log.Module("dedup"))}
	if e.imageLoader != nil {
		dedupOpts = append(dedupOpts, dedup.WithImageLoader(e.imageLoader))
	}
	e.dedup = dedup.NewDetector(e.cfg.Duplicate, e.fingerprinter, normalizer.Normalize, dedupOpts...)
	e.ensemble = ensemble.NewAnalyzer(e.cfg.Ensemble, normalizer.Normalize)
	e.temporal = temporal.NewTracker(e.cfg.Temporal, normalizer.Normalize)
	return e
}

// Normalizer returns the species normalizer used by the engine.
func (e *Engine) Normalizer() *species.Normalizer {
	return e.normalizer
}

// Evaluate produces the decision for ev. The only error conditions are an
// empty or malformed prediction set, which are contract violations, and a
// context that is already done. Degraded inputs such as an undecodable image
// or failing history lookups fall back to neutral values.
func (e *Engine) Evaluate(ctx context.Context, ev Event) (*detection.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	rank, err := e.ensemble.Analyze(ev.Predictions)
	if err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Context("camera_id", ev.CameraID).
			Build()
	}

	d := &detection.Decision{
		Species:            e.normalizer.Normalize(rank.Top.Label),
		AllPredictions:     rank.Ranked,
		ConfidenceGap:      rank.ConfidenceGap,
		RawConfidence:      rank.Top.Confidence,
		Confidence:         detection.Clamp01(rank.Top.Confidence),
		Quality:            detection.QualityLow,
		ImageQuality:       detection.NeutralQuality(),
		TemporalContext:    detection.TemporalContext{SpeciesCounts: map[string]int{}},
		ActivityMultiplier: 1,
		TemporalBoost:      1,
		Blended:            rank.Blended,
		LowSeparation:      rank.LowSeparation,
		WellSeparated:      rank.WellSeparated,
	}

	if d.Species == detection.FilteredLabel {
		d.Threshold = e.thresholds.Default()
		d.AddReason(detection.ReasonFiltered)
		e.finish(d, ev, start)
		return d, nil
	}

	history := e.gather(ctx, ev, d)

	confidence := rank.BlendedConfidence
	forceNoSave := false

	if !d.ImageQuality.IsGoodQuality {
		confidence *= e.cfg.PoorQualityPenalty
		d.AddReason(detection.ReasonPoorQuality)
	}
	if d.ImageQuality.QualityScore < e.cfg.MinQualityScore {
		forceNoSave = true
		d.AddReason(detection.ReasonVeryLowQuality)
	}
	confidence = detection.Clamp01(confidence)

	d.DuplicateCheck = e.dedup.Check(ctx, d.Fingerprint, d.Species, ev.Timestamp, history)
	switch {
	case d.DuplicateCheck.IsDuplicate:
		confidence *= e.cfg.DuplicatePenalty
		forceNoSave = true
		d.AddReason(detection.ReasonDuplicate)
	case d.DuplicateCheck.IsBurst:
		confidence *= e.cfg.BurstPenalty
		d.AddReason(detection.ReasonBurst)
	}
	confidence = detection.Clamp01(confidence)

	d.TemporalContext = e.temporal.Context(ev.Timestamp, history)
	d.TemporalBoost = e.temporal.Boost(d.Species, d.TemporalContext)
	confidence = detection.Clamp01(confidence * d.TemporalBoost)

	d.ActivityMultiplier = e.activity.Multiplier(d.Species, ev.Timestamp)
	confidence = detection.Clamp01(confidence * d.ActivityMultiplier)

	d.Confidence = confidence
	d.Threshold = e.thresholds.Get(d.Species)
	d.ShouldSave = !forceNoSave && confidence >= d.Threshold
	if confidence < d.Threshold {
		d.AddReason(detection.ReasonBelowThreshold)
	}
	if d.Species == detection.UnknownLabel && confidence < e.cfg.UnknownMinConfidence {
		d.ShouldSave = false
		d.AddReason(detection.ReasonUnknownLow)
	}

	d.Quality = e.tier(confidence, d.ConfidenceGap)
	if d.LowSeparation {
		d.Quality = d.Quality.Downgrade()
		d.AddReason(detection.ReasonLowSeparation)
	}
	d.ShouldNotify = d.ShouldSave && confidence >= e.cfg.NotifyThreshold

	e.finish(d, ev, start)
	return d, nil
}

// gather runs image analysis and the history lookup concurrently and stores
// the image results on d. Failures of either are recorded as degraded input.
func (e *Engine) gather(ctx context.Context, ev Event, d *detection.Decision) []detection.HistoryRecord {
	var (
		metrics     detection.ImageQualityMetrics
		fingerprint string
		history     []detection.HistoryRecord
		decodeErr   error
		historyErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var img image.Image
		metrics, img, decodeErr = e.analyzer.AnalyzeBytes(ev.Image)
		fingerprint = e.dedup.Fingerprint(img)
		return nil
	})
	g.Go(func() error {
		history, historyErr = e.lookup(gctx, ev)
		return nil
	})
	// neither goroutine returns an error
	_ = g.Wait()

	d.ImageQuality = metrics
	d.Fingerprint = fingerprint
	if decodeErr != nil {
		e.log.Warn("Image analysis degraded to neutral metrics",
			logger.String("camera_id", ev.CameraID),
			logger.Error(decodeErr))
		d.AddReason(detection.ReasonUndecodable)
		e.degraded(detection.ReasonUndecodable)
	}
	if historyErr != nil {
		e.log.Warn("History lookup failed, continuing without history",
			logger.String("camera_id", ev.CameraID),
			logger.Error(historyErr))
		d.AddReason(detection.ReasonNoHistory)
		e.degraded(detection.ReasonNoHistory)
	}
	return history
}

func (e *Engine) lookup(ctx context.Context, ev Event) ([]detection.HistoryRecord, error) {
	if e.history == nil {
		return nil, nil
	}
	window := max(e.dedup.Window(), e.temporal.Window())
	records, err := e.history.RecentDetections(ctx, ev.CameraID, ev.Timestamp.Add(-window))
	if err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryHistory).
			Context("camera_id", ev.CameraID).
			Build()
	}
	return records, nil
}

func (e *Engine) tier(confidence, gap float64) detection.QualityTier {
	switch {
	case confidence >= e.cfg.HighTierConfidence && gap >= e.cfg.HighTierGap:
		return detection.QualityHigh
	case confidence >= e.cfg.MediumTierConfidence:
		return detection.QualityMedium
	default:
		return detection.QualityLow
	}
}

func (e *Engine) degraded(reason string) {
	if e.recorder != nil {
		e.recorder.RecordDegraded(reason)
	}
}

func (e *Engine) finish(d *detection.Decision, ev Event, start time.Time) {
	elapsed := time.Since(start)
	if e.recorder != nil {
		e.recorder.RecordDecision(d, elapsed)
	}
	e.log.Debug("Evaluated event",
		logger.String("camera_id", ev.CameraID),
		logger.String("species", d.Species),
		logger.Float64("confidence", d.Confidence),
		logger.String("quality", string(d.Quality)),
		logger.Bool("should_save", d.ShouldSave),
		logger.Duration("elapsed", elapsed))
}
