// Package dedup flags uploads that repeat a very recent detection from the same camera.
package dedup

import (
	"context"
	"image"
	"time"

	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/logger"
)

// Config holds duplicate and burst detection parameters.
type Config struct {
	Window              time.Duration // Look-back window before the event timestamp
	SimilarityThreshold float64       // Similarity at or above which an image is a duplicate
	BurstCount          int           // Same-species detections in the window that make a burst
}

// DefaultConfig returns the standard parameters.
func DefaultConfig() Config {
	return Config{
		Window:              2 * time.Minute,
		SimilarityThreshold: 0.95,
		BurstCount:          3,
	}
}

// ImageLoader loads a stored image so that candidates without a persisted
// fingerprint can still be compared.
type ImageLoader interface {
	LoadImage(ctx context.Context, ref string) (image.Image, error)
}

// Detector compares a new image with recent history. It holds no mutable
// state and is safe for concurrent use.
type Detector struct {
	cfg       Config
	fp        Fingerprinter
	normalize func(string) string
	loader    ImageLoader
	log       logger.Logger
}

// Option customizes a Detector.
type Option func(*Detector)

// WithImageLoader enables fingerprinting of candidates stored without one.
func WithImageLoader(l ImageLoader) Option {
	return func(d *Detector) { d.loader = l }
}

// WithLogger sets the logger used for skipped candidates.
func WithLogger(l logger.Logger) Option {
	return func(d *Detector) { d.log = l }
}

// NewDetector creates a detector. normalize canonicalizes history species
// before the burst comparison; nil compares labels verbatim.
func NewDetector(cfg Config, fp Fingerprinter, normalize func(string) string, opts ...Option) *Detector {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	if cfg.BurstCount <= 0 {
		cfg.BurstCount = def.BurstCount
	}
	if fp == nil {
		fp = PHash{}
	}
	if normalize == nil {
		normalize = func(s string) string { return s }
	}
	d := &Detector{cfg: cfg, fp: fp, normalize: normalize, log: logger.NewDiscardLogger()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Window returns the configured look-back window.
func (d *Detector) Window() time.Duration {
	return d.cfg.Window
}

// Fingerprint computes the fingerprint of img, or "" when img is nil or cannot be hashed.
func (d *Detector) Fingerprint(img image.Image) string {
	if img == nil {
		return ""
	}
	s, err := d.fp.Fingerprint(img)
	if err != nil {
		d.log.Warn("Fingerprint failed", logger.Error(err))
		return ""
	}
	return s
}

// Check compares fingerprint with every record of history inside the window
// (ts-Window, ts]. species must already be normalized. An empty fingerprint
// still counts candidates but never matches.
func (d *Detector) Check(ctx context.Context, fingerprint, species string, ts time.Time, history []detection.HistoryRecord) detection.DuplicateCheckResult {
	var res detection.DuplicateCheckResult
	matched := false
	since := ts.Add(-d.cfg.Window)

	for i := range history {
		rec := &history[i]
		if !rec.Timestamp.After(since) || rec.Timestamp.After(ts) {
			continue
		}
		res.RecentCount++
		if species != "" && d.normalize(rec.Species) == species {
			res.SameSpeciesCount++
		}
		if fingerprint == "" {
			continue
		}

		if sim, ok := d.similarity(ctx, fingerprint, rec); ok && (!matched || sim > res.Similarity) {
			matched = true
			res.Similarity = sim
			res.MatchedRef = rec.ImageRef
		}
	}

	res.IsDuplicate = matched && res.Similarity >= d.cfg.SimilarityThreshold
	res.IsBurst = res.SameSpeciesCount >= d.cfg.BurstCount
	return res
}

func (d *Detector) similarity(ctx context.Context, fingerprint string, rec *detection.HistoryRecord) (float64, bool) {
	candidate := rec.Fingerprint
	if candidate == "" && d.loader != nil && rec.ImageRef != "" {
		img, err := d.loader.LoadImage(ctx, rec.ImageRef)
		if err != nil {
			d.log.Debug("Skipping candidate without image",
				logger.String("image_ref", rec.ImageRef),
				logger.Error(err))
			return 0, false
		}
		candidate = d.Fingerprint(img)
	}
	if candidate == "" {
		return 0, false
	}

	sim, err := d.fp.Similarity(fingerprint, candidate)
	if err != nil {
		d.log.Debug("Skipping candidate with unreadable fingerprint",
			logger.String("record_id", rec.ID),
			logger.Error(err))
		return 0, false
	}
	return detection.Clamp01(sim), true
}
