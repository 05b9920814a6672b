// Package ensemble analyzes the rank gap between the top classifier predictions.
package ensemble

import (
	"github.com/tphakala/trapwatch/internal/detection"
)

// Config holds the rank-gap parameters.
type Config struct {
	NearTieGap          float64 // Gap below which the top two predictions are near-tied
	WellSeparatedGap    float64 // Gap at or above which the top prediction is well separated
	WellSeparatedMinTop float64 // Minimum top confidence for the well separated tag
}

// DefaultConfig returns the standard parameters.
func DefaultConfig() Config {
	return Config{
		NearTieGap:          0.15,
		WellSeparatedGap:    0.2,
		WellSeparatedMinTop: 0.7,
	}
}

// Result is the outcome of the analysis.
type Result struct {
	Top               detection.RawPrediction
	Second            *detection.RawPrediction // Nil with a single prediction
	ConfidenceGap     float64
	BlendedConfidence float64 // Base confidence for the decision
	Blended           bool    // Near-tied predictions of the same species were blended
	LowSeparation     bool    // Near-tied predictions of different species
	WellSeparated     bool
	Ranked            detection.PredictionSet
}

// Analyzer performs rank-gap analysis. It is immutable and safe for concurrent use.
type Analyzer struct {
	cfg       Config
	normalize func(string) string
}

// NewAnalyzer creates an analyzer. normalize decides whether two labels denote
// the same species; nil compares labels verbatim.
func NewAnalyzer(cfg Config, normalize func(string) string) *Analyzer {
	def := DefaultConfig()
	if cfg.NearTieGap <= 0 {
		cfg.NearTieGap = def.NearTieGap
	}
	if cfg.WellSeparatedGap <= 0 {
		cfg.WellSeparatedGap = def.WellSeparatedGap
	}
	if cfg.WellSeparatedMinTop <= 0 {
		cfg.WellSeparatedMinTop = def.WellSeparatedMinTop
	}
	if normalize == nil {
		normalize = func(s string) string { return s }
	}
	return &Analyzer{cfg: cfg, normalize: normalize}
}

// Analyze validates and ranks predictions. An invalid set is a contract
// violation and returns the validation error.
func (a *Analyzer) Analyze(predictions detection.PredictionSet) (Result, error) {
	if err := predictions.Validate(); err != nil {
		return Result{}, err
	}

	ranked := predictions.Ranked()
	res := Result{
		Top:               ranked[0],
		BlendedConfidence: ranked[0].Confidence,
		Ranked:            ranked,
	}
	if len(ranked) > 1 {
		second := ranked[1]
		res.Second = &second
		res.ConfidenceGap = res.Top.Confidence - second.Confidence
	}

	if res.Second != nil && res.ConfidenceGap < a.cfg.NearTieGap {
		if a.normalize(res.Top.Label) == a.normalize(res.Second.Label) {
			res.BlendedConfidence = weightedBlend(res.Top.Confidence, res.Second.Confidence)
			res.Blended = true
		} else {
			res.LowSeparation = true
		}
	}

	res.WellSeparated = res.ConfidenceGap >= a.cfg.WellSeparatedGap && res.Top.Confidence >= a.cfg.WellSeparatedMinTop
	res.BlendedConfidence = detection.Clamp01(res.BlendedConfidence)
	return res, nil
}

// weightedBlend averages confidences weighted by themselves: Σc²/Σc.
func weightedBlend(cs ...float64) float64 {
	var sum, sq float64
	for _, c := range cs {
		sum += c
		sq += c * c
	}
	if sum == 0 {
		return 0
	}
	return sq / sum
}
