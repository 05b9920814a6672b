package pipeline

import (
	"github.com/tphakala/trapwatch/internal/dedup"
	"github.com/tphakala/trapwatch/internal/ensemble"
	"github.com/tphakala/trapwatch/internal/imagequality"
	"github.com/tphakala/trapwatch/internal/temporal"
)

// Config holds every tunable of the decision engine.
type Config struct {
	Quality   imagequality.Config
	Duplicate dedup.Config
	Ensemble  ensemble.Config
	Temporal  temporal.Config

	PoorQualityPenalty   float64 // Confidence factor for images that are not of good quality
	MinQualityScore      float64 // Images scoring below this are never saved
	DuplicatePenalty     float64 // Confidence factor for confirmed duplicates
	BurstPenalty         float64 // Confidence factor for bursts that are not strict duplicates
	UnknownMinConfidence float64 // Unknown species below this are never saved
	NotifyThreshold      float64 // Saved decisions at or above this notify
	HighTierConfidence   float64
	HighTierGap          float64
	MediumTierConfidence float64
}

// DefaultConfig returns the standard engine parameters.
func DefaultConfig() Config {
	return Config{
		Quality:              imagequality.DefaultConfig(),
		Duplicate:            dedup.DefaultConfig(),
		Ensemble:             ensemble.DefaultConfig(),
		Temporal:             temporal.DefaultConfig(),
		PoorQualityPenalty:   0.85,
		MinQualityScore:      0.3,
		DuplicatePenalty:     0.5,
		BurstPenalty:         0.9,
		UnknownMinConfidence: 0.3,
		NotifyThreshold:      0.7,
		HighTierConfidence:   0.7,
		HighTierGap:          0.2,
		MediumTierConfidence: 0.5,
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	setIfZero := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	setIfZero(&c.PoorQualityPenalty, d.PoorQualityPenalty)
	setIfZero(&c.MinQualityScore, d.MinQualityScore)
	setIfZero(&c.DuplicatePenalty, d.DuplicatePenalty)
	setIfZero(&c.BurstPenalty, d.BurstPenalty)
	setIfZero(&c.UnknownMinConfidence, d.UnknownMinConfidence)
	setIfZero(&c.NotifyThreshold, d.NotifyThreshold)
	setIfZero(&c.HighTierConfidence, d.HighTierConfidence)
	setIfZero(&c.HighTierGap, d.HighTierGap)
	setIfZero(&c.MediumTierConfidence, d.MediumTierConfidence)
	return c
}
