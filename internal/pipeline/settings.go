package pipeline

import (
	"github.com/tphakala/trapwatch/internal/activity"
	"github.com/tphakala/trapwatch/internal/conf"
	"github.com/tphakala/trapwatch/internal/dedup"
	"github.com/tphakala/trapwatch/internal/ensemble"
	"github.com/tphakala/trapwatch/internal/errors"
	"github.com/tphakala/trapwatch/internal/imagequality"
	"github.com/tphakala/trapwatch/internal/species"
	"github.com/tphakala/trapwatch/internal/temporal"
)

// ConfigFromSettings maps the pipeline section of the settings to an engine Config.
func ConfigFromSettings(p *conf.PipelineSettings) Config {
	return Config{
		Quality: imagequality.Config{
			BlurThreshold:        p.Quality.BlurThreshold,
			DarkThreshold:        p.Quality.DarkThreshold,
			BrightThreshold:      p.Quality.BrightThreshold,
			LowContrastThreshold: p.Quality.LowContrastThreshold,
			GoodQualityScore:     p.Quality.GoodScore,
			MaxDimension:         p.Quality.MaxDimension,
			MaxPixels:            p.Quality.MaxPixels,
		},
		Duplicate: dedup.Config{
			Window:              p.Duplicate.Window,
			SimilarityThreshold: p.Duplicate.Similarity,
			BurstCount:          p.Duplicate.BurstCount,
		},
		Ensemble: ensemble.Config{
			NearTieGap:          p.Ensemble.NearTieGap,
			WellSeparatedGap:    p.Ensemble.WellSeparatedGap,
			WellSeparatedMinTop: p.Ensemble.WellSeparatedMinTop,
		},
		Temporal: temporal.Config{
			Window:         p.Temporal.Window,
			MinRecentCount: p.Temporal.MinRecent,
			MaxBoost:       p.Temporal.MaxBoost,
		},
		PoorQualityPenalty:   p.Quality.Penalty,
		MinQualityScore:      p.Quality.MinScore,
		DuplicatePenalty:     p.Duplicate.Penalty,
		BurstPenalty:         p.Duplicate.BurstPenalty,
		UnknownMinConfidence: p.Species.UnknownMinConfidence,
		NotifyThreshold:      p.Tiers.NotifyThreshold,
		HighTierConfidence:   p.Tiers.HighConfidence,
		HighTierGap:          p.Tiers.HighGap,
		MediumTierConfidence: p.Tiers.MediumConfidence,
	}
}

// NewFromSettings builds an engine from loaded settings.
func NewFromSettings(s *conf.Settings, history HistoryLookup, opts ...Option) (*Engine, error) {
	p := &s.Pipeline

	var classifier activity.Classifier = activity.HourClassifier{}
	if p.Activity.Mode == conf.ActivityModeSun {
		classifier = activity.NewSunClassifier(p.Activity.Latitude, p.Activity.Longitude)
	}

	model, err := activity.BuildModel(p.Activity.Profiles, p.Activity.Hourly, classifier)
	if err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryConfiguration).
			Context("operation", "build_activity_model").
			Build()
	}

	normalizer := species.NewNormalizer(p.Species.Aliases, p.Species.Filters)
	thresholds := species.NewThresholds(p.Species.DefaultThreshold, p.Species.Thresholds)

	return NewEngine(ConfigFromSettings(p), normalizer, thresholds, model, history, opts...), nil
}
