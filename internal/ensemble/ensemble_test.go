package ensemble

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapwatch/internal/detection"
)

func lastSegment(s string) string {
	parts := strings.Split(s, ";")
	return strings.ToLower(parts[len(parts)-1])
}

func TestAnalyzeWellSeparated(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	res, err := a.Analyze(detection.PredictionSet{
		{Label: "Vehicle", Confidence: 0.15},
		{Label: "Deer", Confidence: 0.82},
		{Label: "Raccoon", Confidence: 0.02},
	})

	require.NoError(t, err)
	assert.Equal(t, "Deer", res.Top.Label)
	require.NotNil(t, res.Second)
	assert.Equal(t, "Vehicle", res.Second.Label)
	assert.InDelta(t, 0.67, res.ConfidenceGap, 1e-9)
	assert.InDelta(t, 0.82, res.BlendedConfidence, 1e-9)
	assert.True(t, res.WellSeparated)
	assert.False(t, res.Blended)
	assert.False(t, res.LowSeparation)
	assert.Equal(t, "Deer", res.Ranked[0].Label)
}

func TestAnalyzeBlendsSameSpecies(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), lastSegment)

	res, err := a.Analyze(detection.PredictionSet{
		{Label: "Mammalia;Deer", Confidence: 0.6},
		{Label: "deer", Confidence: 0.5},
	})

	require.NoError(t, err)
	assert.True(t, res.Blended)
	assert.False(t, res.LowSeparation)
	// (0.36 + 0.25) / 1.1
	assert.InDelta(t, 0.61/1.1, res.BlendedConfidence, 1e-12)
}

func TestAnalyzeLowSeparation(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	res, err := a.Analyze(detection.PredictionSet{
		{Label: "Fox", Confidence: 0.55},
		{Label: "Coyote", Confidence: 0.45},
	})

	require.NoError(t, err)
	assert.True(t, res.LowSeparation)
	assert.False(t, res.Blended)
	assert.InDelta(t, 0.55, res.BlendedConfidence, 1e-12)
	assert.False(t, res.WellSeparated)
}

func TestAnalyzeGapBetweenTieAndSeparation(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	res, err := a.Analyze(detection.PredictionSet{
		{Label: "Fox", Confidence: 0.8},
		{Label: "Coyote", Confidence: 0.625},
	})

	require.NoError(t, err)
	assert.False(t, res.LowSeparation)
	assert.False(t, res.WellSeparated)
}

func TestAnalyzeSinglePrediction(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	res, err := a.Analyze(detection.PredictionSet{{Label: "Deer", Confidence: 0.9}})

	require.NoError(t, err)
	assert.Nil(t, res.Second)
	assert.InDelta(t, 0, res.ConfidenceGap, 0)
	assert.False(t, res.LowSeparation)
	assert.False(t, res.WellSeparated)
}

func TestAnalyzeRejectsInvalidSets(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	_, err := a.Analyze(nil)
	assert.ErrorIs(t, err, detection.ErrEmptyPredictions)

	_, err = a.Analyze(detection.PredictionSet{{Label: "Deer", Confidence: 2}})
	assert.ErrorIs(t, err, detection.ErrMalformedPrediction)
}

func TestWeightedBlendZero(t *testing.T) {
	assert.InDelta(t, 0, weightedBlend(0, 0), 0)
}
