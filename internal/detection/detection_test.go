package detection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapwatch/internal/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		set     PredictionSet
		wantErr error
	}{
		{"empty", nil, ErrEmptyPredictions},
		{"nan", PredictionSet{{Label: "Deer", Confidence: math.NaN()}}, ErrMalformedPrediction},
		{"negative", PredictionSet{{Label: "Deer", Confidence: -0.1}}, ErrMalformedPrediction},
		{"above one", PredictionSet{{Label: "Deer", Confidence: 0.5}, {Label: "Fox", Confidence: 1.2}}, ErrMalformedPrediction},
		{"valid", PredictionSet{{Label: "Deer", Confidence: 1}, {Label: "Fox", Confidence: 0}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, errors.IsCategory(err, errors.CategoryContract))
		})
	}
}

func TestRankedDoesNotMutate(t *testing.T) {
	set := PredictionSet{
		{Label: "Fox", Confidence: 0.1},
		{Label: "Deer", Confidence: 0.8},
		{Label: "Raccoon", Confidence: 0.3},
	}

	ranked := set.Ranked()

	assert.Equal(t, []string{"Deer", "Raccoon", "Fox"}, []string{ranked[0].Label, ranked[1].Label, ranked[2].Label})
	assert.Equal(t, "Fox", set[0].Label)
}

func TestParsePrediction(t *testing.T) {
	p, err := ParsePrediction("Animalia;Mammalia;Deer:0.82")
	require.NoError(t, err)
	assert.Equal(t, "Animalia;Mammalia;Deer", p.Label)
	assert.InDelta(t, 0.82, p.Confidence, 1e-12)

	for _, bad := range []string{"Deer", ":0.5", "Deer:", "Deer:abc"} {
		_, err := ParsePrediction(bad)
		assert.Error(t, err, bad)
	}
}

func TestClamp01(t *testing.T) {
	assert.InDelta(t, 0.0, Clamp01(-1), 0)
	assert.InDelta(t, 1.0, Clamp01(1.3), 0)
	assert.InDelta(t, 0.4, Clamp01(0.4), 0)
	assert.InDelta(t, 0.0, Clamp01(math.NaN()), 0)
}

func TestQualityTierDowngrade(t *testing.T) {
	assert.Equal(t, QualityMedium, QualityHigh.Downgrade())
	assert.Equal(t, QualityLow, QualityMedium.Downgrade())
	assert.Equal(t, QualityLow, QualityLow.Downgrade())
}

func TestAddReasonDeduplicates(t *testing.T) {
	d := &Decision{}
	d.AddReason(ReasonBurst)
	d.AddReason(ReasonBurst)
	d.AddReason(ReasonDuplicate)
	assert.Equal(t, []string{ReasonBurst, ReasonDuplicate}, d.Reasons)
}
