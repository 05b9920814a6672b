package classifier

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapwatch/internal/detection"
	"github.com/tphakala/trapwatch/internal/logger"
)

func TestFallbackPassesThroughValidPredictions(t *testing.T) {
	want := detection.PredictionSet{{Label: "Deer", Confidence: 0.9}}
	c := WithFallback(Func(func(context.Context, []byte) (detection.PredictionSet, error) {
		return want, nil
	}), WithLogger(logger.NewDiscardLogger()))

	got, err := c.Classify(t.Context(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFallbackSubstitutesPlaceholder(t *testing.T) {
	tests := []struct {
		name string
		next Classifier
	}{
		{"unavailable", Unavailable{}},
		{"nil", nil},
		{"error", Func(func(context.Context, []byte) (detection.PredictionSet, error) {
			return nil, fmt.Errorf("model crashed")
		})},
		{"empty", Func(func(context.Context, []byte) (detection.PredictionSet, error) {
			return detection.PredictionSet{}, nil
		})},
		{"malformed", Func(func(context.Context, []byte) (detection.PredictionSet, error) {
			return detection.PredictionSet{{Label: "Deer", Confidence: 3}}, nil
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var causes []error
			c := WithFallback(tt.next,
				WithLogger(logger.NewDiscardLogger()),
				WithFallbackHook(func(err error) { causes = append(causes, err) }))

			got, err := c.Classify(t.Context(), nil)
			require.NoError(t, err)
			assert.Equal(t, Placeholder(), got)
			assert.Len(t, causes, 1)
		})
	}
}

func TestFallbackOnTimeout(t *testing.T) {
	slow := Func(func(ctx context.Context, _ []byte) (detection.PredictionSet, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c := WithFallback(slow, WithTimeout(10*time.Millisecond), WithLogger(logger.NewDiscardLogger()))

	got, err := c.Classify(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, detection.UnknownLabel, got[0].Label)
	assert.InDelta(t, FallbackConfidence, got[0].Confidence, 0)
}

func TestFallbackHonoursCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	c := WithFallback(Unavailable{}, WithLogger(logger.NewDiscardLogger()))
	_, err := c.Classify(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlaceholderIsValid(t *testing.T) {
	assert.NoError(t, Placeholder().Validate())
}
