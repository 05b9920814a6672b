package detection

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/tphakala/trapwatch/internal/errors"
)

var (
	// ErrEmptyPredictions is returned when a prediction set has no entries.
	ErrEmptyPredictions = errors.NewStd("prediction set is empty")
	// ErrMalformedPrediction is returned for NaN or out of range confidences.
	ErrMalformedPrediction = errors.NewStd("malformed prediction")
)

// PredictionSet is a list of predictions ranked by confidence, highest first.
type PredictionSet []RawPrediction

// Validate checks the set for contract violations. A non-nil error means the
// caller passed input the pipeline must not evaluate.
func (ps PredictionSet) Validate() error {
	if len(ps) == 0 {
		return errors.ContractError("detection", ErrEmptyPredictions)
	}
	for i, p := range ps {
		if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
			return errors.New(fmt.Errorf("%w: index %d confidence %v", ErrMalformedPrediction, i, p.Confidence)).
				Component("detection").
				Category(errors.CategoryContract).
				Priority(errors.PriorityHigh).
				Context("index", i).
				Build()
		}
	}
	return nil
}

// Ranked returns a copy of the set ordered by confidence descending.
// Equal confidences keep their original order.
func (ps PredictionSet) Ranked() PredictionSet {
	out := slices.Clone(ps)
	slices.SortStableFunc(out, func(a, b RawPrediction) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return 0
		}
	})
	return out
}

// ParsePrediction parses the "Label:0.82" form used on the command line.
// The label may itself contain colons; the confidence follows the last one.
func ParsePrediction(s string) (RawPrediction, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return RawPrediction{}, errors.ValidationError(fmt.Sprintf("prediction %q must have the form label:confidence", s))
	}
	conf, err := strconv.ParseFloat(strings.TrimSpace(s[idx+1:]), 64)
	if err != nil {
		return RawPrediction{}, errors.New(fmt.Errorf("prediction %q: invalid confidence: %w", s, err)).
			Component("detection").
			Category(errors.CategoryValidation).
			Build()
	}
	return RawPrediction{Label: s[:idx], Confidence: conf}, nil
}

// Clamp01 limits v to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
