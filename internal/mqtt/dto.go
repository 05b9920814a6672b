package mqtt

import (
	"time"

	"github.com/tphakala/trapwatch/internal/detection"
)

// DetectionDTO is the JSON payload published for a saved detection.
// Field names are part of the published contract.
type DetectionDTO struct {
	ID            string          `json:"id"`
	CameraID      string          `json:"cameraId"`
	Timestamp     string          `json:"timestamp"` // RFC3339 in the camera's local time
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Species       string          `json:"species"`
	Confidence    float64         `json:"confidence"`
	RawConfidence float64         `json:"rawConfidence"`
	Threshold     float64         `json:"threshold"`
	Quality       string          `json:"quality"`
	ImageQuality  float64         `json:"imageQuality"`
	IsBurst       bool            `json:"isBurst,omitempty"`
	ImageRef      string          `json:"imageRef,omitempty"`
	Reasons       []string        `json:"reasons,omitempty"`
	Predictions   []PredictionDTO `json:"predictions"`
}

// PredictionDTO is one ranked classifier prediction.
type PredictionDTO struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// NewDetectionDTO builds the payload for a stored decision.
func NewDetectionDTO(id, cameraID string, ts time.Time, imageRef string, d *detection.Decision) DetectionDTO {
	preds := make([]PredictionDTO, 0, len(d.AllPredictions))
	for _, p := range d.AllPredictions {
		preds = append(preds, PredictionDTO{Label: p.Label, Confidence: p.Confidence})
	}
	return DetectionDTO{
		ID:            id,
		CameraID:      cameraID,
		Timestamp:     ts.Format(time.RFC3339),
		Date:          ts.Format(time.DateOnly),
		Time:          ts.Format(time.TimeOnly),
		Species:       d.Species,
		Confidence:    d.Confidence,
		RawConfidence: d.RawConfidence,
		Threshold:     d.Threshold,
		Quality:       string(d.Quality),
		ImageQuality:  d.ImageQuality.QualityScore,
		IsBurst:       d.DuplicateCheck.IsBurst,
		ImageRef:      imageRef,
		Reasons:       d.Reasons,
		Predictions:   preds,
	}
}
