// model.go defines the persisted form of detection decisions
package datastore

import (
	"strings"
	"time"

	"github.com/tphakala/trapwatch/internal/detection"
)

// Detection is one stored decision.
type Detection struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CameraID  string    `gorm:"size:128;not null;index:idx_detections_camera_time" json:"camera_id"`
	Timestamp time.Time `gorm:"not null;index:idx_detections_camera_time;index:idx_detections_timestamp" json:"timestamp"` // UTC capture time
	Species   string    `gorm:"size:128;index:idx_detections_species" json:"species"`

	Confidence    float64 `json:"confidence"`
	RawConfidence float64 `json:"raw_confidence"`
	Threshold     float64 `json:"threshold"`
	ConfidenceGap float64 `json:"confidence_gap"`
	Quality       string  `gorm:"size:16" json:"quality"`
	ShouldNotify  bool    `json:"should_notify"`

	QualityScore  float64 `json:"quality_score"`
	BlurScore     float64 `json:"blur_score"`
	Brightness    float64 `json:"brightness"`
	Contrast      float64 `json:"contrast"`
	IsGoodQuality bool    `json:"is_good_quality"`

	IsBurst            bool    `json:"is_burst"`
	Similarity         float64 `json:"similarity"`
	ActivityMultiplier float64 `json:"activity_multiplier"`
	TemporalBoost      float64 `json:"temporal_boost"`

	ImageRef    string `gorm:"size:512" json:"image_ref,omitempty"`
	Fingerprint string `gorm:"size:64" json:"fingerprint,omitempty"`
	Reasons     string `gorm:"size:512" json:"reasons,omitempty"` // comma separated

	Predictions []Prediction `gorm:"foreignKey:DetectionID;constraint:OnDelete:CASCADE" json:"predictions"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Prediction is one ranked classifier output of a Detection.
type Prediction struct {
	ID          uint    `gorm:"primaryKey" json:"-"`
	DetectionID string  `gorm:"size:36;index;not null" json:"-"`
	Position    int     `json:"position"` // 1 for the top prediction
	Label       string  `gorm:"size:255" json:"label"`
	Confidence  float64 `json:"confidence"`
}

// NewDetection converts a decision for persistence. The ID is left empty and
// assigned by Save.
func NewDetection(cameraID string, ts time.Time, imageRef string, d *detection.Decision) *Detection {
	det := &Detection{
		CameraID:           cameraID,
		Timestamp:          ts.UTC(),
		Species:            d.Species,
		Confidence:         d.Confidence,
		RawConfidence:      d.RawConfidence,
		Threshold:          d.Threshold,
		ConfidenceGap:      d.ConfidenceGap,
		Quality:            string(d.Quality),
		ShouldNotify:       d.ShouldNotify,
		QualityScore:       d.ImageQuality.QualityScore,
		BlurScore:          d.ImageQuality.BlurScore,
		Brightness:         d.ImageQuality.Brightness,
		Contrast:           d.ImageQuality.Contrast,
		IsGoodQuality:      d.ImageQuality.IsGoodQuality,
		IsBurst:            d.DuplicateCheck.IsBurst,
		Similarity:         d.DuplicateCheck.Similarity,
		ActivityMultiplier: d.ActivityMultiplier,
		TemporalBoost:      d.TemporalBoost,
		ImageRef:           imageRef,
		Fingerprint:        d.Fingerprint,
		Reasons:            strings.Join(d.Reasons, ","),
	}
	for i, p := range d.AllPredictions {
		det.Predictions = append(det.Predictions, Prediction{Position: i + 1, Label: p.Label, Confidence: p.Confidence})
	}
	return det
}

// HistoryRecord returns the fields the decision pipeline reads back.
func (d *Detection) HistoryRecord() detection.HistoryRecord {
	return detection.HistoryRecord{
		ID:          d.ID,
		CameraID:    d.CameraID,
		ImageRef:    d.ImageRef,
		Fingerprint: d.Fingerprint,
		Timestamp:   d.Timestamp,
		Species:     d.Species,
		Confidence:  d.Confidence,
	}
}

// ReasonList splits the stored reasons.
func (d *Detection) ReasonList() []string {
	if d.Reasons == "" {
		return nil
	}
	return strings.Split(d.Reasons, ",")
}
