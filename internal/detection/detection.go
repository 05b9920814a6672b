// Package detection provides the domain models of the camera-trap decision pipeline.
// These models are independent of database schema and transport encoding.
//
// A single ingestion event flows through the pipeline as follows:
//   - the classifier produces a PredictionSet for the uploaded image
//   - the pipeline derives ImageQualityMetrics, a DuplicateCheckResult and a
//     TemporalContext from the image and the camera history
//   - the pipeline combines all signals into one Decision
//
// The caller owns the Decision and decides whether to persist it.
package detection

import (
	"time"
)

// FilteredLabel is the sentinel species emitted for known non-detections
// such as empty frames or moving vegetation.
const FilteredLabel = "__filtered__"

// UnknownLabel is the canonical label for unidentified subjects.
const UnknownLabel = "Unknown"

// RawPrediction is one label/confidence pair returned by the classifier.
type RawPrediction struct {
	Label      string  `json:"label" yaml:"label"`           // Raw classifier label, possibly a taxonomy path
	Confidence float64 `json:"confidence" yaml:"confidence"` // Confidence in [0,1]
}

// ImageQualityMetrics summarizes how usable an image is for classification.
type ImageQualityMetrics struct {
	BlurScore     float64 `json:"blur_score" yaml:"blur_score"`         // Variance of the Laplacian
	IsBlurry      bool    `json:"is_blurry" yaml:"is_blurry"`           // BlurScore below the blur threshold
	Brightness    float64 `json:"brightness" yaml:"brightness"`         // Mean luma in [0,255]
	Contrast      float64 `json:"contrast" yaml:"contrast"`             // Standard deviation of luma
	QualityScore  float64 `json:"quality_score" yaml:"quality_score"`   // Composite score in [0,1]
	IsGoodQuality bool    `json:"is_good_quality" yaml:"is_good_quality"`
	IsTooDark     bool    `json:"is_too_dark" yaml:"is_too_dark"`
	IsOverexposed bool    `json:"is_overexposed" yaml:"is_overexposed"`
	IsLowContrast bool    `json:"is_low_contrast" yaml:"is_low_contrast"`
	Analyzed      bool    `json:"analyzed" yaml:"analyzed"` // False when the neutral fallback was used
	Width         int     `json:"width,omitempty" yaml:"width,omitempty"`
	Height        int     `json:"height,omitempty" yaml:"height,omitempty"`
}

// NeutralQuality returns the metrics used when an image cannot be analyzed.
func NeutralQuality() ImageQualityMetrics {
	return ImageQualityMetrics{QualityScore: 0.5}
}

// DuplicateCheckResult is the outcome of comparing an image with recent detections.
type DuplicateCheckResult struct {
	IsDuplicate      bool    `json:"is_duplicate" yaml:"is_duplicate"`
	Similarity       float64 `json:"similarity" yaml:"similarity"`     // Highest similarity in the window
	RecentCount      int     `json:"recent_count" yaml:"recent_count"` // Candidates in the window
	SameSpeciesCount int     `json:"same_species_count" yaml:"same_species_count"`
	IsBurst          bool    `json:"is_burst" yaml:"is_burst"`
	MatchedRef       string  `json:"matched_ref,omitempty" yaml:"matched_ref,omitempty"` // Image of the most similar candidate
}

// TemporalContext describes the species recently seen by the same camera.
type TemporalContext struct {
	RecentCount       int            `json:"recent_count" yaml:"recent_count"`
	MostCommonSpecies string         `json:"most_common_species,omitempty" yaml:"most_common_species,omitempty"` // Empty when there is no history
	SpeciesCounts     map[string]int `json:"species_counts" yaml:"species_counts"`
	DominantShare     float64        `json:"dominant_share" yaml:"dominant_share"` // Share of MostCommonSpecies in [0,1]
	AverageConfidence float64        `json:"average_confidence" yaml:"average_confidence"`
}

// HistoryRecord is a previously stored detection as seen by the pipeline.
type HistoryRecord struct {
	ID          string    `json:"id"`
	CameraID    string    `json:"camera_id"`
	ImageRef    string    `json:"image_ref"`
	Fingerprint string    `json:"fingerprint,omitempty"` // Perceptual hash, empty if unknown
	Timestamp   time.Time `json:"timestamp"`
	Species     string    `json:"species"`
	Confidence  float64   `json:"confidence"`
}
