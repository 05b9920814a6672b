package detection

// QualityTier is the coarse trust level of a decision.
type QualityTier string

const (
	QualityHigh   QualityTier = "high"
	QualityMedium QualityTier = "medium"
	QualityLow    QualityTier = "low"
)

// Downgrade returns the next lower tier. Low stays low.
func (q QualityTier) Downgrade() QualityTier {
	switch q {
	case QualityHigh:
		return QualityMedium
	default:
		return QualityLow
	}
}

// Rejection reasons recorded in Decision.Reasons.
const (
	ReasonFiltered       = "filtered_species"
	ReasonPoorQuality    = "poor_image_quality"
	ReasonVeryLowQuality = "very_low_image_quality"
	ReasonDuplicate      = "duplicate"
	ReasonBurst          = "burst"
	ReasonBelowThreshold = "below_threshold"
	ReasonUnknownLow     = "unknown_low_confidence"
	ReasonLowSeparation  = "low_separation"
	ReasonNoHistory      = "history_unavailable"
	ReasonUndecodable    = "image_undecodable"
)

// Decision is the single output of the pipeline for one event.
type Decision struct {
	Species         string               `json:"species" yaml:"species"`
	Confidence      float64              `json:"confidence" yaml:"confidence"`
	Quality         QualityTier          `json:"quality" yaml:"quality"`
	ShouldSave      bool                 `json:"should_save" yaml:"should_save"`
	ShouldNotify    bool                 `json:"should_notify" yaml:"should_notify"`
	ImageQuality    ImageQualityMetrics  `json:"image_quality" yaml:"image_quality"`
	DuplicateCheck  DuplicateCheckResult `json:"duplicate_check" yaml:"duplicate_check"`
	TemporalContext TemporalContext      `json:"temporal_context" yaml:"temporal_context"`
	AllPredictions  PredictionSet        `json:"all_predictions" yaml:"all_predictions"`
	ConfidenceGap   float64              `json:"confidence_gap" yaml:"confidence_gap"`

	RawConfidence      float64  `json:"raw_confidence" yaml:"raw_confidence"` // Top confidence before any adjustment
	Threshold          float64  `json:"threshold" yaml:"threshold"`           // Species threshold that was applied
	Fingerprint        string   `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	ActivityMultiplier float64  `json:"activity_multiplier" yaml:"activity_multiplier"`
	TemporalBoost      float64  `json:"temporal_boost" yaml:"temporal_boost"` // Multiplicative factor, 1.0 when no boost
	Blended            bool     `json:"blended" yaml:"blended"`
	LowSeparation      bool     `json:"low_separation" yaml:"low_separation"`
	WellSeparated      bool     `json:"well_separated" yaml:"well_separated"`
	Reasons            []string `json:"reasons,omitempty" yaml:"reasons,omitempty"`
}

// IsFiltered reports whether the decision was short-circuited by the species filter.
func (d *Decision) IsFiltered() bool {
	return d.Species == FilteredLabel
}

// AddReason appends a reason once.
func (d *Decision) AddReason(reason string) {
	for _, r := range d.Reasons {
		if r == reason {
			return
		}
	}
	d.Reasons = append(d.Reasons, reason)
}
