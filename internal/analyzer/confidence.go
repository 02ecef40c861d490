package analyzer

import (
	"math"

	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
)

// ConfidenceOptions holds the sub-factor weights and label thresholds for
// EstimateConfidence.
type ConfidenceOptions struct {
	// EvidenceSaturation is the evidence total at which the evidence factor reaches 1.
	EvidenceSaturation float64 `json:"evidence_saturation"`

	EvidenceWeight     float64 `json:"evidence_weight"`
	CoverageWeight     float64 `json:"coverage_weight"`
	ConsistencyWeight  float64 `json:"consistency_weight"`
	DistributionWeight float64 `json:"distribution_weight"`

	// VarianceScale is the variance at which score consistency drops to 0.
	VarianceScale float64 `json:"variance_scale"`

	// OutlierPenalty is the distribution quality used when any score is an outlier.
	OutlierPenalty float64 `json:"outlier_penalty"`

	HighThreshold   float64 `json:"high_threshold"`
	MediumThreshold float64 `json:"medium_threshold"`
}

// DefaultConfidenceOptions returns the reference weights and thresholds.
func DefaultConfidenceOptions() ConfidenceOptions {
	return ConfidenceOptions{
		EvidenceSaturation: 10,
		EvidenceWeight:     0.3,
		CoverageWeight:     0.3,
		ConsistencyWeight:  0.2,
		DistributionWeight: 0.2,
		VarianceScale:      2,
		OutlierPenalty:     0.5,
		HighThreshold:      0.8,
		MediumThreshold:    0.6,
	}
}

func (o ConfidenceOptions) withDefaults() ConfidenceOptions {
	d := DefaultConfidenceOptions()
	if o.EvidenceSaturation <= 0 {
		o.EvidenceSaturation = d.EvidenceSaturation
	}
	if o.EvidenceWeight+o.CoverageWeight+o.ConsistencyWeight+o.DistributionWeight <= 0 {
		o.EvidenceWeight = d.EvidenceWeight
		o.CoverageWeight = d.CoverageWeight
		o.ConsistencyWeight = d.ConsistencyWeight
		o.DistributionWeight = d.DistributionWeight
	}
	if o.VarianceScale <= 0 {
		o.VarianceScale = d.VarianceScale
	}
	if o.OutlierPenalty <= 0 || o.OutlierPenalty > 1 {
		o.OutlierPenalty = d.OutlierPenalty
	}
	if o.HighThreshold <= 0 {
		o.HighThreshold = d.HighThreshold
	}
	if o.MediumThreshold <= 0 {
		o.MediumThreshold = d.MediumThreshold
	}
	return o
}

// ConfidenceFactors are the four 0-1 sub-scores behind a confidence value.
type ConfidenceFactors struct {
	Evidence             float64 `json:"evidence"`
	RelationshipCoverage float64 `json:"relationship_coverage"`
	ScoreConsistency     float64 `json:"score_consistency"`
	DistributionQuality  float64 `json:"distribution_quality"`
}

// Confidence is the engine's computed confidence for one competency.
type Confidence struct {
	Value   float64           `json:"value"`
	Level   ConfidenceLevel   `json:"level"`
	Factors ConfidenceFactors `json:"factors"`
}

// LabelFor maps a confidence value to a label. Thresholds are inclusive.
func (o ConfidenceOptions) LabelFor(value float64) ConfidenceLevel {
	o = o.withDefaults()
	switch {
	case value >= o.HighThreshold:
		return ConfidenceHigh
	case value >= o.MediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// LabelFor maps a confidence value to a label using the default thresholds.
func LabelFor(value float64) ConfidenceLevel {
	return DefaultConfidenceOptions().LabelFor(value)
}

const confidenceDecimals = 9

// EstimateConfidence scores how much a competency's aggregate can be trusted.
// Outlier flags are read from the scores, so pass the output of
// AdjustOutliers. An empty list yields value 0 and label low.
func EstimateConfidence(scores []CompetencyScore, opts ConfidenceOptions) Confidence {
	opts = opts.withDefaults()
	if len(scores) == 0 {
		return Confidence{Value: 0, Level: ConfidenceLow}
	}

	var evidence int
	relationships := make(map[feedback.Relationship]bool)
	outliers := false
	for _, s := range scores {
		evidence += s.EvidenceCount
		if s.Relationship.Valid() {
			relationships[s.Relationship] = true
		}
		if s.HasOutliers {
			outliers = true
		}
	}

	f := ConfidenceFactors{
		Evidence:             math.Min(float64(evidence)/opts.EvidenceSaturation, 1),
		RelationshipCoverage: float64(len(relationships)) / float64(len(feedback.AllRelationships())),
		ScoreConsistency:     math.Max(0, 1-populationVariance(scoreValues(scores))/opts.VarianceScale),
		DistributionQuality:  1,
	}
	if outliers {
		f.DistributionQuality = opts.OutlierPenalty
	}

	value := opts.EvidenceWeight*f.Evidence +
		opts.CoverageWeight*f.RelationshipCoverage +
		opts.ConsistencyWeight*f.ScoreConsistency +
		opts.DistributionWeight*f.DistributionQuality
	// Nine places absorbs float noise in sums like 0.3+0.3+0.2 without
	// lifting a genuinely lower sum onto a threshold.
	value = roundTo(clip(value, 0, 1), confidenceDecimals)

	return Confidence{
		Value:   value,
		Level:   opts.LabelFor(value),
		Factors: f,
	}
}
