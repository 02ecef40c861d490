// Package suggest provides the development recommendation engine and rule types.
package suggest

import (
	"sort"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
)

// Priority levels for suggestions.
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
)

// Suggestion categories.
const (
	CategoryCoverage    = "coverage"
	CategoryDevelopment = "development"
	CategoryStrength    = "strength"
	CategoryCalibration = "calibration"
	CategoryPerception  = "perception"
)

// Suggestion represents an actionable development or feedback-gathering
// recommendation.
type Suggestion struct {
	Category    string  `json:"category"`
	Priority    int     `json:"priority"`
	Competency  string  `json:"competency,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImpactScore float64 `json:"impact_score"`
}

// Key identifies a suggestion across runs.
func (s Suggestion) Key() string {
	return s.Category + "|" + s.Title
}

// Thresholds tunes the score-based rules.
type Thresholds struct {
	// DevelopmentThreshold is the score below which a competency is a development area.
	DevelopmentThreshold float64 `json:"development_threshold"`

	// StrengthThreshold is the score at or above which a competency is a strength.
	StrengthThreshold float64 `json:"strength_threshold"`

	// PerceptionGap is the senior-vs-junior average difference worth flagging.
	PerceptionGap float64 `json:"perception_gap"`
}

// DefaultThresholds returns the reference thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DevelopmentThreshold: 3.0,
		StrengthThreshold:    4.0,
		PerceptionGap:        1.0,
	}
}

// AnalysisContext provides all data needed by suggest rules to generate
// recommendations. It is built from an analyzer.Analysis.
type AnalysisContext struct {
	// EmployeeID is set when the analysis covers a single reviewed person.
	EmployeeID string `json:"employee_id,omitempty"`

	// Competencies lists every aggregated competency, sorted by name.
	Competencies []CompetencyContext `json:"competencies"`

	// MissingCompetencies lists core competencies with no scores.
	MissingCompetencies []string `json:"missing_competencies"`

	// TotalRequests is the number of requests in scope.
	TotalRequests int `json:"total_requests"`

	Thresholds Thresholds `json:"thresholds"`
}

// CompetencyContext provides competency-level data for suggest rules.
type CompetencyContext struct {
	Name            string                   `json:"name"`
	Score           float64                  `json:"score"`
	Confidence      analyzer.ConfidenceLevel `json:"confidence"`
	ConfidenceValue float64                  `json:"confidence_value"`
	EvidenceCount   int                      `json:"evidence_count"`
	ReviewCount     int                      `json:"review_count"`
	OutlierCount    int                      `json:"outlier_count"`
	ScoreSpread     float64                  `json:"score_spread"`

	// RelationshipAverages holds the unweighted mean per relationship that
	// contributed scores.
	RelationshipAverages map[feedback.Relationship]float64 `json:"relationship_averages"`

	// MissingRelationships lists relationships with no scores.
	MissingRelationships []feedback.Relationship `json:"missing_relationships"`
}

// NewContext flattens an analysis into the form the rules consume.
func NewContext(a analyzer.Analysis, t Thresholds) *AnalysisContext {
	ctx := &AnalysisContext{
		MissingCompetencies: a.Coverage.MissingCompetencies,
		TotalRequests:       a.Coverage.TotalRequests,
		Thresholds:          t,
	}
	if len(a.Filter.EmployeeIDs) == 1 {
		ctx.EmployeeID = a.Filter.EmployeeIDs[0]
	}

	names := make([]string, 0, len(a.Aggregates))
	for name := range a.Aggregates {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		agg := a.Aggregates[name]
		cc := CompetencyContext{
			Name:                 agg.Name,
			Score:                agg.Score,
			Confidence:           agg.Confidence,
			ConfidenceValue:      agg.ConfidenceValue,
			EvidenceCount:        agg.EvidenceCount,
			ReviewCount:          agg.ReviewCount,
			OutlierCount:         agg.OutlierCount,
			ScoreSpread:          agg.ScoreSpread,
			RelationshipAverages: make(map[feedback.Relationship]float64),
			MissingRelationships: agg.MissingRelationships(),
		}
		for _, r := range feedback.AllRelationships() {
			if avg, ok := agg.RelationshipAverage(r); ok {
				cc.RelationshipAverages[r] = avg
			}
		}
		ctx.Competencies = append(ctx.Competencies, cc)
	}
	return ctx
}

// Rule is a function that examines the analysis context and produces
// zero or more suggestions.
type Rule func(ctx *AnalysisContext) []Suggestion
