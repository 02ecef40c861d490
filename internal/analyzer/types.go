// Package analyzer implements the competency aggregation engine: score
// collection, outlier re-weighting, weighted aggregation and confidence scoring.
// Every function here is pure computation over already-loaded requests.
package analyzer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
)

// ConfidenceLevel is the coarse confidence label for an aggregate.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// CompetencyScore is one reviewer group's rating of one competency for one
// reviewed person. Only AdjustedWeight, HasOutliers and AdjustmentDetails
// change after collection, and only via AdjustOutliers.
type CompetencyScore struct {
	Name            string                `json:"name"`
	RequestID       string                `json:"request_id"`
	EmployeeID      string                `json:"employee_id"`
	Score           float64               `json:"score"`
	ConfidenceLabel string                `json:"confidence_label,omitempty"`
	EvidenceCount   int                   `json:"evidence_count"`
	Relationship    feedback.Relationship `json:"relationship"`
	EvidenceQuotes  []string              `json:"evidence_quotes,omitempty"`
	Description     string                `json:"description,omitempty"`

	// BaseWeight is the relationship's weight; AdjustedWeight starts equal to it.
	BaseWeight        float64            `json:"base_weight"`
	AdjustedWeight    float64            `json:"adjusted_weight"`
	HasOutliers       bool               `json:"has_outliers"`
	AdjustmentDetails *AdjustmentDetails `json:"adjustment_details,omitempty"`
}

// AdjustmentDetails records why and how an outlier's weight was reduced.
type AdjustmentDetails struct {
	Mean           float64 `json:"mean"`
	StdDev         float64 `json:"std_dev"`
	ZScore         float64 `json:"z_score"`
	OriginalWeight float64 `json:"original_weight"`
	AdjustedWeight float64 `json:"adjusted_weight"`
	Reason         string  `json:"reason"`
}

// CompetencyAggregate is the rolled-up view of one competency.
type CompetencyAggregate struct {
	Name string `json:"name"`

	// Score is the weighted mean using AdjustedWeight, rounded to 3 dp.
	Score           float64           `json:"score"`
	Confidence      ConfidenceLevel   `json:"confidence"`
	ConfidenceValue float64           `json:"confidence_value"`
	Factors         ConfidenceFactors `json:"confidence_factors"`

	EvidenceCount         int                           `json:"evidence_count"`
	RelationshipBreakdown map[feedback.Relationship]int `json:"relationship_breakdown"`
	ScoreDistribution     map[int]int                   `json:"score_distribution"`

	// AverageScore and ScoreSpread are unweighted (mean, population std-dev).
	AverageScore float64 `json:"average_score"`
	ScoreSpread  float64 `json:"score_spread"`

	ReviewCount  int               `json:"review_count"`
	OutlierCount int               `json:"outlier_count"`
	Scores       []CompetencyScore `json:"scores,omitempty"`
}

// RelationshipAverage returns the unweighted mean score from reviewers in
// the given relationship, and false when none contributed.
func (a CompetencyAggregate) RelationshipAverage(r feedback.Relationship) (float64, bool) {
	var sum float64
	var n int
	for _, s := range a.Scores {
		if s.Relationship == r {
			sum += s.Score
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// MissingRelationships lists known relationships with no contributing score.
func (a CompetencyAggregate) MissingRelationships() []feedback.Relationship {
	present := make(map[feedback.Relationship]bool)
	for _, s := range a.Scores {
		present[s.Relationship] = true
	}
	var missing []feedback.Relationship
	for _, r := range feedback.AllRelationships() {
		if !present[r] {
			missing = append(missing, r)
		}
	}
	return missing
}

// Filter narrows the population being aggregated. Empty fields mean "all".
type Filter struct {
	EmployeeIDs   []string                `json:"employee_ids,omitempty"`
	Relationships []feedback.Relationship `json:"relationships,omitempty"`
}

// NewFilter builds a Filter from raw CLI or API input. Employee IDs are
// trimmed and deduplicated; relationships are normalized, deduplicated and
// unrecognized values dropped.
func NewFilter(employeeIDs, relationships []string) Filter {
	seen := make(map[string]bool, len(employeeIDs))
	var ids []string
	for _, id := range employeeIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return Filter{
		EmployeeIDs:   ids,
		Relationships: feedback.ParseRelationships(relationships),
	}
}

// ErrNoRecognizedRelationship is returned by ParseFilter when a relationship
// filter was given but none of its values is a known bucket.
var ErrNoRecognizedRelationship = errors.New("no recognized relationship")

// ParseFilter is NewFilter for user input: a relationship list that cleans
// down to nothing is rejected instead of widening to every relationship.
func ParseFilter(employeeIDs, relationships []string) (Filter, error) {
	f := NewFilter(employeeIDs, relationships)
	if len(relationships) > 0 && len(f.Relationships) == 0 {
		return f, fmt.Errorf("%w in %v (use senior, peer or junior)", ErrNoRecognizedRelationship, relationships)
	}
	return f, nil
}

// IsEmpty reports whether the filter selects everything.
func (f Filter) IsEmpty() bool {
	return len(f.EmployeeIDs) == 0 && f.coversAllRelationships()
}

// includesEmployee reports whether the employee filter admits id.
func (f Filter) includesEmployee(id string) bool {
	if len(f.EmployeeIDs) == 0 {
		return true
	}
	for _, e := range f.EmployeeIDs {
		if e == id {
			return true
		}
	}
	return false
}

// relationshipSet returns the selected relationships as a set. Unrecognized
// values are ignored.
func (f Filter) relationshipSet() map[feedback.Relationship]bool {
	set := make(map[feedback.Relationship]bool, len(f.Relationships))
	for _, r := range f.Relationships {
		r = feedback.NormalizeRelationship(string(r))
		if r.Valid() {
			set[r] = true
		}
	}
	return set
}

// coversAllRelationships reports whether the relationship filter is absent or
// selects every known relationship.
func (f Filter) coversAllRelationships() bool {
	set := f.relationshipSet()
	if len(set) == 0 {
		return true
	}
	for _, r := range feedback.AllRelationships() {
		if !set[r] {
			return false
		}
	}
	return true
}
