package analyzer

import (
	"math"

	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
)

// scoreDecimals is the rounding applied to the weighted aggregate score.
const scoreDecimals = 3

// WeightedScore returns Σ(score·AdjustedWeight)/Σ AdjustedWeight and false when
// the list is empty or carries no weight.
func WeightedScore(scores []CompetencyScore) (float64, bool) {
	var num, den float64
	for _, s := range scores {
		num += s.Score * s.AdjustedWeight
		den += s.AdjustedWeight
	}
	if den <= 0 {
		return 0, false
	}
	return num / den, true
}

// AggregateCompetency rolls up an outlier-adjusted score list. It returns
// false for an empty or weightless list; such competencies are omitted.
func AggregateCompetency(name string, adjusted []CompetencyScore, opts ConfidenceOptions) (CompetencyAggregate, bool) {
	weighted, ok := WeightedScore(adjusted)
	if !ok {
		return CompetencyAggregate{}, false
	}

	agg := CompetencyAggregate{
		Name:                  name,
		Score:                 roundTo(weighted, scoreDecimals),
		RelationshipBreakdown: make(map[feedback.Relationship]int, 3),
		ScoreDistribution:     make(map[int]int, 5),
		ReviewCount:           len(adjusted),
		OutlierCount:          CountOutliers(adjusted),
		Scores:                adjusted,
	}
	for _, r := range feedback.AllRelationships() {
		agg.RelationshipBreakdown[r] = 0
	}
	for bucket := int(MinScore); bucket <= int(MaxScore); bucket++ {
		agg.ScoreDistribution[bucket] = 0
	}

	for _, s := range adjusted {
		agg.EvidenceCount += s.EvidenceCount
		if s.Relationship.Valid() {
			agg.RelationshipBreakdown[s.Relationship] += s.EvidenceCount
		}
		bucket := int(math.Round(clip(s.Score, MinScore, MaxScore)))
		agg.ScoreDistribution[bucket]++
	}

	xs := scoreValues(adjusted)
	agg.AverageScore = mean(xs)
	agg.ScoreSpread = stdDev(xs)

	conf := EstimateConfidence(adjusted, opts)
	agg.Confidence = conf.Level
	agg.ConfidenceValue = conf.Value
	agg.Factors = conf.Factors

	return agg, true
}
