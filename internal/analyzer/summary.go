package analyzer

import "sort"

// Summary holds headline statistics across all aggregated competencies.
type Summary struct {
	CompetencyCount  int                     `json:"competency_count"`
	OverallScore     float64                 `json:"overall_score"`
	TotalEvidence    int                     `json:"total_evidence"`
	TotalReviews     int                     `json:"total_reviews"`
	Strongest        string                  `json:"strongest,omitempty"`
	Weakest          string                  `json:"weakest,omitempty"`
	ConfidenceCounts map[ConfidenceLevel]int `json:"confidence_counts"`
}

// Summarize computes headline statistics. OverallScore is the unweighted mean
// of competency scores. Ties for strongest/weakest resolve alphabetically.
func Summarize(aggregates map[string]CompetencyAggregate) Summary {
	s := Summary{
		CompetencyCount: len(aggregates),
		ConfidenceCounts: map[ConfidenceLevel]int{
			ConfidenceHigh:   0,
			ConfidenceMedium: 0,
			ConfidenceLow:    0,
		},
	}
	if len(aggregates) == 0 {
		return s
	}

	names := make([]string, 0, len(aggregates))
	for name := range aggregates {
		names = append(names, name)
	}
	sort.Strings(names)

	var total float64
	best, worst := names[0], names[0]
	for _, name := range names {
		a := aggregates[name]
		total += a.Score
		s.TotalEvidence += a.EvidenceCount
		s.TotalReviews += a.ReviewCount
		s.ConfidenceCounts[a.Confidence]++
		if a.Score > aggregates[best].Score {
			best = name
		}
		if a.Score < aggregates[worst].Score {
			worst = name
		}
	}
	s.OverallScore = roundTo(total/float64(len(aggregates)), scoreDecimals)
	s.Strongest = best
	s.Weakest = worst
	return s
}
