package suggest

import "sort"

// RankSuggestions sorts suggestions by ImpactScore in descending order. Ties
// fall back to priority, then title, so output is stable across runs.
func RankSuggestions(suggestions []Suggestion) []Suggestion {
	sorted := make([]Suggestion, len(suggestions))
	copy(sorted, suggestions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ImpactScore != sorted[j].ImpactScore {
			return sorted[i].ImpactScore > sorted[j].ImpactScore
		}
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].Title < sorted[j].Title
	})
	return sorted
}

// ComputeImpact calculates an impact score for a suggestion.
// Formula: (reviews * severity * benefit) / effort
//
// Parameters:
//   - reviews: number of reviewer scores behind the finding
//   - severity: how far the finding sits past its threshold (0.0-1.0)
//   - benefit: relative value of acting on the suggestion
//   - effort: relative cost of acting on the suggestion
//
// Returns 0 if effort is zero to avoid division by zero.
func ComputeImpact(reviews int, severity float64, benefit float64, effort float64) float64 {
	if effort <= 0 {
		return 0
	}
	return (float64(reviews) * severity * benefit) / effort
}

// Filter returns the suggestions matching category, or all when category is empty.
func Filter(suggestions []Suggestion, category string) []Suggestion {
	if category == "" {
		return suggestions
	}
	var out []Suggestion
	for _, s := range suggestions {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}
