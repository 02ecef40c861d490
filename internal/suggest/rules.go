package suggest

import (
	"fmt"
	"math"
	"strings"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
)

func (ctx *AnalysisContext) thresholds() Thresholds {
	t := ctx.Thresholds
	d := DefaultThresholds()
	if t.DevelopmentThreshold <= 0 {
		t.DevelopmentThreshold = d.DevelopmentThreshold
	}
	if t.StrengthThreshold <= 0 {
		t.StrengthThreshold = d.StrengthThreshold
	}
	if t.PerceptionGap <= 0 {
		t.PerceptionGap = d.PerceptionGap
	}
	return t
}

func subject(ctx *AnalysisContext) string {
	if ctx.EmployeeID != "" {
		return ctx.EmployeeID
	}
	return "this group"
}

func joinRelationships(rs []feedback.Relationship) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

// LowConfidenceCompetency suggests gathering more feedback for competencies
// whose aggregate is labelled low confidence.
func LowConfidenceCompetency(ctx *AnalysisContext) []Suggestion {
	var suggestions []Suggestion
	for _, c := range ctx.Competencies {
		if c.Confidence != analyzer.ConfidenceLow {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Category:   CategoryCoverage,
			Priority:   PriorityMedium,
			Competency: c.Name,
			Title:      fmt.Sprintf("Gather more feedback on %s", c.Name),
			Description: fmt.Sprintf(
				"%s rests on %d review(s) with %d piece(s) of evidence (confidence %.2f). "+
					"Ask more reviewers to comment on it before acting on the score.",
				c.Name, c.ReviewCount, c.EvidenceCount, c.ConfidenceValue,
			),
			ImpactScore: ComputeImpact(c.ReviewCount+1, 1-c.ConfidenceValue, 3.0, 2.0),
		})
	}
	return suggestions
}

// RelationshipGap suggests requesting feedback from reviewer groups that are
// absent from a competency's scores.
func RelationshipGap(ctx *AnalysisContext) []Suggestion {
	var suggestions []Suggestion
	total := float64(len(feedback.AllRelationships()))
	for _, c := range ctx.Competencies {
		if len(c.MissingRelationships) == 0 {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Category:   CategoryCoverage,
			Priority:   PriorityLow,
			Competency: c.Name,
			Title:      fmt.Sprintf("Request %s feedback on %s", joinRelationships(c.MissingRelationships), c.Name),
			Description: fmt.Sprintf(
				"No %s reviewers rated %s. A single vantage point can hide blind spots; "+
					"include those groups in the next feedback cycle.",
				joinRelationships(c.MissingRelationships), c.Name,
			),
			ImpactScore: ComputeImpact(len(c.MissingRelationships), float64(len(c.MissingRelationships))/total, 2.0, 3.0),
		})
	}
	return suggestions
}

// DevelopmentArea flags competencies scoring below the development threshold
// with at least medium confidence.
func DevelopmentArea(ctx *AnalysisContext) []Suggestion {
	t := ctx.thresholds()
	var suggestions []Suggestion
	for _, c := range ctx.Competencies {
		if c.Score >= t.DevelopmentThreshold || c.Confidence == analyzer.ConfidenceLow {
			continue
		}
		priority := PriorityHigh
		if c.Score < t.DevelopmentThreshold-1 {
			priority = PriorityCritical
		}
		severity := (t.DevelopmentThreshold - c.Score) / (t.DevelopmentThreshold - analyzer.MinScore)
		suggestions = append(suggestions, Suggestion{
			Category:   CategoryDevelopment,
			Priority:   priority,
			Competency: c.Name,
			Title:      fmt.Sprintf("Focus development on %s", c.Name),
			Description: fmt.Sprintf(
				"%s scores %.2f, below the %.1f development threshold, with %s confidence. "+
					"Agree on a concrete goal for %s and revisit it next cycle.",
				c.Name, c.Score, t.DevelopmentThreshold, c.Confidence, subject(ctx),
			),
			ImpactScore: ComputeImpact(c.ReviewCount, math.Min(severity, 1), 10.0, 4.0),
		})
	}
	return suggestions
}

// Strength highlights competencies at or above the strength threshold with
// high confidence.
func Strength(ctx *AnalysisContext) []Suggestion {
	t := ctx.thresholds()
	var suggestions []Suggestion
	for _, c := range ctx.Competencies {
		if c.Score < t.StrengthThreshold || c.Confidence != analyzer.ConfidenceHigh {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Category:   CategoryStrength,
			Priority:   PriorityLow,
			Competency: c.Name,
			Title:      fmt.Sprintf("Leverage strength in %s", c.Name),
			Description: fmt.Sprintf(
				"%s scores %.2f with high confidence across %d review(s). "+
					"Consider mentoring or stretch work that builds on it.",
				c.Name, c.Score, c.ReviewCount,
			),
			ImpactScore: ComputeImpact(c.ReviewCount, c.ConfidenceValue, 1.0, 4.0),
		})
	}
	return suggestions
}

// ReviewerDisagreement flags competencies where at least one reviewer's score
// was an outlier and had its weight reduced.
func ReviewerDisagreement(ctx *AnalysisContext) []Suggestion {
	var suggestions []Suggestion
	for _, c := range ctx.Competencies {
		if c.OutlierCount == 0 {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Category:   CategoryCalibration,
			Priority:   PriorityMedium,
			Competency: c.Name,
			Title:      fmt.Sprintf("Reviewers disagree on %s", c.Name),
			Description: fmt.Sprintf(
				"%d of %d scores for %s were outliers (spread %.2f) and count for less in the aggregate. "+
					"Discuss the differing views before drawing conclusions.",
				c.OutlierCount, c.ReviewCount, c.Name, c.ScoreSpread,
			),
			ImpactScore: ComputeImpact(c.ReviewCount, float64(c.OutlierCount)/float64(max(c.ReviewCount, 1)), 4.0, 2.0),
		})
	}
	return suggestions
}

// MissingCompetency suggests covering core competencies nobody rated.
func MissingCompetency(ctx *AnalysisContext) []Suggestion {
	if len(ctx.MissingCompetencies) == 0 || ctx.TotalRequests == 0 {
		return nil
	}
	return []Suggestion{{
		Category: CategoryCoverage,
		Priority: PriorityMedium,
		Title:    fmt.Sprintf("No feedback on %d core competencies", len(ctx.MissingCompetencies)),
		Description: fmt.Sprintf(
			"None of the %d request(s) produced scores for: %s. "+
				"Add prompts for these areas to the feedback form.",
			ctx.TotalRequests, strings.Join(ctx.MissingCompetencies, ", "),
		),
		ImpactScore: ComputeImpact(len(ctx.MissingCompetencies), 1.0, 2.0, 3.0),
	}}
}

// PerceptionGap flags competencies where senior and junior reviewers see the
// person very differently.
func PerceptionGap(ctx *AnalysisContext) []Suggestion {
	t := ctx.thresholds()
	var suggestions []Suggestion
	for _, c := range ctx.Competencies {
		senior, okS := c.RelationshipAverages[feedback.RelationshipSenior]
		junior, okJ := c.RelationshipAverages[feedback.RelationshipJunior]
		if !okS || !okJ {
			continue
		}
		gap := senior - junior
		if math.Abs(gap) < t.PerceptionGap {
			continue
		}
		higher, lower := "senior", "junior"
		hi, lo := senior, junior
		if gap < 0 {
			higher, lower = lower, higher
			hi, lo = lo, hi
		}
		suggestions = append(suggestions, Suggestion{
			Category:   CategoryPerception,
			Priority:   PriorityMedium,
			Competency: c.Name,
			Title:      fmt.Sprintf("Perception gap on %s", c.Name),
			Description: fmt.Sprintf(
				"%s reviewers rate %s %.2f points higher than %s reviewers (%.2f vs %.2f). "+
					"Behaviour may differ depending on audience.",
				higher, c.Name, math.Abs(gap), lower, hi, lo,
			),
			ImpactScore: ComputeImpact(c.ReviewCount, math.Min(math.Abs(gap)/(analyzer.MaxScore-analyzer.MinScore), 1), 6.0, 3.0),
		})
	}
	return suggestions
}
