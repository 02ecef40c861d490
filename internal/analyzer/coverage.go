package analyzer

import (
	"strings"

	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
)

// Coverage summarizes how much feedback backs an analysis.
type Coverage struct {
	TotalRequests        int `json:"total_requests"`
	RequestsWithInsights int `json:"requests_with_insights"`
	TotalResponses       int `json:"total_responses"`
	Employees            int `json:"employees"`

	ResponsesByRelationship map[feedback.Relationship]int `json:"responses_by_relationship"`
	InsightsByRelationship  map[feedback.Relationship]int `json:"insights_by_relationship"`

	// UnrecognizedResponses counts responses whose relationship is unknown.
	UnrecognizedResponses int `json:"unrecognized_responses"`

	// MissingCompetencies lists core competencies with no aggregate.
	MissingCompetencies []string `json:"missing_competencies,omitempty"`
}

// InsightRate is the fraction of requests that carry insights.
func (c Coverage) InsightRate() float64 {
	if c.TotalRequests == 0 {
		return 0
	}
	return float64(c.RequestsWithInsights) / float64(c.TotalRequests)
}

// ComputeCoverage counts requests, responses and insights admitted by the
// employee filter. The relationship filter does not narrow these counts;
// they describe the whole population being looked at.
func ComputeCoverage(requests []feedback.Request, filter Filter, competencies []string, aggregates map[string]CompetencyAggregate) Coverage {
	c := Coverage{
		ResponsesByRelationship: make(map[feedback.Relationship]int, 3),
		InsightsByRelationship:  make(map[feedback.Relationship]int, 3),
	}
	for _, r := range feedback.AllRelationships() {
		c.ResponsesByRelationship[r] = 0
		c.InsightsByRelationship[r] = 0
	}

	employees := make(map[string]bool)
	for _, req := range requests {
		if !filter.includesEmployee(req.EmployeeID) {
			continue
		}
		c.TotalRequests++
		if req.EmployeeID != "" {
			employees[req.EmployeeID] = true
		}
		if req.HasInsights() {
			c.RequestsWithInsights++
		}
		for _, ins := range req.Insights() {
			if rel := feedback.NormalizeRelationship(ins.Relationship); rel.Valid() {
				c.InsightsByRelationship[rel]++
			}
		}
		for _, resp := range req.Responses {
			c.TotalResponses++
			if rel := feedback.NormalizeRelationship(resp.Relationship); rel.Valid() {
				c.ResponsesByRelationship[rel]++
			} else {
				c.UnrecognizedResponses++
			}
		}
	}
	c.Employees = len(employees)
	c.MissingCompetencies = missingCompetencies(competencies, aggregates)
	return c
}

// missingCompetencies matches names case-insensitively.
func missingCompetencies(core []string, aggregates map[string]CompetencyAggregate) []string {
	present := make(map[string]bool, len(aggregates))
	for name := range aggregates {
		present[strings.ToLower(strings.TrimSpace(name))] = true
	}
	var missing []string
	for _, name := range core {
		if !present[strings.ToLower(strings.TrimSpace(name))] {
			missing = append(missing, name)
		}
	}
	return missing
}
