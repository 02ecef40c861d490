package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
	"github.com/blackwell-systems/feedbackwatch/internal/reviewer"
	"github.com/blackwell-systems/feedbackwatch/internal/suggest"
)

// CompetencyScoresResult is returned by get_competency_scores.
type CompetencyScoresResult struct {
	Filter         analyzer.Filter    `json:"filter"`
	Summary        analyzer.Summary   `json:"summary"`
	Competencies   []CompetencyResult `json:"competencies"`
	UsedUnfiltered bool               `json:"used_unfiltered"`
}

// CompetencyResult is one competency aggregate without its raw scores.
type CompetencyResult struct {
	Name                  string                        `json:"name"`
	Score                 float64                       `json:"score"`
	AverageScore          float64                       `json:"average_score"`
	Confidence            analyzer.ConfidenceLevel      `json:"confidence"`
	ConfidenceValue       float64                       `json:"confidence_value"`
	EvidenceCount         int                           `json:"evidence_count"`
	ReviewCount           int                           `json:"review_count"`
	OutlierCount          int                           `json:"outlier_count"`
	RelationshipBreakdown map[feedback.Relationship]int `json:"relationship_breakdown"`
}

// CoverageResult is returned by get_coverage.
type CoverageResult struct {
	analyzer.Coverage
	InsightRate float64 `json:"insight_rate"`
}

// SuggestionsResult is returned by get_suggestions.
type SuggestionsResult struct {
	Suggestions []suggest.Suggestion `json:"suggestions"`
	Total       int                  `json:"total"`
}

// ReviewResult is returned by review_feedback.
type ReviewResult struct {
	RequestID    string                   `json:"request_id"`
	EmployeeID   string                   `json:"employee_id"`
	Reports      []reviewer.QualityReport `json:"reports"`
	AverageScore float64                  `json:"average_score"`
	WeakCount    int                      `json:"weak_count"`
}

type scopeArgs struct {
	EmployeeIDs   []string `json:"employee_ids"`
	Relationships []string `json:"relationships"`
}

type suggestionArgs struct {
	EmployeeIDs []string `json:"employee_ids"`
	Category    string   `json:"category"`
	Limit       int      `json:"limit"`
}

type reviewArgs struct {
	RequestID string `json:"request_id"`
}

var (
	employeeIDsProp   = `"employee_ids":{"type":"array","items":{"type":"string"},"description":"Restrict to these employees (default all)"}`
	relationshipsProp = `"relationships":{"type":"array","items":{"type":"string","enum":["senior","peer","junior"]},"description":"Restrict to these reviewer relationships (default all)"}`

	scoresSchema      = json.RawMessage(`{"type":"object","properties":{` + employeeIDsProp + `,` + relationshipsProp + `},"additionalProperties":false}`)
	coverageSchema    = json.RawMessage(`{"type":"object","properties":{` + employeeIDsProp + `},"additionalProperties":false}`)
	suggestionsSchema = json.RawMessage(`{"type":"object","properties":{` + employeeIDsProp + `,"category":{"type":"string","description":"Only this category: coverage, development, strength, calibration, perception"},"limit":{"type":"integer","description":"Maximum suggestions to return (default all)"}},"additionalProperties":false}`)
	reviewSchema      = json.RawMessage(`{"type":"object","properties":{"request_id":{"type":"string","description":"Feedback request to review"}},"required":["request_id"],"additionalProperties":false}`)
)

// addTools registers all MCP tool handlers on s.
func addTools(s *Server) {
	s.registerTool(toolDef{
		Name:        "get_competency_scores",
		Description: "Weighted, outlier-adjusted competency scores with confidence levels for the selected employees and reviewer relationships.",
		InputSchema: scoresSchema,
		Handler:     s.handleGetCompetencyScores,
	})
	s.registerTool(toolDef{
		Name:        "get_coverage",
		Description: "Request, response and insight counts by reviewer relationship, plus core competencies nobody rated.",
		InputSchema: coverageSchema,
		Handler:     s.handleGetCoverage,
	})
	s.registerTool(toolDef{
		Name:        "get_suggestions",
		Description: "Ranked development, strength, coverage and calibration suggestions derived from the competency scores.",
		InputSchema: suggestionsSchema,
		Handler:     s.handleGetSuggestions,
	})
	s.registerTool(toolDef{
		Name:        "review_feedback",
		Description: "Rule-based quality review of every reviewer response on one feedback request.",
		InputSchema: reviewSchema,
		Handler:     s.handleReviewFeedback,
	})
}

// loadRequests reads the data directory. No data is not an error.
func (s *Server) loadRequests(ctx context.Context) ([]feedback.Request, error) {
	reqs, err := s.loader.LoadPaths(ctx, s.dataDir)
	if errors.Is(err, feedback.ErrNoRequests) {
		return nil, nil
	}
	return reqs, err
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// handleGetCompetencyScores aggregates scores for the requested scope.
func (s *Server) handleGetCompetencyScores(ctx context.Context, args json.RawMessage) (any, error) {
	var a scopeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	filter, err := analyzer.ParseFilter(a.EmployeeIDs, a.Relationships)
	if err != nil {
		return nil, err
	}
	reqs, err := s.loadRequests(ctx)
	if err != nil {
		return nil, err
	}

	analysis := s.engine.Analyze(reqs, filter)
	result := CompetencyScoresResult{
		Filter:         analysis.Filter,
		Summary:        analysis.Summary,
		Competencies:   make([]CompetencyResult, 0, len(analysis.Aggregates)),
		UsedUnfiltered: analysis.UsedUnfiltered,
	}
	for _, agg := range analysis.Ordered() {
		result.Competencies = append(result.Competencies, CompetencyResult{
			Name:                  agg.Name,
			Score:                 agg.Score,
			AverageScore:          agg.AverageScore,
			Confidence:            agg.Confidence,
			ConfidenceValue:       agg.ConfidenceValue,
			EvidenceCount:         agg.EvidenceCount,
			ReviewCount:           agg.ReviewCount,
			OutlierCount:          agg.OutlierCount,
			RelationshipBreakdown: agg.RelationshipBreakdown,
		})
	}
	return result, nil
}

// handleGetCoverage reports data coverage for the requested employees.
func (s *Server) handleGetCoverage(ctx context.Context, args json.RawMessage) (any, error) {
	var a scopeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	reqs, err := s.loadRequests(ctx)
	if err != nil {
		return nil, err
	}

	analysis := s.engine.Analyze(reqs, analyzer.NewFilter(a.EmployeeIDs, nil))
	return CoverageResult{
		Coverage:    analysis.Coverage,
		InsightRate: analysis.Coverage.InsightRate(),
	}, nil
}

// handleGetSuggestions runs the suggestion rules over the requested scope.
func (s *Server) handleGetSuggestions(ctx context.Context, args json.RawMessage) (any, error) {
	var a suggestionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	reqs, err := s.loadRequests(ctx)
	if err != nil {
		return nil, err
	}

	analysis := s.engine.Analyze(reqs, analyzer.NewFilter(a.EmployeeIDs, nil))
	all := suggest.Filter(suggest.NewEngine().Run(suggest.NewContext(analysis, s.thresholds)), a.Category)
	result := SuggestionsResult{Suggestions: all, Total: len(all)}
	if a.Limit > 0 && len(all) > a.Limit {
		result.Suggestions = all[:a.Limit]
	}
	if result.Suggestions == nil {
		result.Suggestions = []suggest.Suggestion{}
	}
	return result, nil
}

// handleReviewFeedback reviews the responses on a single request.
func (s *Server) handleReviewFeedback(ctx context.Context, args json.RawMessage) (any, error) {
	var a reviewArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.RequestID == "" {
		return nil, errors.New("request_id is required")
	}
	reqs, err := s.loadRequests(ctx)
	if err != nil {
		return nil, err
	}

	req := feedback.FindRequest(reqs, a.RequestID)
	if req == nil {
		return nil, fmt.Errorf("request %q not found", a.RequestID)
	}

	result := ReviewResult{
		RequestID:  req.ID,
		EmployeeID: req.EmployeeID,
		Reports:    reviewer.ReviewRequest(*req),
	}
	total := 0
	for _, r := range result.Reports {
		total += r.Score
		if r.Verdict == reviewer.VerdictWeak {
			result.WeakCount++
		}
	}
	if len(result.Reports) > 0 {
		result.AverageScore = float64(total) / float64(len(result.Reports))
	}
	return result, nil
}
