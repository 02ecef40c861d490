package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/config"
	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
	"github.com/blackwell-systems/feedbackwatch/internal/reviewer"
	"github.com/blackwell-systems/feedbackwatch/internal/suggest"
)

const sampleExport = `{
  "requests": [
    {
      "id": "req-1",
      "employee_id": "e1",
      "analytics": {"insights": [
        {"relationship": "senior", "competencies": [
          {"name": "Communication", "score": 4.5, "evidenceCount": 4},
          {"name": "Problem Solving", "score": 2.0, "evidenceCount": 3}
        ]},
        {"relationship": "junior_colleague", "competencies": [
          {"name": "Communication", "score": 3.0, "evidenceCount": 2}
        ]}
      ]},
      "feedback_responses": [
        {"id": "resp-1", "relationship": "senior", "strengths": "Good job.", "areas_for_improvement": ""},
        {"id": "resp-2", "relationship": "junior_colleague",
         "strengths": "For example, she walked me through the 3 failing deploys and explained each fix.",
         "areas_for_improvement": "She could share the on-call runbook earlier so we can prepare."}
      ]
    },
    {
      "id": "req-2",
      "employee_id": "e2",
      "analytics": {"insights": [
        {"relationship": "peer", "competencies": [
          {"name": "Collaboration", "score": 4.0, "evidenceCount": 2}
        ]}
      ]}
    }
  ]
}`

// newTestServer creates a Server over a temp directory holding sampleExport.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "export.json"), []byte(sampleExport), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	cfg := &config.Config{DataDir: dir, Suggest: config.DefaultSuggest}
	return NewServer(cfg, nil, "test", nil)
}

// callTool invokes the named tool handler and returns the result.
func callTool(t *testing.T, s *Server, name string, args string) (any, error) {
	t.Helper()
	for _, tool := range s.tools {
		if tool.Name == name {
			return tool.Handler(context.Background(), json.RawMessage(args))
		}
	}
	t.Fatalf("tool %q not registered", name)
	return nil, nil
}

func TestAddTools_RegistersAll(t *testing.T) {
	s := newEmptyServer()
	want := []string{"get_competency_scores", "get_coverage", "get_suggestions", "review_feedback"}
	if len(s.tools) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(s.tools))
	}
	for i, name := range want {
		if s.tools[i].Name != name {
			t.Errorf("tool %d: expected %q, got %q", i, name, s.tools[i].Name)
		}
		var schema map[string]any
		if err := json.Unmarshal(s.tools[i].InputSchema, &schema); err != nil {
			t.Errorf("tool %q has invalid schema: %v", name, err)
		}
	}
}

func TestGetCompetencyScores_All(t *testing.T) {
	s := newTestServer(t)
	res, err := callTool(t, s, "get_competency_scores", `{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := res.(CompetencyScoresResult)
	if len(r.Competencies) != 3 {
		t.Fatalf("expected 3 competencies, got %d", len(r.Competencies))
	}
	// Ordered by score descending.
	for i := 1; i < len(r.Competencies); i++ {
		if r.Competencies[i].Score > r.Competencies[i-1].Score {
			t.Errorf("competencies not ordered by score: %+v", r.Competencies)
		}
	}
	if r.Summary.CompetencyCount != 3 {
		t.Errorf("expected summary over 3 competencies, got %d", r.Summary.CompetencyCount)
	}
}

func TestGetCompetencyScores_Filtered(t *testing.T) {
	s := newTestServer(t)
	res, err := callTool(t, s, "get_competency_scores", `{"employee_ids":["e1"],"relationships":["junior"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := res.(CompetencyScoresResult)
	if len(r.Competencies) != 1 || r.Competencies[0].Name != "Communication" {
		t.Fatalf("expected only Communication, got %+v", r.Competencies)
	}
	if r.Competencies[0].Score != 3.0 {
		t.Errorf("expected junior-only score 3.0, got %v", r.Competencies[0].Score)
	}
	if len(r.Filter.EmployeeIDs) != 1 || r.Filter.EmployeeIDs[0] != "e1" {
		t.Errorf("expected filter to echo e1, got %v", r.Filter.EmployeeIDs)
	}
}

func TestGetCompetencyScores_InvalidArgs(t *testing.T) {
	s := newTestServer(t)
	_, err := callTool(t, s, "get_competency_scores", `{"employee_ids":"e1"}`)
	if err == nil || !strings.Contains(err.Error(), "invalid arguments") {
		t.Errorf("expected invalid arguments error, got %v", err)
	}
}

func TestGetCompetencyScores_UnrecognizedRelationships(t *testing.T) {
	s := newTestServer(t)
	_, err := callTool(t, s, "get_competency_scores", `{"relationships":["manager","board"]}`)
	if !errors.Is(err, analyzer.ErrNoRecognizedRelationship) {
		t.Fatalf("expected ErrNoRecognizedRelationship, got %v", err)
	}

	// One known value among unknown ones still filters.
	res, err := callTool(t, s, "get_competency_scores", `{"relationships":["manager","junior"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f := res.(CompetencyScoresResult).Filter; len(f.Relationships) != 1 || f.Relationships[0] != feedback.RelationshipJunior {
		t.Errorf("expected junior-only filter, got %v", f.Relationships)
	}
}

func TestGetCompetencyScores_NoData(t *testing.T) {
	s := newEmptyServer()
	res, err := callTool(t, s, "get_competency_scores", `{}`)
	if err != nil {
		t.Fatalf("missing data should not be an error: %v", err)
	}
	if n := len(res.(CompetencyScoresResult).Competencies); n != 0 {
		t.Errorf("expected no competencies, got %d", n)
	}
}

func TestGetCoverage(t *testing.T) {
	s := newTestServer(t)
	res, err := callTool(t, s, "get_coverage", `{"employee_ids":["e1"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := res.(CoverageResult)
	if r.TotalRequests != 1 {
		t.Errorf("expected 1 request, got %d", r.TotalRequests)
	}
	if r.TotalResponses != 2 {
		t.Errorf("expected 2 responses, got %d", r.TotalResponses)
	}
	if r.InsightRate != 1.0 {
		t.Errorf("expected insight rate 1.0, got %v", r.InsightRate)
	}
	if len(r.MissingCompetencies) == 0 {
		t.Error("expected missing core competencies to be listed")
	}
}

func TestGetSuggestions(t *testing.T) {
	s := newTestServer(t)
	res, err := callTool(t, s, "get_suggestions", `{"employee_ids":["e1"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := res.(SuggestionsResult)
	if r.Total == 0 || len(r.Suggestions) != r.Total {
		t.Fatalf("expected suggestions, got total=%d len=%d", r.Total, len(r.Suggestions))
	}

	res, err = callTool(t, s, "get_suggestions", `{"employee_ids":["e1"],"category":"coverage","limit":1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r = res.(SuggestionsResult)
	if len(r.Suggestions) != 1 {
		t.Fatalf("expected limit to cap at 1, got %d", len(r.Suggestions))
	}
	if r.Suggestions[0].Category != suggest.CategoryCoverage {
		t.Errorf("expected coverage category, got %q", r.Suggestions[0].Category)
	}
}

func TestGetSuggestions_UnknownCategoryIsEmptyList(t *testing.T) {
	s := newTestServer(t)
	res, err := callTool(t, s, "get_suggestions", `{"category":"nonexistent"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := json.Marshal(res)
	if !strings.Contains(string(out), `"suggestions":[]`) {
		t.Errorf("expected an empty JSON list, got %s", out)
	}
}

func TestReviewFeedback(t *testing.T) {
	s := newTestServer(t)
	res, err := callTool(t, s, "review_feedback", `{"request_id":"req-1"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := res.(ReviewResult)
	if r.EmployeeID != "e1" || len(r.Reports) != 2 {
		t.Fatalf("unexpected result: %+v", r)
	}
	if r.Reports[0].Verdict != reviewer.VerdictWeak {
		t.Errorf("expected the one-line response to be weak, got %q", r.Reports[0].Verdict)
	}
	if r.WeakCount != 1 {
		t.Errorf("expected 1 weak response, got %d", r.WeakCount)
	}
	if r.AverageScore <= 0 {
		t.Errorf("expected positive average, got %v", r.AverageScore)
	}
}

func TestReviewFeedback_Errors(t *testing.T) {
	s := newTestServer(t)
	if _, err := callTool(t, s, "review_feedback", `{}`); err == nil {
		t.Error("expected error for missing request_id")
	}
	_, err := callTool(t, s, "review_feedback", `{"request_id":"missing"}`)
	if err == nil || !strings.Contains(err.Error(), `"missing" not found`) {
		t.Errorf("expected not found error, got %v", err)
	}
}
