package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
)

func sampleRequests() []feedback.Request {
	return []feedback.Request{
		newRequest("r1", "e1",
			rating{rel: "senior_colleague", name: "Communication", score: 4, evidence: 3},
			rating{rel: "equal", name: "Communication", score: 5, evidence: 2},
			rating{rel: "junior", name: "Problem Solving", score: 2, evidence: 1},
		),
		newRequest("r2", "e2",
			rating{rel: "peer", name: "Communication", score: 3, evidence: 1},
			rating{rel: "peer", name: "Collaboration", score: 5, evidence: 4},
		),
	}
}

func TestEngine_Analyze(t *testing.T) {
	reqs := sampleRequests()
	reqs[1].Responses = []feedback.Response{
		{ID: "x1", Relationship: "peer"},
		{ID: "x2", Relationship: "manager"},
	}

	a := NewEngine(DefaultOptions(), nil).Analyze(reqs, Filter{})

	require.Len(t, a.Aggregates, 3)
	assert.True(t, a.UsedUnfiltered)
	assert.Equal(t, 3, a.Aggregates["Communication"].ReviewCount)

	assert.Equal(t, 3, a.Summary.CompetencyCount)
	assert.Equal(t, "Collaboration", a.Summary.Strongest)
	assert.Equal(t, "Problem Solving", a.Summary.Weakest)
	assert.Equal(t, 11, a.Summary.TotalEvidence)

	assert.Equal(t, 2, a.Coverage.TotalRequests)
	assert.Equal(t, 2, a.Coverage.RequestsWithInsights)
	assert.Equal(t, 2, a.Coverage.Employees)
	assert.Equal(t, 2, a.Coverage.TotalResponses)
	assert.Equal(t, 1, a.Coverage.ResponsesByRelationship[feedback.RelationshipPeer])
	assert.Equal(t, 1, a.Coverage.UnrecognizedResponses)
	assert.Equal(t, 3, a.Coverage.InsightsByRelationship[feedback.RelationshipPeer])
	assert.Contains(t, a.Coverage.MissingCompetencies, "Leadership & Influence")
	assert.NotContains(t, a.Coverage.MissingCompetencies, "Communication")
	assert.InDelta(t, 1.0, a.Coverage.InsightRate(), 1e-9)

	ordered := a.Ordered()
	require.Len(t, ordered, 3)
	assert.Equal(t, "Collaboration", ordered[0].Name)
	assert.Equal(t, "Problem Solving", ordered[2].Name)
}

func TestEngine_AllRelationshipsMatchesNoFilter(t *testing.T) {
	e := NewEngine(DefaultOptions(), nil)
	reqs := sampleRequests()

	none := e.Analyze(reqs, Filter{})
	all := e.Analyze(reqs, NewFilter(nil, []string{"senior", "peer", "junior"}))

	assert.Equal(t, none.Aggregates, all.Aggregates)
	assert.Equal(t, none.Summary, all.Summary)
}

func TestEngine_RelationshipFilter(t *testing.T) {
	a := NewEngine(DefaultOptions(), nil).Analyze(sampleRequests(), NewFilter(nil, []string{"junior"}))

	assert.False(t, a.UsedUnfiltered)
	require.Len(t, a.Aggregates, 1)
	_, ok := a.Aggregates["Problem Solving"]
	assert.True(t, ok)
	_, ok = a.Aggregates["Communication"]
	assert.False(t, ok)
}

func TestEngine_EmptyInput(t *testing.T) {
	a := NewEngine(DefaultOptions(), nil).Analyze(nil, Filter{})
	assert.Empty(t, a.Aggregates)
	assert.Zero(t, a.Summary.CompetencyCount)
	assert.Zero(t, a.Summary.OverallScore)
	assert.Len(t, a.Coverage.MissingCompetencies, len(feedback.CoreCompetencies))
	assert.Zero(t, a.Coverage.InsightRate())
}

func TestEngine_LogsSkippedEntries(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := NewEngine(DefaultOptions(), zap.New(core))

	reqs := []feedback.Request{newRequest("r1", "e1",
		rating{rel: "manager", name: "Communication", score: 4},
		rating{rel: "peer", name: "Communication", score: 4},
	)}
	a := e.Analyze(reqs, Filter{})

	assert.Equal(t, 1, a.SkippedScores)
	entries := logs.FilterMessage("skipped unusable competency entries").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["count"])
}

func TestEngine_AnalyzeByEmployee(t *testing.T) {
	reqs := sampleRequests()
	reqs[0].EmployeeName = "Ada"

	results := NewEngine(DefaultOptions(), nil).AnalyzeByEmployee(reqs, Filter{})
	require.Len(t, results, 2)

	assert.Equal(t, "e1", results[0].EmployeeID)
	assert.Equal(t, "Ada", results[0].EmployeeName)
	assert.Len(t, results[0].Analysis.Aggregates, 2)
	assert.Equal(t, 2, results[0].Analysis.Aggregates["Communication"].ReviewCount)

	assert.Equal(t, "e2", results[1].EmployeeID)
	assert.Equal(t, 1, results[1].Analysis.Coverage.TotalRequests)
}

func TestEngine_AnalyzeByEmployeeRespectsFilter(t *testing.T) {
	results := NewEngine(DefaultOptions(), nil).AnalyzeByEmployee(sampleRequests(), NewFilter([]string{"e2"}, nil))
	require.Len(t, results, 1)
	assert.Equal(t, "e2", results[0].EmployeeID)
}

func TestNewEngine_FillsZeroOptions(t *testing.T) {
	e := NewEngine(Options{}, nil)
	opts := e.Options()
	assert.Equal(t, DefaultRelationshipWeights, opts.Weights)
	assert.Equal(t, DefaultOutlierOptions(), opts.Outliers)
	assert.Equal(t, DefaultConfidenceOptions(), opts.Confidence)
}

func TestSummarize_TieBreaksAlphabetically(t *testing.T) {
	s := Summarize(map[string]CompetencyAggregate{
		"Communication": {Name: "Communication", Score: 4, Confidence: ConfidenceHigh},
		"Adaptability":  {Name: "Adaptability", Score: 4, Confidence: ConfidenceLow},
	})
	assert.Equal(t, "Adaptability", s.Strongest)
	assert.Equal(t, "Adaptability", s.Weakest)
	assert.Equal(t, 4.0, s.OverallScore)
	assert.Equal(t, 1, s.ConfidenceCounts[ConfidenceHigh])
	assert.Equal(t, 1, s.ConfidenceCounts[ConfidenceLow])
	assert.Equal(t, 0, s.ConfidenceCounts[ConfidenceMedium])
}
