package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_CreatesFileAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "feedbackwatch.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var version int
	require.NoError(t, db.Conn().QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	// Migrating again is a no-op.
	require.NoError(t, db.Migrate())
}

func TestSnapshots(t *testing.T) {
	db := openTestDB(t)

	latest, err := db.GetLatestSnapshot()
	require.NoError(t, err)
	assert.Nil(t, latest)

	first, err := db.CreateSnapshot("track", "dev", "", "")
	require.NoError(t, err)
	second, err := db.CreateSnapshot("track", "dev", "e1", "peer")
	require.NoError(t, err)

	latest, err = db.GetLatestSnapshot()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second, latest.ID)
	assert.Equal(t, "e1", latest.EmployeeFilter)
	assert.Equal(t, "peer", latest.RelationshipFilter)
	assert.False(t, latest.TakenAt.IsZero())

	prev, err := db.GetSnapshotN(2)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, first, prev.ID)

	none, err := db.GetSnapshotN(3)
	require.NoError(t, err)
	assert.Nil(t, none)

	recent, err := db.GetRecentSnapshots(5)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, second, recent[0].ID)
}

func TestCompetencyScores(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateSnapshot("track", "dev", "", "")
	require.NoError(t, err)

	require.NoError(t, db.InsertCompetencyScores([]CompetencyScoreRow{
		{SnapshotID: id, Competency: "Communication", Score: 4.043, AverageScore: 4, Confidence: "medium", ConfidenceValue: 0.65, EvidenceCount: 4, ReviewCount: 3},
		{SnapshotID: id, Competency: "Adaptability", Score: 3.1, Confidence: "low", ReviewCount: 1},
		{SnapshotID: id, EmployeeID: "e1", Competency: "Communication", Score: 4.5, Confidence: "low", ReviewCount: 2},
	}))

	rows, err := db.GetCompetencyScores(id)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Adaptability", rows[0].Competency)
	assert.Equal(t, "Communication", rows[1].Competency)
	assert.Equal(t, 4.043, rows[1].Score)
	assert.Equal(t, "medium", rows[1].Confidence)
	assert.Equal(t, 3, rows[1].ReviewCount)

	emp, err := db.GetEmployeeCompetencyScores(id, "e1")
	require.NoError(t, err)
	require.Len(t, emp, 1)
	assert.Equal(t, 4.5, emp[0].Score)
}

func TestAggregateMetrics(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateSnapshot("track", "dev", "", "")
	require.NoError(t, err)

	require.NoError(t, db.InsertAggregateMetric(id, "overall_score", 3.8, ""))
	require.NoError(t, db.InsertAggregateMetric(id, "insight_rate", 0.75, "3/4"))

	metrics, err := db.GetAggregateMetrics(id)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "insight_rate", metrics[0].MetricName)
	assert.Equal(t, "3/4", metrics[0].Detail)
}

func TestSuggestions(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateSnapshot("track", "dev", "", "")
	require.NoError(t, err)

	low := &Suggestion{SnapshotID: id, Category: "coverage", Priority: 2, Title: "low", Description: "d", ImpactScore: 1}
	high := &Suggestion{SnapshotID: id, Category: "development", Priority: 1, Competency: "Communication", Title: "high", Description: "d", ImpactScore: 5}
	require.NoError(t, db.InsertSuggestion(low))
	require.NoError(t, db.InsertSuggestion(high))
	assert.Equal(t, StatusOpen, low.Status)
	assert.NotZero(t, high.ID)

	open, err := db.GetOpenSuggestions()
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "high", open[0].Title)
	assert.Equal(t, "Communication", open[0].Competency)

	require.NoError(t, db.ResolveSuggestion(high.ID))
	open, err = db.GetOpenSuggestions()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "low", open[0].Title)
}

func TestKV(t *testing.T) {
	db := openTestDB(t)

	_, ok, err := db.GetKV("filter.team")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SetKV("filter.team", `{"employee_ids":["e1"]}`))
	require.NoError(t, db.SetKV("filter.team", `{"employee_ids":["e2"]}`))
	require.NoError(t, db.SetKV("collapsed.report", "summary"))

	v, ok, err := db.GetKV("filter.team")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"employee_ids":["e2"]}`, v)

	keys, err := db.ListKV("filter.")
	require.NoError(t, err)
	assert.Equal(t, []string{"filter.team"}, keys)

	require.NoError(t, db.DeleteKV("filter.team"))
	require.NoError(t, db.DeleteKV("filter.team"))
	_, ok, err = db.GetKV("filter.team")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompareCompetencies(t *testing.T) {
	prev := []CompetencyScoreRow{
		{Competency: "Communication", Score: 3.5},
		{Competency: "Adaptability", Score: 4.0},
		{Competency: "Leadership & Influence", Score: 2.0},
		{Competency: "Problem Solving", Score: 3.0},
	}
	curr := []CompetencyScoreRow{
		{Competency: "Communication", Score: 4.0},
		{Competency: "Adaptability", Score: 3.5},
		{Competency: "Problem Solving", Score: 3.0005},
		{Competency: "Growth Mindset", Score: 4.2},
	}

	deltas := CompareCompetencies(prev, curr, 0.001)
	byName := make(map[string]MetricDelta)
	for _, d := range deltas {
		byName[d.Name] = d
	}

	require.Len(t, deltas, 5)
	assert.Equal(t, DirectionImproved, byName["Communication"].Direction)
	assert.InDelta(t, 0.5, byName["Communication"].Delta, 1e-9)
	assert.Equal(t, DirectionRegressed, byName["Adaptability"].Direction)
	assert.Equal(t, DirectionUnchanged, byName["Problem Solving"].Direction)
	assert.Equal(t, DirectionNew, byName["Growth Mindset"].Direction)
	assert.Equal(t, DirectionRemoved, byName["Leadership & Influence"].Direction)

	diff := NewSnapshotDiff(&Snapshot{ID: 1}, &Snapshot{ID: 2}, deltas, nil)
	assert.Equal(t, 1, diff.Improved)
	assert.Equal(t, 1, diff.Regressed)
	assert.Equal(t, 1, diff.Unchanged)
	assert.Equal(t, []string{"Growth Mindset"}, diff.Appeared)
	assert.Equal(t, []string{"Leadership & Influence"}, diff.Disappeared)
}

func TestCompareMetrics(t *testing.T) {
	prev := []AggregateMetric{{MetricName: "low_confidence", MetricValue: 3}, {MetricName: "overall_score", MetricValue: 3.5}}
	curr := []AggregateMetric{{MetricName: "low_confidence", MetricValue: 1}, {MetricName: "overall_score", MetricValue: 3.2}}

	deltas := CompareMetrics(prev, curr, map[string]bool{"low_confidence": false})
	require.Len(t, deltas, 2)
	assert.Equal(t, DirectionImproved, deltas[0].Direction)
	assert.Equal(t, DirectionRegressed, deltas[1].Direction)
}
