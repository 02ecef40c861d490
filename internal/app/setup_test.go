package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/config"
	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
	"github.com/blackwell-systems/feedbackwatch/internal/prefs"
)

func testConfig() *config.Config {
	return &config.Config{
		Weights:    config.DefaultWeights,
		Outliers:   config.DefaultOutliers,
		Confidence: config.DefaultConfidence,
		Suggest:    config.DefaultSuggest,
		Watch:      config.DefaultWatch,
	}
}

func TestEngineOptions_MapsConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Weights.Senior = 0.5
	cfg.Outliers.Threshold = 1.5
	cfg.Confidence.HighThreshold = 0.9
	cfg.Competencies = []string{"Communication"}

	opts := engineOptions(cfg)
	assert.Equal(t, 0.5, opts.Weights.Senior)
	assert.Equal(t, config.DefaultWeights.Peer, opts.Weights.Peer)
	assert.Equal(t, 1.5, opts.Outliers.Threshold)
	assert.Equal(t, 0.9, opts.Confidence.HighThreshold)
	assert.Equal(t, analyzer.DefaultConfidenceOptions().VarianceScale, opts.Confidence.VarianceScale)
	assert.Equal(t, []string{"Communication"}, opts.Competencies)
}

func TestEngineOptions_DefaultCompetencies(t *testing.T) {
	opts := engineOptions(testConfig())
	assert.Equal(t, feedback.CoreCompetencies, opts.Competencies)
}

func TestSuggestThresholds(t *testing.T) {
	cfg := testConfig()
	cfg.Suggest.PerceptionGap = 1.5

	th := suggestThresholds(cfg)
	assert.Equal(t, config.DefaultSuggest.DevelopmentThreshold, th.DevelopmentThreshold)
	assert.Equal(t, 1.5, th.PerceptionGap)
}

func TestResolveFilter(t *testing.T) {
	ps := prefs.NewMemory()
	require.NoError(t, prefs.SaveFilter(ps, "team", prefs.SavedFilter{
		EmployeeIDs:   []string{"e2", "e1"},
		Relationships: []string{"senior"},
	}))

	t.Run("flags only", func(t *testing.T) {
		f, err := resolveFilter(ps, "", []string{"e3"}, []string{"peer_colleague"})
		require.NoError(t, err)
		assert.Equal(t, []string{"e3"}, f.EmployeeIDs)
		assert.Equal(t, []feedback.Relationship{feedback.RelationshipPeer}, f.Relationships)
	})

	t.Run("saved filter", func(t *testing.T) {
		f, err := resolveFilter(ps, "team", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"e1", "e2"}, f.EmployeeIDs)
		assert.Equal(t, []feedback.Relationship{feedback.RelationshipSenior}, f.Relationships)
	})

	t.Run("flags override saved fields", func(t *testing.T) {
		f, err := resolveFilter(ps, "team", nil, []string{"junior"})
		require.NoError(t, err)
		assert.Equal(t, []string{"e1", "e2"}, f.EmployeeIDs)
		assert.Equal(t, []feedback.Relationship{feedback.RelationshipJunior}, f.Relationships)
	})

	t.Run("unknown saved filter", func(t *testing.T) {
		_, err := resolveFilter(ps, "missing", nil, nil)
		assert.ErrorContains(t, err, `no saved filter named "missing"`)
	})

	t.Run("only unrecognized relationships", func(t *testing.T) {
		_, err := resolveFilter(ps, "", nil, []string{"manager"})
		assert.ErrorContains(t, err, "no recognized relationship")
	})
}

func TestSavedFilterFrom(t *testing.T) {
	f := analyzer.NewFilter([]string{"e1"}, []string{"equal", "senior"})
	s := savedFilterFrom(f)
	assert.Equal(t, []string{"e1"}, s.EmployeeIDs)
	assert.Equal(t, []string{"senior", "peer"}, s.Relationships)
}

func TestUpdateCollapsed(t *testing.T) {
	ps := prefs.NewMemory()

	require.NoError(t, updateCollapsed(ps, []string{sectionOutliers, sectionRelationships}, nil))
	assert.True(t, prefs.IsCollapsed(ps, reportView, sectionOutliers))
	assert.True(t, prefs.IsCollapsed(ps, reportView, sectionRelationships))

	require.NoError(t, updateCollapsed(ps, nil, []string{sectionOutliers}))
	assert.False(t, prefs.IsCollapsed(ps, reportView, sectionOutliers))
	assert.True(t, prefs.IsCollapsed(ps, reportView, sectionRelationships))

	assert.ErrorContains(t, updateCollapsed(ps, []string{"summary"}, nil), `unknown report section "summary"`)
}

func TestDescribeFilter(t *testing.T) {
	assert.Equal(t, "all employees · all relationships", describeFilter(analyzer.Filter{}))
	assert.Equal(t, "employees e1, e2 · senior, junior reviewers",
		describeFilter(analyzer.NewFilter([]string{"e2", "e1"}, []string{"junior", "senior"})))
}
