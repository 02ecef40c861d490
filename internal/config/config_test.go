package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultWeights, cfg.Weights)
	assert.Equal(t, DefaultOutliers, cfg.Outliers)
	assert.Equal(t, DefaultConfidence, cfg.Confidence)
	assert.Equal(t, DefaultSuggest, cfg.Suggest)
	assert.Equal(t, DefaultWatch, cfg.Watch)
	assert.Equal(t, DefaultAI.Model, cfg.AI.Model)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Empty(t, cfg.Competencies)
	assert.False(t, filepath.IsAbs(DefaultDataDir))
	assert.True(t, filepath.IsAbs(cfg.DataDir), "data dir should be expanded")
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /srv/feedback
weights:
  senior: 0.5
  peer: 0.3
  junior: 0.2
outliers:
  threshold: 2.5
competencies:
  - Communication
  - Delivery
ai:
  api_key: from-file
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/feedback", cfg.DataDir)
	assert.Equal(t, Weights{Senior: 0.5, Peer: 0.3, Junior: 0.2}, cfg.Weights)
	assert.Equal(t, 2.5, cfg.Outliers.Threshold)
	assert.Equal(t, DefaultOutliers.MinReviews, cfg.Outliers.MinReviews)
	assert.Equal(t, []string{"Communication", "Delivery"}, cfg.Competencies)
	assert.Equal(t, "from-file", cfg.AI.APIKey)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FEEDBACKWATCH_DATA_DIR", "/tmp/exports")
	t.Setenv("FEEDBACKWATCH_WATCH_SCORE_SHIFT", "0.75")
	t.Setenv("ANTHROPIC_API_KEY", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/exports", cfg.DataDir)
	assert.Equal(t, 0.75, cfg.Watch.ScoreShift)
	assert.Equal(t, "from-env", cfg.AI.APIKey)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weights: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
	assert.Equal(t, "/abs", expandPath("/abs"))
}
