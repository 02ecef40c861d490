package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level feedbackwatch configuration.
type Config struct {
	DataDir      string     `mapstructure:"data_dir"`
	Weights      Weights    `mapstructure:"weights"`
	Outliers     Outliers   `mapstructure:"outliers"`
	Confidence   Confidence `mapstructure:"confidence"`
	Competencies []string   `mapstructure:"competencies"`
	Suggest      Suggest    `mapstructure:"suggest"`
	Watch        Watch      `mapstructure:"watch"`
	AI           AI         `mapstructure:"ai"`
	Output       Output     `mapstructure:"output"`
	Log          Log        `mapstructure:"log"`
}

// Weights defines the base aggregation weight per reviewer relationship.
type Weights struct {
	Senior float64 `mapstructure:"senior"`
	Peer   float64 `mapstructure:"peer"`
	Junior float64 `mapstructure:"junior"`
}

// Outliers defines outlier detection settings.
type Outliers struct {
	Threshold       float64 `mapstructure:"threshold"`
	MinReviews      int     `mapstructure:"min_reviews"`
	MinWeightFactor float64 `mapstructure:"min_weight_factor"`
}

// Confidence defines confidence scoring weights and thresholds.
type Confidence struct {
	EvidenceSaturation float64 `mapstructure:"evidence_saturation"`
	EvidenceWeight     float64 `mapstructure:"evidence_weight"`
	CoverageWeight     float64 `mapstructure:"coverage_weight"`
	ConsistencyWeight  float64 `mapstructure:"consistency_weight"`
	DistributionWeight float64 `mapstructure:"distribution_weight"`
	OutlierPenalty     float64 `mapstructure:"outlier_penalty"`
	HighThreshold      float64 `mapstructure:"high_threshold"`
	MediumThreshold    float64 `mapstructure:"medium_threshold"`
}

// Suggest defines thresholds for the suggestion rules.
type Suggest struct {
	DevelopmentThreshold float64 `mapstructure:"development_threshold"`
	StrengthThreshold    float64 `mapstructure:"strength_threshold"`
	PerceptionGap        float64 `mapstructure:"perception_gap"`
}

// Watch defines watcher settings.
type Watch struct {
	ScoreShift float64 `mapstructure:"score_shift"`
	Interval   string  `mapstructure:"interval"`
}

// AI defines settings for the Anthropic API client.
type AI struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// Log defines logging preferences.
type Log struct {
	Level string `mapstructure:"level"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied. Environment variables
// prefixed with FEEDBACKWATCH_ override file values.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("weights.senior", DefaultWeights.Senior)
	v.SetDefault("weights.peer", DefaultWeights.Peer)
	v.SetDefault("weights.junior", DefaultWeights.Junior)
	v.SetDefault("outliers.threshold", DefaultOutliers.Threshold)
	v.SetDefault("outliers.min_reviews", DefaultOutliers.MinReviews)
	v.SetDefault("outliers.min_weight_factor", DefaultOutliers.MinWeightFactor)
	v.SetDefault("confidence.evidence_saturation", DefaultConfidence.EvidenceSaturation)
	v.SetDefault("confidence.evidence_weight", DefaultConfidence.EvidenceWeight)
	v.SetDefault("confidence.coverage_weight", DefaultConfidence.CoverageWeight)
	v.SetDefault("confidence.consistency_weight", DefaultConfidence.ConsistencyWeight)
	v.SetDefault("confidence.distribution_weight", DefaultConfidence.DistributionWeight)
	v.SetDefault("confidence.outlier_penalty", DefaultConfidence.OutlierPenalty)
	v.SetDefault("confidence.high_threshold", DefaultConfidence.HighThreshold)
	v.SetDefault("confidence.medium_threshold", DefaultConfidence.MediumThreshold)
	v.SetDefault("competencies", []string{})
	v.SetDefault("suggest.development_threshold", DefaultSuggest.DevelopmentThreshold)
	v.SetDefault("suggest.strength_threshold", DefaultSuggest.StrengthThreshold)
	v.SetDefault("suggest.perception_gap", DefaultSuggest.PerceptionGap)
	v.SetDefault("watch.score_shift", DefaultWatch.ScoreShift)
	v.SetDefault("watch.interval", DefaultWatch.Interval)
	v.SetDefault("ai.model", DefaultAI.Model)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", DefaultAI.BaseURL)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)
	v.SetDefault("log.level", DefaultLogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(expandPath(DefaultConfigDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// The Anthropic SDK convention is honored when no key is configured.
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	cfg.DataDir = expandPath(cfg.DataDir)
	return &cfg, nil
}

// DBPath returns the full path to the SQLite database.
func DBPath() string {
	return filepath.Join(expandPath(DefaultConfigDir), DefaultDBName)
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
