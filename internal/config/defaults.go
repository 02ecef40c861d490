// Package config provides configuration loading and defaults for feedbackwatch.
package config

// DefaultDataDir is where feedback export files are read from.
const DefaultDataDir = "~/.config/feedbackwatch/data"

// DefaultConfigDir is the default location for feedbackwatch configuration.
const DefaultConfigDir = "~/.config/feedbackwatch"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "feedbackwatch.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// EnvPrefix prefixes environment overrides, e.g. FEEDBACKWATCH_DATA_DIR.
const EnvPrefix = "FEEDBACKWATCH"

// DefaultWeights holds the base aggregation weight per reviewer relationship.
var DefaultWeights = Weights{
	Senior: 0.40,
	Peer:   0.35,
	Junior: 0.25,
}

// DefaultOutliers holds the outlier detection constants.
var DefaultOutliers = Outliers{
	Threshold:       2.0,
	MinReviews:      3,
	MinWeightFactor: 0.25,
}

// DefaultConfidence holds the confidence sub-factor weights and label thresholds.
var DefaultConfidence = Confidence{
	EvidenceSaturation: 10,
	EvidenceWeight:     0.3,
	CoverageWeight:     0.3,
	ConsistencyWeight:  0.2,
	DistributionWeight: 0.2,
	OutlierPenalty:     0.5,
	HighThreshold:      0.8,
	MediumThreshold:    0.6,
}

// DefaultSuggest holds the thresholds used by the suggestion rules.
var DefaultSuggest = Suggest{
	DevelopmentThreshold: 3.0,
	StrengthThreshold:    4.0,
	PerceptionGap:        1.0,
}

// DefaultWatch holds the watcher defaults.
var DefaultWatch = Watch{
	ScoreShift: 0.5,
	Interval:   "5m",
}

// DefaultAI holds the defaults for AI-assisted insight extraction.
var DefaultAI = AI{
	Model:   "claude-sonnet-4-20250514",
	BaseURL: "https://api.anthropic.com",
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 80,
}

// DefaultLogLevel is the zap level used when --verbose is not set.
const DefaultLogLevel = "warn"
