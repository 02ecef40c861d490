package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/config"
	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
	"github.com/blackwell-systems/feedbackwatch/internal/logging"
	"github.com/blackwell-systems/feedbackwatch/internal/output"
	"github.com/blackwell-systems/feedbackwatch/internal/prefs"
	"github.com/blackwell-systems/feedbackwatch/internal/store"
	"github.com/blackwell-systems/feedbackwatch/internal/suggest"
)

// runEnv holds what every command builds from the global flags.
type runEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	engine *analyzer.Engine
}

// setup loads config, configures color output and builds the logger and
// analysis engine.
func setup() (*runEnv, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	output.AutoColor(flagNoColor, cfg.Output.Color)

	logger, err := logging.New(cfg.Log.Level, flagVerbose)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return &runEnv{
		cfg:    cfg,
		logger: logger,
		engine: analyzer.NewEngine(engineOptions(cfg), logger),
	}, nil
}

func (e *runEnv) close() {
	_ = e.logger.Sync()
}

// dataPaths returns the --data paths, or the configured data directory.
func (e *runEnv) dataPaths() []string {
	if len(flagData) > 0 {
		return flagData
	}
	return []string{e.cfg.DataDir}
}

// loadRequests reads every feedback request from the data paths.
func (e *runEnv) loadRequests(ctx context.Context) ([]feedback.Request, error) {
	reqs, err := feedback.NewLoader(e.logger).LoadPaths(ctx, e.dataPaths()...)
	if errors.Is(err, feedback.ErrNoRequests) {
		return nil, fmt.Errorf("%w in %v (set data_dir in the config or pass --data)", err, e.dataPaths())
	}
	if err != nil {
		return nil, err
	}
	e.logger.Debug("loaded feedback requests", zap.Int("count", len(reqs)))
	return reqs, nil
}

// engineOptions maps the config file onto the aggregation pipeline options.
func engineOptions(cfg *config.Config) analyzer.Options {
	opts := analyzer.DefaultOptions()
	opts.Weights = analyzer.RelationshipWeights{
		Senior: cfg.Weights.Senior,
		Peer:   cfg.Weights.Peer,
		Junior: cfg.Weights.Junior,
	}
	opts.Outliers = analyzer.OutlierOptions{
		Threshold:       cfg.Outliers.Threshold,
		MinReviews:      cfg.Outliers.MinReviews,
		MinWeightFactor: cfg.Outliers.MinWeightFactor,
	}
	opts.Confidence.EvidenceSaturation = cfg.Confidence.EvidenceSaturation
	opts.Confidence.EvidenceWeight = cfg.Confidence.EvidenceWeight
	opts.Confidence.CoverageWeight = cfg.Confidence.CoverageWeight
	opts.Confidence.ConsistencyWeight = cfg.Confidence.ConsistencyWeight
	opts.Confidence.DistributionWeight = cfg.Confidence.DistributionWeight
	opts.Confidence.OutlierPenalty = cfg.Confidence.OutlierPenalty
	opts.Confidence.HighThreshold = cfg.Confidence.HighThreshold
	opts.Confidence.MediumThreshold = cfg.Confidence.MediumThreshold
	if len(cfg.Competencies) > 0 {
		opts.Competencies = cfg.Competencies
	}
	return opts
}

// suggestThresholds maps the config file onto the suggestion rule thresholds.
func suggestThresholds(cfg *config.Config) suggest.Thresholds {
	return suggest.Thresholds{
		DevelopmentThreshold: cfg.Suggest.DevelopmentThreshold,
		StrengthThreshold:    cfg.Suggest.StrengthThreshold,
		PerceptionGap:        cfg.Suggest.PerceptionGap,
	}
}

// openPrefs returns the preference store. Without write access and with no
// database on disk yet, an empty in-memory store is used so read-only
// commands never create the database.
func openPrefs(write bool) (prefs.Store, func(), error) {
	path := config.DBPath()
	if !write {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return prefs.NewMemory(), func() {}, nil
		}
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return prefs.NewSQLite(db), func() { _ = db.Close() }, nil
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
