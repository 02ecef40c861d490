// Package watcher re-runs competency aggregation whenever the feedback data
// directory changes and emits alerts for notable differences.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
	"github.com/blackwell-systems/feedbackwatch/internal/metrics"
)

// Alert levels.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Alert kinds.
const (
	KindNewRequest         = "new_request"
	KindConfidenceChange   = "confidence_change"
	KindScoreShift         = "score_shift"
	KindCompetencyAppeared = "competency_appeared"
	KindCompetencyRemoved  = "competency_removed"
	KindLoadFailed         = "load_failed"
)

// WatchState captures the analysis of the data directory at one point in time.
type WatchState struct {
	Timestamp    time.Time
	RequestCount int
	OverallScore float64

	requests     map[string]requestInfo
	competencies map[string]competencyInfo
	analysis     analyzer.Analysis
}

type requestInfo struct {
	EmployeeID string
	Responses  int
	Insights   int
}

type competencyInfo struct {
	Score      float64
	Confidence analyzer.ConfidenceLevel
	Reviews    int
}

// Analysis returns the full analysis the state was built from.
func (s *WatchState) Analysis() analyzer.Analysis {
	return s.analysis
}

// Alert represents a notable change detected by the watcher.
type Alert struct {
	Level   string
	Kind    string
	Title   string
	Message string
	Time    time.Time
}

// Watcher polls a feedback data directory at a regular interval and emits
// alerts when the aggregated scores change.
type Watcher struct {
	dataDir       string
	interval      time.Duration
	engine        *analyzer.Engine
	loader        *feedback.Loader
	logger        *zap.Logger
	previous      *WatchState
	alertFn       func(Alert)
	lastAlertKeys map[string]bool

	// Filter scopes the analysis, e.g. to one employee.
	Filter analyzer.Filter
	// ScoreShift is the minimum absolute score change that raises an alert.
	ScoreShift float64
	// Metrics, when set, is updated after every analysis and alert.
	Metrics *metrics.Recorder
}

// New creates a Watcher over dataDir. A nil logger discards log output.
func New(dataDir string, interval time.Duration, engine *analyzer.Engine, logger *zap.Logger, alertFn func(Alert)) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = analyzer.NewEngine(analyzer.DefaultOptions(), logger)
	}
	return &Watcher{
		dataDir:       dataDir,
		interval:      interval,
		engine:        engine,
		loader:        feedback.NewLoader(logger),
		logger:        logger,
		alertFn:       alertFn,
		lastAlertKeys: make(map[string]bool),
		ScoreShift:    DefaultScoreShift,
	}
}

// DefaultScoreShift is used when ScoreShift is not positive.
const DefaultScoreShift = 0.5

// Baseline snapshots the data directory and makes it the state the next
// check compares against.
func (w *Watcher) Baseline(ctx context.Context) (*WatchState, error) {
	state, err := w.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	w.previous = state
	return state, nil
}

// Run checks at every interval until ctx is cancelled. Without a prior
// Baseline it takes one first.
func (w *Watcher) Run(ctx context.Context) error {
	if w.previous == nil {
		if _, err := w.Baseline(ctx); err != nil {
			return fmt.Errorf("initial snapshot: %w", err)
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, a := range w.Check(ctx) {
				if w.alertFn != nil {
					w.alertFn(a)
				}
			}
		}
	}
}

// Check performs one cycle: takes a new snapshot, compares it against the
// previous state, and returns the alerts. Identical alerts are suppressed
// until the underlying data changes.
func (w *Watcher) Check(ctx context.Context) []Alert {
	var raw []Alert
	curr, err := w.Snapshot(ctx)
	if err != nil {
		w.Metrics.RecordLoadError()
		w.logger.Warn("watch snapshot failed", zap.String("dir", w.dataDir), zap.Error(err))
		raw = []Alert{{
			Level:   LevelWarning,
			Kind:    KindLoadFailed,
			Title:   "Snapshot failed",
			Message: fmt.Sprintf("Could not read feedback data: %v", err),
			Time:    time.Now(),
		}}
	} else {
		if w.previous != nil {
			raw = Compare(w.previous, curr, w.ScoreShift)
		}
		w.previous = curr
	}

	currentKeys := make(map[string]bool, len(raw))
	var alerts []Alert
	for _, a := range raw {
		key := a.Level + ":" + a.Title + ":" + a.Message
		currentKeys[key] = true
		if !w.lastAlertKeys[key] {
			alerts = append(alerts, a)
			w.Metrics.RecordAlert(a.Kind)
		}
	}
	w.lastAlertKeys = currentKeys

	w.logger.Debug("watch check complete", zap.Int("alerts", len(alerts)), zap.Int("suppressed", len(raw)-len(alerts)))
	return alerts
}

// Snapshot loads the data directory and analyzes it. An empty or missing
// directory yields an empty state rather than an error.
func (w *Watcher) Snapshot(ctx context.Context) (*WatchState, error) {
	start := time.Now()

	requests, err := w.loader.LoadPaths(ctx, w.dataDir)
	if err != nil && !errors.Is(err, feedback.ErrNoRequests) {
		return nil, fmt.Errorf("loading feedback: %w", err)
	}

	analysis := w.engine.Analyze(requests, w.Filter)
	w.Metrics.ObserveAnalysis(analysis, time.Since(start))

	state := &WatchState{
		Timestamp:    start,
		RequestCount: len(requests),
		OverallScore: analysis.Summary.OverallScore,
		requests:     make(map[string]requestInfo, len(requests)),
		competencies: make(map[string]competencyInfo, len(analysis.Aggregates)),
		analysis:     analysis,
	}
	for _, r := range requests {
		state.requests[r.ID] = requestInfo{
			EmployeeID: r.EmployeeID,
			Responses:  len(r.Responses),
			Insights:   len(r.Insights()),
		}
	}
	for name, agg := range analysis.Aggregates {
		state.competencies[name] = competencyInfo{
			Score:      agg.Score,
			Confidence: agg.Confidence,
			Reviews:    agg.ReviewCount,
		}
	}
	return state, nil
}
