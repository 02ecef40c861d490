package analyzer

import (
	"sort"

	"go.uber.org/zap"

	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
)

// Options tunes the whole aggregation pipeline.
type Options struct {
	Weights    RelationshipWeights `json:"weights"`
	Outliers   OutlierOptions      `json:"outliers"`
	Confidence ConfidenceOptions   `json:"confidence"`

	// Competencies is the core taxonomy used to report coverage gaps.
	Competencies []string `json:"competencies,omitempty"`
}

// DefaultOptions returns the reference pipeline configuration.
func DefaultOptions() Options {
	return Options{
		Weights:      DefaultRelationshipWeights,
		Outliers:     DefaultOutlierOptions(),
		Confidence:   DefaultConfidenceOptions(),
		Competencies: feedback.CoreCompetencies,
	}
}

// Analysis is the result of one pipeline run.
type Analysis struct {
	Filter     Filter                         `json:"filter"`
	Aggregates map[string]CompetencyAggregate `json:"competencies"`
	Summary    Summary                        `json:"summary"`
	Coverage   Coverage                       `json:"coverage"`

	// UsedUnfiltered is true when the relationship filter selected everything
	// and the unfiltered score set was aggregated.
	UsedUnfiltered bool `json:"used_unfiltered"`
	SkippedScores  int  `json:"skipped_scores"`
}

// Ordered returns the aggregates sorted by score descending, then by name.
func (a Analysis) Ordered() []CompetencyAggregate {
	out := make([]CompetencyAggregate, 0, len(a.Aggregates))
	for _, agg := range a.Aggregates {
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// EmployeeAnalysis is an Analysis scoped to one reviewed person.
type EmployeeAnalysis struct {
	EmployeeID   string   `json:"employee_id"`
	EmployeeName string   `json:"employee_name,omitempty"`
	Analysis     Analysis `json:"analysis"`
}

// Engine runs the collect, adjust, aggregate and confidence pipeline.
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// NewEngine creates an Engine. A nil logger discards log output.
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Weights == (RelationshipWeights{}) {
		opts.Weights = DefaultRelationshipWeights
	}
	opts.Outliers = opts.Outliers.withDefaults()
	opts.Confidence = opts.Confidence.withDefaults()
	return &Engine{opts: opts, logger: logger}
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Analyze aggregates every competency in requests that passes filter.
func (e *Engine) Analyze(requests []feedback.Request, filter Filter) Analysis {
	collection := CollectScores(requests, filter, e.opts.Weights)

	aggregates := make(map[string]CompetencyAggregate)
	for name, scores := range collection.Scores() {
		adjusted := AdjustOutliers(scores, e.opts.Outliers)
		agg, ok := AggregateCompetency(name, adjusted, e.opts.Confidence)
		if !ok {
			e.logger.Debug("dropping competency with no weight", zap.String("competency", name))
			continue
		}
		aggregates[name] = agg
	}

	if collection.Skipped > 0 {
		e.logger.Debug("skipped unusable competency entries", zap.Int("count", collection.Skipped))
	}

	return Analysis{
		Filter:         filter,
		Aggregates:     aggregates,
		Summary:        Summarize(aggregates),
		Coverage:       ComputeCoverage(requests, filter, e.opts.Competencies, aggregates),
		UsedUnfiltered: collection.UsesAll,
		SkippedScores:  collection.Skipped,
	}
}

// AnalyzeByEmployee runs Analyze once per reviewed person admitted by
// filter, sorted by employee ID.
func (e *Engine) AnalyzeByEmployee(requests []feedback.Request, filter Filter) []EmployeeAnalysis {
	names := make(map[string]string)
	var ids []string
	for _, req := range requests {
		if req.EmployeeID == "" || !filter.includesEmployee(req.EmployeeID) {
			continue
		}
		if _, ok := names[req.EmployeeID]; !ok {
			ids = append(ids, req.EmployeeID)
			names[req.EmployeeID] = ""
		}
		if req.EmployeeName != "" {
			names[req.EmployeeID] = req.EmployeeName
		}
	}
	sort.Strings(ids)

	out := make([]EmployeeAnalysis, 0, len(ids))
	for _, id := range ids {
		scoped := Filter{EmployeeIDs: []string{id}, Relationships: filter.Relationships}
		out = append(out, EmployeeAnalysis{
			EmployeeID:   id,
			EmployeeName: names[id],
			Analysis:     e.Analyze(requests, scoped),
		})
	}
	return out
}
