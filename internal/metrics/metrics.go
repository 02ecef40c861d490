// Package metrics exposes competency aggregates and watcher activity as
// Prometheus gauges and counters.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
)

const defaultNamespace = "feedbackwatch"

// Option configures a Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithRegistry registers metrics on the given registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// Recorder holds the metrics updated after each analysis run. All methods are
// safe to call on a nil *Recorder, which records nothing.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry

	competencyScore      *prometheus.GaugeVec
	competencyConfidence *prometheus.GaugeVec
	competencyEvidence   *prometheus.GaugeVec
	competencyReviews    *prometheus.GaugeVec
	competencyOutliers   *prometheus.GaugeVec

	requests     prometheus.Gauge
	responses    prometheus.Gauge
	overallScore prometheus.Gauge
	lastRunUnix  prometheus.Gauge
	runDuration  prometheus.Histogram
	runs         prometheus.Counter
	alerts       *prometheus.CounterVec
	loadErrors   prometheus.Counter
}

// New creates a Recorder with its own registry unless WithRegistry is given.
func New(opts ...Option) *Recorder {
	r := &Recorder{namespace: defaultNamespace}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(r.registry)
	competencyLabels := []string{"competency"}

	r.competencyScore = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace, Subsystem: "competency", Name: "score",
		Help: "Weighted, outlier-adjusted competency score (1-5).",
	}, competencyLabels)
	r.competencyConfidence = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace, Subsystem: "competency", Name: "confidence",
		Help: "Composite confidence value (0-1).",
	}, competencyLabels)
	r.competencyEvidence = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace, Subsystem: "competency", Name: "evidence",
		Help: "Total evidence count behind the competency score.",
	}, competencyLabels)
	r.competencyReviews = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace, Subsystem: "competency", Name: "reviews",
		Help: "Number of reviewer scores behind the competency score.",
	}, competencyLabels)
	r.competencyOutliers = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace, Subsystem: "competency", Name: "outliers",
		Help: "Number of scores whose weight was reduced as outliers.",
	}, competencyLabels)

	r.requests = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace, Name: "requests",
		Help: "Feedback requests in the last analysis.",
	})
	r.responses = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace, Name: "responses",
		Help: "Reviewer responses in the last analysis.",
	})
	r.overallScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace, Name: "overall_score",
		Help: "Mean of all competency scores in the last analysis.",
	})
	r.lastRunUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace, Name: "last_run_timestamp_seconds",
		Help: "Unix time of the last completed analysis.",
	})
	r.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace, Name: "analysis_duration_seconds",
		Help:    "Time spent loading and analyzing feedback per run.",
		Buckets: prometheus.DefBuckets,
	})
	r.runs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace, Name: "analysis_runs_total",
		Help: "Completed analysis runs.",
	})
	r.alerts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Name: "alerts_total",
		Help: "Alerts emitted by the watcher, by kind.",
	}, []string{"kind"})
	r.loadErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace, Name: "load_errors_total",
		Help: "Failed attempts to load feedback data.",
	})

	return r
}

// Registry returns the registry the metrics are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveAnalysis replaces the per-competency gauges with the values from a
// and records the run duration.
func (r *Recorder) ObserveAnalysis(a analyzer.Analysis, took time.Duration) {
	if r == nil {
		return
	}
	// Competencies that disappeared must not keep reporting stale values.
	r.competencyScore.Reset()
	r.competencyConfidence.Reset()
	r.competencyEvidence.Reset()
	r.competencyReviews.Reset()
	r.competencyOutliers.Reset()

	for name, agg := range a.Aggregates {
		r.competencyScore.WithLabelValues(name).Set(agg.Score)
		r.competencyConfidence.WithLabelValues(name).Set(agg.ConfidenceValue)
		r.competencyEvidence.WithLabelValues(name).Set(float64(agg.EvidenceCount))
		r.competencyReviews.WithLabelValues(name).Set(float64(agg.ReviewCount))
		r.competencyOutliers.WithLabelValues(name).Set(float64(agg.OutlierCount))
	}

	r.requests.Set(float64(a.Coverage.TotalRequests))
	r.responses.Set(float64(a.Coverage.TotalResponses))
	r.overallScore.Set(a.Summary.OverallScore)
	r.lastRunUnix.SetToCurrentTime()
	r.runDuration.Observe(took.Seconds())
	r.runs.Inc()
}

// RecordAlert counts one emitted alert of the given kind.
func (r *Recorder) RecordAlert(kind string) {
	if r == nil {
		return
	}
	r.alerts.WithLabelValues(kind).Inc()
}

// RecordLoadError counts one failed load of the data directory.
func (r *Recorder) RecordLoadError() {
	if r == nil {
		return
	}
	r.loadErrors.Inc()
}
