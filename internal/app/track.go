package app

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/config"
	"github.com/blackwell-systems/feedbackwatch/internal/output"
	"github.com/blackwell-systems/feedbackwatch/internal/store"
	"github.com/blackwell-systems/feedbackwatch/internal/suggest"
)

var (
	trackCompare       int
	trackHistory       int
	trackEmployees     []string
	trackRelationships []string
)

// scoreEpsilon is the smallest score change reported as movement. Scores
// are stored rounded to 3 dp.
const scoreEpsilon = 0.0005

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Snapshot and compare scores over time",
	Long: `Run the analysis, store a new snapshot, and compare against a previous
snapshot to show how each competency score moved. Open suggestions that no
longer apply are resolved automatically.

Examples:
  feedbackwatch track                  # snapshot and compare with the last one
  feedbackwatch track --compare 3      # compare with the third most recent
  feedbackwatch track --history 5      # show trends across 5 snapshots`,
	RunE: runTrack,
}

func init() {
	trackCmd.Flags().IntVar(&trackCompare, "compare", 1, "Compare against Nth previous snapshot (1 = most recent)")
	trackCmd.Flags().IntVar(&trackHistory, "history", 0, "Show score trends across N most recent snapshots")
	trackCmd.Flags().StringSliceVar(&trackEmployees, "employee", nil, "Only these employee IDs")
	trackCmd.Flags().StringSliceVar(&trackRelationships, "relationship", nil, "Only these reviewer relationships")
	rootCmd.AddCommand(trackCmd)
}

// trackResult is the JSON-serializable result of a track run.
type trackResult struct {
	Snapshot  *store.Snapshot     `json:"snapshot"`
	Diff      *store.SnapshotDiff `json:"diff,omitempty"`
	Added     int                 `json:"suggestions_added"`
	Resolved  int                 `json:"suggestions_resolved"`
	Open      int                 `json:"suggestions_open"`
	FilterMix bool                `json:"filter_mismatch,omitempty"`
}

func runTrack(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	db, err := store.Open(config.DBPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	// --history only reads what earlier runs stored.
	if trackHistory > 0 {
		if flagJSON {
			return outputHistoryJSON(db, trackHistory)
		}
		return renderHistory(db, trackHistory)
	}

	filter, err := resolveFilter(nil, "", trackEmployees, trackRelationships)
	if err != nil {
		return err
	}
	reqs, err := env.loadRequests(cmd.Context())
	if err != nil {
		return err
	}

	analysis := env.engine.Analyze(reqs, filter)
	perEmployee := env.engine.AnalyzeByEmployee(reqs, filter)
	suggestions := suggest.NewEngine().Run(suggest.NewContext(analysis, suggestThresholds(env.cfg)))

	snapshotID, err := recordSnapshot(db, analysis, perEmployee)
	if err != nil {
		return err
	}
	added, resolved, err := syncSuggestions(db, snapshotID, suggestions)
	if err != nil {
		return fmt.Errorf("syncing suggestions: %w", err)
	}
	open, err := db.GetOpenSuggestions()
	if err != nil {
		return fmt.Errorf("loading open suggestions: %w", err)
	}

	// trackCompare=1 means compare against the immediate predecessor (offset 2 from newest).
	prevSnapshot, err := db.GetSnapshotN(trackCompare + 1)
	if err != nil {
		return fmt.Errorf("loading previous snapshot: %w", err)
	}
	currentSnapshot, err := db.GetSnapshot(snapshotID)
	if err != nil {
		return fmt.Errorf("loading current snapshot: %w", err)
	}

	result := trackResult{Snapshot: currentSnapshot, Added: added, Resolved: resolved, Open: len(open)}
	if prevSnapshot != nil {
		result.Diff, err = diffSnapshots(db, prevSnapshot, currentSnapshot)
		if err != nil {
			return err
		}
		result.FilterMix = prevSnapshot.EmployeeFilter != currentSnapshot.EmployeeFilter ||
			prevSnapshot.RelationshipFilter != currentSnapshot.RelationshipFilter
	}

	if flagJSON {
		return writeJSON(os.Stdout, result)
	}
	renderTrackOutput(result)
	return nil
}

// recordSnapshot stores a snapshot of the population analysis, one score set
// per employee, and the headline metrics. Returns the new snapshot ID.
func recordSnapshot(db *store.DB, analysis analyzer.Analysis, perEmployee []analyzer.EmployeeAnalysis) (int64, error) {
	employees, relationships := filterColumns(analysis.Filter)
	snapshotID, err := db.CreateSnapshot("track", appVersion, employees, relationships)
	if err != nil {
		return 0, fmt.Errorf("creating snapshot: %w", err)
	}

	rows := competencyRows(snapshotID, "", analysis)
	for _, e := range perEmployee {
		rows = append(rows, competencyRows(snapshotID, e.EmployeeID, e.Analysis)...)
	}
	if err := db.InsertCompetencyScores(rows); err != nil {
		return 0, fmt.Errorf("inserting competency scores: %w", err)
	}

	metrics := buildAggregateMetrics(analysis)
	for _, name := range metricDisplayOrder {
		if err := db.InsertAggregateMetric(snapshotID, name, metrics[name], ""); err != nil {
			return 0, fmt.Errorf("inserting metric %s: %w", name, err)
		}
	}
	return snapshotID, nil
}

// filterColumns flattens a filter into the snapshot's text columns.
func filterColumns(f analyzer.Filter) (employees, relationships string) {
	var rels []string
	for _, r := range f.Relationships {
		rels = append(rels, r.String())
	}
	return strings.Join(f.EmployeeIDs, ","), strings.Join(rels, ",")
}

func competencyRows(snapshotID int64, employeeID string, a analyzer.Analysis) []store.CompetencyScoreRow {
	names := make([]string, 0, len(a.Aggregates))
	for name := range a.Aggregates {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]store.CompetencyScoreRow, 0, len(names))
	for _, name := range names {
		agg := a.Aggregates[name]
		rows = append(rows, store.CompetencyScoreRow{
			SnapshotID:      snapshotID,
			EmployeeID:      employeeID,
			Competency:      agg.Name,
			Score:           agg.Score,
			AverageScore:    agg.AverageScore,
			Confidence:      string(agg.Confidence),
			ConfidenceValue: agg.ConfidenceValue,
			EvidenceCount:   agg.EvidenceCount,
			ReviewCount:     agg.ReviewCount,
			OutlierCount:    agg.OutlierCount,
		})
	}
	return rows
}

// buildAggregateMetrics produces a flat map of metric name to value from an
// analysis.
func buildAggregateMetrics(a analyzer.Analysis) map[string]float64 {
	outliers := 0
	for _, agg := range a.Aggregates {
		outliers += agg.OutlierCount
	}
	return map[string]float64{
		"overall_score":          a.Summary.OverallScore,
		"competency_count":       float64(a.Summary.CompetencyCount),
		"total_requests":         float64(a.Coverage.TotalRequests),
		"total_responses":        float64(a.Coverage.TotalResponses),
		"insight_rate":           a.Coverage.InsightRate() * 100,
		"total_evidence":         float64(a.Summary.TotalEvidence),
		"total_reviews":          float64(a.Summary.TotalReviews),
		"high_confidence":        float64(a.Summary.ConfidenceCounts[analyzer.ConfidenceHigh]),
		"low_confidence":         float64(a.Summary.ConfidenceCounts[analyzer.ConfidenceLow]),
		"outlier_scores":         float64(outliers),
		"missing_competencies":   float64(len(a.Coverage.MissingCompetencies)),
		"unrecognized_responses": float64(a.Coverage.UnrecognizedResponses),
	}
}

// metricDirection maps metric names to whether higher values are better.
var metricDirection = map[string]bool{
	"overall_score":          true,
	"competency_count":       true,
	"total_requests":         true,
	"total_responses":        true,
	"insight_rate":           true,
	"total_evidence":         true,
	"total_reviews":          true,
	"high_confidence":        true,
	"low_confidence":         false,
	"outlier_scores":         false,
	"missing_competencies":   false,
	"unrecognized_responses": false,
}

// metricDisplayOrder defines the order metrics appear in output.
var metricDisplayOrder = []string{
	"overall_score",
	"competency_count",
	"total_requests",
	"total_responses",
	"insight_rate",
	"total_evidence",
	"total_reviews",
	"high_confidence",
	"low_confidence",
	"outlier_scores",
	"missing_competencies",
	"unrecognized_responses",
}

// metricShortName returns a compact label for display in tables.
func metricShortName(name string) string {
	short := map[string]string{
		"overall_score":          "Overall Score",
		"competency_count":       "Competencies",
		"total_requests":         "Requests",
		"total_responses":        "Responses",
		"insight_rate":           "Insight Rate %",
		"total_evidence":         "Evidence",
		"total_reviews":          "Reviews",
		"high_confidence":        "High Confidence",
		"low_confidence":         "Low Confidence",
		"outlier_scores":         "Outlier Scores",
		"missing_competencies":   "Unrated Competencies",
		"unrecognized_responses": "Unrecognized Responses",
	}
	if s, ok := short[name]; ok {
		return s
	}
	return name
}

// diffSnapshots compares the population scores and metrics of two snapshots.
func diffSnapshots(db *store.DB, prev, curr *store.Snapshot) (*store.SnapshotDiff, error) {
	prevScores, err := db.GetCompetencyScores(prev.ID)
	if err != nil {
		return nil, fmt.Errorf("loading previous scores: %w", err)
	}
	currScores, err := db.GetCompetencyScores(curr.ID)
	if err != nil {
		return nil, fmt.Errorf("loading current scores: %w", err)
	}
	prevMetrics, err := db.GetAggregateMetrics(prev.ID)
	if err != nil {
		return nil, fmt.Errorf("loading previous metrics: %w", err)
	}
	currMetrics, err := db.GetAggregateMetrics(curr.ID)
	if err != nil {
		return nil, fmt.Errorf("loading current metrics: %w", err)
	}

	return store.NewSnapshotDiff(prev, curr,
		store.CompareCompetencies(prevScores, currScores, scoreEpsilon),
		store.CompareMetrics(prevMetrics, currMetrics, metricDirection),
	), nil
}

// syncSuggestions stores suggestions not already open and resolves open
// suggestions that the current run no longer produces.
func syncSuggestions(db *store.DB, snapshotID int64, current []suggest.Suggestion) (added, resolved int, err error) {
	open, err := db.GetOpenSuggestions()
	if err != nil {
		return 0, 0, err
	}

	currentKeys := make(map[string]bool, len(current))
	for _, s := range current {
		currentKeys[s.Key()] = true
	}
	openKeys := make(map[string]bool, len(open))
	for _, s := range open {
		key := suggest.Suggestion{Category: s.Category, Title: s.Title}.Key()
		openKeys[key] = true
		if currentKeys[key] {
			continue
		}
		if err := db.ResolveSuggestion(s.ID); err != nil {
			return added, resolved, err
		}
		resolved++
	}

	for _, s := range current {
		if openKeys[s.Key()] {
			continue
		}
		if err := db.InsertSuggestion(&store.Suggestion{
			SnapshotID:  snapshotID,
			Category:    s.Category,
			Priority:    s.Priority,
			Competency:  s.Competency,
			Title:       s.Title,
			Description: s.Description,
			ImpactScore: s.ImpactScore,
		}); err != nil {
			return added, resolved, err
		}
		openKeys[s.Key()] = true
		added++
	}
	return added, resolved, nil
}

func renderTrackOutput(r trackResult) {
	fmt.Println(output.Section("Track: Snapshot Comparison"))
	fmt.Println()
	fmt.Printf(" Snapshot #%d taken at %s\n", r.Snapshot.ID, r.Snapshot.TakenAt.Format("2006-01-02 15:04:05"))
	fmt.Printf(" Suggestions: %d open (%d new, %d resolved)\n\n", r.Open, r.Added, r.Resolved)

	diff := r.Diff
	if diff == nil {
		fmt.Println(" First snapshot recorded. Run 'feedbackwatch track' again later to see trends.")
		return
	}

	fmt.Printf(" Comparing against snapshot #%d (%s)\n",
		diff.Previous.ID, diff.Previous.TakenAt.Format("2006-01-02 15:04:05"))
	if r.FilterMix {
		fmt.Printf(" %s\n", output.StyleWarning.Render("Snapshots were taken with different filters; deltas mix populations."))
	}
	fmt.Printf(" %d improved · %d regressed · %d unchanged\n\n", diff.Improved, diff.Regressed, diff.Unchanged)

	tbl := output.NewTable("Competency", "Previous", "Current", "Trend")
	for _, d := range diff.Competency {
		switch d.Direction {
		case store.DirectionNew:
			tbl.AddRow(d.Name, "─", fmt.Sprintf("%.2f", d.Current), output.StyleSuccess.Render("new"))
		case store.DirectionRemoved:
			tbl.AddRow(d.Name, fmt.Sprintf("%.2f", d.Previous), "─", output.StyleWarning.Render("removed"))
		default:
			trend := output.TrendArrow(0, true)
			if d.Direction != store.DirectionUnchanged {
				trend = output.TrendArrow(d.Delta, true)
			}
			tbl.AddRow(d.Name, fmt.Sprintf("%.2f", d.Previous), fmt.Sprintf("%.2f", d.Current), trend)
		}
	}
	tbl.Print()
	fmt.Println()

	mt := output.NewTable("Metric", "Previous", "Current", "Trend")
	for _, d := range diff.Aggregates {
		higherIsBetter, known := metricDirection[d.Name]
		if !known {
			higherIsBetter = true
		}
		mt.AddRow(
			metricShortName(d.Name),
			fmt.Sprintf("%.1f", d.Previous),
			fmt.Sprintf("%.1f", d.Current),
			output.TrendArrow(d.Delta, higherIsBetter),
		)
	}
	mt.Print()
}

// snapshotTimeline is one snapshot with its metrics and population scores.
type snapshotTimeline struct {
	Snapshot store.Snapshot             `json:"snapshot"`
	Metrics  []store.AggregateMetric    `json:"metrics"`
	Scores   []store.CompetencyScoreRow `json:"competencies"`
}

// loadTimeline loads up to n snapshots, oldest first.
func loadTimeline(db *store.DB, n int) ([]snapshotTimeline, error) {
	snapshots, err := db.GetRecentSnapshots(n)
	if err != nil {
		return nil, fmt.Errorf("loading snapshots: %w", err)
	}

	// Reverse so oldest is first (left to right = chronological).
	for i, j := 0, len(snapshots)-1; i < j; i, j = i+1, j-1 {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	}

	timeline := make([]snapshotTimeline, 0, len(snapshots))
	for _, s := range snapshots {
		metrics, err := db.GetAggregateMetrics(s.ID)
		if err != nil {
			return nil, fmt.Errorf("loading metrics for snapshot #%d: %w", s.ID, err)
		}
		scores, err := db.GetCompetencyScores(s.ID)
		if err != nil {
			return nil, fmt.Errorf("loading scores for snapshot #%d: %w", s.ID, err)
		}
		timeline = append(timeline, snapshotTimeline{Snapshot: s, Metrics: metrics, Scores: scores})
	}
	return timeline, nil
}

// renderHistory shows a multi-snapshot timeline table.
func renderHistory(db *store.DB, n int) error {
	timeline, err := loadTimeline(db, n)
	if err != nil {
		return err
	}
	if len(timeline) == 0 {
		fmt.Println(" No snapshots found. Run 'feedbackwatch track' to create one.")
		return nil
	}

	fmt.Println(output.Section("Track: Score History"))
	fmt.Println()
	fmt.Printf(" Showing %d most recent snapshots\n\n", len(timeline))

	headers := []string{"Competency"}
	for _, t := range timeline {
		headers = append(headers, fmt.Sprintf("#%d %s", t.Snapshot.ID, t.Snapshot.TakenAt.Format("Jan 02")))
	}
	headers = append(headers, "Trend")

	// Competencies seen in any snapshot, alphabetically.
	seen := make(map[string]bool)
	var names []string
	scoreMaps := make([]map[string]float64, len(timeline))
	for i, t := range timeline {
		scoreMaps[i] = make(map[string]float64, len(t.Scores))
		for _, s := range t.Scores {
			scoreMaps[i][s.Competency] = s.Score
			if !seen[s.Competency] {
				seen[s.Competency] = true
				names = append(names, s.Competency)
			}
		}
	}
	sort.Strings(names)

	tbl := output.NewTable(headers...)
	for _, name := range names {
		row := []string{name}
		var first, last float64
		var have int
		for _, m := range scoreMaps {
			v, ok := m[name]
			if !ok {
				row = append(row, "─")
				continue
			}
			if have == 0 {
				first = v
			}
			last = v
			have++
			row = append(row, fmt.Sprintf("%.2f", v))
		}
		trend := ""
		if have >= 2 {
			trend = output.TrendArrow(last-first, true)
		}
		tbl.AddRow(append(row, trend)...)
	}
	tbl.Print()
	fmt.Println()

	mt := output.NewTable(append([]string{"Metric"}, headers[1:]...)...)
	for _, name := range metricDisplayOrder {
		row := []string{metricShortName(name)}
		var vals []float64
		for _, t := range timeline {
			v := 0.0
			for _, m := range t.Metrics {
				if m.MetricName == name {
					v = m.MetricValue
				}
			}
			vals = append(vals, v)
			row = append(row, fmt.Sprintf("%.1f", v))
		}

		// Compute trend from first to last.
		trend := ""
		if len(vals) >= 2 {
			trend = output.TrendArrow(vals[len(vals)-1]-vals[0], metricDirection[name])
		}
		mt.AddRow(append(row, trend)...)
	}
	mt.Print()
	return nil
}

// outputHistoryJSON writes the history data as JSON.
func outputHistoryJSON(db *store.DB, n int) error {
	timeline, err := loadTimeline(db, n)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, map[string]any{"history": timeline})
}
