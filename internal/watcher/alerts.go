package watcher

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
)

// Compare detects notable changes between two watch states. A score change
// counts once its magnitude reaches scoreShift; a drop of twice that is
// critical. Alerts are ordered by kind, then competency or request ID.
func Compare(prev, curr *WatchState, scoreShift float64) []Alert {
	if scoreShift <= 0 {
		scoreShift = DefaultScoreShift
	}
	now := time.Now()

	var alerts []Alert
	alerts = append(alerts, compareRequests(prev, curr, now)...)
	alerts = append(alerts, compareMembership(prev, curr, now)...)
	alerts = append(alerts, compareScores(prev, curr, scoreShift, now)...)
	alerts = append(alerts, compareConfidence(prev, curr, now)...)
	return alerts
}

// compareRequests reports requests present in curr but not in prev.
func compareRequests(prev, curr *WatchState, now time.Time) []Alert {
	var alerts []Alert
	for _, id := range sortedKeys(curr.requests) {
		if _, seen := prev.requests[id]; seen {
			continue
		}
		r := curr.requests[id]
		alerts = append(alerts, Alert{
			Level:   LevelInfo,
			Kind:    KindNewRequest,
			Title:   fmt.Sprintf("New feedback request: %s", id),
			Message: fmt.Sprintf("Employee %s, %d response(s), %d insight(s)", r.EmployeeID, r.Responses, r.Insights),
			Time:    now,
		})
	}
	return alerts
}

// compareMembership reports competencies that appeared or disappeared.
func compareMembership(prev, curr *WatchState, now time.Time) []Alert {
	var alerts []Alert
	for _, name := range sortedKeys(curr.competencies) {
		if _, existed := prev.competencies[name]; existed {
			continue
		}
		c := curr.competencies[name]
		alerts = append(alerts, Alert{
			Level:   LevelInfo,
			Kind:    KindCompetencyAppeared,
			Title:   fmt.Sprintf("New competency: %s", name),
			Message: fmt.Sprintf("First scored at %.2f from %d review(s), %s confidence", c.Score, c.Reviews, c.Confidence),
			Time:    now,
		})
	}
	for _, name := range sortedKeys(prev.competencies) {
		if _, exists := curr.competencies[name]; exists {
			continue
		}
		alerts = append(alerts, Alert{
			Level:   LevelWarning,
			Kind:    KindCompetencyRemoved,
			Title:   fmt.Sprintf("Competency no longer scored: %s", name),
			Message: fmt.Sprintf("Last score was %.2f", prev.competencies[name].Score),
			Time:    now,
		})
	}
	return alerts
}

// compareScores reports score changes of at least scoreShift.
func compareScores(prev, curr *WatchState, scoreShift float64, now time.Time) []Alert {
	var alerts []Alert
	for _, name := range sortedKeys(curr.competencies) {
		before, ok := prev.competencies[name]
		if !ok {
			continue
		}
		after := curr.competencies[name]
		delta := after.Score - before.Score
		// Scores are rounded to 3 decimals, so compare with a small tolerance.
		if math.Abs(delta)+1e-9 < scoreShift {
			continue
		}

		level, verb := LevelInfo, "rose"
		switch {
		case delta <= -2*scoreShift:
			level, verb = LevelCritical, "dropped"
		case delta < 0:
			level, verb = LevelWarning, "dropped"
		}
		alerts = append(alerts, Alert{
			Level:   level,
			Kind:    KindScoreShift,
			Title:   fmt.Sprintf("%s score %s", name, verb),
			Message: fmt.Sprintf("From %.2f to %.2f (%+.2f)", before.Score, after.Score, delta),
			Time:    now,
		})
	}
	return alerts
}

var confidenceRank = map[analyzer.ConfidenceLevel]int{
	analyzer.ConfidenceLow:    0,
	analyzer.ConfidenceMedium: 1,
	analyzer.ConfidenceHigh:   2,
}

// compareConfidence reports confidence label changes.
func compareConfidence(prev, curr *WatchState, now time.Time) []Alert {
	var alerts []Alert
	for _, name := range sortedKeys(curr.competencies) {
		before, ok := prev.competencies[name]
		if !ok {
			continue
		}
		after := curr.competencies[name]
		if before.Confidence == after.Confidence {
			continue
		}
		level := LevelInfo
		if confidenceRank[after.Confidence] < confidenceRank[before.Confidence] {
			level = LevelWarning
		}
		alerts = append(alerts, Alert{
			Level:   level,
			Kind:    KindConfidenceChange,
			Title:   fmt.Sprintf("%s confidence changed", name),
			Message: fmt.Sprintf("From %s to %s (%d review(s))", before.Confidence, after.Confidence, after.Reviews),
			Time:    now,
		})
	}
	return alerts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
