package store

import "sort"

// CompareCompetencies diffs two sets of competency scores. A change smaller
// than epsilon counts as unchanged. Competencies present on one side only are
// reported as new or removed.
func CompareCompetencies(prev, curr []CompetencyScoreRow, epsilon float64) []MetricDelta {
	prevMap := make(map[string]float64, len(prev))
	for _, r := range prev {
		prevMap[r.Competency] = r.Score
	}
	currMap := make(map[string]float64, len(curr))
	for _, r := range curr {
		currMap[r.Competency] = r.Score
	}

	var deltas []MetricDelta
	for _, r := range curr {
		p, ok := prevMap[r.Competency]
		if !ok {
			deltas = append(deltas, MetricDelta{Name: r.Competency, Current: r.Score, Delta: r.Score, Direction: DirectionNew})
			continue
		}
		deltas = append(deltas, delta(r.Competency, p, r.Score, true, epsilon))
	}
	for _, r := range prev {
		if _, ok := currMap[r.Competency]; !ok {
			deltas = append(deltas, MetricDelta{Name: r.Competency, Previous: r.Score, Delta: -r.Score, Direction: DirectionRemoved})
		}
	}

	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Name < deltas[j].Name })
	return deltas
}

// CompareMetrics diffs two sets of aggregate metrics. higherIsBetter names
// the direction per metric; unknown metrics assume higher is better.
func CompareMetrics(prev, curr []AggregateMetric, higherIsBetter map[string]bool) []MetricDelta {
	prevMap := make(map[string]float64, len(prev))
	for _, m := range prev {
		prevMap[m.MetricName] = m.MetricValue
	}

	var deltas []MetricDelta
	for _, m := range curr {
		better, known := higherIsBetter[m.MetricName]
		if !known {
			better = true
		}
		deltas = append(deltas, delta(m.MetricName, prevMap[m.MetricName], m.MetricValue, better, 0))
	}
	return deltas
}

// NewSnapshotDiff assembles a diff and tallies its directions.
func NewSnapshotDiff(prev, curr *Snapshot, competencies, aggregates []MetricDelta) *SnapshotDiff {
	d := &SnapshotDiff{Previous: prev, Current: curr, Competency: competencies, Aggregates: aggregates}
	for _, c := range competencies {
		switch c.Direction {
		case DirectionImproved:
			d.Improved++
		case DirectionRegressed:
			d.Regressed++
		case DirectionUnchanged:
			d.Unchanged++
		case DirectionNew:
			d.Appeared = append(d.Appeared, c.Name)
		case DirectionRemoved:
			d.Disappeared = append(d.Disappeared, c.Name)
		}
	}
	return d
}

func delta(name string, prev, curr float64, higherIsBetter bool, epsilon float64) MetricDelta {
	diff := curr - prev
	direction := DirectionUnchanged
	if diff > epsilon || diff < -epsilon {
		if (diff > 0) == higherIsBetter {
			direction = DirectionImproved
		} else {
			direction = DirectionRegressed
		}
	}
	return MetricDelta{Name: name, Previous: prev, Current: curr, Delta: diff, Direction: direction}
}
