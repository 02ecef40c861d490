// Package store provides SQLite database access for feedbackwatch snapshots,
// competency score history, suggestions and key-value preferences.
package store

import "time"

// Suggestion statuses.
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
)

// Delta directions.
const (
	DirectionImproved  = "improved"
	DirectionRegressed = "regressed"
	DirectionUnchanged = "unchanged"
	DirectionNew       = "new"
	DirectionRemoved   = "removed"
)

// Snapshot represents a point-in-time capture of an analysis.
type Snapshot struct {
	ID                 int64     `json:"id"`
	TakenAt            time.Time `json:"taken_at"`
	Command            string    `json:"command"`
	Version            string    `json:"version"`
	EmployeeFilter     string    `json:"employee_filter,omitempty"`
	RelationshipFilter string    `json:"relationship_filter,omitempty"`
}

// CompetencyScoreRow is one competency aggregate stored with a snapshot.
// EmployeeID is empty for population-wide aggregates.
type CompetencyScoreRow struct {
	ID              int64   `json:"id"`
	SnapshotID      int64   `json:"snapshot_id"`
	EmployeeID      string  `json:"employee_id,omitempty"`
	Competency      string  `json:"competency"`
	Score           float64 `json:"score"`
	AverageScore    float64 `json:"average_score"`
	Confidence      string  `json:"confidence"`
	ConfidenceValue float64 `json:"confidence_value"`
	EvidenceCount   int     `json:"evidence_count"`
	ReviewCount     int     `json:"review_count"`
	OutlierCount    int     `json:"outlier_count"`
}

// AggregateMetric represents a named metric value within a snapshot.
type AggregateMetric struct {
	ID          int64   `json:"id"`
	SnapshotID  int64   `json:"snapshot_id"`
	MetricName  string  `json:"metric_name"`
	MetricValue float64 `json:"metric_value"`
	Detail      string  `json:"detail,omitempty"`
}

// Suggestion represents a stored development recommendation.
type Suggestion struct {
	ID          int64   `json:"id"`
	SnapshotID  int64   `json:"snapshot_id"`
	Category    string  `json:"category"`
	Priority    int     `json:"priority"`
	Competency  string  `json:"competency,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImpactScore float64 `json:"impact_score"`
	Status      string  `json:"status"`
}

// SnapshotDiff represents the comparison between two snapshots.
type SnapshotDiff struct {
	Previous    *Snapshot     `json:"previous"`
	Current     *Snapshot     `json:"current"`
	Competency  []MetricDelta `json:"competencies"`
	Aggregates  []MetricDelta `json:"aggregates"`
	Improved    int           `json:"improved"`
	Regressed   int           `json:"regressed"`
	Unchanged   int           `json:"unchanged"`
	Appeared    []string      `json:"appeared,omitempty"`
	Disappeared []string      `json:"disappeared,omitempty"`
}

// MetricDelta represents the change in a single value between snapshots.
type MetricDelta struct {
	Name      string  `json:"name"`
	Previous  float64 `json:"previous"`
	Current   float64 `json:"current"`
	Delta     float64 `json:"delta"`
	Direction string  `json:"direction"` // "improved", "regressed", "unchanged", "new", "removed"
}
