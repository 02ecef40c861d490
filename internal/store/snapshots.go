package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const snapshotColumns = "id, taken_at, command, version, employee_filter, relationship_filter"

// CreateSnapshot inserts a new snapshot and returns its ID.
func (db *DB) CreateSnapshot(command, version, employeeFilter, relationshipFilter string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO snapshots (taken_at, command, version, employee_filter, relationship_filter)
		 VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), command, version, employeeFilter, relationshipFilter,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetLatestSnapshot returns the most recent snapshot, or nil if none exist.
func (db *DB) GetLatestSnapshot() (*Snapshot, error) {
	row := db.conn.QueryRow("SELECT " + snapshotColumns + " FROM snapshots ORDER BY id DESC LIMIT 1")
	return scanSnapshot(row)
}

// GetSnapshot returns a snapshot by ID.
func (db *DB) GetSnapshot(id int64) (*Snapshot, error) {
	row := db.conn.QueryRow("SELECT "+snapshotColumns+" FROM snapshots WHERE id = ?", id)
	return scanSnapshot(row)
}

// GetSnapshotN returns the Nth most recent snapshot (1 = latest, 2 = previous, etc.).
func (db *DB) GetSnapshotN(n int) (*Snapshot, error) {
	if n < 1 {
		return nil, nil
	}
	row := db.conn.QueryRow(
		"SELECT "+snapshotColumns+" FROM snapshots ORDER BY id DESC LIMIT 1 OFFSET ?",
		n-1,
	)
	return scanSnapshot(row)
}

// GetRecentSnapshots returns up to n snapshots, newest first.
func (db *DB) GetRecentSnapshots(n int) ([]Snapshot, error) {
	rows, err := db.conn.Query("SELECT "+snapshotColumns+" FROM snapshots ORDER BY id DESC LIMIT ?", n)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var snapshots []Snapshot
	for rows.Next() {
		s, err := scanSnapshotFields(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *s)
	}
	return snapshots, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	s, err := scanSnapshotFields(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func scanSnapshotFields(row rowScanner) (*Snapshot, error) {
	var s Snapshot
	var takenAt string
	if err := row.Scan(&s.ID, &takenAt, &s.Command, &s.Version, &s.EmployeeFilter, &s.RelationshipFilter); err != nil {
		return nil, err
	}
	s.TakenAt, _ = time.Parse(time.RFC3339, takenAt)
	return &s, nil
}

// InsertCompetencyScores stores a batch of competency aggregates in one
// transaction.
func (db *DB) InsertCompetencyScores(rows []CompetencyScoreRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO competency_scores
		(snapshot_id, employee_id, competency, score, average_score, confidence,
		 confidence_value, evidence_count, review_count, outlier_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		if _, err := stmt.Exec(
			r.SnapshotID, r.EmployeeID, r.Competency, r.Score, r.AverageScore,
			r.Confidence, r.ConfidenceValue, r.EvidenceCount, r.ReviewCount, r.OutlierCount,
		); err != nil {
			return fmt.Errorf("inserting %q: %w", r.Competency, err)
		}
	}
	return tx.Commit()
}

// GetCompetencyScores returns the population-wide competency scores for a
// snapshot, ordered by competency name.
func (db *DB) GetCompetencyScores(snapshotID int64) ([]CompetencyScoreRow, error) {
	return db.queryCompetencyScores(
		`WHERE snapshot_id = ? AND employee_id = '' ORDER BY competency`, snapshotID)
}

// GetEmployeeCompetencyScores returns one employee's competency scores for a snapshot.
func (db *DB) GetEmployeeCompetencyScores(snapshotID int64, employeeID string) ([]CompetencyScoreRow, error) {
	return db.queryCompetencyScores(
		`WHERE snapshot_id = ? AND employee_id = ? ORDER BY competency`, snapshotID, employeeID)
}

func (db *DB) queryCompetencyScores(where string, args ...any) ([]CompetencyScoreRow, error) {
	rows, err := db.conn.Query(
		`SELECT id, snapshot_id, employee_id, competency, score, average_score, confidence,
		 confidence_value, evidence_count, review_count, outlier_count
		 FROM competency_scores `+where, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []CompetencyScoreRow
	for rows.Next() {
		var r CompetencyScoreRow
		if err := rows.Scan(&r.ID, &r.SnapshotID, &r.EmployeeID, &r.Competency, &r.Score,
			&r.AverageScore, &r.Confidence, &r.ConfidenceValue, &r.EvidenceCount,
			&r.ReviewCount, &r.OutlierCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertAggregateMetric inserts an aggregate metric for a snapshot.
func (db *DB) InsertAggregateMetric(snapshotID int64, name string, value float64, detail string) error {
	_, err := db.conn.Exec(
		"INSERT INTO aggregate_metrics (snapshot_id, metric_name, metric_value, detail) VALUES (?, ?, ?, ?)",
		snapshotID, name, value, detail,
	)
	return err
}

// GetAggregateMetrics returns all aggregate metrics for a snapshot.
func (db *DB) GetAggregateMetrics(snapshotID int64) ([]AggregateMetric, error) {
	rows, err := db.conn.Query(
		"SELECT id, snapshot_id, metric_name, metric_value, detail FROM aggregate_metrics WHERE snapshot_id = ? ORDER BY metric_name",
		snapshotID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var metrics []AggregateMetric
	for rows.Next() {
		var m AggregateMetric
		var detail sql.NullString
		if err := rows.Scan(&m.ID, &m.SnapshotID, &m.MetricName, &m.MetricValue, &detail); err != nil {
			return nil, err
		}
		m.Detail = detail.String
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// InsertSuggestion inserts a suggestion for a snapshot.
func (db *DB) InsertSuggestion(s *Suggestion) error {
	status := s.Status
	if status == "" {
		status = StatusOpen
	}
	result, err := db.conn.Exec(
		`INSERT INTO suggestions
		(snapshot_id, category, priority, competency, title, description, impact_score, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SnapshotID, s.Category, s.Priority, s.Competency, s.Title, s.Description,
		s.ImpactScore, status,
	)
	if err != nil {
		return err
	}
	s.Status = status
	s.ID, err = result.LastInsertId()
	return err
}

// GetOpenSuggestions returns all suggestions with status "open".
func (db *DB) GetOpenSuggestions() ([]Suggestion, error) {
	rows, err := db.conn.Query(
		`SELECT id, snapshot_id, category, priority, competency, title, description, impact_score, status
		 FROM suggestions WHERE status = ? ORDER BY impact_score DESC, id`, StatusOpen,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var suggestions []Suggestion
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.ID, &s.SnapshotID, &s.Category, &s.Priority, &s.Competency,
			&s.Title, &s.Description, &s.ImpactScore, &s.Status); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}

// ResolveSuggestion marks a suggestion as resolved.
func (db *DB) ResolveSuggestion(id int64) error {
	_, err := db.conn.Exec("UPDATE suggestions SET status = ? WHERE id = ?", StatusResolved, id)
	return err
}
