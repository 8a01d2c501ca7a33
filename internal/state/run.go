package state

import (
	"database/sql"
	"fmt"
	"time"
)

// RunStatus represents the status of an indexed improvement run.
type RunStatus string

const (
	RunActive    RunStatus = "active"
	RunCompleted RunStatus = "completed"
	RunErrored   RunStatus = "errored"
)

// Run is an index entry for one improvement session. The authoritative
// record is the JSON history file at HistoryPath; the index carries
// just enough to list and locate runs.
type Run struct {
	ID                string     `json:"id"`
	HistoryPath       string     `json:"history_path"`
	PromptID          string     `json:"prompt_id"`
	Status            RunStatus  `json:"status"`
	Rounds            int        `json:"rounds"`
	BestScore         float64    `json:"best_score"`
	TotalCost         float64    `json:"total_cost"`
	TerminationReason string     `json:"termination_reason"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at"`
}

// CreateRun inserts a new run entry.
func (db *DB) CreateRun(r *Run) error {
	var completedAt any
	if r.CompletedAt != nil {
		completedAt = formatTime(*r.CompletedAt)
	}
	_, err := db.Exec(`
		INSERT INTO runs (id, history_path, prompt_id, status, rounds, best_score, total_cost, termination_reason, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.HistoryPath, r.PromptID, string(r.Status), r.Rounds, r.BestScore, r.TotalCost, r.TerminationReason, formatTime(r.StartedAt), completedAt)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. It returns nil without error when the
// run does not exist.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`
		SELECT id, history_path, prompt_id, status, rounds, best_score, total_cost, termination_reason, started_at, completed_at
		FROM runs WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// UpdateRun updates a run's mutable fields.
func (db *DB) UpdateRun(r *Run) error {
	var completedAt any
	if r.CompletedAt != nil {
		completedAt = formatTime(*r.CompletedAt)
	}
	_, err := db.Exec(`
		UPDATE runs SET status = ?, rounds = ?, best_score = ?, total_cost = ?, termination_reason = ?, completed_at = ?
		WHERE id = ?
	`, string(r.Status), r.Rounds, r.BestScore, r.TotalCost, r.TerminationReason, completedAt, r.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// DeleteRun deletes a run by ID.
func (db *DB) DeleteRun(id string) error {
	_, err := db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// ListRuns lists runs newest first, optionally filtered by status.
func (db *DB) ListRuns(status *RunStatus) ([]Run, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`
			SELECT id, history_path, prompt_id, status, rounds, best_score, total_cost, termination_reason, started_at, completed_at
			FROM runs WHERE status = ? ORDER BY started_at DESC
		`, string(*status))
	} else {
		rows, err = db.Query(`
			SELECT id, history_path, prompt_id, status, rounds, best_score, total_cost, termination_reason, started_at, completed_at
			FROM runs ORDER BY started_at DESC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var reason sql.NullString
	var startedAt string
	var completedAt sql.NullString

	err := row.Scan(&r.ID, &r.HistoryPath, &r.PromptID, &r.Status, &r.Rounds,
		&r.BestScore, &r.TotalCost, &reason, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	r.TerminationReason = reason.String
	r.StartedAt, _ = parseTime(startedAt)
	r.CompletedAt = parseNullableTime(completedAt)
	return &r, nil
}
