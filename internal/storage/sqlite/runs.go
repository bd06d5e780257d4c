package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sandevgo/aizen/internal/core"
)

// RunsRepo keeps an audit trail of every scheduled task execution.
type RunsRepo struct {
	db *sql.DB
}

func NewRunsRepo(db *sql.DB) *RunsRepo {
	return &RunsRepo{db: db}
}

func (r *RunsRepo) RecordRun(ctx context.Context, run core.TaskRun) error {
	query := `INSERT INTO task_runs (id, task_prompt, session_id, turns, outcome, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.TaskPrompt, run.SessionID, run.Turns, run.Outcome, run.Error,
		run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record task run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest runs first, for the status command.
func (r *RunsRepo) RecentRuns(ctx context.Context, limit int) ([]core.TaskRun, error) {
	query := `SELECT id, task_prompt, session_id, turns, outcome, error, started_at, finished_at
		FROM task_runs ORDER BY started_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query task runs: %w", err)
	}
	defer rows.Close()

	var runs []core.TaskRun
	for rows.Next() {
		var run core.TaskRun
		var errStr sql.NullString
		if err := rows.Scan(&run.ID, &run.TaskPrompt, &run.SessionID, &run.Turns,
			&run.Outcome, &errStr, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task run: %w", err)
		}
		run.Error = errStr.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
