package sqlite

import (
	"context"
	"database/sql"
	"time"
)

// =============================================================================
// BATCH RUNS (scheduler and manual batch history)
// =============================================================================

// Batch run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// BatchRun records one batch generate or send over a month.
type BatchRun struct {
	ID          string
	Operation   string // generate, send
	Year        int
	Month       time.Month
	Status      string // running, completed, failed
	TriggeredBy string // scheduler, or the actor of a manual run
	Succeeded   int
	Skipped     int
	Failed      int
	Cancelled   int
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// SaveBatchRun inserts or updates a batch run.
func (s *Store) SaveBatchRun(ctx context.Context, r BatchRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO batch_runs (id, operation, year, month, status, triggered_by,
			succeeded, skipped, failed, cancelled, error, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			succeeded = excluded.succeeded,
			skipped = excluded.skipped,
			failed = excluded.failed,
			cancelled = excluded.cancelled,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Operation, r.Year, int(r.Month), r.Status, r.TriggeredBy,
		r.Succeeded, r.Skipped, r.Failed, r.Cancelled, nullString(r.Error),
		nullTime(r.StartedAt), nullTime(r.CompletedAt), formatTime(r.CreatedAt),
	)
	return err
}

// GetBatchRuns returns batch runs, newest first. An empty status returns all.
func (s *Store) GetBatchRuns(ctx context.Context, status string) ([]BatchRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, operation, year, month, status, triggered_by, succeeded, skipped,
			failed, cancelled, error, started_at, completed_at, created_at
		FROM batch_runs
	`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []BatchRun
	for rows.Next() {
		var r BatchRun
		var month int
		var errText, startedAt, completedAt sql.NullString
		var createdAt string
		if err := rows.Scan(
			&r.ID, &r.Operation, &r.Year, &month, &r.Status, &r.TriggeredBy,
			&r.Succeeded, &r.Skipped, &r.Failed, &r.Cancelled,
			&errText, &startedAt, &completedAt, &createdAt,
		); err != nil {
			return nil, err
		}
		r.Month = time.Month(month)
		r.Error = errText.String
		r.StartedAt = scanNullTime(startedAt)
		r.CompletedAt = scanNullTime(completedAt)
		r.CreatedAt = parseTime(createdAt)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// IsBatchComplete checks if a batch operation already completed for a month.
func (s *Store) IsBatchComplete(ctx context.Context, operation string, year int, month time.Month) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM batch_runs
		WHERE operation = ? AND year = ? AND month = ? AND status = 'completed'
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, operation, year, int(month)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
