package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// BATCH RUNS - audit of batch outcomes
// =============================================================================

// BatchRunError is one failed unit of a run.
type BatchRunError struct {
	Label string `json:"label"`
	Error string `json:"error"`
}

// BatchRun summarizes one executed batch.
type BatchRun struct {
	ID          string
	Kind        string
	Total       int
	Succeeded   int
	Failed      int
	Errors      []BatchRunError
	StartedAt   time.Time
	CompletedAt time.Time
}

// SaveBatchRun records a finished batch.
func (s *Store) SaveBatchRun(ctx context.Context, r BatchRun) error {
	errs := r.Errors
	if errs == nil {
		errs = []BatchRunError{}
	}
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("marshal batch errors: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO batch_runs (id, kind, total, succeeded, failed, errors_json, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Kind, r.Total, r.Succeeded, r.Failed, string(errorsJSON),
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.CompletedAt.UTC().Format(time.RFC3339Nano))
	return classify("save batch run", err)
}

// ListBatchRuns returns the most recent runs first.
func (s *Store) ListBatchRuns(ctx context.Context, limit int) ([]BatchRun, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, total, succeeded, failed, errors_json, started_at, completed_at
		FROM batch_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, classify("list batch runs", err)
	}
	defer rows.Close()

	var out []BatchRun
	for rows.Next() {
		var r BatchRun
		var errorsJSON, startedAt, completedAt string
		if err := rows.Scan(&r.ID, &r.Kind, &r.Total, &r.Succeeded, &r.Failed, &errorsJSON, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(errorsJSON), &r.Errors); err != nil {
			return nil, fmt.Errorf("decode batch errors of %s: %w", r.ID, err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		r.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
