package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// RETRY QUEUE - transient batch failures awaiting a later run
// =============================================================================

// PendingRetry is one queued shift plan. PlanJSON is opaque to the store.
type PendingRetry struct {
	ID        string
	BatchID   string
	Label     string
	PlanJSON  []byte
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EnqueueRetry queues a plan and returns its ID.
func (s *Store) EnqueueRetry(ctx context.Context, r PendingRetry) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := formatTime(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO retry_queue (id, batch_id, label, plan_json, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.BatchID, r.Label, string(r.PlanJSON), r.Attempts, r.LastError, now, now)
	if err != nil {
		return "", classify("enqueue retry", err)
	}
	return r.ID, nil
}

// ListRetries returns the oldest queued plans first.
func (s *Store) ListRetries(ctx context.Context, limit int) ([]PendingRetry, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, label, plan_json, attempts, last_error, created_at, updated_at
		FROM retry_queue
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, classify("list retries", err)
	}
	defer rows.Close()

	var out []PendingRetry
	for rows.Next() {
		var r PendingRetry
		var plan, createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &r.BatchID, &r.Label, &plan, &r.Attempts, &r.LastError, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		r.PlanJSON = []byte(plan)
		r.CreatedAt = parseTime(createdAt)
		r.UpdatedAt = parseTime(updatedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkRetryFailed bumps the attempt count of a queued plan.
func (s *Store) MarkRetryFailed(ctx context.Context, id, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE retry_queue SET attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ?
	`, lastError, formatTime(time.Now()), id)
	if err != nil {
		return classify("mark retry failed", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRetry removes a queued plan.
func (s *Store) DeleteRetry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM retry_queue WHERE id = ?", id)
	if err != nil {
		return classify("delete retry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
