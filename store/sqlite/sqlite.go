/*
Package sqlite provides the SQLite-backed persistence collaborator.

PURPOSE:
  Stores employees, computed time entries, custom holidays and batch run
  summaries. The computation core never calls into this package; the API
  and the batch units do.

KEY TABLES:
  employees:     Entity records with their Bundesland
  time_entries:  One computed entry per employee and shift start
  holidays:      Custom holidays on top of the statutory calendar
  batch_runs:    Aggregate outcome and per-unit failures of each batch
  retry_queue:   Shift plans whose units failed transiently, re-run later

IDEMPOTENCY:
  time_entries is unique on (employee_id, start_at). Saving the same shift
  again replaces the computed values, so a failed batch subset can simply
  be re-submitted.

CONCURRENCY:
  sync.RWMutex plus a single open connection. Busy/locked errors are
  reported as batch.TransientError so batch units retry them.

USAGE:
  store, err := sqlite.New("./data/timeentry.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - entries.go, employees.go, holidays.go, batches.go, retries.go
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/warp/timeentry-engine/batch"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store implements persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection: in-memory databases are per connection, and SQLite
	// has a single writer anyway
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		bundesland TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		total_minutes INTEGER NOT NULL,
		paid_minutes INTEGER NOT NULL,
		break_minutes INTEGER NOT NULL,
		breaks_json TEXT NOT NULL,
		override_breaks BOOLEAN NOT NULL DEFAULT FALSE,
		night_minutes INTEGER NOT NULL,
		sunday_minutes INTEGER NOT NULL,
		holiday_minutes INTEGER NOT NULL,
		night_holiday_minutes INTEGER NOT NULL,
		sunday_holiday_minutes INTEGER NOT NULL,
		normal_minutes INTEGER NOT NULL,
		batch_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_time_entries_employee_start
		ON time_entries(employee_id, start_at);
	CREATE INDEX IF NOT EXISTS idx_time_entries_batch
		ON time_entries(batch_id) WHERE batch_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		regions TEXT NOT NULL DEFAULT '',
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(date, name);

	CREATE TABLE IF NOT EXISTS batch_runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		total INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		errors_json TEXT NOT NULL,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batch_runs_started
		ON batch_runs(started_at DESC);

	CREATE TABLE IF NOT EXISTS retry_queue (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL,
		label TEXT NOT NULL,
		plan_json TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes all data (dev/test only).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"time_entries", "employees", "holidays", "batch_runs", "retry_queue"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return classify("reset "+table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// classify marks lock contention as transient so batch units retry it.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked) {
		return batch.Transient(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// formatTime stores UTC so text comparison orders correctly.
func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
