package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/timeentry-engine/timeentry"
)

// =============================================================================
// TIME ENTRY STORE
// =============================================================================

// TimeEntryRecord is a persisted computed entry.
type TimeEntryRecord struct {
	ID         string
	EmployeeID string
	BatchID    string
	Entry      timeentry.Entry
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type breakJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SaveTimeEntry upserts the entry for (employeeID, entry.Start) and returns
// the stored record. batchID may be empty.
func (s *Store) SaveTimeEntry(ctx context.Context, employeeID, batchID string, entry timeentry.Entry) (TimeEntryRecord, error) {
	breaks := make([]breakJSON, len(entry.BreakSegments))
	for i, b := range entry.BreakSegments {
		breaks[i] = breakJSON{Start: formatTime(b.Start), End: formatTime(b.End)}
	}
	breaksJSON, err := json.Marshal(breaks)
	if err != nil {
		return TimeEntryRecord{}, fmt.Errorf("marshal breaks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec := TimeEntryRecord{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		BatchID:    batchID,
		Entry:      entry,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	p := entry.Premiums

	query := `
		INSERT INTO time_entries (
			id, employee_id, start_at, end_at, total_minutes, paid_minutes, break_minutes,
			breaks_json, override_breaks, night_minutes, sunday_minutes, holiday_minutes,
			night_holiday_minutes, sunday_holiday_minutes, normal_minutes, batch_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, start_at) DO UPDATE SET
			end_at = excluded.end_at,
			total_minutes = excluded.total_minutes,
			paid_minutes = excluded.paid_minutes,
			break_minutes = excluded.break_minutes,
			breaks_json = excluded.breaks_json,
			override_breaks = excluded.override_breaks,
			night_minutes = excluded.night_minutes,
			sunday_minutes = excluded.sunday_minutes,
			holiday_minutes = excluded.holiday_minutes,
			night_holiday_minutes = excluded.night_holiday_minutes,
			sunday_holiday_minutes = excluded.sunday_holiday_minutes,
			normal_minutes = excluded.normal_minutes,
			batch_id = excluded.batch_id,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`
	var createdAt string
	err = s.db.QueryRowContext(ctx, query,
		rec.ID, employeeID, formatTime(entry.Start), formatTime(entry.End),
		entry.TotalDurationMinutes, entry.PaidDurationMinutes, entry.BreakTotalMinutes,
		string(breaksJSON), entry.OverrideBreaks,
		p.NightMinutes, p.SundayMinutes, p.HolidayMinutes,
		p.NightHolidayMinutes, p.SundayHolidayMinutes, p.NormalMinutes,
		nullString(batchID), formatTime(now), formatTime(now),
	).Scan(&rec.ID, &createdAt)
	if err != nil {
		return TimeEntryRecord{}, classify("save time entry", err)
	}
	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}

// ListTimeEntries returns an employee's entries with start in [from, to),
// ordered by start. Zero bounds are open.
func (s *Store) ListTimeEntries(ctx context.Context, employeeID string, from, to time.Time) ([]TimeEntryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, COALESCE(batch_id, ''), start_at, end_at, total_minutes,
			paid_minutes, break_minutes, breaks_json, override_breaks, night_minutes,
			sunday_minutes, holiday_minutes, night_holiday_minutes, sunday_holiday_minutes,
			normal_minutes, created_at, updated_at
		FROM time_entries
		WHERE employee_id = ?
	`
	args := []any{employeeID}
	if !from.IsZero() {
		query += " AND start_at >= ?"
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		query += " AND start_at < ?"
		args = append(args, formatTime(to))
	}
	query += " ORDER BY start_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list time entries", err)
	}
	defer rows.Close()

	var out []TimeEntryRecord
	for rows.Next() {
		var (
			rec                       TimeEntryRecord
			startAt, endAt, breaksRaw string
			createdAt, updatedAt      string
		)
		e := &rec.Entry
		p := &e.Premiums
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &rec.BatchID, &startAt, &endAt,
			&e.TotalDurationMinutes, &e.PaidDurationMinutes, &e.BreakTotalMinutes, &breaksRaw,
			&e.OverrideBreaks, &p.NightMinutes, &p.SundayMinutes, &p.HolidayMinutes,
			&p.NightHolidayMinutes, &p.SundayHolidayMinutes, &p.NormalMinutes,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}
		e.Start = parseTime(startAt)
		e.End = parseTime(endAt)
		p.TotalWorkMinutes = e.PaidDurationMinutes
		p.BreakTotalMinutes = e.BreakTotalMinutes

		var breaks []breakJSON
		if err := json.Unmarshal([]byte(breaksRaw), &breaks); err != nil {
			return nil, fmt.Errorf("decode breaks of %s: %w", rec.ID, err)
		}
		e.BreakSegments = make([]timeentry.BreakSegment, len(breaks))
		for i, b := range breaks {
			e.BreakSegments[i] = timeentry.BreakSegment{Start: parseTime(b.Start), End: parseTime(b.End)}
		}

		rec.CreatedAt = parseTime(createdAt)
		rec.UpdatedAt = parseTime(updatedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}
