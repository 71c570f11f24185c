package sqlite

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/timeentry-engine/holiday"
	"github.com/warp/timeentry-engine/timeentry"
)

// ErrDuplicateHoliday is returned when the same date+name already exists.
var ErrDuplicateHoliday = errors.New("holiday already exists")

// =============================================================================
// CUSTOM HOLIDAYS - implements holiday.Source
// =============================================================================

// CustomHoliday is a stored holiday. Recurring holidays repeat on the same
// month/day every year.
type CustomHoliday struct {
	holiday.Holiday
	Recurring bool
}

// SaveHoliday inserts a custom holiday and returns it with its ID set.
func (s *Store) SaveHoliday(ctx context.Context, h CustomHoliday) (CustomHoliday, error) {
	if _, err := time.Parse(timeentry.DateLayout, h.Date); err != nil {
		return CustomHoliday{}, fmt.Errorf("invalid holiday date %q: %w", h.Date, err)
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.Regions = splitRegions(strings.Join(h.Regions, ","))

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, date, name, regions, recurring, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, h.ID, h.Date, h.Name, strings.Join(h.Regions, ","), h.Recurring, formatTime(time.Now()))
	if err != nil {
		if isUniqueConstraintError(err) {
			return CustomHoliday{}, ErrDuplicateHoliday
		}
		return CustomHoliday{}, classify("save holiday", err)
	}
	return h, nil
}

// DeleteHoliday removes a custom holiday.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return classify("delete holiday", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListHolidays returns custom holidays falling in year, recurring ones moved
// into that year.
func (s *Store) ListHolidays(ctx context.Context, year int) ([]holiday.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, name, regions, recurring
		FROM holidays
		WHERE recurring = TRUE OR strftime('%Y', date) = ?
	`, fmt.Sprintf("%04d", year))
	if err != nil {
		return nil, classify("list holidays", err)
	}
	defer rows.Close()

	var out []holiday.Holiday
	for rows.Next() {
		var (
			h         holiday.Holiday
			regions   string
			recurring bool
		)
		if err := rows.Scan(&h.ID, &h.Date, &h.Name, &regions, &recurring); err != nil {
			return nil, err
		}
		if recurring {
			t, err := time.Parse(timeentry.DateLayout, h.Date)
			if err != nil {
				continue
			}
			// Feb 29 in a non-leap year has no equivalent day
			moved := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			if moved.Month() != t.Month() {
				continue
			}
			h.Date = moved.Format(timeentry.DateLayout)
		}
		h.Regions = splitRegions(regions)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b holiday.Holiday) int { return strings.Compare(a.Date, b.Date) })
	return out, nil
}

// ListAllHolidays returns every stored custom holiday (admin view).
func (s *Store) ListAllHolidays(ctx context.Context) ([]CustomHoliday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, date, name, regions, recurring FROM holidays ORDER BY date ASC")
	if err != nil {
		return nil, classify("list holidays", err)
	}
	defer rows.Close()

	var out []CustomHoliday
	for rows.Next() {
		var h CustomHoliday
		var regions string
		if err := rows.Scan(&h.ID, &h.Date, &h.Name, &regions, &h.Recurring); err != nil {
			return nil, err
		}
		h.Regions = splitRegions(regions)
		out = append(out, h)
	}
	return out, rows.Err()
}

func splitRegions(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
