/*
time.go - Minute-level time predicates and numeric helpers

PURPOSE:
  Pure helpers shared by the break rules and the premium classifier.
  Everything here is evaluated in the location carried by the time.Time
  value; callers convert instants to the payroll location before asking.

NIGHT WINDOW:
  [23:00, 24:00) and [00:00, 06:00) local time. 22:00-23:00 is NOT night.

HOLIDAYS:
  Whole-day, matched by "YYYY-MM-DD" string equality on the local date.
  Region filtering (nationwide vs. Bundesland) happens before this package
  is called; see holiday/.

SEE ALSO:
  - premiums.go: Uses the predicates per minute
  - holiday/german.go: Builds the HolidaySet
*/
package timeentry

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day key used for holiday matching.
const DateLayout = "2006-01-02"

const (
	nightStartHour = 23
	nightEndHour   = 6
)

// =============================================================================
// INTERVALS
// =============================================================================

// DurationMinutes returns end-start in (possibly fractional) minutes.
func DurationMinutes(start, end time.Time) float64 {
	return end.Sub(start).Minutes()
}

// =============================================================================
// PREDICATES
// =============================================================================

// IsNight reports whether the local hour is in [23:00, 06:00).
func IsNight(t time.Time) bool {
	h := t.Hour()
	return h >= nightStartHour || h < nightEndHour
}

// IsSunday reports whether the local weekday is Sunday.
func IsSunday(t time.Time) bool {
	return t.Weekday() == time.Sunday
}

// IsHoliday reports whether the local calendar date of t is in holidays.
func IsHoliday(t time.Time, holidays HolidaySet) bool {
	return holidays.Contains(t)
}

// HolidaySet is a set of "YYYY-MM-DD" dates.
// The zero value is an empty set and safe to use.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from date strings. Blank entries are ignored.
func NewHolidaySet(dates ...string) HolidaySet {
	s := make(HolidaySet, len(dates))
	for _, d := range dates {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		s[d] = struct{}{}
	}
	return s
}

// Contains reports whether the local date of t is in the set.
func (s HolidaySet) Contains(t time.Time) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[t.Format(DateLayout)]
	return ok
}

// Dates returns the set members in ascending order.
func (s HolidaySet) Dates() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	// ISO dates sort lexically
	slices.Sort(out)
	return out
}

// =============================================================================
// NUMBERS
// =============================================================================

// ParseLocaleNumber parses "0,5" or "0.5" style input.
// Empty or unparseable input yields def; it never fails.
func ParseLocaleNumber(s string, def float64) float64 {
	d, err := parseLocaleDecimal(s)
	if err != nil {
		return def
	}
	f, _ := d.Float64()
	return f
}

// parseLocaleDecimal is the strict form behind ParseLocaleNumber.
func parseLocaleDecimal(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return decimal.Zero, &ParseError{Input: s, Err: errEmptyNumber}
	}
	normalized := strings.ReplaceAll(raw, ",", ".")
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, &ParseError{Input: s, Err: err}
	}
	return d, nil
}

var sixty = decimal.NewFromInt(60)

// MinutesToHours converts a minute count to hours rounded to 2 decimals.
// Only the presentation layer should call this; counts stay integral inside.
func MinutesToHours(minutes int) float64 {
	h, _ := decimal.NewFromInt(int64(minutes)).Div(sixty).Round(2).Float64()
	return h
}
