/*
Package factory converts shift plans into time-entry inputs and batch units.

PURPOSE:
  A ShiftPlan is what a roster or a client submits: a calendar day plus
  wall-clock start and end ("22:00" to "06:00"). The factory turns it into
  a timeentry.Input with absolute instants in the configured location,
  resolves the holidays the shift touches, and wraps the computation plus
  its persistence into a batch.Unit.

JSON SCHEMA:
  {
    "employee_id": "emp-42",
    "employee_name": "Erika Muster",
    "bundesland": "BY",
    "date": "2024-03-31",
    "start_time": "22:00",
    "end_time": "06:00",
    "break_hours": "0,5",
    "breaks": [{"start": "02:00", "end": "02:30"}],
    "override_breaks": false
  }

KEY RULES:
  - end_time at or before start_time on the clock means the shift ends on
    the next day; equal clock times are rejected
  - break times are placed on the first instant inside the shift with that
    wall-clock time
  - break_hours (locale number, "0,5" or "0.5") without explicit breaks
    becomes one manual break starting 300 minutes into the shift, or at the
    start for shorter shifts, clipped to the end
  - explicit breaks or break_hours imply override_breaks

USAGE:
  f := factory.NewEntryFactory(loc, &holiday.GermanCalendar{Custom: store}, "BY")
  in, holidays, err := f.Build(ctx, plan)
  entry, err := f.Computer.Compute(in)

  units := f.Units(plans, store, batchID)
  res := ex.RunBounded(ctx, units, 5)

SEE ALSO:
  - units.go: batch units and the persistence Sink
  - timeentry/compute.go: the computation itself
*/
package factory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/warp/timeentry-engine/holiday"
	"github.com/warp/timeentry-engine/timeentry"
)

// ErrInvalidPlan marks shift plans that cannot be turned into an input.
var ErrInvalidPlan = errors.New("invalid shift plan")

// PlanError names the offending field of a plan.
type PlanError struct {
	Field string
	Value string
	Err   error
}

func (e *PlanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

func (e *PlanError) Unwrap() error { return e.Err }

func (e *PlanError) Is(target error) bool { return target == ErrInvalidPlan }

const (
	clockLayout = "15:04"

	// manual break_hours start this far into the shift
	manualBreakOffset = 300 * time.Minute
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ShiftPlan is one employee's shift on one day.
type ShiftPlan struct {
	EmployeeID     string      `json:"employee_id" validate:"required"`
	EmployeeName   string      `json:"employee_name,omitempty"`
	Bundesland     string      `json:"bundesland,omitempty" validate:"omitempty,bundesland"`
	Date           string      `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime      string      `json:"start_time" validate:"required,datetime=15:04"`
	EndTime        string      `json:"end_time" validate:"required,datetime=15:04"`
	BreakHours     string      `json:"break_hours,omitempty"`
	Breaks         []BreakJSON `json:"breaks,omitempty" validate:"omitempty,dive"`
	OverrideBreaks bool        `json:"override_breaks,omitempty"`
}

// BreakJSON is a wall-clock break inside a plan.
type BreakJSON struct {
	Start string `json:"start" validate:"required,datetime=15:04"`
	End   string `json:"end" validate:"required,datetime=15:04"`
}

// Label identifies the plan in batch diagnostics.
func (p ShiftPlan) Label() string {
	who := p.EmployeeName
	if who == "" {
		who = p.EmployeeID
	}
	return who + "/" + p.Date
}

// ParsePlans parses a JSON array of shift plans.
func ParsePlans(data []byte) ([]ShiftPlan, error) {
	var plans []ShiftPlan
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("failed to parse shift plans: %w", err)
	}
	return plans, nil
}

// =============================================================================
// ENTRY FACTORY
// =============================================================================

// EntryFactory turns plans into inputs for its Computer.
type EntryFactory struct {
	Computer *timeentry.Computer
	Calendar holiday.Calendar
	// Region is used for plans without a Bundesland.
	Region string
}

// NewEntryFactory creates a factory evaluating shifts in loc. cal may be nil,
// in which case no holidays apply.
func NewEntryFactory(loc *time.Location, cal holiday.Calendar, region string) *EntryFactory {
	if loc == nil {
		loc = time.UTC
	}
	return &EntryFactory{
		Computer: timeentry.NewComputer(loc),
		Calendar: cal,
		Region:   strings.ToUpper(region),
	}
}

func (f *EntryFactory) location() *time.Location {
	if f.Computer == nil || f.Computer.Location == nil {
		return time.UTC
	}
	return f.Computer.Location
}

// Build resolves plan into a timeentry.Input and the holidays it used.
func (f *EntryFactory) Build(ctx context.Context, plan ShiftPlan) (timeentry.Input, []holiday.Holiday, error) {
	loc := f.location()

	day, err := time.ParseInLocation(timeentry.DateLayout, strings.TrimSpace(plan.Date), loc)
	if err != nil {
		return timeentry.Input{}, nil, &PlanError{Field: "date", Value: plan.Date, Err: err}
	}
	start, err := atClock(day, plan.StartTime)
	if err != nil {
		return timeentry.Input{}, nil, &PlanError{Field: "start_time", Value: plan.StartTime, Err: err}
	}
	end, err := atClock(day, plan.EndTime)
	if err != nil {
		return timeentry.Input{}, nil, &PlanError{Field: "end_time", Value: plan.EndTime, Err: err}
	}
	if end.Equal(start) {
		return timeentry.Input{}, nil, &timeentry.InvalidRangeError{Start: start, End: end}
	}
	if end.Before(start) {
		end = nextDay(end)
	}

	in := timeentry.Input{Start: start, End: end}

	switch {
	case len(plan.Breaks) > 0:
		in.OverrideBreaks = true
		for _, b := range plan.Breaks {
			seg, err := f.breakWithin(start, b)
			if err != nil {
				return timeentry.Input{}, nil, err
			}
			in.ManualBreaks = append(in.ManualBreaks, seg)
		}
	case strings.TrimSpace(plan.BreakHours) != "":
		in.OverrideBreaks = true
		if seg, ok := manualBreak(start, end, timeentry.ParseLocaleNumber(plan.BreakHours, 0)); ok {
			in.ManualBreaks = []timeentry.BreakSegment{seg}
		}
	default:
		in.OverrideBreaks = plan.OverrideBreaks
	}

	if f.Calendar == nil {
		return in, nil, nil
	}
	region := strings.ToUpper(strings.TrimSpace(plan.Bundesland))
	if region == "" {
		region = f.Region
	}
	used, set, err := holiday.Range(ctx, f.Calendar, start, end, region)
	if err != nil {
		return timeentry.Input{}, nil, fmt.Errorf("resolve holidays: %w", err)
	}
	in.Holidays = set
	return in, holiday.Between(used, start, end), nil
}

// breakWithin places a wall-clock break at its first occurrence at or after
// the shift start.
func (f *EntryFactory) breakWithin(shiftStart time.Time, b BreakJSON) (timeentry.BreakSegment, error) {
	day := time.Date(shiftStart.Year(), shiftStart.Month(), shiftStart.Day(), 0, 0, 0, 0, shiftStart.Location())
	bs, err := atClock(day, b.Start)
	if err != nil {
		return timeentry.BreakSegment{}, &PlanError{Field: "breaks.start", Value: b.Start, Err: err}
	}
	be, err := atClock(day, b.End)
	if err != nil {
		return timeentry.BreakSegment{}, &PlanError{Field: "breaks.end", Value: b.End, Err: err}
	}
	if bs.Before(shiftStart) {
		bs = nextDay(bs)
		be = nextDay(be)
	}
	if !be.After(bs) {
		be = nextDay(be)
	}
	return timeentry.BreakSegment{Start: bs, End: be}, nil
}

// manualBreak lays out hours of break as one segment.
func manualBreak(start, end time.Time, hours float64) (timeentry.BreakSegment, bool) {
	minutes := int(math.Round(hours * 60))
	if minutes <= 0 {
		return timeentry.BreakSegment{}, false
	}
	bs := start.Add(manualBreakOffset)
	if !bs.Before(end) {
		bs = start
	}
	be := bs.Add(time.Duration(minutes) * time.Minute)
	if be.After(end) {
		be = end
	}
	return timeentry.BreakSegment{Start: bs, End: be}, true
}

func atClock(day time.Time, clock string) (time.Time, error) {
	c, err := time.Parse(clockLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, day.Location()), nil
}

// nextDay keeps the wall-clock time across DST changes.
func nextDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, t.Hour(), t.Minute(), 0, 0, t.Location())
}
