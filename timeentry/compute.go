/*
compute.go - Single-shift time entry computation

PURPOSE:
  Combines the break rules and the premium classifier into one computed
  entry. Every field is a pure function of the input: no clock, no random
  source, no shared state. Safe for concurrent use.

FLOW:
  1. Reject end <= start (ErrInvalidRange)
  2. Normalize both bounds to whole minutes in the payroll location
  3. Breaks: manual list verbatim when OverrideBreaks, else the statutory
     layout for the shift length
  4. Classify every minute (premiums.go)
  5. Paid = Total - Break

INVARIANTS:
  TotalDurationMinutes == PaidDurationMinutes + BreakTotalMinutes
  PaidDurationMinutes  == Premiums.TotalWorkMinutes

  BreakTotalMinutes counts shift minutes covered by a break. For segments
  that sit inside the shift without overlapping (always true for the
  statutory layout) this equals the sum of segment lengths.

SEE ALSO:
  - breaks.go: RequiredBreakMinutes, LayoutBreakSegments
  - premiums.go: Analyze
*/
package timeentry

import (
	"time"
)

// Input describes one shift to compute.
type Input struct {
	Start    time.Time
	End      time.Time
	Holidays HolidaySet

	// ManualBreaks is used verbatim when OverrideBreaks is set. The slice
	// is copied, never mutated.
	ManualBreaks   []BreakSegment
	OverrideBreaks bool
}

// Entry is the computed result for one shift.
type Entry struct {
	Start                time.Time
	End                  time.Time
	TotalDurationMinutes int
	PaidDurationMinutes  int
	BreakSegments        []BreakSegment
	BreakTotalMinutes    int
	Premiums             Premiums
	OverrideBreaks       bool
}

// StartISO returns the start as RFC 3339.
func (e Entry) StartISO() string { return e.Start.Format(time.RFC3339) }

// EndISO returns the end as RFC 3339.
func (e Entry) EndISO() string { return e.End.Format(time.RFC3339) }

// =============================================================================
// COMPUTER
// =============================================================================

// Computer evaluates shifts in a fixed location. Night, Sunday and holiday
// predicates depend on local wall-clock time, so Location decides what
// "local" means. A nil Location keeps each time's own location.
type Computer struct {
	Location *time.Location
}

// NewComputer returns a Computer for loc.
func NewComputer(loc *time.Location) *Computer {
	return &Computer{Location: loc}
}

// Compute evaluates in with the times' own locations.
func Compute(in Input) (Entry, error) {
	return (&Computer{}).Compute(in)
}

// Compute evaluates one shift.
func (c *Computer) Compute(in Input) (Entry, error) {
	start := c.local(in.Start).Truncate(time.Minute)
	end := c.local(in.End).Truncate(time.Minute)
	if !end.After(start) {
		return Entry{}, &InvalidRangeError{Start: in.Start, End: in.End}
	}
	if end.Sub(start) > MaxShiftDuration {
		return Entry{}, &ShiftTooLongError{Start: in.Start, End: in.End}
	}

	total := int(DurationMinutes(start, end))

	var segments []BreakSegment
	if in.OverrideBreaks {
		segments = make([]BreakSegment, 0, len(in.ManualBreaks))
		for _, b := range in.ManualBreaks {
			seg, ok := clipSegment(BreakSegment{Start: c.local(b.Start), End: c.local(b.End)}, start, end)
			if ok {
				segments = append(segments, seg)
			}
		}
	} else {
		segments = LayoutBreakSegments(start, end, RequiredBreakMinutes(float64(total)))
	}

	premiums := Analyze(start, end, segments, in.Holidays)

	return Entry{
		Start:                start,
		End:                  end,
		TotalDurationMinutes: total,
		PaidDurationMinutes:  total - premiums.BreakTotalMinutes,
		BreakSegments:        segments,
		BreakTotalMinutes:    premiums.BreakTotalMinutes,
		Premiums:             premiums,
		OverrideBreaks:       in.OverrideBreaks,
	}, nil
}

// clipSegment bounds b to [start, end). ok is false when nothing is left.
func clipSegment(b BreakSegment, start, end time.Time) (BreakSegment, bool) {
	if b.Start.Before(start) {
		b.Start = start
	}
	if b.End.After(end) {
		b.End = end
	}
	return b, b.End.After(b.Start)
}

func (c *Computer) local(t time.Time) time.Time {
	if c == nil || c.Location == nil {
		return t
	}
	return t.In(c.Location)
}
