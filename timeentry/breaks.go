package timeentry

import "time"

// =============================================================================
// BREAK RULES - Statutory unpaid breaks by shift length
// =============================================================================
//
//   shift minutes   required break
//   <= 300          0
//   <= 540          30
//   <= 600          45
//   >  600          60
//
// Placement is a fixed payroll convention measured from shift start:
//
//   30 min at +300, 15 min at +570, 15 min at +615
//
// Offsets and durations must not change; stored entries depend on them.

// BreakSegment is an unpaid interval [Start, End).
type BreakSegment struct {
	Start time.Time
	End   time.Time
}

// Minutes returns the segment length in whole minutes.
func (b BreakSegment) Minutes() int {
	return int(b.End.Sub(b.Start) / time.Minute)
}

// Contains reports whether t lies in [Start, End).
func (b BreakSegment) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

type breakSlot struct {
	threshold int // required minutes at which this slot applies
	offset    int // minutes after shift start
	length    int
}

var breakSlots = []breakSlot{
	{threshold: 30, offset: 300, length: 30},
	{threshold: 45, offset: 570, length: 15},
	{threshold: 60, offset: 615, length: 15},
}

// RequiredBreakMinutes maps a shift length to the statutory break total.
// Upper bounds are inclusive.
func RequiredBreakMinutes(workMinutes float64) int {
	switch {
	case workMinutes <= 300:
		return 0
	case workMinutes <= 540:
		return 30
	case workMinutes <= 600:
		return 45
	default:
		return 60
	}
}

// LayoutBreakSegments places the required break at the fixed offsets.
// Slots that would start at or after end are dropped and a slot running
// past end is cut at end, so the result never leaves [start, end).
func LayoutBreakSegments(start, end time.Time, requiredMinutes int) []BreakSegment {
	segments := []BreakSegment{}
	for _, slot := range breakSlots {
		if requiredMinutes < slot.threshold {
			break
		}
		segStart := start.Add(time.Duration(slot.offset) * time.Minute)
		if !segStart.Before(end) {
			break
		}
		segEnd := segStart.Add(time.Duration(slot.length) * time.Minute)
		if segEnd.After(end) {
			segEnd = end
		}
		segments = append(segments, BreakSegment{Start: segStart, End: segEnd})
	}
	return segments
}

// SumBreakMinutes adds up segment lengths as given.
func SumBreakMinutes(segments []BreakSegment) int {
	total := 0
	for _, s := range segments {
		if m := s.Minutes(); m > 0 {
			total += m
		}
	}
	return total
}
