package timeentry

import "time"

// =============================================================================
// PREMIUM CLASSIFIER - Zuschlag buckets per worked minute
// =============================================================================

// Premiums counts minutes per premium bucket.
//
// Buckets are additive: one minute can be night, Sunday and holiday at the
// same time and then increments all of Night, Sunday, Holiday, NightHoliday
// and SundayHoliday, while TotalWork grows by one. NightHoliday and
// SundayHoliday are overlap sub-counts, not separate minutes.
type Premiums struct {
	NightMinutes         int
	SundayMinutes        int
	HolidayMinutes       int
	NightHolidayMinutes  int
	SundayHolidayMinutes int
	NormalMinutes        int
	TotalWorkMinutes     int
	BreakTotalMinutes    int
}

// PremiumMinutes returns worked minutes carrying at least one premium.
func (p Premiums) PremiumMinutes() int {
	return p.TotalWorkMinutes - p.NormalMinutes
}

// Analyze walks every whole minute in [start, end). Minutes inside a break
// segment count as break and are not classified further.
func Analyze(start, end time.Time, breaks []BreakSegment, holidays HolidaySet) Premiums {
	var p Premiums
	for m := start; m.Before(end); m = m.Add(time.Minute) {
		if inBreak(m, breaks) {
			p.BreakTotalMinutes++
			continue
		}
		p.TotalWorkMinutes++

		night := IsNight(m)
		sunday := IsSunday(m)
		holiday := IsHoliday(m, holidays)

		if !night && !sunday && !holiday {
			p.NormalMinutes++
			continue
		}
		if night {
			p.NightMinutes++
		}
		if sunday {
			p.SundayMinutes++
		}
		if holiday {
			p.HolidayMinutes++
			if night {
				p.NightHolidayMinutes++
			}
			if sunday {
				p.SundayHolidayMinutes++
			}
		}
	}
	return p
}

// inBreak checks membership against every segment. Manual segments may
// arrive unsorted, and lists are at most a handful long.
func inBreak(t time.Time, breaks []BreakSegment) bool {
	for _, b := range breaks {
		if b.Contains(t) {
			return true
		}
	}
	return false
}
