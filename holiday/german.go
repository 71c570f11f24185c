/*
Package holiday resolves which public holidays apply to a shift.

PURPOSE:
  The time-entry computation only matches calendar-day strings. Deciding
  which days count (nationwide vs. one Bundesland) happens here, before
  timeentry.Compute is called.

REGIONS:
  ISO 3166-2:DE subdivision suffixes: BW BY BE BB HB HH HE MV NI NW RP SL SN
  ST SH TH. An empty region means "nationwide holidays only".

SOURCES:
  - German(year): computed statutory holidays (fixed dates + Easter-relative)
  - Custom holidays from the store (company closures, local feast days)

SEE ALSO:
  - timeentry/time.go: HolidaySet
  - store/sqlite/holidays.go: Custom holiday persistence
*/
package holiday

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/warp/timeentry-engine/timeentry"
)

// =============================================================================
// HOLIDAY
// =============================================================================

// Holiday is a whole-day public holiday.
type Holiday struct {
	ID      string
	Date    string // YYYY-MM-DD
	Name    string
	Regions []string // empty = nationwide
}

// Nationwide reports whether the holiday applies in every region.
func (h Holiday) Nationwide() bool { return len(h.Regions) == 0 }

// AppliesTo reports whether the holiday counts in region. An empty region
// only accepts nationwide holidays.
func (h Holiday) AppliesTo(region string) bool {
	if h.Nationwide() {
		return true
	}
	region = strings.ToUpper(strings.TrimSpace(region))
	return region != "" && slices.Contains(h.Regions, region)
}

// Regions lists the valid Bundesland codes.
var Regions = []string{"BW", "BY", "BE", "BB", "HB", "HH", "HE", "MV", "NI", "NW", "RP", "SL", "SN", "ST", "SH", "TH"}

// ValidRegion reports whether code is a known Bundesland (case-insensitive).
func ValidRegion(code string) bool {
	return slices.Contains(Regions, strings.ToUpper(strings.TrimSpace(code)))
}

// =============================================================================
// GERMAN STATUTORY HOLIDAYS
// =============================================================================

// German returns the statutory holidays for year, sorted by date.
func German(year int) []Holiday {
	easter := EasterSunday(year)
	fixed := func(m time.Month, d int) time.Time { return time.Date(year, m, d, 0, 0, 0, 0, time.UTC) }
	rel := func(days int) time.Time { return easter.AddDate(0, 0, days) }

	type def struct {
		at      time.Time
		name    string
		regions []string
		since   int
	}
	defs := []def{
		{fixed(time.January, 1), "Neujahr", nil, 0},
		{fixed(time.January, 6), "Heilige Drei Könige", []string{"BW", "BY", "ST"}, 0},
		{fixed(time.March, 8), "Internationaler Frauentag", []string{"BE"}, 2019},
		{rel(-2), "Karfreitag", nil, 0},
		{rel(0), "Ostersonntag", []string{"BB"}, 0},
		{rel(1), "Ostermontag", nil, 0},
		{fixed(time.May, 1), "Tag der Arbeit", nil, 0},
		{rel(39), "Christi Himmelfahrt", nil, 0},
		{rel(49), "Pfingstsonntag", []string{"BB"}, 0},
		{rel(50), "Pfingstmontag", nil, 0},
		{rel(60), "Fronleichnam", []string{"BW", "BY", "HE", "NW", "RP", "SL"}, 0},
		{fixed(time.August, 15), "Mariä Himmelfahrt", []string{"SL"}, 0},
		{fixed(time.September, 20), "Weltkindertag", []string{"TH"}, 2019},
		{fixed(time.October, 3), "Tag der Deutschen Einheit", nil, 1990},
		{fixed(time.October, 31), "Reformationstag", reformationRegions(year), 0},
		{fixed(time.November, 1), "Allerheiligen", []string{"BW", "BY", "NW", "RP", "SL"}, 0},
		{repentanceDay(year), "Buß- und Bettag", []string{"SN"}, 0},
		{fixed(time.December, 25), "1. Weihnachtstag", nil, 0},
		{fixed(time.December, 26), "2. Weihnachtstag", nil, 0},
	}
	if year >= 2023 {
		defs[2].regions = []string{"BE", "MV"}
	}

	out := make([]Holiday, 0, len(defs))
	for _, d := range defs {
		if year < d.since {
			continue
		}
		out = append(out, Holiday{
			ID:      "de-" + d.at.Format(timeentry.DateLayout),
			Date:    d.at.Format(timeentry.DateLayout),
			Name:    d.name,
			Regions: d.regions,
		})
	}
	sortByDate(out)
	return out
}

// reformationRegions widened in 2018 to the northern states.
func reformationRegions(year int) []string {
	if year == 2017 {
		return nil // 500th anniversary, nationwide once
	}
	regions := []string{"BB", "MV", "SN", "ST", "TH"}
	if year >= 2018 {
		regions = append(regions, "HB", "HH", "NI", "SH")
	}
	return regions
}

// repentanceDay is the Wednesday before November 23.
func repentanceDay(year int) time.Time {
	d := time.Date(year, time.November, 22, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Wednesday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// EasterSunday computes Gregorian Easter (anonymous Gregorian algorithm).
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// FILTERING
// =============================================================================

// ForRegion keeps holidays that apply in region.
func ForRegion(holidays []Holiday, region string) []Holiday {
	out := make([]Holiday, 0, len(holidays))
	for _, h := range holidays {
		if h.AppliesTo(region) {
			out = append(out, h)
		}
	}
	return out
}

// Between keeps the holidays dated from start's day through end's day.
func Between(holidays []Holiday, start, end time.Time) []Holiday {
	first := start.Format(timeentry.DateLayout)
	last := end.Format(timeentry.DateLayout)
	out := make([]Holiday, 0)
	for _, h := range holidays {
		if h.Date >= first && h.Date <= last {
			out = append(out, h)
		}
	}
	return out
}

// Set converts holidays to the lookup set used by timeentry.
func Set(holidays []Holiday) timeentry.HolidaySet {
	dates := make([]string, len(holidays))
	for i, h := range holidays {
		dates[i] = h.Date
	}
	return timeentry.NewHolidaySet(dates...)
}

func sortByDate(hs []Holiday) {
	slices.SortStableFunc(hs, func(a, b Holiday) int { return strings.Compare(a.Date, b.Date) })
}

// =============================================================================
// CALENDAR
// =============================================================================

// Source supplies extra holidays, e.g. from the database.
type Source interface {
	ListHolidays(ctx context.Context, year int) ([]Holiday, error)
}

// Calendar resolves the holidays for a year and region.
type Calendar interface {
	Holidays(ctx context.Context, year int, region string) ([]Holiday, error)
}

// GermanCalendar merges statutory holidays with an optional custom Source.
type GermanCalendar struct {
	Custom Source
}

// Holidays returns statutory plus custom holidays that apply in region,
// sorted by date.
func (c *GermanCalendar) Holidays(ctx context.Context, year int, region string) ([]Holiday, error) {
	all := German(year)
	if c != nil && c.Custom != nil {
		extra, err := c.Custom.ListHolidays(ctx, year)
		if err != nil {
			return nil, err
		}
		all = append(all, extra...)
	}
	out := ForRegion(all, region)
	sortByDate(out)
	return out, nil
}

// Range resolves holidays for every year touched by [start, end] and
// returns both the list and the lookup set.
func Range(ctx context.Context, cal Calendar, start, end time.Time, region string) ([]Holiday, timeentry.HolidaySet, error) {
	var list []Holiday
	for y := start.Year(); y <= end.Year(); y++ {
		hs, err := cal.Holidays(ctx, y, region)
		if err != nil {
			return nil, nil, err
		}
		list = append(list, hs...)
	}
	return list, Set(list), nil
}
