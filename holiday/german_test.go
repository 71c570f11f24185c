package holiday_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeentry-engine/holiday"
)

func dates(hs []holiday.Holiday) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Date
	}
	return out
}

func TestEasterSunday(t *testing.T) {
	assert.Equal(t, "2024-03-31", holiday.EasterSunday(2024).Format("2006-01-02"))
	assert.Equal(t, "2025-04-20", holiday.EasterSunday(2025).Format("2006-01-02"))
	assert.Equal(t, "2026-04-05", holiday.EasterSunday(2026).Format("2006-01-02"))
}

func TestGerman_Nationwide2024(t *testing.T) {
	national := holiday.ForRegion(holiday.German(2024), "")

	assert.Equal(t, []string{
		"2024-01-01", // Neujahr
		"2024-03-29", // Karfreitag
		"2024-04-01", // Ostermontag
		"2024-05-01",
		"2024-05-09", // Himmelfahrt
		"2024-05-20", // Pfingstmontag
		"2024-10-03",
		"2024-12-25",
		"2024-12-26",
	}, dates(national))
}

func TestGerman_RegionalHolidays(t *testing.T) {
	all := holiday.German(2024)

	bavaria := holiday.Set(holiday.ForRegion(all, "by"))
	assert.Contains(t, bavaria, "2024-01-06")
	assert.Contains(t, bavaria, "2024-05-30") // Fronleichnam
	assert.Contains(t, bavaria, "2024-11-01")
	assert.NotContains(t, bavaria, "2024-10-31")

	saxony := holiday.Set(holiday.ForRegion(all, "SN"))
	assert.Contains(t, saxony, "2024-11-20") // Buß- und Bettag
	assert.Contains(t, saxony, "2024-10-31")

	berlin := holiday.Set(holiday.ForRegion(all, "BE"))
	assert.Contains(t, berlin, "2024-03-08")

	mv2022 := holiday.Set(holiday.ForRegion(holiday.German(2022), "MV"))
	assert.NotContains(t, mv2022, "2022-03-08")
	mv2024 := holiday.Set(holiday.ForRegion(all, "MV"))
	assert.Contains(t, mv2024, "2024-03-08")
}

func TestGerman_ReformationDay2017Nationwide(t *testing.T) {
	bavaria := holiday.Set(holiday.ForRegion(holiday.German(2017), "BY"))
	assert.Contains(t, bavaria, "2017-10-31")
}

func TestValidRegion(t *testing.T) {
	assert.True(t, holiday.ValidRegion("nw"))
	assert.True(t, holiday.ValidRegion(" TH "))
	assert.False(t, holiday.ValidRegion("XX"))
	assert.False(t, holiday.ValidRegion(""))
}

type fakeSource struct {
	holidays []holiday.Holiday
	err      error
}

func (f fakeSource) ListHolidays(context.Context, int) ([]holiday.Holiday, error) {
	return f.holidays, f.err
}

func TestGermanCalendar_MergesCustomHolidays(t *testing.T) {
	cal := &holiday.GermanCalendar{Custom: fakeSource{holidays: []holiday.Holiday{
		{Date: "2024-12-24", Name: "Heiligabend (Betrieb geschlossen)"},
		{Date: "2024-08-08", Name: "Augsburger Friedensfest", Regions: []string{"BY"}},
	}}}

	nrw, err := cal.Holidays(context.Background(), 2024, "NW")
	require.NoError(t, err)
	set := holiday.Set(nrw)
	assert.Contains(t, set, "2024-12-24")
	assert.NotContains(t, set, "2024-08-08")

	ds := dates(nrw)
	assert.IsNonDecreasing(t, ds)
}

func TestGermanCalendar_SourceError(t *testing.T) {
	cal := &holiday.GermanCalendar{Custom: fakeSource{err: errors.New("db down")}}
	_, err := cal.Holidays(context.Background(), 2024, "")
	assert.Error(t, err)
}

func TestRange_SpansYearBoundary(t *testing.T) {
	cal := &holiday.GermanCalendar{}
	start := time.Date(2024, time.December, 31, 22, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)

	list, set, err := holiday.Range(context.Background(), cal, start, end, "")
	require.NoError(t, err)

	assert.Contains(t, set, "2024-12-26")
	assert.Contains(t, set, "2025-01-01")
	assert.Len(t, list, 18)
}
