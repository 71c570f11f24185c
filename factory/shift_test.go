/*
shift_test.go - Tests for shift plan conversion and batch units

Tests for:
- Overnight wrap and clock parsing
- Manual breaks (explicit and break_hours)
- Holiday resolution by region
- Units: permanent plan errors, sink failures, ordering
*/
package factory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeentry-engine/batch"
	"github.com/warp/timeentry-engine/holiday"
	"github.com/warp/timeentry-engine/store/sqlite"
	"github.com/warp/timeentry-engine/timeentry"
)

func utc(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestBuild_DayShift(t *testing.T) {
	f := NewEntryFactory(time.UTC, nil, "")

	in, used, err := f.Build(context.Background(), ShiftPlan{
		EmployeeID: "emp-1", Date: "2024-03-04", StartTime: "08:00", EndTime: "16:00",
	})
	require.NoError(t, err)
	assert.Nil(t, used)
	assert.Equal(t, utc(2024, 3, 4, 8, 0), in.Start)
	assert.Equal(t, utc(2024, 3, 4, 16, 0), in.End)
	assert.False(t, in.OverrideBreaks)
	assert.Empty(t, in.ManualBreaks)
}

func TestBuild_OvernightWraps(t *testing.T) {
	// GIVEN: Saturday night into Sunday
	f := NewEntryFactory(time.UTC, nil, "")
	in, _, err := f.Build(context.Background(), ShiftPlan{
		EmployeeID: "emp-1", Date: "2024-03-30", StartTime: "22:00", EndTime: "06:00",
	})
	require.NoError(t, err)
	assert.Equal(t, utc(2024, 3, 31, 6, 0), in.End)

	// WHEN: computed
	entry, err := f.Computer.Compute(in)
	require.NoError(t, err)

	// THEN: 480 minutes, 30 min break at 03:00
	assert.Equal(t, 480, entry.TotalDurationMinutes)
	assert.Equal(t, 450, entry.PaidDurationMinutes)
	require.Len(t, entry.BreakSegments, 1)
	assert.Equal(t, utc(2024, 3, 31, 3, 0), entry.BreakSegments[0].Start)
	assert.Equal(t, 390, entry.Premiums.NightMinutes)
	assert.Equal(t, 330, entry.Premiums.SundayMinutes)
	assert.Equal(t, 60, entry.Premiums.NormalMinutes)
}

func TestBuild_Invalid(t *testing.T) {
	f := NewEntryFactory(time.UTC, nil, "")
	ctx := context.Background()

	tests := []struct {
		name  string
		plan  ShiftPlan
		field string
	}{
		{"bad date", ShiftPlan{Date: "31.03.2024", StartTime: "08:00", EndTime: "09:00"}, "date"},
		{"bad start", ShiftPlan{Date: "2024-03-31", StartTime: "8am", EndTime: "09:00"}, "start_time"},
		{"bad end", ShiftPlan{Date: "2024-03-31", StartTime: "08:00", EndTime: "25:00"}, "end_time"},
		{"bad break", ShiftPlan{Date: "2024-03-31", StartTime: "08:00", EndTime: "09:00",
			Breaks: []BreakJSON{{Start: "x", End: "08:30"}}}, "breaks.start"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.Build(ctx, tt.plan)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPlan)
			var pe *PlanError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.field, pe.Field)
		})
	}

	_, _, err := f.Build(ctx, ShiftPlan{Date: "2024-03-31", StartTime: "08:00", EndTime: "08:00"})
	assert.ErrorIs(t, err, timeentry.ErrInvalidRange)
}

func TestBuild_ExplicitBreaksOverride(t *testing.T) {
	f := NewEntryFactory(time.UTC, nil, "")
	in, _, err := f.Build(context.Background(), ShiftPlan{
		EmployeeID: "emp-1", Date: "2024-03-04", StartTime: "22:00", EndTime: "06:00",
		Breaks: []BreakJSON{{Start: "23:30", End: "23:45"}, {Start: "02:00", End: "02:30"}},
	})
	require.NoError(t, err)
	assert.True(t, in.OverrideBreaks)
	require.Len(t, in.ManualBreaks, 2)
	assert.Equal(t, utc(2024, 3, 4, 23, 30), in.ManualBreaks[0].Start)
	// before the start on the clock: next day
	assert.Equal(t, utc(2024, 3, 5, 2, 0), in.ManualBreaks[1].Start)
	assert.Equal(t, utc(2024, 3, 5, 2, 30), in.ManualBreaks[1].End)

	entry, err := f.Computer.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, 45, entry.BreakTotalMinutes)
}

func TestBuild_BreakHours(t *testing.T) {
	f := NewEntryFactory(time.UTC, nil, "")
	ctx := context.Background()

	// "0,75" hours = 45 minutes, 300 minutes in
	in, _, err := f.Build(ctx, ShiftPlan{Date: "2024-03-04", StartTime: "08:00", EndTime: "18:00", BreakHours: "0,75"})
	require.NoError(t, err)
	require.True(t, in.OverrideBreaks)
	require.Len(t, in.ManualBreaks, 1)
	assert.Equal(t, utc(2024, 3, 4, 13, 0), in.ManualBreaks[0].Start)
	assert.Equal(t, utc(2024, 3, 4, 13, 45), in.ManualBreaks[0].End)

	// short shift: break starts with the shift and is clipped to its end
	in, _, err = f.Build(ctx, ShiftPlan{Date: "2024-03-04", StartTime: "08:00", EndTime: "08:20", BreakHours: "0.5"})
	require.NoError(t, err)
	require.Len(t, in.ManualBreaks, 1)
	assert.Equal(t, utc(2024, 3, 4, 8, 0), in.ManualBreaks[0].Start)
	assert.Equal(t, utc(2024, 3, 4, 8, 20), in.ManualBreaks[0].End)

	// zero or garbage hours: override with no breaks at all
	in, _, err = f.Build(ctx, ShiftPlan{Date: "2024-03-04", StartTime: "08:00", EndTime: "18:00", BreakHours: "abc"})
	require.NoError(t, err)
	assert.True(t, in.OverrideBreaks)
	assert.Empty(t, in.ManualBreaks)

	entry, err := f.Computer.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, 600, entry.PaidDurationMinutes)
}

func TestBuild_HolidaysByRegion(t *testing.T) {
	f := NewEntryFactory(time.UTC, &holiday.GermanCalendar{}, "BY")
	ctx := context.Background()

	// Christmas Eve night into Christmas Day
	plan := ShiftPlan{EmployeeID: "emp-1", Date: "2024-12-24", StartTime: "22:00", EndTime: "06:00"}
	in, used, err := f.Build(ctx, plan)
	require.NoError(t, err)
	require.Len(t, used, 1)
	assert.Equal(t, "2024-12-25", used[0].Date)

	entry, err := f.Computer.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, 330, entry.Premiums.HolidayMinutes)
	assert.Equal(t, 330, entry.Premiums.NightHolidayMinutes)

	// Epiphany counts in BY (factory default) but not in plans for NW
	epiphany := ShiftPlan{EmployeeID: "emp-1", Date: "2024-01-06", StartTime: "08:00", EndTime: "12:00"}
	in, used, err = f.Build(ctx, epiphany)
	require.NoError(t, err)
	assert.Len(t, used, 1)
	assert.True(t, in.Holidays.Contains(utc(2024, 1, 6, 9, 0)))

	epiphany.Bundesland = "nw"
	in, used, err = f.Build(ctx, epiphany)
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.False(t, in.Holidays.Contains(utc(2024, 1, 6, 9, 0)))
}

func TestParsePlans(t *testing.T) {
	plans, err := ParsePlans([]byte(`[
		{"employee_id": "emp-1", "employee_name": "Erika", "date": "2024-03-04", "start_time": "08:00", "end_time": "16:00", "break_hours": "0,5"}
	]`))
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "0,5", plans[0].BreakHours)
	assert.Equal(t, "Erika/2024-03-04", plans[0].Label())
	assert.Equal(t, "emp-2/2024-03-04", ShiftPlan{EmployeeID: "emp-2", Date: "2024-03-04"}.Label())

	_, err = ParsePlans([]byte(`{`))
	assert.Error(t, err)
}

// =============================================================================
// UNITS
// =============================================================================

type fakeSink struct {
	fails int
	calls int
	saved []string
}

func (s *fakeSink) SaveTimeEntry(_ context.Context, employeeID, batchID string, entry timeentry.Entry) (sqlite.TimeEntryRecord, error) {
	s.calls++
	if s.calls <= s.fails {
		return sqlite.TimeEntryRecord{}, batch.Transient("save time entry", errors.New("database is locked"))
	}
	s.saved = append(s.saved, employeeID)
	return sqlite.TimeEntryRecord{ID: "rec-" + employeeID, EmployeeID: employeeID, BatchID: batchID, Entry: entry}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestUnits_PartialSuccess(t *testing.T) {
	f := NewEntryFactory(time.UTC, nil, "")
	sink := &fakeSink{fails: 1}
	plans := []ShiftPlan{
		{EmployeeID: "emp-1", EmployeeName: "Erika", Date: "2024-03-04", StartTime: "08:00", EndTime: "16:00"},
		{EmployeeID: "emp-2", Date: "2024-03-04", StartTime: "8 Uhr", EndTime: "16:00"},
	}

	ex := batch.NewExecutor[StoredEntry](batch.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Second},
		batch.WithSleep(noSleep))
	res := ex.RunBounded(context.Background(), f.Units(plans, sink, "batch-1"), 1)

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 1, res.ErrorCount)

	// first unit retried the transient sink failure
	assert.Equal(t, 2, res.Results[0].Attempts)
	assert.Equal(t, "rec-emp-1", res.Results[0].Value.RecordID)
	assert.Equal(t, 450, res.Results[0].Value.Entry.PaidDurationMinutes)

	// plan errors are permanent: one attempt
	assert.Equal(t, 1, res.Results[1].Attempts)
	assert.ErrorIs(t, res.Results[1].Err, ErrInvalidPlan)
	assert.ErrorIs(t, res.Results[1].Err, batch.ErrPermanent)
	assert.Equal(t, []string{"emp-2/2024-03-04"}, res.FailedLabels())
	assert.Equal(t, []string{"emp-1"}, sink.saved)
}

type flakySource struct {
	fails int
	calls int
}

func (s *flakySource) ListHolidays(context.Context, int) ([]holiday.Holiday, error) {
	s.calls++
	if s.calls <= s.fails {
		return nil, batch.Transient("list holidays", errors.New("database is locked"))
	}
	return nil, nil
}

func TestUnits_HolidayLookupRetried(t *testing.T) {
	src := &flakySource{fails: 1}
	f := NewEntryFactory(time.UTC, &holiday.GermanCalendar{Custom: src}, "BY")
	ex := batch.NewExecutor[StoredEntry](batch.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Second},
		batch.WithSleep(noSleep))

	u := f.Unit(ShiftPlan{EmployeeID: "emp-1", Date: "2024-03-04", StartTime: "08:00", EndTime: "16:00"}, nil, "")
	out, attempts, err := ex.WithRetry(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, 450, out.Entry.PaidDurationMinutes)

	// a lookup that keeps failing stays retryable
	src = &flakySource{fails: 10}
	f = NewEntryFactory(time.UTC, &holiday.GermanCalendar{Custom: src}, "BY")
	_, err = f.Unit(ShiftPlan{EmployeeID: "emp-1", Date: "2024-03-04", StartTime: "08:00", EndTime: "16:00"}, nil, "").Run(context.Background())
	require.Error(t, err)
	assert.True(t, batch.IsRetryable(err))
	assert.NotErrorIs(t, err, batch.ErrPermanent)
}

func TestUnits_NoSink(t *testing.T) {
	f := NewEntryFactory(time.UTC, nil, "")
	u := f.Unit(ShiftPlan{EmployeeID: "emp-1", Date: "2024-03-04", StartTime: "08:00", EndTime: "12:00"}, nil, "")

	out, err := u.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.RecordID)
	assert.Equal(t, 240, out.Entry.PaidDurationMinutes)
}

func TestUnits_WithStore(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, sqlite.Employee{ID: "emp-1", Name: "Erika"}))

	f := NewEntryFactory(time.UTC, &holiday.GermanCalendar{Custom: store}, "BY")
	plans := []ShiftPlan{
		{EmployeeID: "emp-1", Date: "2024-03-04", StartTime: "08:00", EndTime: "16:00"},
		{EmployeeID: "emp-1", Date: "2024-03-05", StartTime: "08:00", EndTime: "16:00"},
		{EmployeeID: "unknown", Date: "2024-03-05", StartTime: "08:00", EndTime: "16:00"},
	}
	ex := batch.NewExecutor[StoredEntry](batch.DefaultRetryConfig(), batch.WithSleep(noSleep))
	res := ex.RunBounded(ctx, f.Units(plans, store, "batch-1"), 2)

	assert.Equal(t, 2, res.SuccessCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Index)
	// foreign key failures are not retried
	assert.Equal(t, 1, res.Results[2].Attempts)

	list, err := store.ListTimeEntries(ctx, "emp-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
