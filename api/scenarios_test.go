/*
scenarios_test.go - Tests for demo scenarios

PURPOSE:
	Tests that each scenario sets up the expected state:
	- Employees are created with the scenario's Bundesland
	- Every shift is computed and stored in one batch
	- Premium buckets reflect the roster (nights, Sundays, holidays)

These tests double as integration tests of factory + batch + store.
*/
package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario_AllLoad(t *testing.T) {
	for _, sc := range scenarios {
		t.Run(sc.ID, func(t *testing.T) {
			h := setupTestHandler(t, Options{})

			rec := do(t, h, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: sc.ID})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			body := decode[map[string]any](t, rec)
			assert.Equal(t, sc.ID, body["scenario"])
			assert.EqualValues(t, 0, body["failed"])
			assert.EqualValues(t, len(scenarioPlans[sc.ID]()), body["entries"])

			rec = do(t, h, http.MethodGet, "/api/scenarios/current", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, sc.ID, decode[ScenarioDTO](t, rec).ID)

			employees, err := h.Store.ListEmployees(context.Background())
			require.NoError(t, err)
			for _, e := range employees {
				assert.Equal(t, sc.Bundesland, e.Bundesland, e.ID)
			}
		})
	}
}

func TestScenario_NightShiftWeek(t *testing.T) {
	h := setupTestHandler(t, Options{})
	ctx := context.Background()

	out, err := h.loadScenario(ctx, "BY", nightShiftWeekPlans())
	require.NoError(t, err)
	assert.Equal(t, 2, countEmployees(out.Plans))

	entries, err := h.Store.ListTimeEntries(ctx, "emp-night-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 5)

	// Saturday 22:00 to Sunday 06:00
	sat := entries[2].Entry
	assert.Equal(t, time.Date(2024, 3, 9, 22, 0, 0, 0, time.UTC), sat.Start.UTC())
	assert.Equal(t, 450, sat.PaidDurationMinutes)
	assert.Equal(t, 390, sat.Premiums.NightMinutes)
	assert.Equal(t, 330, sat.Premiums.SundayMinutes)

	// Thursday night has no Sunday minutes
	assert.Equal(t, 0, entries[0].Entry.Premiums.SundayMinutes)
}

func TestScenario_EasterHolidays(t *testing.T) {
	h := setupTestHandler(t, Options{})
	ctx := context.Background()

	_, err := h.loadScenario(ctx, "NW", easterHolidayPlans())
	require.NoError(t, err)

	// Karfreitag is nationwide: the whole day shift is holiday time
	entries, err := h.Store.ListTimeEntries(ctx, "emp-care-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	goodFriday := entries[0].Entry
	assert.Equal(t, goodFriday.PaidDurationMinutes, goodFriday.Premiums.HolidayMinutes)
	assert.Equal(t, 0, goodFriday.Premiums.SundayMinutes)

	// Easter Sunday is not a holiday in NW: Sunday minutes only
	easter := entries[1].Entry
	assert.Equal(t, easter.PaidDurationMinutes, easter.Premiums.SundayMinutes)
	assert.Equal(t, 0, easter.Premiums.HolidayMinutes)
	assert.Equal(t, 0, easter.Premiums.SundayHolidayMinutes)

	// Sunday night into Easter Monday: after midnight is holiday, not Sunday
	entries, err = h.Store.ListTimeEntries(ctx, "emp-care-2", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	toMonday := entries[1].Entry.Premiums
	assert.Equal(t, 120, toMonday.SundayMinutes)
	assert.Equal(t, 330, toMonday.HolidayMinutes)
	assert.Equal(t, 330, toMonday.NightHolidayMinutes)
}

func TestScenario_ManualBreaks(t *testing.T) {
	h := setupTestHandler(t, Options{})
	ctx := context.Background()

	_, err := h.loadScenario(ctx, "BE", manualBreakPlans())
	require.NoError(t, err)

	entries, err := h.Store.ListTimeEntries(ctx, "emp-office-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 45, entries[0].Entry.BreakTotalMinutes, "break_hours 0,75")
	assert.True(t, entries[0].Entry.OverrideBreaks)
	assert.Equal(t, 45, entries[1].Entry.BreakTotalMinutes, "explicit breaks")

	entries, err = h.Store.ListTimeEntries(ctx, "emp-office-2", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Entry.BreakTotalMinutes)
	// 12h shift under statutory rules: 30 + 15 + 15
	assert.Equal(t, 60, entries[1].Entry.BreakTotalMinutes)
	assert.Equal(t, 660, entries[1].Entry.PaidDurationMinutes)
}

func TestScenario_LoadReplacesPrevious(t *testing.T) {
	h := setupTestHandler(t, Options{})

	rec := do(t, h, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "night-shift-week"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "manual-breaks"})
	require.Equal(t, http.StatusOK, rec.Code)

	employees, err := h.Store.ListEmployees(context.Background())
	require.NoError(t, err)
	assert.Len(t, employees, 2)

	runs, err := h.Store.ListBatchRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "scenario", runs[0].Kind)
}

func TestScenario_UnknownAndReset(t *testing.T) {
	h := setupTestHandler(t, Options{})

	rec := do(t, h, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/scenarios/load", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ScenarioDTO](t, rec), len(scenarios))

	rec = do(t, h, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "easter-holidays"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null\n", rec.Body.String())

	employees, err := h.Store.ListEmployees(context.Background())
	require.NoError(t, err)
	assert.Empty(t, employees)
}
