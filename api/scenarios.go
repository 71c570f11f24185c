/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built rosters that populate the database with realistic
	data for testing and demos. Each scenario creates employees and runs
	their shifts through the batch executor, exactly like a client batch.

AVAILABLE SCENARIOS:

	night-shift-week: Bavarian night shifts across a weekend
	easter-holidays:  Shifts over Easter in NRW (holiday + Sunday overlap)
	manual-breaks:    break_hours and explicit breaks overriding the rules

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Build shift plans
 3. Run them as one batch of kind "scenario"

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "night-shift-week"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: runBatch
  - factory/shift.go: ShiftPlan definitions
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warp/timeentry-engine/factory"
)

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Bundesland  string `json:"bundesland"`
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "night-shift-week",
		Name:        "Night Shift Week",
		Description: "22:00-06:00 shifts Thursday to Monday, crossing Saturday into Sunday",
		Bundesland:  "BY",
	},
	{
		ID:          "easter-holidays",
		Name:        "Easter Holidays",
		Description: "Good Friday, Easter Sunday and Easter Monday shifts with holiday and Sunday overlap",
		Bundesland:  "NW",
	},
	{
		ID:          "manual-breaks",
		Name:        "Manual Breaks",
		Description: "Recorded breaks replacing the statutory layout",
		Bundesland:  "BE",
	},
}

var scenarioPlans = map[string]func() []factory.ShiftPlan{
	"night-shift-week": nightShiftWeekPlans,
	"easter-holidays":  easterHolidayPlans,
	"manual-breaks":    manualBreakPlans,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[LoadScenarioRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var sc *ScenarioDTO
	for i := range scenarios {
		if scenarios[i].ID == req.ScenarioID {
			sc = &scenarios[i]
		}
	}
	build, ok := scenarioPlans[req.ScenarioID]
	if sc == nil || !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	out, err := h.loadScenario(ctx, sc.Bundesland, build())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = sc.ID

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "loaded",
		"scenario":  sc.ID,
		"batch_id":  out.ID,
		"entries":   out.Result.SuccessCount,
		"failed":    out.Result.ErrorCount,
		"employees": countEmployees(out.Plans),
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) loadScenario(ctx context.Context, region string, plans []factory.ShiftPlan) (batchOutcome, error) {
	out, err := h.runBatch(ctx, "scenario", plans, region, 0)
	if err != nil {
		return out, err
	}
	if !out.Result.Success {
		return out, fmt.Errorf("%d of %d shifts failed: %v", out.Result.ErrorCount, out.Result.TotalProcessed, out.Result.FailedLabels())
	}
	return out, nil
}

func countEmployees(plans []factory.ShiftPlan) int {
	seen := make(map[string]struct{})
	for _, p := range plans {
		seen[p.EmployeeID] = struct{}{}
	}
	return len(seen)
}

// =============================================================================
// SCENARIO ROSTERS
// =============================================================================

func nightShiftWeekPlans() []factory.ShiftPlan {
	var plans []factory.ShiftPlan
	// Thursday 2024-03-07 through Monday 2024-03-11
	for _, day := range []string{"2024-03-07", "2024-03-08", "2024-03-09", "2024-03-10", "2024-03-11"} {
		plans = append(plans,
			factory.ShiftPlan{EmployeeID: "emp-night-1", EmployeeName: "Erika Muster", Date: day, StartTime: "22:00", EndTime: "06:00"},
			factory.ShiftPlan{EmployeeID: "emp-night-2", EmployeeName: "Jonas Weber", Date: day, StartTime: "20:00", EndTime: "07:00"},
		)
	}
	return plans
}

func easterHolidayPlans() []factory.ShiftPlan {
	// Karfreitag 2024-03-29, Ostersonntag 2024-03-31, Ostermontag 2024-04-01
	return []factory.ShiftPlan{
		{EmployeeID: "emp-care-1", EmployeeName: "Leonie Schmidt", Date: "2024-03-29", StartTime: "06:00", EndTime: "14:30"},
		{EmployeeID: "emp-care-1", EmployeeName: "Leonie Schmidt", Date: "2024-03-31", StartTime: "06:00", EndTime: "14:30"},
		{EmployeeID: "emp-care-2", EmployeeName: "Murat Yilmaz", Date: "2024-03-30", StartTime: "22:00", EndTime: "06:00"},
		{EmployeeID: "emp-care-2", EmployeeName: "Murat Yilmaz", Date: "2024-03-31", StartTime: "22:00", EndTime: "06:00"},
		{EmployeeID: "emp-care-3", EmployeeName: "Anna Becker", Date: "2024-04-01", StartTime: "12:00", EndTime: "22:30"},
	}
}

func manualBreakPlans() []factory.ShiftPlan {
	return []factory.ShiftPlan{
		{EmployeeID: "emp-office-1", EmployeeName: "Paul Wagner", Date: "2024-03-04", StartTime: "08:00", EndTime: "17:00", BreakHours: "0,75"},
		{EmployeeID: "emp-office-1", EmployeeName: "Paul Wagner", Date: "2024-03-05", StartTime: "08:00", EndTime: "17:00",
			Breaks: []factory.BreakJSON{{Start: "10:00", End: "10:15"}, {Start: "12:30", End: "13:00"}}},
		{EmployeeID: "emp-office-2", EmployeeName: "Sofia Keller", Date: "2024-03-04", StartTime: "09:00", EndTime: "13:00", OverrideBreaks: true},
		{EmployeeID: "emp-office-2", EmployeeName: "Sofia Keller", Date: "2024-03-08", StartTime: "07:00", EndTime: "19:00"},
	}
}
