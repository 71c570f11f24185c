/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Minute counts stay
  integers; every duration also gets an hours dual rounded to 2 decimals
  for display, computed only here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Time entries:
    ComputeRequest, TimeEntryDTO, PremiumsDTO, BreakSegmentDTO

  Batches:
    BatchRequest (wraps factory.ShiftPlan), BatchResponse, BatchRunDTO

  Reference data:
    EmployeeDTO, CreateEmployeeRequest, HolidayDTO, CreateHolidayRequest

VALIDATION:
  Struct tags, checked by go-playground/validator in bind.go.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/shift.go: ShiftPlan type
*/
package api

import (
	"time"

	"github.com/warp/timeentry-engine/factory"
	"github.com/warp/timeentry-engine/holiday"
	"github.com/warp/timeentry-engine/store/sqlite"
	"github.com/warp/timeentry-engine/timeentry"
)

// =============================================================================
// TIME ENTRIES
// =============================================================================

// BreakSegmentDTO is a break in RFC 3339.
type BreakSegmentDTO struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// ComputeRequest computes one shift. With employee_id set the result is
// stored for that employee.
type ComputeRequest struct {
	EmployeeID     string            `json:"employee_id,omitempty"`
	Start          string            `json:"start" validate:"required"`
	End            string            `json:"end" validate:"required"`
	BreakSegments  []BreakSegmentDTO `json:"break_segments,omitempty" validate:"omitempty,dive"`
	OverrideBreaks bool              `json:"override_breaks,omitempty"`
	Bundesland     string            `json:"bundesland,omitempty" validate:"omitempty,bundesland"`
	// Holidays are extra dates on top of the resolved calendar.
	Holidays []string `json:"holidays,omitempty" validate:"omitempty,dive,datetime=2006-01-02"`
}

// PremiumsDTO has minutes plus hour duals per bucket.
type PremiumsDTO struct {
	NightMinutes         int     `json:"night_minutes"`
	NightHours           float64 `json:"night_hours"`
	SundayMinutes        int     `json:"sunday_minutes"`
	SundayHours          float64 `json:"sunday_hours"`
	HolidayMinutes       int     `json:"holiday_minutes"`
	HolidayHours         float64 `json:"holiday_hours"`
	NightHolidayMinutes  int     `json:"night_holiday_minutes"`
	NightHolidayHours    float64 `json:"night_holiday_hours"`
	SundayHolidayMinutes int     `json:"sunday_holiday_minutes"`
	SundayHolidayHours   float64 `json:"sunday_holiday_hours"`
	NormalMinutes        int     `json:"normal_minutes"`
	NormalHours          float64 `json:"normal_hours"`
	TotalWorkMinutes     int     `json:"total_work_minutes"`
	TotalWorkHours       float64 `json:"total_work_hours"`
	BreakTotalMinutes    int     `json:"break_total_minutes"`
}

// TimeEntryDTO is a computed time entry.
type TimeEntryDTO struct {
	ID                   string            `json:"id,omitempty"`
	EmployeeID           string            `json:"employee_id,omitempty"`
	BatchID              string            `json:"batch_id,omitempty"`
	Start                string            `json:"start"`
	End                  string            `json:"end"`
	TotalDurationMinutes int               `json:"total_duration_minutes"`
	TotalDurationHours   float64           `json:"total_duration_hours"`
	PaidDurationMinutes  int               `json:"paid_duration_minutes"`
	PaidDurationHours    float64           `json:"paid_duration_hours"`
	BreakSegments        []BreakSegmentDTO `json:"break_segments"`
	BreakTotalMinutes    int               `json:"break_total_minutes"`
	BreakTotalHours      float64           `json:"break_total_hours"`
	Premiums             PremiumsDTO       `json:"premiums"`
	OverrideBreaks       bool              `json:"override_breaks"`
	Holidays             []HolidayDTO      `json:"holidays,omitempty"`
}

func toPremiumsDTO(p timeentry.Premiums) PremiumsDTO {
	h := timeentry.MinutesToHours
	return PremiumsDTO{
		NightMinutes:         p.NightMinutes,
		NightHours:           h(p.NightMinutes),
		SundayMinutes:        p.SundayMinutes,
		SundayHours:          h(p.SundayMinutes),
		HolidayMinutes:       p.HolidayMinutes,
		HolidayHours:         h(p.HolidayMinutes),
		NightHolidayMinutes:  p.NightHolidayMinutes,
		NightHolidayHours:    h(p.NightHolidayMinutes),
		SundayHolidayMinutes: p.SundayHolidayMinutes,
		SundayHolidayHours:   h(p.SundayHolidayMinutes),
		NormalMinutes:        p.NormalMinutes,
		NormalHours:          h(p.NormalMinutes),
		TotalWorkMinutes:     p.TotalWorkMinutes,
		TotalWorkHours:       h(p.TotalWorkMinutes),
		BreakTotalMinutes:    p.BreakTotalMinutes,
	}
}

func toTimeEntryDTO(e timeentry.Entry) TimeEntryDTO {
	breaks := make([]BreakSegmentDTO, len(e.BreakSegments))
	for i, b := range e.BreakSegments {
		breaks[i] = BreakSegmentDTO{Start: b.Start.Format(time.RFC3339), End: b.End.Format(time.RFC3339)}
	}
	return TimeEntryDTO{
		Start:                e.StartISO(),
		End:                  e.EndISO(),
		TotalDurationMinutes: e.TotalDurationMinutes,
		TotalDurationHours:   timeentry.MinutesToHours(e.TotalDurationMinutes),
		PaidDurationMinutes:  e.PaidDurationMinutes,
		PaidDurationHours:    timeentry.MinutesToHours(e.PaidDurationMinutes),
		BreakSegments:        breaks,
		BreakTotalMinutes:    e.BreakTotalMinutes,
		BreakTotalHours:      timeentry.MinutesToHours(e.BreakTotalMinutes),
		Premiums:             toPremiumsDTO(e.Premiums),
		OverrideBreaks:       e.OverrideBreaks,
	}
}

func recordToDTO(rec sqlite.TimeEntryRecord, loc *time.Location) TimeEntryDTO {
	e := rec.Entry
	if loc != nil {
		e.Start = e.Start.In(loc)
		e.End = e.End.In(loc)
		breaks := make([]timeentry.BreakSegment, len(e.BreakSegments))
		for i, b := range e.BreakSegments {
			breaks[i] = timeentry.BreakSegment{Start: b.Start.In(loc), End: b.End.In(loc)}
		}
		e.BreakSegments = breaks
	}
	dto := toTimeEntryDTO(e)
	dto.ID = rec.ID
	dto.EmployeeID = rec.EmployeeID
	dto.BatchID = rec.BatchID
	return dto
}

// =============================================================================
// BATCHES
// =============================================================================

// BatchRequest submits many shifts. Bundesland applies to shifts and
// employees without their own.
type BatchRequest struct {
	Bundesland  string              `json:"bundesland,omitempty" validate:"omitempty,bundesland"`
	Concurrency int                 `json:"concurrency,omitempty" validate:"omitempty,min=1,max=50"`
	Shifts      []factory.ShiftPlan `json:"shifts" validate:"required,min=1,max=5000,dive"`
}

// BatchErrorDTO is one failed shift.
type BatchErrorDTO struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Error string `json:"error"`
	// Queued reports that the shift will be re-run by the retry scheduler.
	Queued bool `json:"queued,omitempty"`
}

// BatchResponse is the settled outcome of a batch.
type BatchResponse struct {
	ID             string          `json:"id"`
	Success        bool            `json:"success"`
	TotalProcessed int             `json:"total_processed"`
	SuccessCount   int             `json:"success_count"`
	ErrorCount     int             `json:"error_count"`
	Errors         []BatchErrorDTO `json:"errors"`
	Entries        []TimeEntryDTO  `json:"entries"`
}

// BatchRunDTO is a recorded batch run.
type BatchRunDTO struct {
	ID          string                 `json:"id"`
	Kind        string                 `json:"kind"`
	Total       int                    `json:"total"`
	Succeeded   int                    `json:"succeeded"`
	Failed      int                    `json:"failed"`
	Errors      []sqlite.BatchRunError `json:"errors"`
	StartedAt   string                 `json:"started_at"`
	CompletedAt string                 `json:"completed_at"`
	DurationMS  int64                  `json:"duration_ms"`
}

// PendingRetryDTO is a queued shift awaiting the retry scheduler.
type PendingRetryDTO struct {
	ID        string `json:"id"`
	BatchID   string `json:"batch_id"`
	Label     string `json:"label"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
	CreatedAt string `json:"created_at"`
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Bundesland string `json:"bundesland,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name" validate:"required,max=200"`
	Bundesland string `json:"bundesland,omitempty" validate:"omitempty,bundesland"`
}

// HolidayDTO represents a holiday.
type HolidayDTO struct {
	ID        string   `json:"id,omitempty"`
	Date      string   `json:"date"`
	Name      string   `json:"name"`
	Regions   []string `json:"regions,omitempty"`
	Recurring bool     `json:"recurring,omitempty"`
}

// CreateHolidayRequest adds a custom holiday.
type CreateHolidayRequest struct {
	Date      string   `json:"date" validate:"required,datetime=2006-01-02"`
	Name      string   `json:"name" validate:"required,max=200"`
	Regions   []string `json:"regions,omitempty" validate:"omitempty,dive,bundesland"`
	Recurring bool     `json:"recurring,omitempty"`
}

func toHolidayDTOs(hs []holiday.Holiday) []HolidayDTO {
	out := make([]HolidayDTO, len(hs))
	for i, h := range hs {
		out[i] = HolidayDTO{ID: h.ID, Date: h.Date, Name: h.Name, Regions: h.Regions}
	}
	return out
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
