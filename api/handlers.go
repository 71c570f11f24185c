/*
handlers.go - HTTP API handlers for the time-entry engine

PURPOSE:
  Exposes the time-entry computation and the batch executor via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  factory, the computer and the store.

ENDPOINTS:
  Time entries:
    POST   /api/time-entries/compute        Compute one shift (optionally store it)
    POST   /api/time-entries/batch          Compute and store many shifts
    GET    /api/employees/{id}/time-entries Stored entries (?from=&to=)

  Employees:
    GET    /api/employees                   List all employees
    POST   /api/employees                   Create employee
    GET    /api/employees/{id}              Get employee

  Holidays:
    GET    /api/holidays                    Resolved holidays (?year=&bundesland=)
    GET    /api/holidays/custom             Stored custom holidays
    POST   /api/holidays                    Create custom holiday
    DELETE /api/holidays/{id}               Delete custom holiday

  Batches:
    GET    /api/batches                     Recent batch runs
    GET    /api/retries                     Queued transient failures
    POST   /api/retries/run                 Re-run the queue now

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Factory: plan -> input conversion plus the Computer
  - Calendar: statutory + custom holidays
  - Retry/Concurrency: batch executor settings

REQUEST FLOW:
  1. Decode and validate the body (bind.go)
  2. Resolve instants and holidays
  3. Compute, or run units through the batch executor
  4. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, invalid time range
  - 404: Resource not found
  - 409: Conflict (duplicate holiday)
  - 500: Internal errors
  A batch with failed units is still a 200: failures are part of the result.

SEE ALSO:
  - dto.go: Request/response data structures
  - scheduler.go: Background re-run of the retry queue
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/timeentry-engine/batch"
	"github.com/warp/timeentry-engine/factory"
	"github.com/warp/timeentry-engine/holiday"
	"github.com/warp/timeentry-engine/metrics"
	"github.com/warp/timeentry-engine/store/sqlite"
	"github.com/warp/timeentry-engine/timeentry"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options configures a Handler.
type Options struct {
	Location    *time.Location
	Region      string
	Retry       batch.RetryConfig
	Concurrency int
	// RetryMaxAttempts bounds scheduler runs per queued plan.
	RetryMaxAttempts int
	// BatchOptions are appended to every executor (tests inject sleepers).
	BatchOptions []batch.Option
	Logger       *zerolog.Logger
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Factory  *factory.EntryFactory
	Calendar holiday.Calendar

	retry            batch.RetryConfig
	concurrency      int
	retryMaxAttempts int
	batchOpts        []batch.Option
	log              zerolog.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, opt Options) *Handler {
	cal := &holiday.GermanCalendar{Custom: store}
	log := zerolog.Nop()
	if opt.Logger != nil {
		log = *opt.Logger
	}
	if opt.Retry == (batch.RetryConfig{}) {
		opt.Retry = batch.DefaultRetryConfig()
	}
	if opt.RetryMaxAttempts <= 0 {
		opt.RetryMaxAttempts = 5
	}
	return &Handler{
		Store:            store,
		Factory:          factory.NewEntryFactory(opt.Location, cal, opt.Region),
		Calendar:         cal,
		retry:            opt.Retry,
		concurrency:      opt.Concurrency,
		retryMaxAttempts: opt.RetryMaxAttempts,
		batchOpts:        opt.BatchOptions,
		log:              log,
	}
}

func (h *Handler) location() *time.Location {
	return h.Factory.Computer.Location
}

// =============================================================================
// TIME ENTRY HANDLERS
// =============================================================================

// ComputeTimeEntry computes one shift.
// POST /api/time-entries/compute
func (h *Handler) ComputeTimeEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeJSON[ComputeRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	start, err := h.parseInstant("start", req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start", err)
		return
	}
	end, err := h.parseInstant("end", req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end", err)
		return
	}
	if end.Sub(start) > timeentry.MaxShiftDuration {
		writeError(w, http.StatusBadRequest, "Invalid range", &timeentry.ShiftTooLongError{Start: start, End: end})
		return
	}

	in := timeentry.Input{Start: start, End: end, OverrideBreaks: req.OverrideBreaks || len(req.BreakSegments) > 0}
	for i, b := range req.BreakSegments {
		bs, err := h.parseInstant("break_segments["+strconv.Itoa(i)+"].start", b.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid break segment", err)
			return
		}
		be, err := h.parseInstant("break_segments["+strconv.Itoa(i)+"].end", b.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid break segment", err)
			return
		}
		in.ManualBreaks = append(in.ManualBreaks, timeentry.BreakSegment{Start: bs, End: be})
	}

	region := strings.ToUpper(req.Bundesland)
	if req.EmployeeID != "" {
		emp, err := h.Store.GetEmployee(ctx, req.EmployeeID)
		if err != nil {
			writeError(w, errorStatus(err), "Failed to get employee", err)
			return
		}
		if region == "" {
			region = emp.Bundesland
		}
	}
	if region == "" {
		region = h.Factory.Region
	}

	loc := h.location()
	used, set, err := holiday.Range(ctx, h.Calendar, start.In(loc), end.In(loc), region)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve holidays", err)
		return
	}
	for _, d := range req.Holidays {
		set[d] = struct{}{}
	}
	in.Holidays = set

	entry, err := h.Factory.Computer.Compute(in)
	if err != nil {
		writeError(w, errorStatus(err), "Failed to compute time entry", err)
		return
	}
	recordEntry(entry)

	dto := toTimeEntryDTO(entry)
	dto.Holidays = toHolidayDTOs(holiday.Between(used, entry.Start, entry.End))

	if req.EmployeeID != "" {
		rec, err := h.Store.SaveTimeEntry(ctx, req.EmployeeID, "", entry)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save time entry", err)
			return
		}
		dto.ID = rec.ID
		dto.EmployeeID = rec.EmployeeID
	}

	writeJSON(w, http.StatusOK, dto)
}

// RunBatch computes and stores many shifts with retry.
// POST /api/time-entries/batch
func (h *Handler) RunBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeJSON[BatchRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	out, err := h.runBatch(ctx, "time_entries", req.Shifts, strings.ToUpper(req.Bundesland), req.Concurrency)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to run batch", err)
		return
	}

	resp := BatchResponse{
		ID:             out.ID,
		Success:        out.Result.Success,
		TotalProcessed: out.Result.TotalProcessed,
		SuccessCount:   out.Result.SuccessCount,
		ErrorCount:     out.Result.ErrorCount,
		Errors:         make([]BatchErrorDTO, 0, out.Result.ErrorCount),
		Entries:        make([]TimeEntryDTO, 0, out.Result.SuccessCount),
	}
	for _, item := range out.Result.Results {
		if item.State == batch.StateSucceeded {
			resp.Entries = append(resp.Entries, storedToDTO(item.Value, out.ID))
			continue
		}
		e := BatchErrorDTO{Index: item.Index, Label: item.Label, Error: errString(item.Err)}
		if batch.IsRetryable(item.Err) {
			e.Queued = h.enqueueRetry(ctx, out.ID, out.Plans[item.Index], item.Err)
		}
		resp.Errors = append(resp.Errors, e)
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListTimeEntries returns an employee's stored entries.
// GET /api/employees/{id}/time-entries?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListTimeEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := h.Store.GetEmployee(ctx, id); err != nil {
		writeError(w, errorStatus(err), "Failed to get employee", err)
		return
	}

	var from, to time.Time
	if s := r.URL.Query().Get("from"); s != "" {
		d, err := time.ParseInLocation(timeentry.DateLayout, s, h.location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
			return
		}
		from = d
	}
	if s := r.URL.Query().Get("to"); s != "" {
		d, err := time.ParseInLocation(timeentry.DateLayout, s, h.location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
			return
		}
		// inclusive day
		to = d.AddDate(0, 0, 1)
	}

	records, err := h.Store.ListTimeEntries(ctx, id, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list time entries", err)
		return
	}

	dtos := make([]TimeEntryDTO, len(records))
	for i, rec := range records {
		dtos[i] = recordToDTO(rec, h.location())
	}
	writeJSON(w, http.StatusOK, map[string]any{"employee_id": id, "time_entries": dtos})
}

// =============================================================================
// BATCH EXECUTION
// =============================================================================

type batchOutcome struct {
	ID     string
	Plans  []factory.ShiftPlan
	Result batch.Result[factory.StoredEntry]
}

// runBatch registers unknown employees, runs one unit per plan and records
// the run. Plan order is result order.
func (h *Handler) runBatch(ctx context.Context, kind string, plans []factory.ShiftPlan, region string, concurrency int) (batchOutcome, error) {
	started := time.Now()
	id := uuid.NewString()

	plans = slices.Clone(plans)
	if err := h.prepareEmployees(ctx, plans, region); err != nil {
		return batchOutcome{}, err
	}

	if concurrency <= 0 {
		concurrency = h.concurrency
	}
	opts := append([]batch.Option{
		batch.WithLogger(h.log.With().Str("batch_id", id).Str("kind", kind).Logger()),
		batch.WithObserver(metrics.BatchObserver{Kind: kind}),
	}, h.batchOpts...)
	ex := batch.NewExecutor[factory.StoredEntry](h.retry, opts...)
	res := ex.RunBounded(ctx, h.Factory.Units(plans, h.Store, id), concurrency)

	for _, v := range res.Values() {
		recordEntry(v.Entry)
	}
	metrics.RecordBatch(kind, res.Success)

	run := sqlite.BatchRun{
		ID:          id,
		Kind:        kind,
		Total:       res.TotalProcessed,
		Succeeded:   res.SuccessCount,
		Failed:      res.ErrorCount,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}
	for _, e := range res.Errors {
		run.Errors = append(run.Errors, sqlite.BatchRunError{Label: e.Label, Error: errString(e.Err)})
	}
	// the entries are stored already; a lost audit row is not worth failing for
	if err := h.Store.SaveBatchRun(context.WithoutCancel(ctx), run); err != nil {
		h.log.Error().Err(err).Str("batch_id", id).Msg("failed to record batch run")
	}

	return batchOutcome{ID: id, Plans: plans, Result: res}, nil
}

// prepareEmployees creates missing employees and fills each plan's
// Bundesland: plan, then employee, then region.
func (h *Handler) prepareEmployees(ctx context.Context, plans []factory.ShiftPlan, region string) error {
	known := make(map[string]*sqlite.Employee)
	for i := range plans {
		p := &plans[i]
		emp, ok := known[p.EmployeeID]
		if !ok {
			var err error
			emp, err = h.Store.GetEmployee(ctx, p.EmployeeID)
			if errors.Is(err, sqlite.ErrNotFound) {
				emp = &sqlite.Employee{ID: p.EmployeeID, Name: p.EmployeeName, Bundesland: strings.ToUpper(p.Bundesland)}
				if emp.Name == "" {
					emp.Name = p.EmployeeID
				}
				if emp.Bundesland == "" {
					emp.Bundesland = region
				}
				err = h.Store.SaveEmployee(ctx, *emp)
			}
			if err != nil {
				return err
			}
			known[p.EmployeeID] = emp
		}
		if p.Bundesland == "" {
			p.Bundesland = emp.Bundesland
		}
		if p.Bundesland == "" {
			p.Bundesland = region
		}
	}
	return nil
}

func (h *Handler) enqueueRetry(ctx context.Context, batchID string, plan factory.ShiftPlan, cause error) bool {
	raw, err := json.Marshal(plan)
	if err != nil {
		return false
	}
	_, err = h.Store.EnqueueRetry(context.WithoutCancel(ctx), sqlite.PendingRetry{
		BatchID:   batchID,
		Label:     plan.Label(),
		PlanJSON:  raw,
		LastError: errString(cause),
	})
	if err != nil {
		h.log.Error().Err(err).Str("label", plan.Label()).Msg("failed to queue retry")
		return false
	}
	return true
}

// RetryReport summarizes one pass over the retry queue.
type RetryReport struct {
	BatchID   string `json:"batch_id,omitempty"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Dropped   int    `json:"dropped"`
}

// processRetries re-runs queued plans once. Plans that succeed or fail
// permanently leave the queue; transient failures stay until
// retryMaxAttempts is reached.
func (h *Handler) processRetries(ctx context.Context) (RetryReport, error) {
	var report RetryReport

	pending, err := h.Store.ListRetries(ctx, 100)
	if err != nil {
		return report, err
	}

	var (
		plans []factory.ShiftPlan
		ids   []string
	)
	for _, p := range pending {
		var plan factory.ShiftPlan
		if err := json.Unmarshal(p.PlanJSON, &plan); err != nil || p.Attempts >= h.retryMaxAttempts {
			h.log.Error().Err(err).Str("label", p.Label).Int("attempts", p.Attempts).
				Str("last_error", p.LastError).Msg("dropping queued retry")
			if err := h.Store.DeleteRetry(ctx, p.ID); err != nil && !errors.Is(err, sqlite.ErrNotFound) {
				return report, err
			}
			report.Dropped++
			continue
		}
		plans = append(plans, plan)
		ids = append(ids, p.ID)
	}
	if len(plans) == 0 {
		return report, nil
	}

	out, err := h.runBatch(ctx, "retry", plans, "", 0)
	if err != nil {
		return report, err
	}
	report.BatchID = out.ID
	report.Processed = out.Result.TotalProcessed

	for i, item := range out.Result.Results {
		switch {
		case item.State == batch.StateSucceeded:
			report.Succeeded++
			err = h.Store.DeleteRetry(ctx, ids[i])
		case batch.IsRetryable(item.Err):
			report.Failed++
			err = h.Store.MarkRetryFailed(ctx, ids[i], errString(item.Err))
		default:
			report.Failed++
			report.Dropped++
			err = h.Store.DeleteRetry(ctx, ids[i])
		}
		if err != nil && !errors.Is(err, sqlite.ErrNotFound) {
			return report, err
		}
	}
	return report, nil
}

// ListRetries returns queued transient failures.
// GET /api/retries
func (h *Handler) ListRetries(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Store.ListRetries(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list retries", err)
		return
	}
	dtos := make([]PendingRetryDTO, len(pending))
	for i, p := range pending {
		dtos[i] = PendingRetryDTO{
			ID:        p.ID,
			BatchID:   p.BatchID,
			Label:     p.Label,
			Attempts:  p.Attempts,
			LastError: p.LastError,
			CreatedAt: p.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"retries": dtos})
}

// RunRetries re-runs the retry queue now.
// POST /api/retries/run
func (h *Handler) RunRetries(w http.ResponseWriter, r *http.Request) {
	report, err := h.processRetries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to process retries", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListBatchRuns returns recent batch runs.
// GET /api/batches?limit=N
func (h *Handler) ListBatchRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListBatchRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list batch runs", err)
		return
	}

	dtos := make([]BatchRunDTO, len(runs))
	for i, run := range runs {
		errs := run.Errors
		if errs == nil {
			errs = []sqlite.BatchRunError{}
		}
		dtos[i] = BatchRunDTO{
			ID:          run.ID,
			Kind:        run.Kind,
			Total:       run.Total,
			Succeeded:   run.Succeeded,
			Failed:      run.Failed,
			Errors:      errs,
			StartedAt:   run.StartedAt.Format(time.RFC3339),
			CompletedAt: run.CompletedAt.Format(time.RFC3339),
			DurationMS:  run.CompletedAt.Sub(run.StartedAt).Milliseconds(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": dtos})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee creates a new employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[CreateEmployeeRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	emp := sqlite.Employee{ID: req.ID, Name: req.Name, Bundesland: strings.ToUpper(req.Bundesland)}
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}

	saved, err := h.Store.GetEmployee(r.Context(), emp.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*saved))
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errorStatus(err), "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

func toEmployeeDTO(e sqlite.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         e.ID,
		Name:       e.Name,
		Bundesland: e.Bundesland,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns the holidays in effect for a year and region.
// GET /api/holidays?year=2024&bundesland=BY
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := time.Now().In(h.location()).Year()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1583 || y > 9999 {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}
	region := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("bundesland")))
	if region != "" && !holiday.ValidRegion(region) {
		writeError(w, http.StatusBadRequest, "Unknown bundesland", nil)
		return
	}
	if region == "" {
		region = h.Factory.Region
	}

	holidays, err := h.Calendar.Holidays(r.Context(), year, region)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get holidays", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"year":       year,
		"bundesland": region,
		"holidays":   toHolidayDTOs(holidays),
	})
}

// ListCustomHolidays returns the stored custom holidays.
// GET /api/holidays/custom
func (h *Handler) ListCustomHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListAllHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get holidays", err)
		return
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{ID: hol.ID, Date: hol.Date, Name: hol.Name, Regions: hol.Regions, Recurring: hol.Recurring}
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday creates a new custom holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[CreateHolidayRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	saved, err := h.Store.SaveHoliday(r.Context(), sqlite.CustomHoliday{
		Holiday:   holiday.Holiday{Date: req.Date, Name: req.Name, Regions: req.Regions},
		Recurring: req.Recurring,
	})
	if err != nil {
		writeError(w, errorStatus(err), "Failed to create holiday", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "created",
		"holiday": HolidayDTO{
			ID:        saved.ID,
			Date:      saved.Date,
			Name:      saved.Name,
			Regions:   saved.Regions,
			Recurring: saved.Recurring,
		},
	})
}

// DeleteHoliday deletes a custom holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, errorStatus(err), "Failed to delete holiday", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// HELPERS
// =============================================================================

var localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

// parseInstant accepts RFC 3339, or a wall-clock time in the handler's
// location.
func (h *Handler) parseInstant(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(h.location()), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, h.location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &requestError{Field: field, Message: "must be RFC 3339 or YYYY-MM-DDTHH:MM"}
}

func storedToDTO(s factory.StoredEntry, batchID string) TimeEntryDTO {
	dto := toTimeEntryDTO(s.Entry)
	dto.ID = s.RecordID
	dto.EmployeeID = s.Plan.EmployeeID
	dto.BatchID = batchID
	dto.Holidays = toHolidayDTOs(s.Holidays)
	return dto
}

func recordEntry(e timeentry.Entry) {
	p := e.Premiums
	metrics.RecordEntry(p.NightMinutes, p.SundayMinutes, p.HolidayMinutes, p.NightHolidayMinutes, p.SundayHolidayMinutes)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest), timeentry.IsClientError(err), errors.Is(err, factory.ErrInvalidPlan):
		return http.StatusBadRequest
	case errors.Is(err, sqlite.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sqlite.ErrDuplicateHoliday):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
