package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/timeentry-engine/batch"
	"github.com/warp/timeentry-engine/config"
	"github.com/warp/timeentry-engine/factory"
	"github.com/warp/timeentry-engine/holiday"
	"github.com/warp/timeentry-engine/logger"
	"github.com/warp/timeentry-engine/metrics"
	"github.com/warp/timeentry-engine/store/sqlite"
	"github.com/warp/timeentry-engine/timeentry"
)

// =============================================================================
// OUTPUT
// =============================================================================

type breakOutput struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type premiumsOutput struct {
	Night         int `json:"night_minutes"`
	Sunday        int `json:"sunday_minutes"`
	Holiday       int `json:"holiday_minutes"`
	NightHoliday  int `json:"night_holiday_minutes"`
	SundayHoliday int `json:"sunday_holiday_minutes"`
	Normal        int `json:"normal_minutes"`
	TotalWork     int `json:"total_work_minutes"`
}

type holidayOutput struct {
	Date    string   `json:"date"`
	Name    string   `json:"name"`
	Regions []string `json:"regions,omitempty"`
}

type entryOutput struct {
	Label                string          `json:"label,omitempty"`
	Start                string          `json:"start"`
	End                  string          `json:"end"`
	TotalDurationMinutes int             `json:"total_duration_minutes"`
	PaidDurationMinutes  int             `json:"paid_duration_minutes"`
	PaidDurationHours    float64         `json:"paid_duration_hours"`
	BreakTotalMinutes    int             `json:"break_total_minutes"`
	BreakSegments        []breakOutput   `json:"break_segments"`
	OverrideBreaks       bool            `json:"override_breaks"`
	Premiums             premiumsOutput  `json:"premiums"`
	Holidays             []holidayOutput `json:"holidays,omitempty"`
}

func toEntryOutput(e timeentry.Entry, hs []holiday.Holiday) entryOutput {
	out := entryOutput{
		Start:                e.StartISO(),
		End:                  e.EndISO(),
		TotalDurationMinutes: e.TotalDurationMinutes,
		PaidDurationMinutes:  e.PaidDurationMinutes,
		PaidDurationHours:    timeentry.MinutesToHours(e.PaidDurationMinutes),
		BreakTotalMinutes:    e.BreakTotalMinutes,
		BreakSegments:        make([]breakOutput, len(e.BreakSegments)),
		OverrideBreaks:       e.OverrideBreaks,
		Premiums: premiumsOutput{
			Night:         e.Premiums.NightMinutes,
			Sunday:        e.Premiums.SundayMinutes,
			Holiday:       e.Premiums.HolidayMinutes,
			NightHoliday:  e.Premiums.NightHolidayMinutes,
			SundayHoliday: e.Premiums.SundayHolidayMinutes,
			Normal:        e.Premiums.NormalMinutes,
			TotalWork:     e.Premiums.TotalWorkMinutes,
		},
		Holidays: toHolidayOutputs(hs),
	}
	for i, b := range e.BreakSegments {
		out.BreakSegments[i] = breakOutput{Start: b.Start.Format(time.RFC3339), End: b.End.Format(time.RFC3339)}
	}
	return out
}

func toHolidayOutputs(hs []holiday.Holiday) []holidayOutput {
	if len(hs) == 0 {
		return nil
	}
	out := make([]holidayOutput, len(hs))
	for i, h := range hs {
		out[i] = holidayOutput{Date: h.Date, Name: h.Name, Regions: h.Regions}
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func location(cfg *config.Config) (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", cfg.Timezone, err)
	}
	return loc, nil
}

func region(cfg *config.Config) (string, error) {
	r := strings.ToUpper(strings.TrimSpace(cfg.DefaultBundesland))
	if r != "" && !holiday.ValidRegion(r) {
		return "", fmt.Errorf("unknown bundesland %q", cfg.DefaultBundesland)
	}
	return r, nil
}

// =============================================================================
// COMPUTE
// =============================================================================

func newComputeCmd(cfg *config.Config) *cobra.Command {
	var (
		plan   factory.ShiftPlan
		breaks []string
		extra  []string
	)

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute one shift",
		Example: `  timeentry compute --date 2024-03-30 --start 22:00 --end 06:00
  timeentry compute --date 2024-03-04 --start 08:00 --end 17:00 --break-hours 0,75`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, b := range breaks {
				start, end, ok := strings.Cut(b, "-")
				if !ok {
					return fmt.Errorf("invalid --break %q (use HH:MM-HH:MM)", b)
				}
				plan.Breaks = append(plan.Breaks, factory.BreakJSON{Start: start, End: end})
			}
			return runCompute(cmd.Context(), cmd.OutOrStdout(), cfg, plan, extra)
		},
	}

	f := cmd.Flags()
	f.StringVar(&plan.Date, "date", "", "shift date (YYYY-MM-DD)")
	f.StringVar(&plan.StartTime, "start", "", "start time (HH:MM)")
	f.StringVar(&plan.EndTime, "end", "", "end time (HH:MM), before start means next day")
	f.StringVar(&plan.BreakHours, "break-hours", "", "manual break length in hours (\"0,5\" or \"0.5\")")
	f.StringArrayVar(&breaks, "break", nil, "manual break HH:MM-HH:MM (repeatable)")
	f.BoolVar(&plan.OverrideBreaks, "override-breaks", false, "skip statutory breaks")
	f.StringArrayVar(&extra, "holiday", nil, "extra holiday date YYYY-MM-DD (repeatable)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func runCompute(ctx context.Context, w io.Writer, cfg *config.Config, plan factory.ShiftPlan, extra []string) error {
	loc, err := location(cfg)
	if err != nil {
		return err
	}
	reg, err := region(cfg)
	if err != nil {
		return err
	}

	f := factory.NewEntryFactory(loc, &holiday.GermanCalendar{}, reg)
	plan.EmployeeID = "cli"
	in, used, err := f.Build(ctx, plan)
	if err != nil {
		return err
	}
	for _, d := range extra {
		if _, err := time.Parse(timeentry.DateLayout, d); err != nil {
			return fmt.Errorf("invalid --holiday %q: %w", d, err)
		}
		if in.Holidays == nil {
			in.Holidays = timeentry.NewHolidaySet()
		}
		in.Holidays[d] = struct{}{}
	}

	entry, err := f.Computer.Compute(in)
	if err != nil {
		return err
	}
	return printJSON(w, toEntryOutput(entry, used))
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func newHolidaysCmd(cfg *config.Config) *cobra.Command {
	var (
		year   int
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List holidays for a year and Bundesland",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHolidays(cmd.Context(), cmd.OutOrStdout(), cfg, year, dbPath)
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "calendar year")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database with custom holidays")
	return cmd
}

func runHolidays(ctx context.Context, w io.Writer, cfg *config.Config, year int, dbPath string) error {
	if year < 1583 || year > 9999 {
		return fmt.Errorf("invalid year %d", year)
	}
	reg, err := region(cfg)
	if err != nil {
		return err
	}

	cal := &holiday.GermanCalendar{}
	if dbPath != "" {
		store, err := sqlite.New(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		cal.Custom = store
	}

	hs, err := cal.Holidays(ctx, year, reg)
	if err != nil {
		return err
	}
	out := toHolidayOutputs(hs)
	if out == nil {
		out = []holidayOutput{}
	}
	return printJSON(w, map[string]any{"year": year, "bundesland": reg, "holidays": out})
}

// =============================================================================
// BATCH
// =============================================================================

type batchOutput struct {
	Success      bool          `json:"success"`
	Total        int           `json:"total"`
	SuccessCount int           `json:"success_count"`
	ErrorCount   int           `json:"error_count"`
	Errors       []batchError  `json:"errors"`
	Entries      []entryOutput `json:"entries"`
}

type batchError struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Error string `json:"error"`
}

// errBatchFailed makes the exit code non-zero while still printing the result.
var errBatchFailed = errors.New("some shifts failed")

func newBatchCmd(cfg *config.Config) *cobra.Command {
	var (
		file        string
		dbPath      string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Compute a JSON array of shift plans (\"-\" reads stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if file == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return err
			}
			plans, err := factory.ParsePlans(data)
			if err != nil {
				return err
			}
			return runBatch(cmd.Context(), cmd.OutOrStdout(), cfg, plans, dbPath, concurrency)
		},
	}

	cmd.Flags().StringVar(&file, "file", "-", "shift plan JSON file")
	cmd.Flags().StringVar(&dbPath, "db", "", "store entries in this SQLite database")
	cmd.Flags().IntVar(&concurrency, "concurrency", cfg.Concurrency, "units per group")
	return cmd
}

func runBatch(ctx context.Context, w io.Writer, cfg *config.Config, plans []factory.ShiftPlan, dbPath string, concurrency int) error {
	loc, err := location(cfg)
	if err != nil {
		return err
	}
	reg, err := region(cfg)
	if err != nil {
		return err
	}

	cal := &holiday.GermanCalendar{}
	var sink factory.Sink
	if dbPath != "" {
		store, err := sqlite.New(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		cal.Custom = store
		if err := ensureEmployees(ctx, store, plans, reg); err != nil {
			return err
		}
		sink = store
	}

	f := factory.NewEntryFactory(loc, cal, reg)
	ex := batch.NewExecutor[factory.StoredEntry](cfg.Retry,
		batch.WithLogger(logger.Named("batch")),
		batch.WithObserver(metrics.BatchObserver{Kind: "cli"}),
	)
	res := ex.RunBounded(ctx, f.Units(plans, sink, ""), concurrency)
	metrics.RecordBatch("cli", res.Success)

	out := batchOutput{
		Success:      res.Success,
		Total:        res.TotalProcessed,
		SuccessCount: res.SuccessCount,
		ErrorCount:   res.ErrorCount,
		Errors:       make([]batchError, 0, res.ErrorCount),
		Entries:      make([]entryOutput, 0, res.SuccessCount),
	}
	for _, item := range res.Results {
		if item.State == batch.StateSucceeded {
			e := toEntryOutput(item.Value.Entry, item.Value.Holidays)
			e.Label = item.Label
			out.Entries = append(out.Entries, e)
			continue
		}
		out.Errors = append(out.Errors, batchError{Index: item.Index, Label: item.Label, Error: item.Err.Error()})
	}

	if err := printJSON(w, out); err != nil {
		return err
	}
	if !res.Success {
		return errBatchFailed
	}
	return nil
}

// ensureEmployees registers unknown employees so entries satisfy the
// foreign key.
func ensureEmployees(ctx context.Context, store *sqlite.Store, plans []factory.ShiftPlan, reg string) error {
	seen := make(map[string]bool)
	for _, p := range plans {
		if p.EmployeeID == "" || seen[p.EmployeeID] {
			continue
		}
		seen[p.EmployeeID] = true
		_, err := store.GetEmployee(ctx, p.EmployeeID)
		if !errors.Is(err, sqlite.ErrNotFound) {
			if err != nil {
				return err
			}
			continue
		}
		name := p.EmployeeName
		if name == "" {
			name = p.EmployeeID
		}
		bl := strings.ToUpper(p.Bundesland)
		if bl == "" {
			bl = reg
		}
		if err := store.SaveEmployee(ctx, sqlite.Employee{ID: p.EmployeeID, Name: name, Bundesland: bl}); err != nil {
			return err
		}
	}
	return nil
}
