package factory

import (
	"context"
	"errors"

	"github.com/warp/timeentry-engine/batch"
	"github.com/warp/timeentry-engine/holiday"
	"github.com/warp/timeentry-engine/store/sqlite"
	"github.com/warp/timeentry-engine/timeentry"
)

// =============================================================================
// BATCH UNITS
// =============================================================================

// Sink persists a computed entry. *sqlite.Store implements it.
type Sink interface {
	SaveTimeEntry(ctx context.Context, employeeID, batchID string, entry timeentry.Entry) (sqlite.TimeEntryRecord, error)
}

var _ Sink = (*sqlite.Store)(nil)

// StoredEntry is the value a unit produces.
type StoredEntry struct {
	Plan     ShiftPlan
	Entry    timeentry.Entry
	Holidays []holiday.Holiday
	// RecordID is empty when no Sink was given.
	RecordID string
}

// Unit wraps one plan. Plan and range errors are permanent. Holiday lookup
// and sink errors are left to the executor's classifier.
func (f *EntryFactory) Unit(plan ShiftPlan, sink Sink, batchID string) batch.Unit[StoredEntry] {
	return batch.Unit[StoredEntry]{
		Label: plan.Label(),
		Run: func(ctx context.Context) (StoredEntry, error) {
			in, used, err := f.Build(ctx, plan)
			if err != nil {
				if errors.Is(err, ErrInvalidPlan) || timeentry.IsClientError(err) {
					return StoredEntry{}, batch.Permanent(err)
				}
				return StoredEntry{}, err
			}
			entry, err := f.Computer.Compute(in)
			if err != nil {
				return StoredEntry{}, batch.Permanent(err)
			}
			out := StoredEntry{Plan: plan, Entry: entry, Holidays: used}
			if sink == nil {
				return out, nil
			}
			rec, err := sink.SaveTimeEntry(ctx, plan.EmployeeID, batchID, entry)
			if err != nil {
				return StoredEntry{}, err
			}
			out.RecordID = rec.ID
			return out, nil
		},
	}
}

// Units builds one unit per plan, in plan order.
func (f *EntryFactory) Units(plans []ShiftPlan, sink Sink, batchID string) []batch.Unit[StoredEntry] {
	units := make([]batch.Unit[StoredEntry], len(plans))
	for i, p := range plans {
		units[i] = f.Unit(p, sink, batchID)
	}
	return units
}
