/*
errors.go - Error types for the time-entry calculation

ERROR CATEGORIES:
  1. Range errors - end not after start, or longer than MaxShiftDuration;
     fatal, never retried
  2. Parse errors - numeric input; recovered locally with a default

  Batch-level failures (transient vs. permanent) live in batch/errors.go.

USAGE:
    entry, err := timeentry.Compute(in)
    if errors.Is(err, timeentry.ErrInvalidRange) {
        // reject the request
    }
*/
package timeentry

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when a shift does not end after it starts.
	ErrInvalidRange = errors.New("invalid range: end must be after start")

	// ErrShiftTooLong is returned when a shift exceeds MaxShiftDuration.
	ErrShiftTooLong = errors.New("shift too long")

	// ErrParse marks numeric input that could not be parsed.
	ErrParse = errors.New("parse error")

	errEmptyNumber = errors.New("empty input")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InvalidRangeError carries the offending bounds.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: end %s is not after start %s",
		e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

func (e *InvalidRangeError) Unwrap() error {
	return ErrInvalidRange
}

// MaxShiftDuration is the longest shift Compute accepts.
const MaxShiftDuration = 48 * time.Hour

// ShiftTooLongError carries the bounds of a shift over MaxShiftDuration.
type ShiftTooLongError struct {
	Start time.Time
	End   time.Time
}

func (e *ShiftTooLongError) Error() string {
	return fmt.Sprintf("shift too long: %s exceeds %s", e.End.Sub(e.Start), MaxShiftDuration)
}

func (e *ShiftTooLongError) Unwrap() error {
	return ErrShiftTooLong
}

// ParseError describes a numeric field that failed to parse.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Input, e.Err)
}

// Is lets errors.Is(err, ErrParse) match.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) || errors.Is(err, ErrShiftTooLong) || errors.Is(err, ErrParse)
}
