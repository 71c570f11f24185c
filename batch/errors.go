/*
errors.go - Failure classification for batch units

ERROR CATEGORIES:
  1. Transient - network, timeout, connection reset, HTTP 5xx. Retried with
     backoff up to RetryConfig.MaxRetries, surfaced after exhaustion.
  2. Permanent - anything else. Surfaced on the first attempt.

  A unit can force either side explicitly:

    return batch.Transient("save entry", err)   // always retried
    return batch.Permanent(err)                 // never retried

  Errors not wrapped either way are classified by IsRetryable.
*/
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"syscall"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTransient marks failures worth retrying.
	ErrTransient = errors.New("transient failure")

	// ErrPermanent marks failures that must not be retried.
	ErrPermanent = errors.New("permanent failure")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// TransientError wraps a failure that may succeed on retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("transient: %v", e.Err)
	}
	return fmt.Sprintf("%s: transient: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Is(target error) bool { return target == ErrTransient }

// Transient marks err as retryable.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

func (e *permanentError) Is(target error) bool { return target == ErrPermanent }

// Permanent marks err as not retryable, overriding any classification.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// StatusError reports a non-2xx response from a downstream HTTP dependency.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Message)
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

var transientMarkers = []string{
	"network",
	"timeout",
	"timed out",
	"econnreset",
	"connection reset",
	"connection refused",
	"broken pipe",
	"fetch failed",
	"database is locked",
	"database is busy",
}

var status5xx = regexp.MustCompile(`(?i)\b(?:status|http)(?: code)?:?\s*5\d\d\b`)

// IsRetryable reports whether err is a transient failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanent) {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 && se.StatusCode <= 599
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return status5xx.MatchString(msg)
}
