/*
executor.go - Concurrent batch execution with per-unit retry

PURPOSE:
  Runs many independent units of work ("write one employee's entry for one
  day") and reports partial success. One unit failing never cancels or
  fails its siblings; the batch call itself never returns an error.

ENTRY POINTS:
  RunAll:     every unit at once (unbounded fan-out)
  RunBounded: fixed-size groups in submission order, each group settled
              before the next starts; unordered inside a group

UNIT STATE MACHINE:
  Pending -> Running -> Succeeded
                     -> RetryScheduled -> Running ...
                     -> Failed

RESULT ORDER:
  Result.Results[i] always belongs to units[i], whatever the completion
  order was.

USAGE:
  ex := batch.NewExecutor[Entry](batch.DefaultRetryConfig(),
      batch.WithLogger(log), batch.WithObserver(metrics.BatchObserver{}))
  res := ex.RunBounded(ctx, units, 5)
  if !res.Success {
      for _, e := range res.Errors { ... e.Label, e.Err ... }
  }

SEE ALSO:
  - retry.go: Backoff, jitter and sleep seams
  - errors.go: Transient vs. permanent classification
  - factory/units.go: Builds time-entry units
*/
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultConcurrency is the group size used by RunBounded when limit <= 0.
const DefaultConcurrency = 5

// =============================================================================
// TYPES
// =============================================================================

// Unit is one idempotent piece of work. Label identifies it in diagnostics
// (e.g. the employee name and day).
type Unit[T any] struct {
	Label string
	Run   func(ctx context.Context) (T, error)
}

// State is the lifecycle position of a unit.
type State string

const (
	StatePending        State = "pending"
	StateRunning        State = "running"
	StateRetryScheduled State = "retry_scheduled"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateSucceeded || s == StateFailed }

// ItemResult is the settled outcome of units[Index].
type ItemResult[T any] struct {
	Index    int
	Label    string
	Value    T
	Err      error
	Attempts int
	State    State
	Elapsed  time.Duration
}

// ItemError attributes a failure to its unit.
type ItemError struct {
	Index int
	Label string
	Err   error
}

// Result aggregates a batch. SuccessCount+ErrorCount == TotalProcessed and
// Success == (ErrorCount == 0).
type Result[T any] struct {
	Success        bool
	Results        []ItemResult[T]
	TotalProcessed int
	SuccessCount   int
	ErrorCount     int
	Errors         []ItemError
}

// Values returns the values of succeeded units in input order.
func (r Result[T]) Values() []T {
	out := make([]T, 0, r.SuccessCount)
	for _, item := range r.Results {
		if item.State == StateSucceeded {
			out = append(out, item.Value)
		}
	}
	return out
}

// FailedLabels returns the labels to re-submit.
func (r Result[T]) FailedLabels() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Label)
	}
	return out
}

// ProgressFunc is called after each settled unit.
type ProgressFunc func(processed, total int)

// Observer receives unit lifecycle events. Implementations must be safe for
// concurrent use.
type Observer interface {
	UnitRetrying(label string, attempt int, delay time.Duration, err error)
	UnitFinished(label string, state State, attempts int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) UnitRetrying(string, int, time.Duration, error)   {}
func (nopObserver) UnitFinished(string, State, int, time.Duration) {}

// =============================================================================
// OPTIONS
// =============================================================================

type options struct {
	jitter    Jitter
	sleep     SleepFunc
	retryable func(error) bool
	observer  Observer
	log       zerolog.Logger
	progress  ProgressFunc
}

// Option configures an Executor.
type Option func(*options)

// WithJitter sets the jitter source.
func WithJitter(j Jitter) Option { return func(o *options) { o.jitter = j } }

// WithSleep replaces the backoff sleep.
func WithSleep(fn SleepFunc) Option { return func(o *options) { o.sleep = fn } }

// WithClassifier replaces IsRetryable.
func WithClassifier(fn func(error) bool) Option { return func(o *options) { o.retryable = fn } }

// WithObserver attaches lifecycle hooks (metrics).
func WithObserver(obs Observer) Option { return func(o *options) { o.observer = obs } }

// WithLogger sets the logger. Default is silent.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.log = l } }

// WithProgress sets the per-unit progress callback.
func WithProgress(fn ProgressFunc) Option { return func(o *options) { o.progress = fn } }

// =============================================================================
// EXECUTOR
// =============================================================================

// Executor runs units producing T. It holds no per-batch state and can be
// shared.
type Executor[T any] struct {
	cfg RetryConfig
	options
}

// NewExecutor builds an executor with cfg.
func NewExecutor[T any](cfg RetryConfig, opts ...Option) *Executor[T] {
	o := options{
		jitter:    DefaultJitter(),
		sleep:     Sleep,
		retryable: IsRetryable,
		observer:  nopObserver{},
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Executor[T]{cfg: cfg, options: o}
}

// Config returns the retry configuration.
func (e *Executor[T]) Config() RetryConfig { return e.cfg }

// RunAll starts every unit concurrently and waits for all of them.
func (e *Executor[T]) RunAll(ctx context.Context, units []Unit[T]) Result[T] {
	results := make([]ItemResult[T], len(units))
	tracker := newProgress(len(units), e.progress)

	var wg sync.WaitGroup
	for i, u := range units {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.execute(ctx, i, u)
			tracker.done()
		}()
	}
	wg.Wait()

	return e.summarize("all", results)
}

// RunBounded runs units in groups of limit, one group after another.
// limit <= 0 uses DefaultConcurrency.
func (e *Executor[T]) RunBounded(ctx context.Context, units []Unit[T], limit int) Result[T] {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	results := make([]ItemResult[T], len(units))
	tracker := newProgress(len(units), e.progress)

	for start := 0; start < len(units); start += limit {
		end := min(start+limit, len(units))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = e.execute(ctx, i, units[i])
				tracker.done()
			}()
		}
		wg.Wait()
	}

	return e.summarize("bounded", results)
}

// WithRetry runs a single unit with the executor's retry policy.
func (e *Executor[T]) WithRetry(ctx context.Context, u Unit[T]) (T, int, error) {
	item := e.execute(ctx, 0, u)
	return item.Value, item.Attempts, item.Err
}

func (e *Executor[T]) execute(ctx context.Context, index int, u Unit[T]) ItemResult[T] {
	item := ItemResult[T]{Index: index, Label: u.Label, State: StatePending}
	began := time.Now()
	log := e.log.With().Str("unit", u.Label).Logger()

	for attempt := 0; ; attempt++ {
		item.State = StateRunning
		item.Attempts = attempt + 1

		value, err := runOnce(ctx, u)
		if err == nil {
			item.Value = value
			item.Err = nil
			item.State = StateSucceeded
			break
		}
		item.Err = err

		if attempt >= e.cfg.MaxRetries || !e.retryable(err) {
			item.State = StateFailed
			log.Error().Err(err).Int("attempts", item.Attempts).Msg("unit failed")
			break
		}

		delay := e.cfg.Backoff(attempt, e.jitter.Float64())
		item.State = StateRetryScheduled
		e.observer.UnitRetrying(u.Label, item.Attempts, delay, err)
		log.Warn().Err(err).Int("attempt", item.Attempts).Dur("delay", delay).Msg("unit failed, retrying")

		if serr := e.sleep(ctx, delay); serr != nil {
			item.Err = fmt.Errorf("%w (retry aborted: %v)", err, serr)
			item.State = StateFailed
			log.Error().Err(item.Err).Int("attempts", item.Attempts).Msg("unit retry aborted")
			break
		}
	}

	item.Elapsed = time.Since(began)
	e.observer.UnitFinished(u.Label, item.State, item.Attempts, item.Elapsed)
	return item
}

// runOnce turns a panicking unit into a permanent failure.
func runOnce[T any](ctx context.Context, u Unit[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("unit panicked: %v", r))
		}
	}()
	if u.Run == nil {
		return value, Permanent(fmt.Errorf("unit %q has no work function", u.Label))
	}
	return u.Run(ctx)
}

func (e *Executor[T]) summarize(mode string, results []ItemResult[T]) Result[T] {
	res := Result[T]{
		Results:        results,
		TotalProcessed: len(results),
		Errors:         []ItemError{},
	}
	for _, item := range results {
		if item.State == StateSucceeded {
			res.SuccessCount++
			continue
		}
		res.ErrorCount++
		res.Errors = append(res.Errors, ItemError{Index: item.Index, Label: item.Label, Err: item.Err})
	}
	res.Success = res.ErrorCount == 0

	e.log.Info().
		Str("mode", mode).
		Int("total", res.TotalProcessed).
		Int("succeeded", res.SuccessCount).
		Int("failed", res.ErrorCount).
		Msg("batch settled")
	return res
}

// =============================================================================
// PROGRESS
// =============================================================================

type progress struct {
	mu        sync.Mutex
	processed int
	total     int
	fn        ProgressFunc
}

func newProgress(total int, fn ProgressFunc) *progress {
	return &progress{total: total, fn: fn}
}

// done serializes callbacks so processed is strictly increasing.
func (p *progress) done() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++
	p.fn(p.processed, p.total)
}
