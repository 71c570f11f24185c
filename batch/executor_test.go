package batch_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeentry-engine/batch"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// recordingSleep captures requested delays without sleeping.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *recordingSleep) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func testConfig(retries int) batch.RetryConfig {
	return batch.RetryConfig{MaxRetries: retries, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
}

func ok(label string, v int) batch.Unit[int] {
	return batch.Unit[int]{Label: label, Run: func(context.Context) (int, error) { return v, nil }}
}

// flaky fails with a transient error for the first n calls.
func flaky(label string, n int, v int, calls *atomic.Int32) batch.Unit[int] {
	return batch.Unit[int]{Label: label, Run: func(context.Context) (int, error) {
		if int(calls.Add(1)) <= n {
			return 0, batch.Transient("write", errors.New("connection reset by peer"))
		}
		return v, nil
	}}
}

// =============================================================================
// RUN ALL
// =============================================================================

func TestRunAll_RecoversTransientFailureWithOneBackoff(t *testing.T) {
	// GIVEN: 3 units, #2 fails transiently once then succeeds
	// THEN: all succeed, exactly one backoff sleep was requested
	sleeper := &recordingSleep{}
	ex := batch.NewExecutor[int](testConfig(3),
		batch.WithSleep(sleeper.Sleep),
		batch.WithJitter(batch.FixedJitter(0)),
	)

	var calls atomic.Int32
	res := ex.RunAll(context.Background(), []batch.Unit[int]{
		ok("anna", 1),
		flaky("ben", 1, 2, &calls),
		ok("cara", 3),
	})

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.TotalProcessed)
	assert.Equal(t, 3, res.SuccessCount)
	assert.Equal(t, 0, res.ErrorCount)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, sleeper.Delays())
	assert.Equal(t, 2, res.Results[1].Attempts)
	assert.Equal(t, []int{1, 2, 3}, res.Values())
}

func TestRunAll_ExhaustsRetriesThenFails(t *testing.T) {
	// GIVEN: maxRetries=2 and a unit that always fails transiently
	// THEN: attempted exactly 3 times, recorded as failed, siblings unaffected
	sleeper := &recordingSleep{}
	ex := batch.NewExecutor[int](testConfig(2),
		batch.WithSleep(sleeper.Sleep),
		batch.WithJitter(batch.FixedJitter(0)),
	)

	var calls atomic.Int32
	res := ex.RunAll(context.Background(), []batch.Unit[int]{
		ok("anna", 1),
		flaky("ben", 100, 0, &calls),
	})

	assert.Equal(t, int32(3), calls.Load())
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 1, res.ErrorCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "ben", res.Errors[0].Label)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.ErrorIs(t, res.Errors[0].Err, batch.ErrTransient)
	assert.Equal(t, batch.StateFailed, res.Results[1].State)
	assert.Equal(t, 3, res.Results[1].Attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.Delays())
	assert.Equal(t, []string{"ben"}, res.FailedLabels())
}

func TestRunAll_PermanentErrorIsNotRetried(t *testing.T) {
	sleeper := &recordingSleep{}
	ex := batch.NewExecutor[int](testConfig(5), batch.WithSleep(sleeper.Sleep))

	var calls atomic.Int32
	res := ex.RunAll(context.Background(), []batch.Unit[int]{{
		Label: "dora",
		Run: func(context.Context) (int, error) {
			calls.Add(1)
			return 0, errors.New("employee has no contract")
		},
	}})

	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, sleeper.Delays())
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, res.TotalProcessed, res.SuccessCount+res.ErrorCount)
}

func TestRunAll_PanicBecomesFailure(t *testing.T) {
	ex := batch.NewExecutor[int](testConfig(3))

	res := ex.RunAll(context.Background(), []batch.Unit[int]{
		{Label: "boom", Run: func(context.Context) (int, error) { panic("nil map") }},
		ok("fine", 1),
	})

	assert.Equal(t, 1, res.SuccessCount)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0].Err, batch.ErrPermanent)
	assert.Contains(t, res.Errors[0].Err.Error(), "nil map")
}

func TestRunAll_ResultsKeepInputOrder(t *testing.T) {
	ex := batch.NewExecutor[int](testConfig(0))

	units := make([]batch.Unit[int], 20)
	for i := range units {
		delay := time.Duration(20-i) * time.Millisecond
		units[i] = batch.Unit[int]{Label: fmt.Sprintf("u%d", i), Run: func(context.Context) (int, error) {
			time.Sleep(delay)
			return i, nil
		}}
	}

	res := ex.RunAll(context.Background(), units)

	require.Len(t, res.Results, 20)
	for i, item := range res.Results {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, i, item.Value)
		assert.Equal(t, fmt.Sprintf("u%d", i), item.Label)
	}
}

func TestRunAll_EmptyBatchSucceeds(t *testing.T) {
	res := batch.NewExecutor[int](testConfig(1)).RunAll(context.Background(), nil)

	assert.True(t, res.Success)
	assert.Zero(t, res.TotalProcessed)
	assert.NotNil(t, res.Errors)
}

// =============================================================================
// RUN BOUNDED
// =============================================================================

func TestRunBounded_NeverExceedsLimitAndReportsProgress(t *testing.T) {
	var (
		inFlight atomic.Int32
		peak     atomic.Int32
		mu       sync.Mutex
		seen     []int
	)
	ex := batch.NewExecutor[int](testConfig(0), batch.WithProgress(func(processed, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 12, total)
		seen = append(seen, processed)
	}))

	units := make([]batch.Unit[int], 12)
	for i := range units {
		units[i] = batch.Unit[int]{Label: fmt.Sprintf("u%d", i), Run: func(context.Context) (int, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return i * 10, nil
		}}
	}

	res := ex.RunBounded(context.Background(), units, 3)

	assert.True(t, res.Success)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, seen)
	for i, item := range res.Results {
		assert.Equal(t, i*10, item.Value)
	}
}

func TestRunBounded_GroupsRunInSubmissionOrder(t *testing.T) {
	// Every unit of group k must start after all units of group k-1 settled
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, s)
	}

	units := make([]batch.Unit[int], 4)
	for i := range units {
		units[i] = batch.Unit[int]{Label: fmt.Sprintf("u%d", i), Run: func(context.Context) (int, error) {
			record(fmt.Sprintf("start-%d", i/2))
			time.Sleep(2 * time.Millisecond)
			record(fmt.Sprintf("end-%d", i/2))
			return i, nil
		}}
	}

	batch.NewExecutor[int](testConfig(0)).RunBounded(context.Background(), units, 2)

	require.Len(t, events, 8)
	for _, e := range events[:4] {
		assert.Contains(t, e, "-0")
	}
	for _, e := range events[4:] {
		assert.Contains(t, e, "-1")
	}
}

func TestRunBounded_DefaultLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	units := make([]batch.Unit[int], 11)
	for i := range units {
		units[i] = batch.Unit[int]{Label: "u", Run: func(context.Context) (int, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inFlight.Add(-1)
			return 0, nil
		}}
	}

	res := batch.NewExecutor[int](testConfig(0)).RunBounded(context.Background(), units, 0)

	assert.Equal(t, 11, res.SuccessCount)
	assert.LessOrEqual(t, peak.Load(), int32(batch.DefaultConcurrency))
}

// =============================================================================
// WITH RETRY
// =============================================================================

func TestWithRetry_CancelledContextStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := batch.NewExecutor[int](testConfig(5))
	var calls atomic.Int32
	_, attempts, err := ex.WithRetry(ctx, flaky("eva", 100, 0, &calls))

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, batch.ErrTransient)
}

func TestWithRetry_CustomClassifier(t *testing.T) {
	sleeper := &recordingSleep{}
	ex := batch.NewExecutor[int](testConfig(1),
		batch.WithSleep(sleeper.Sleep),
		batch.WithClassifier(func(error) bool { return true }),
	)

	var calls atomic.Int32
	_, attempts, err := ex.WithRetry(context.Background(), batch.Unit[int]{Label: "x", Run: func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errors.New("validation failed")
	}})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Len(t, sleeper.Delays(), 1)
}

// =============================================================================
// BACKOFF
// =============================================================================

func TestBackoff_ExponentialWithJitterAndCap(t *testing.T) {
	cfg := batch.RetryConfig{MaxRetries: 10, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	assert.Equal(t, time.Second, cfg.Backoff(0, 0))
	assert.Equal(t, 2*time.Second, cfg.Backoff(1, 0))
	assert.Equal(t, 4*time.Second, cfg.Backoff(2, 0))
	assert.Equal(t, 1300*time.Millisecond, cfg.Backoff(0, 1))
	assert.Equal(t, 5200*time.Millisecond, cfg.Backoff(2, 1))
	assert.Equal(t, 9200*time.Millisecond, cfg.Backoff(3, 0.5))
	assert.Equal(t, 10*time.Second, cfg.Backoff(3, 1))
	assert.Equal(t, 10*time.Second, cfg.Backoff(60, 0.5))
}

func TestBackoff_UncappedNeverOverflows(t *testing.T) {
	cfg := batch.RetryConfig{BaseDelay: time.Second}

	assert.Equal(t, 8*time.Second, cfg.Backoff(3, 0))
	prev := time.Duration(0)
	for _, attempt := range []int{30, 62, 63, 64, 100, 1000} {
		d := cfg.Backoff(attempt, 0.99)
		assert.Positive(t, d, "attempt %d", attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		prev = d
	}
}

func TestSeededJitter_Reproducible(t *testing.T) {
	a := batch.NewSeededJitter(99)
	b := batch.NewSeededJitter(99)
	for i := 0; i < 10; i++ {
		x, y := a.Float64(), b.Float64()
		assert.Equal(t, x, y)
		assert.GreaterOrEqual(t, x, 0.0)
		assert.Less(t, x, 1.0)
	}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsRetryable(t *testing.T) {
	retryable := []error{
		batch.Transient("op", errors.New("x")),
		&batch.StatusError{StatusCode: 503},
		fmt.Errorf("save: %w", &batch.StatusError{StatusCode: 500}),
		context.DeadlineExceeded,
		timeoutErr{},
		fmt.Errorf("dial: %w", syscall.ECONNRESET),
		errors.New("Network unreachable"),
		errors.New("request timeout after 30s"),
		errors.New("upstream returned status 502"),
		errors.New("database is locked"),
	}
	for _, err := range retryable {
		assert.True(t, batch.IsRetryable(err), "%v", err)
	}

	permanent := []error{
		nil,
		errors.New("invalid employee id"),
		&batch.StatusError{StatusCode: 404},
		&batch.StatusError{StatusCode: 422, Message: "timeout field invalid"},
		context.Canceled,
		batch.Permanent(errors.New("network config rejected")),
		errors.New("status 404"),
	}
	for _, err := range permanent {
		assert.False(t, batch.IsRetryable(err), "%v", err)
	}
}
