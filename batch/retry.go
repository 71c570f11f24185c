package batch

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// =============================================================================
// RETRY CONFIG
// =============================================================================

// RetryConfig bounds retries for one batch. Read-only once the batch starts.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns 3 retries starting at 1s, capped at 10s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
	}
}

// Jitter adds at most 3/10 of the exponential term.
const (
	jitterNum = 3
	jitterDen = 10
)

// maxBackoff caps the exponential term when MaxDelay is unset.
const maxBackoff = time.Duration(math.MaxInt64 / 2)

// Backoff returns the delay before retry number attempt (0-based):
//
//	min(MaxDelay, BaseDelay*2^attempt + jitter)
//
// where jitter = r * 30% of the exponential term and r is in [0, 1).
func (c RetryConfig) Backoff(attempt int, r float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	exp := c.BaseDelay
	for i := 0; i < attempt; i++ {
		if c.MaxDelay > 0 && exp >= c.MaxDelay {
			break
		}
		if exp > maxBackoff/2 {
			exp = maxBackoff
			break
		}
		exp *= 2
	}
	d := exp + time.Duration(float64(exp)*r*jitterNum/jitterDen)
	if c.MaxDelay > 0 && d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

// =============================================================================
// JITTER + SLEEP - injectable for reproducible tests
// =============================================================================

// Jitter yields values in [0, 1). *rand.Rand satisfies it but is not safe
// for concurrent use; wrap it with NewSeededJitter.
type Jitter interface {
	Float64() float64
}

type globalJitter struct{}

func (globalJitter) Float64() float64 { return rand.Float64() }

// DefaultJitter uses the math/rand/v2 global source.
func DefaultJitter() Jitter { return globalJitter{} }

type lockedJitter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (l *lockedJitter) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

// NewSeededJitter returns a reproducible jitter source safe for concurrent use.
func NewSeededJitter(seed uint64) Jitter {
	return &lockedJitter{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// FixedJitter always returns the same value.
type FixedJitter float64

func (f FixedJitter) Float64() float64 { return float64(f) }

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
