/*
scheduler.go - Automated retry queue scheduler

PURPOSE:
  Periodically re-runs shift plans whose batch units failed with a
  transient error after exhausting the executor's retries.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each pass is one "retry" batch over the queued plans
  - Succeeded and permanently failed plans leave the queue
  - Plans past the attempt limit are dropped and logged

CONFIGURATION:
  - CheckInterval: How often to check (TE_RETRY_INTERVAL, default 5m)
  - Enabled: Whether scheduler is active (interval 0 disables it)

USAGE:
  scheduler := NewRetryScheduler(handler, cfg.RetryInterval)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: processRetries, RunRetries endpoint (manual pass)
  - store/sqlite/retries.go: retry_queue table
*/
package api

import (
	"context"
	"sync"
	"time"
)

// RetryScheduler drains the retry queue in the background.
type RetryScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	// runMu guards lastRun; mu is held across Stop's wait.
	runMu   sync.Mutex
	lastRun time.Time
}

// NewRetryScheduler creates a new scheduler. interval <= 0 disables it.
func NewRetryScheduler(handler *Handler, interval time.Duration) *RetryScheduler {
	return &RetryScheduler{
		Handler:       handler,
		CheckInterval: interval,
		Enabled:       interval > 0,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *RetryScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	log := rs.Handler.log
	if !rs.Enabled {
		log.Info().Msg("retry scheduler disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Info().Dur("interval", rs.CheckInterval).Msg("retry scheduler started")
}

// Stop stops the scheduler and waits for a running pass.
func (rs *RetryScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.Handler.log.Info().Msg("retry scheduler stopped")
	}
}

func (rs *RetryScheduler) run() {
	defer rs.wg.Done()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndProcess()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RetryScheduler) checkAndProcess() RetryReport {
	log := rs.Handler.log
	ctx, cancel := context.WithTimeout(context.Background(), rs.passTimeout())
	defer cancel()

	report, err := rs.Handler.processRetries(ctx)
	rs.runMu.Lock()
	rs.lastRun = time.Now()
	rs.runMu.Unlock()
	if err != nil {
		log.Error().Err(err).Msg("retry pass failed")
		return report
	}
	if report.Processed > 0 || report.Dropped > 0 {
		log.Info().
			Str("batch_id", report.BatchID).
			Int("processed", report.Processed).
			Int("succeeded", report.Succeeded).
			Int("failed", report.Failed).
			Int("dropped", report.Dropped).
			Msg("retry pass completed")
	}
	return report
}

// passTimeout bounds one pass: the check interval, but at least a minute.
func (rs *RetryScheduler) passTimeout() time.Duration {
	return max(rs.CheckInterval, time.Minute)
}

// RunNow triggers an immediate pass (for testing/admin).
func (rs *RetryScheduler) RunNow() RetryReport {
	return rs.checkAndProcess()
}

// NextRunTime returns when the next scheduled pass will occur.
func (rs *RetryScheduler) NextRunTime() time.Time {
	if !rs.Enabled {
		return time.Time{}
	}
	rs.runMu.Lock()
	last := rs.lastRun
	rs.runMu.Unlock()
	if last.IsZero() {
		return time.Now().Add(rs.CheckInterval)
	}
	return last.Add(rs.CheckInterval)
}
