/*
Package config loads server settings from TE_* environment variables.

VARIABLES:
  TE_PORT                 HTTP port (default 8080)
  TE_DB                   SQLite path (default timeentry.db, ":memory:" allowed)
  TE_TIMEZONE             Payroll location (default Europe/Berlin)
  TE_BUNDESLAND           Default region for holiday resolution (empty = nationwide)
  TE_BATCH_MAX_RETRIES    Retries per batch unit (default 3)
  TE_BATCH_BASE_DELAY     First backoff delay (default 1s)
  TE_BATCH_MAX_DELAY      Backoff ceiling (default 10s)
  TE_BATCH_CONCURRENCY    Group size for bounded batches (default 5)
  TE_RETRY_INTERVAL       Re-run interval for queued failures (default 5m, 0 disables)
  TE_RETRY_MAX_ATTEMPTS   Scheduler runs per queued plan before it is dropped (default 5)

  Command-line flags in cmd/server override these.
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/warp/timeentry-engine/batch"
	"github.com/warp/timeentry-engine/holiday"
	"github.com/warp/timeentry-engine/logger"
)

// Conf is a namespaced view over environment variables.
type Conf struct{ prefix string }

// New creates a root Conf.
func New() Conf { return Conf{} }

// Prefix returns a child view, e.g. New().Prefix("TE_").
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) lookup(k string) string { return strings.TrimSpace(os.Getenv(c.key(k))) }

// MayString returns the value or def if missing.
func (c Conf) MayString(key, def string) string {
	if v := c.lookup(key); v != "" {
		return v
	}
	return def
}

// MayInt returns the value or def if missing; invalid values log and fall back.
func (c Conf) MayInt(key string, def int) int {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Int("default", def).Msg("invalid int; using default")
	return def
}

// MayDuration returns the value or def if missing; invalid values log and fall back.
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Dur("default", def).Msg("invalid duration; using default")
	return def
}

// =============================================================================
// APPLICATION CONFIG
// =============================================================================

// Config is the resolved server configuration.
type Config struct {
	Port              int
	DBPath            string
	Timezone          string
	DefaultBundesland string
	Retry             batch.RetryConfig
	Concurrency       int
	RetryInterval     time.Duration
	RetryMaxAttempts  int
}

// Load reads Config from the environment.
func Load() Config {
	c := New().Prefix("TE_")
	def := batch.DefaultRetryConfig()
	return Config{
		Port:              c.MayInt("PORT", 8080),
		DBPath:            c.MayString("DB", "timeentry.db"),
		Timezone:          c.MayString("TIMEZONE", "Europe/Berlin"),
		DefaultBundesland: strings.ToUpper(c.MayString("BUNDESLAND", "")),
		Retry: batch.RetryConfig{
			MaxRetries: c.MayInt("BATCH_MAX_RETRIES", def.MaxRetries),
			BaseDelay:  c.MayDuration("BATCH_BASE_DELAY", def.BaseDelay),
			MaxDelay:   c.MayDuration("BATCH_MAX_DELAY", def.MaxDelay),
		},
		Concurrency:      c.MayInt("BATCH_CONCURRENCY", batch.DefaultConcurrency),
		RetryInterval:    c.MayDuration("RETRY_INTERVAL", 5*time.Minute),
		RetryMaxAttempts: c.MayInt("RETRY_MAX_ATTEMPTS", 5),
	}
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.DefaultBundesland != "" && !holiday.ValidRegion(c.DefaultBundesland) {
		return fmt.Errorf("unknown bundesland %q", c.DefaultBundesland)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0")
	}
	if c.RetryInterval < 0 {
		return fmt.Errorf("retry interval must be >= 0")
	}
	if c.Retry.MaxDelay <= 0 {
		return fmt.Errorf("max delay must be > 0")
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("max delay %s below base delay %s", c.Retry.MaxDelay, c.Retry.BaseDelay)
	}
	return nil
}

// Location resolves Timezone. Call Validate first.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
