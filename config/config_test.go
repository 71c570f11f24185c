package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "timeentry.db", cfg.DBPath)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.RetryInterval)
	assert.Equal(t, 5, cfg.RetryMaxAttempts)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("TE_PORT", "9090")
	t.Setenv("TE_BUNDESLAND", "by")
	t.Setenv("TE_BATCH_MAX_RETRIES", "5")
	t.Setenv("TE_BATCH_BASE_DELAY", "250ms")
	t.Setenv("TE_BATCH_CONCURRENCY", "not-a-number")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "BY", cfg.DefaultBundesland)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 5, cfg.Concurrency)
	require.NoError(t, cfg.Validate())
}

func TestValidate_Rejects(t *testing.T) {
	base := Load()

	bad := base
	bad.Port = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.Timezone = "Mars/Olympus"
	assert.Error(t, bad.Validate())

	bad = base
	bad.DefaultBundesland = "XX"
	assert.Error(t, bad.Validate())

	bad = base
	bad.RetryInterval = -time.Second
	assert.Error(t, bad.Validate())

	bad = base
	bad.Retry.MaxDelay = time.Millisecond
	assert.Error(t, bad.Validate())

	bad = base
	bad.Retry.BaseDelay = 0
	bad.Retry.MaxDelay = 0
	assert.Error(t, bad.Validate())
}

func TestPrefix(t *testing.T) {
	t.Setenv("A_B_NAME", "x")
	assert.Equal(t, "x", New().Prefix("A_").Prefix("B_").MayString("NAME", "d"))
	assert.Equal(t, "d", New().Prefix("A_").MayString("NAME", "d"))
}
