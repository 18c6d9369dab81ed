package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/whoop-data-sync/internal/scheduler"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WHOOP_USERNAME", "athlete@example.com")
	t.Setenv("WHOOP_PASSWORD", "hunter2")
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv("WHOOP_USERNAME", "")
	t.Setenv("WHOOP_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FETCH_INTERVAL", "")
	t.Setenv("USER_TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, scheduler.Interval{Value: 8, Unit: scheduler.UnitHours}, cfg.FetchInterval)
	assert.Equal(t, time.UTC, cfg.Timezone)
	assert.Equal(t, "data/whoop.db", cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadParsesInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FETCH_INTERVAL", "30min")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, scheduler.Interval{Value: 30, Unit: scheduler.UnitMinutes}, cfg.FetchInterval)
}

func TestLoadBadIntervalFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FETCH_INTERVAL", "5xyz")

	cfg, err := Load()
	require.NoError(t, err, "a bad interval is a warning, not a startup failure")
	assert.Equal(t, scheduler.DefaultInterval, cfg.FetchInterval)
}

func TestLoadInvalidHTTPTimeout(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestResolveTimezone(t *testing.T) {
	assert.Equal(t, time.UTC, ResolveTimezone(""))
	assert.Equal(t, time.UTC, ResolveTimezone("Mars/Olympus_Mons"))

	la := ResolveTimezone("America/Los_Angeles")
	require.NotNil(t, la)
	assert.Equal(t, "America/Los_Angeles", la.String())
}
