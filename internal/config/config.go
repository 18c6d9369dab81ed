package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/whoop-data-sync/internal/scheduler"
)

// AppConfig is the environment-sourced process configuration.
type AppConfig struct {
	// Vendor credentials. Both are required; startup fails without them.
	Username string
	Password string

	// Vendor endpoint overrides, mainly for tests. Empty means production.
	AuthURL string
	APIURL  string

	// FetchInterval controls how often a fetch cycle runs.
	FetchInterval scheduler.Interval

	// Timezone applied to capture timestamps. Defaults to UTC.
	Timezone *time.Location

	// DBPath is the DuckDB database file location.
	DBPath string

	// HTTPTimeout bounds each outbound vendor call.
	HTTPTimeout time.Duration

	Port      string
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment with sensible defaults.
// A missing WHOOP_USERNAME or WHOOP_PASSWORD is a fatal condition reported
// as an error; everything else degrades to a default with a warning.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := &AppConfig{}

	cfg.Username = os.Getenv("WHOOP_USERNAME")
	cfg.Password = os.Getenv("WHOOP_PASSWORD")
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("WHOOP_USERNAME and WHOOP_PASSWORD must be set")
	}

	cfg.AuthURL = os.Getenv("WHOOP_AUTH_URL")
	cfg.APIURL = os.Getenv("WHOOP_API_URL")

	interval, err := scheduler.ParseInterval(getenvDefault("FETCH_INTERVAL", "8hours"))
	if err != nil {
		log.Warn().Err(err).Msg("invalid FETCH_INTERVAL")
	}
	cfg.FetchInterval = interval

	cfg.Timezone = ResolveTimezone(os.Getenv("USER_TIMEZONE"))

	cfg.DBPath = getenvDefault("WHOOP_DB_PATH", "data/whoop.db")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "console")

	return cfg, nil
}

// ResolveTimezone maps a timezone identifier to a location. It is the single
// source of truth for "configured tz or UTC": empty or invalid names fall
// back to UTC, invalid ones with a warning.
func ResolveTimezone(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn().Str("timezone", name).Err(err).Msg("unknown USER_TIMEZONE, falling back to UTC")
		return time.UTC
	}
	return loc
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
