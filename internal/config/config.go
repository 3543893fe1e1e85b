// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and the environment.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// WorkerCount bounds per-pass scoring and write concurrency.
	WorkerCount int `koanf:"worker_count"`

	// SeasonYear selects which season picks back the fallback resolver.
	SeasonYear int `koanf:"season_year"`

	// Store selects the persistence backend: memory or postgres.
	Store string `koanf:"store"`

	// PostgresDSN is required when Store is postgres.
	PostgresDSN string `koanf:"postgres_dsn"`

	// SeedFile optionally preloads the memory store from YAML.
	SeedFile string `koanf:"seed_file"`

	// RequestTimeoutMS bounds every HTTP request context.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// AdminRatePerSec and AdminBurst throttle finish/reopen requests.
	AdminRatePerSec float64 `koanf:"admin_rate_per_sec"`
	AdminBurst      int     `koanf:"admin_burst"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		WorkerCount:         runtime.NumCPU() * 4,
		SeasonYear:          time.Now().Year(),
		Store:               StoreMemory,
		RequestTimeoutMS:    15_000,
		MaxLeaderboardLimit: 500,
		AdminRatePerSec:     2,
		AdminBurst:          4,
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.SeasonYear < 1:
		return fmt.Errorf("%w: season_year must be positive", ErrInvalidConfig)
	case c.RequestTimeoutMS < 1:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.AdminRatePerSec <= 0 || c.AdminBurst < 1:
		return fmt.Errorf("%w: admin rate limit must be positive", ErrInvalidConfig)
	}

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	return nil
}
