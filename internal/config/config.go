// Package config provides environment-aware configuration for the
// control-plane process (spec.md §6.5 and the ambient configuration layer
// every component reads through at process start).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment identifies the deployment tier.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// Config holds all process-wide configuration. Every field is read once at
// startup; per-request behaviour never mutates it.
type Config struct {
	Env Environment

	// Database
	DatabaseDSN      string
	DBMaxConnections int
	DBIdleTimeout    time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Rate & cooldown guard (spec.md §6.5)
	AutoCooldownOnRateLimit bool
	AutoCooldownMinutes     int

	// Library rollout phase gate (spec.md §4.5)
	LibraryRolloutPhase string

	// Agent commerce terms-of-service version gate (spec.md §4.2)
	TermsVersion string

	// Identity & Authorization Adapter (spec.md §2.1, §4.5)
	SessionSigningSecret string

	// Station Registry refresh cadence (spec.md §3.2, §9)
	StationRegistryTTL time.Duration

	// HTTP
	ListenAddr string
}

// Load reads configuration from the process environment, optionally
// preloaded from a local .env file (teacher: internal/config/config.go +
// godotenv.Load(), used identically here for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                     Environment(getEnvDefault("APP_ENV", string(Development))),
		DatabaseDSN:             os.Getenv("DATABASE_URL"),
		DBMaxConnections:        getEnvInt("DB_MAX_CONNECTIONS", 20),
		DBIdleTimeout:           getEnvDuration("DB_IDLE_TIMEOUT", 5*time.Minute),
		LogLevel:                getEnvDefault("LOG_LEVEL", "info"),
		LogFormat:               getEnvDefault("LOG_FORMAT", "json"),
		AutoCooldownOnRateLimit: getEnvBool("AUTO_COOLDOWN_ON_RATE_LIMIT", false),
		AutoCooldownMinutes:     getEnvInt("AUTO_COOLDOWN_MINUTES", 5),
		LibraryRolloutPhase:     getEnvDefault("LIBRARY_ROLLOUT_PHASE", "phase_3_admin_full"),
		TermsVersion:            getEnvDefault("AGENT_TERMS_VERSION", "2026-01-01.v1"),
		SessionSigningSecret:    getEnvDefault("SESSION_JWT_SECRET", ""),
		StationRegistryTTL:      getEnvDuration("STATION_REGISTRY_TTL", 30*time.Second),
		ListenAddr:              getEnvDefault("LISTEN_ADDR", ":8080"),
	}

	if cfg.AutoCooldownMinutes < 1 {
		cfg.AutoCooldownMinutes = 1
	}
	return cfg, nil
}

func getEnvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return parsed
}
