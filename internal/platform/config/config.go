// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Addr        string
	DatabaseURL string

	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration

	Redis RedisConfig

	LockoutThreshold int64
	LockoutWindow    time.Duration

	// SweepSchedule is a cron expression for the asset ledger sweep.
	SweepSchedule string

	// EscalateEventFailures makes failed provenance writes fail the
	// mutation that triggered them instead of degrading to the log.
	EscalateEventFailures bool
}

// RedisConfig configures the optional Redis connection.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables, with development
// defaults for everything but the database.
func FromEnv() Config {
	return Config{
		Addr:        envString("CHAPEL_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// The default is for development only and must be overridden in
		// production.
		JWTSigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envString("JWT_ISSUER", "chapel"),
		TokenTTL:      envDuration("TOKEN_TTL", 12*time.Hour),

		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},

		LockoutThreshold: int64(envInt("LOCKOUT_THRESHOLD", 5)),
		LockoutWindow:    envDuration("LOCKOUT_WINDOW", 15*time.Minute),

		SweepSchedule: envString("ASSET_SWEEP_SCHEDULE", "0 3 * * *"),

		EscalateEventFailures: os.Getenv("AUDIT_ESCALATE_EVENT_FAILURES") == "true",
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
