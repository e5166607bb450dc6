package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the runtime configuration, loaded from the environment.
type Config struct {
	Port           string
	DBPath         string
	MigrationsPath string
	JWTSecret      string

	LedgerBaseURL string
	LedgerTimeout time.Duration

	SampleIntervalMs        int64
	SampleFastestIntervalMs int64
	SampleMinDisplacementM  float64

	SyncInterval time.Duration
	RetentionAge time.Duration
}

// Load reads the configuration from environment variables, falling back to
// defaults suitable for local development.
func Load() *Config {
	return &Config{
		Port:           envOr("PORT", ":8080"),
		DBPath:         envOr("DB_PATH", "./data/telemetry/telemetry.db"),
		MigrationsPath: envOr("MIGRATIONS_PATH", "./migrations"),
		JWTSecret:      envOr("JWT_SECRET", "your-secret-key-change-in-production"),

		LedgerBaseURL: envOr("LEDGER_BASE_URL", "http://localhost:9090"),
		LedgerTimeout: time.Duration(envInt("LEDGER_TIMEOUT_MS", 10000)) * time.Millisecond,

		SampleIntervalMs:        envInt("SAMPLE_INTERVAL_MS", 60000),
		SampleFastestIntervalMs: envInt("SAMPLE_FASTEST_INTERVAL_MS", 30000),
		SampleMinDisplacementM:  envFloat("SAMPLE_MIN_DISPLACEMENT_M", 10),

		SyncInterval: time.Duration(envInt("SYNC_INTERVAL_MINUTES", 15)) * time.Minute,
		RetentionAge: time.Duration(envInt("RETENTION_DAYS", 7)) * 24 * time.Hour,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
