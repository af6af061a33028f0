// Package config builds service configuration from the environment so main
// stays lean. A .env file is honored when present (local development); real
// deployments set variables directly.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pkgstrings "claimcheck/pkg/platform/strings"
)

// Config aggregates all tunables for the claim eligibility service.
type Config struct {
	Addr      string
	UploadDir string

	// PostgresURL points at the warehouse/ledger database. Empty means
	// in-memory stores (local development, unit tests).
	PostgresURL string

	Redis  Redis
	Kafka  Kafka
	Ingest Ingest
	Policy Policy
}

// Redis captures connection settings for the distributed flight-status cache.
// An empty URL disables Redis and the service falls back to the in-process cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures event bus settings. Empty brokers disable the bus (the
// coordinator then fails batch submission as unavailable).
type Kafka struct {
	Brokers []string
	GroupID string

	TopicIntake           string
	TopicProcessingStatus string
	TopicFlightStatus     string
}

// Ingest controls intake publish retry behavior.
type Ingest struct {
	// PublishMaxAttempts bounds intake publish retries, first try included.
	PublishMaxAttempts int
	PublishBaseDelay   time.Duration
}

// Policy holds the eligibility rule tunables. The business rule was never
// finalized, so thresholds and confidence constants stay configurable.
type Policy struct {
	DelayThresholdMinutes int
	StreamConfidence      float64
	WarehouseConfidence   float64
	ConflictPenalty       float64
}

// FromEnv builds a Config from environment variables, applying defaults for
// anything unset.
func FromEnv() Config {
	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	return Config{
		Addr:        envStr("CLAIMCHECK_ADDR", ":8080"),
		UploadDir:   envStr("CLAIMCHECK_UPLOAD_DIR", "uploads"),
		PostgresURL: os.Getenv("CLAIMCHECK_POSTGRES_URL"),
		Redis: Redis{
			URL:          os.Getenv("CLAIMCHECK_REDIS_URL"),
			PoolSize:     envInt("CLAIMCHECK_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CLAIMCHECK_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("CLAIMCHECK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CLAIMCHECK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CLAIMCHECK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:               envList("CLAIMCHECK_KAFKA_BROKERS"),
			GroupID:               envStr("CLAIMCHECK_KAFKA_GROUP", "claimcheck"),
			TopicIntake:           envStr("CLAIMCHECK_TOPIC_INTAKE", "claims.intake"),
			TopicProcessingStatus: envStr("CLAIMCHECK_TOPIC_PROCESSING_STATUS", "claims.processing-status"),
			TopicFlightStatus:     envStr("CLAIMCHECK_TOPIC_FLIGHT_STATUS", "claims.flight-status"),
		},
		Ingest: Ingest{
			PublishMaxAttempts: envInt("CLAIMCHECK_PUBLISH_MAX_ATTEMPTS", 5),
			PublishBaseDelay:   envDuration("CLAIMCHECK_PUBLISH_BASE_DELAY", 100*time.Millisecond),
		},
		Policy: Policy{
			DelayThresholdMinutes: envInt("CLAIMCHECK_POLICY_DELAY_THRESHOLD_MINUTES", 120),
			StreamConfidence:      envFloat("CLAIMCHECK_POLICY_STREAM_CONFIDENCE", 0.95),
			WarehouseConfidence:   envFloat("CLAIMCHECK_POLICY_WAREHOUSE_CONFIDENCE", 0.6),
			ConflictPenalty:       envFloat("CLAIMCHECK_POLICY_CONFLICT_PENALTY", 0.8),
		},
	}
}

func envStr(key, fallback string) string {
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return pkgstrings.DedupeAndTrim(strings.Split(v, ","))
}
