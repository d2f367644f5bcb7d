package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	velumstrings "velum/pkg/platform/strings"
)

// Config captures process-level configuration. Optional backends degrade
// gracefully: an empty DSN selects the in-memory audit store, an empty Redis
// URL selects the in-memory snapshot store, and an empty broker list disables
// the outbox worker.
type Config struct {
	Addr      string
	LogLevel  string
	LogFormat string

	JWTSigningKey      string
	CallbackSecretHash string

	PostgresDSN      string
	RedisURL         string
	RedisPoolSize    int
	KafkaBrokers     []string
	KafkaTopicPrefix string

	OracleDeliveryDelay time.Duration
	OracleWorkers       int

	SweepInterval time.Duration
	PendingMaxAge time.Duration
	SnapshotTTL   time.Duration

	ShutdownGrace time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:      getString("VELUM_ADDR", ":8080"),
		LogLevel:  getString("LOG_LEVEL", "info"),
		LogFormat: getString("LOG_FORMAT", "json"),

		// Development default; override in any real deployment.
		JWTSigningKey:      getString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		CallbackSecretHash: os.Getenv("CALLBACK_SECRET_HASH"),

		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		RedisURL:         os.Getenv("REDIS_URL"),
		RedisPoolSize:    getInt("REDIS_POOL_SIZE", 0),
		KafkaBrokers:     getList("KAFKA_BROKERS"),
		KafkaTopicPrefix: getString("KAFKA_TOPIC_PREFIX", "velum.audit"),

		OracleDeliveryDelay: getDuration("ORACLE_DELIVERY_DELAY", 150*time.Millisecond),
		OracleWorkers:       getInt("ORACLE_WORKERS", 4),

		SweepInterval: getDuration("SWEEP_INTERVAL", 5*time.Minute),
		PendingMaxAge: getDuration("PENDING_MAX_AGE", 24*time.Hour),
		SnapshotTTL:   getDuration("SNAPSHOT_TTL", 10*time.Minute),

		ShutdownGrace: getDuration("SHUTDOWN_GRACE", 10*time.Second),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	// Duplicate broker entries would double-count in the consumer group.
	return velumstrings.DedupeAndTrim(strings.Split(raw, ","))
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
