package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Values come from the
// environment so main stays lean; defaults are development-only.
type Server struct {
	Addr          string
	JWTSigningKey string

	// SigningTimeout bounds the key-management call during signing. A timeout
	// is treated the same as an unavailable signing key.
	SigningTimeout time.Duration

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// PostgresConfig holds the durable store connection settings.
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds the revocation store connection settings. An empty URL
// means Redis is not configured and the in-memory store is used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the audit export settings. Empty brokers disable export.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:           envOr("DOCGOV_ADDR", ":8080"),
		JWTSigningKey:  envOr("DOCGOV_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SigningTimeout: envDurationOr("DOCGOV_SIGNING_TIMEOUT", 10*time.Second),
		Postgres: PostgresConfig{
			URL:          os.Getenv("DOCGOV_POSTGRES_URL"),
			MaxOpenConns: envIntOr("DOCGOV_POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envIntOr("DOCGOV_POSTGRES_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("DOCGOV_REDIS_URL"),
			PoolSize:     envIntOr("DOCGOV_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("DOCGOV_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("DOCGOV_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("DOCGOV_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("DOCGOV_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Topic: envOr("DOCGOV_AUDIT_EXPORT_TOPIC", "docgov.audit.committed"),
		},
	}
	if brokers := os.Getenv("DOCGOV_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
