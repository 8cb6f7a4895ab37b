package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "biohive/pkg/platform/strings"
)

// Server captures process-level configuration. Validator thresholds and risk
// bands live with their services (internal/report/config,
// internal/aggregation/config) so they stay injectable in tests.
type Server struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string
	Redis         RedisConfig
	Kafka         KafkaConfig
	// AggregationInterval drives the background rollup job. Zero disables it.
	AggregationInterval time.Duration
}

// RedisConfig configures the aggregated-signal read cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SignalTTL    time.Duration
}

// KafkaConfig configures the aggregated-signal feed. Empty brokers disable
// publishing.
type KafkaConfig struct {
	Brokers     []string
	SignalTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("BIOHIVE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	signalTopic := os.Getenv("KAFKA_SIGNAL_TOPIC")
	if signalTopic == "" {
		signalTopic = "biohive.signals.daily"
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: jwtSigningKey,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			SignalTTL:    envDuration("SIGNAL_CACHE_TTL", 10*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:     platformstrings.DedupeAndTrim(strings.Split(os.Getenv("KAFKA_BROKERS"), ",")),
			SignalTopic: signalTopic,
		},
		AggregationInterval: envDuration("AGGREGATION_INTERVAL", time.Hour),
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return fallback
}
