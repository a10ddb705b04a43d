// Package config builds runtime configuration from environment
// variables so main stays lean.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full runtime configuration for the safeband service.
type Config struct {
	Addr          string
	LogLevel      string
	JWTSigningKey string
	// AdminKeyHash is the bcrypt hash of the operator provisioning key.
	// Empty disables admin endpoints.
	AdminKeyHash string

	Postgres  PostgresConfig
	Redis     RedisConfig
	MQTT      MQTTConfig
	Simulator SimulatorConfig
}

// PostgresConfig configures the document store. An empty DSN selects
// the in-memory stores (development and tests).
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the notification fanout. An empty URL disables
// the Redis sink; alerts still reach the log sink.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MQTTConfig configures the live position source. An empty broker
// disables MQTT ingestion.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic is the subscription filter; the profile ID is the last
	// topic segment, e.g. safeband/positions/+.
	Topic string
}

// SimulatorConfig drives the built-in movement simulator used in place
// of real GPS hardware.
type SimulatorConfig struct {
	Enabled   bool
	ProfileID string
	Interval  time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          envOr("SAFEBAND_ADDR", ":8080"),
		LogLevel:      envOr("SAFEBAND_LOG_LEVEL", "info"),
		JWTSigningKey: envOr("SAFEBAND_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminKeyHash:  os.Getenv("SAFEBAND_ADMIN_KEY_HASH"),
		Postgres: PostgresConfig{
			DSN:             os.Getenv("SAFEBAND_POSTGRES_DSN"),
			MaxOpenConns:    envIntOr("SAFEBAND_POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envIntOr("SAFEBAND_POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDurationOr("SAFEBAND_POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("SAFEBAND_REDIS_URL"),
			PoolSize:     envIntOr("SAFEBAND_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("SAFEBAND_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("SAFEBAND_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("SAFEBAND_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("SAFEBAND_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		MQTT: MQTTConfig{
			Broker:   os.Getenv("SAFEBAND_MQTT_BROKER"),
			ClientID: envOr("SAFEBAND_MQTT_CLIENT_ID", "safeband-server"),
			Username: os.Getenv("SAFEBAND_MQTT_USERNAME"),
			Password: os.Getenv("SAFEBAND_MQTT_PASSWORD"),
			Topic:    envOr("SAFEBAND_MQTT_TOPIC", "safeband/positions/+"),
		},
		Simulator: SimulatorConfig{
			Enabled:   os.Getenv("SAFEBAND_SIMULATOR_ENABLED") == "true",
			ProfileID: os.Getenv("SAFEBAND_SIMULATOR_PROFILE_ID"),
			Interval:  envDurationOr("SAFEBAND_SIMULATOR_INTERVAL", 5*time.Second),
		},
	}
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
