package pgstore

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds Postgres connection settings, mirroring
// pkg/database.Config's shape generalized to pgxpool.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// DSNOverride, when non-empty, is used verbatim in place of the
	// host/port/user/... fields. Used by test helpers that need a
	// connection string carrying a schema-scoped search_path parameter
	// testcontainers hands back as a single URL.
	DSNOverride string
}

// DSN renders cfg as a libpq-style connection string.
func (c Config) DSN() string {
	if c.DSNOverride != "" {
		return c.DSNOverride
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LoadConfigFromEnv loads Config from SESSIONSTORE_DB_* environment
// variables with the teacher's production-ready defaults.
func LoadConfigFromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("SESSIONSTORE_DB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SESSIONSTORE_DB_PORT: %w", err)
	}
	maxConns, _ := strconv.Atoi(getEnvOrDefault("SESSIONSTORE_DB_MAX_CONNS", "10"))
	minConns, _ := strconv.Atoi(getEnvOrDefault("SESSIONSTORE_DB_MIN_CONNS", "1"))

	maxLifetime, err := time.ParseDuration(getEnvOrDefault("SESSIONSTORE_DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SESSIONSTORE_DB_CONN_MAX_LIFETIME: %w", err)
	}
	maxIdleTime, err := time.ParseDuration(getEnvOrDefault("SESSIONSTORE_DB_CONN_MAX_IDLE_TIME", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SESSIONSTORE_DB_CONN_MAX_IDLE_TIME: %w", err)
	}

	cfg := Config{
		Host:            getEnvOrDefault("SESSIONSTORE_DB_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault("SESSIONSTORE_DB_USER", "empirica"),
		Password:        os.Getenv("SESSIONSTORE_DB_PASSWORD"),
		Database:        getEnvOrDefault("SESSIONSTORE_DB_NAME", "empirica"),
		SSLMode:         getEnvOrDefault("SESSIONSTORE_DB_SSLMODE", "disable"),
		MaxConns:        int32(maxConns),
		MinConns:        int32(minConns),
		MaxConnLifetime: maxLifetime,
		MaxConnIdleTime: maxIdleTime,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg for obviously invalid settings.
func (c Config) Validate() error {
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("SESSIONSTORE_DB_MIN_CONNS (%d) cannot exceed SESSIONSTORE_DB_MAX_CONNS (%d)", c.MinConns, c.MaxConns)
	}
	if c.MaxConns < 1 {
		return fmt.Errorf("SESSIONSTORE_DB_MAX_CONNS must be at least 1")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
