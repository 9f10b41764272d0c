package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database. Postgres is used when DatabaseURL is set, SQLite otherwise.
	DatabaseURL string
	SQLitePath  string

	// Server
	Port int

	// Site metadata used by the RSS feed, sitemap and page titles
	SiteTitle       string
	SiteDescription string
	SiteURL         string

	// Feeds
	FeedsFile        string
	FetchTimeout     time.Duration
	ScheduleInterval time.Duration
	SchedulerEnabled bool

	// AI enrichment
	AIProvider string
	AIModel    string
	AIAPIKey   string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		SQLitePath:       getEnv("SQLITE_PATH", DefaultSQLitePath()),
		Port:             getEnvAsInt("PORT", 8080),
		SiteTitle:        getEnv("SITE_TITLE", "Newsio"),
		SiteDescription:  getEnv("SITE_DESCRIPTION", "Top stories from around the world"),
		SiteURL:          strings.TrimRight(getEnv("SITE_URL", "http://localhost:8080"), "/"),
		FeedsFile:        getEnv("FEEDS_FILE", ""),
		FetchTimeout:     getEnvAsDuration("FETCH_TIMEOUT", 20*time.Second),
		ScheduleInterval: getEnvAsDuration("SCHEDULE_INTERVAL", 5*time.Minute),
		SchedulerEnabled: getEnvAsBool("SCHEDULER_ENABLED", true),
		AIProvider:       strings.ToLower(getEnv("AI_PROVIDER", "claude")),
		AIModel:          getEnv("AI_MODEL", ""),
		AIAPIKey:         getEnv("AI_API_KEY", ""),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.SQLitePath == "" {
		return fmt.Errorf("DATABASE_URL or SQLITE_PATH is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.SchedulerEnabled && c.ScheduleInterval <= 0 {
		return fmt.Errorf("SCHEDULE_INTERVAL must be positive")
	}
	switch c.AIProvider {
	case "claude", "openai":
	default:
		return fmt.Errorf("AI_PROVIDER must be claude or openai, got %q", c.AIProvider)
	}
	return nil
}

// AIEnabled reports whether an API key for the enrichment provider is set.
func (c *Config) AIEnabled() bool {
	return c.AIAPIKey != ""
}

// UsePostgres reports whether the Postgres store is configured.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// DefaultSQLitePath returns the database file location under the XDG data dir.
func DefaultSQLitePath() string {
	return filepath.Join(xdg.DataHome, "newsio", "newsio.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
