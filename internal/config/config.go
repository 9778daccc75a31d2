// Package config handles loading and validating configuration. Service
// settings come from environment variables; the scoring model is loaded
// separately from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service-level configuration for the engine.
type Config struct {
	// Polymarket REST APIs
	PolymarketRESTURL string
	GammaAPIURL       string
	TradePollInterval time.Duration
	BookPollInterval  time.Duration
	APIRateLimitRPS   int

	// Markets
	MarketLimit int

	// Positions
	PositionAggInterval time.Duration
	PositionWindowSize  int

	// Scoring
	ScoringConfigPath string
	Sensitivity       float64

	// Database
	DatabaseDSN string

	// Workers
	WorkerCount int

	// HTTP API
	APIPort int

	// UI
	EnableTUI     bool
	UIRefreshRate time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		// Polymarket
		PolymarketRESTURL: getEnv("POLYMARKET_REST_URL", "https://data-api.polymarket.com"),
		GammaAPIURL:       getEnv("GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		TradePollInterval: time.Duration(getEnvInt("TRADE_POLL_INTERVAL_SECONDS", 3)) * time.Second,
		BookPollInterval:  time.Duration(getEnvInt("BOOK_POLL_INTERVAL_SECONDS", 15)) * time.Second,
		APIRateLimitRPS:   getEnvInt("API_RATE_LIMIT_RPS", 5),

		// Markets
		MarketLimit: getEnvInt("MARKET_LIMIT", 50),

		// Positions
		PositionAggInterval: time.Duration(getEnvInt("POSITION_AGG_INTERVAL_SECONDS", 60)) * time.Second,
		PositionWindowSize:  getEnvInt("POSITION_WINDOW_SIZE", 1000),

		// Scoring
		ScoringConfigPath: getEnv("SCORING_CONFIG_PATH", ""),
		Sensitivity:       getEnvFloat("SENSITIVITY", 0.3),

		// Database
		DatabaseDSN: getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=polysentinel port=5432 sslmode=disable"),

		// Workers
		WorkerCount: getEnvInt("WORKER_COUNT", 5),

		// HTTP API
		APIPort: getEnvInt("API_PORT", 8080),

		// UI
		EnableTUI:     getEnvBool("ENABLE_TUI", true),
		UIRefreshRate: time.Duration(getEnvInt("UI_REFRESH_MS", 500)) * time.Millisecond,

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if c.PolymarketRESTURL == "" {
		return fmt.Errorf("POLYMARKET_REST_URL is required")
	}

	if c.GammaAPIURL == "" {
		return fmt.Errorf("GAMMA_API_URL is required")
	}

	if c.TradePollInterval <= 0 {
		return fmt.Errorf("TRADE_POLL_INTERVAL_SECONDS must be positive")
	}

	if c.APIRateLimitRPS < 1 {
		return fmt.Errorf("API_RATE_LIMIT_RPS must be at least 1")
	}

	if c.MarketLimit < 1 {
		return fmt.Errorf("MARKET_LIMIT must be at least 1")
	}

	if c.PositionWindowSize < 1 {
		return fmt.Errorf("POSITION_WINDOW_SIZE must be at least 1")
	}

	if c.Sensitivity < 0 || c.Sensitivity > 1 {
		return fmt.Errorf("SENSITIVITY must be between 0 and 1")
	}

	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}

	if c.APIPort < 1 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535")
	}

	return nil
}

// MaskedDSN returns the database DSN with most characters hidden for logging.
func (c *Config) MaskedDSN() string {
	return maskSecret(c.DatabaseDSN)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as a float64 or returns a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
