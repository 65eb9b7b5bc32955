package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	LogLevel     string
	Port         int
	DevMode      bool

	// DefaultRate is the fallback annual rate (percent) used when neither
	// the investment nor the rate history provides one.
	DefaultRate float64

	// Cron schedules (six-field, with seconds) for the background jobs.
	AccrualSchedule  string
	RolloverSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnvAsInt("PORT", 8080),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		DatabasePath:     getEnv("DATABASE_PATH", "./data/core.db"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DefaultRate:      getEnvAsFloat("DEFAULT_RATE", 8),
		AccrualSchedule:  getEnv("ACCRUAL_SCHEDULE", "0 5 0 * * *"),   // daily at 00:05
		RolloverSchedule: getEnv("ROLLOVER_SCHEDULE", "0 30 0 * * *"), // daily at 00:30
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.DefaultRate < 0 || c.DefaultRate > 100 {
		return fmt.Errorf("DEFAULT_RATE must be between 0 and 100 (got %g)", c.DefaultRate)
	}
	if c.AccrualSchedule == "" {
		return fmt.Errorf("ACCRUAL_SCHEDULE is required")
	}
	if c.RolloverSchedule == "" {
		return fmt.Errorf("ROLLOVER_SCHEDULE is required")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
