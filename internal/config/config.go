// Package config provides environment-based configuration for the outreach
// personalizer service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Service holds the runtime configuration. DatabaseURL is optional: when
// empty, jobs live in an in-process table and die with the process.
type Service struct {
	Port         int    `validate:"required,gt=0,lte=65535"`
	DatabaseURL  string `validate:"omitempty,min=1"`
	GeminiAPIKey string `validate:"required,min=1"`

	// Worker pool sizing. Workers caps concurrent profile fetches.
	Workers    int `validate:"required,gt=0,lte=16"`
	QueueDepth int `validate:"gte=0"`

	// Timeouts for the per-record pipeline and its stages.
	PageTimeout   time.Duration `validate:"required,gt=0"`
	MarkerTimeout time.Duration `validate:"required,gt=0"`
	RecordTimeout time.Duration `validate:"required,gt=0"`

	// ScrapeRatePerSecond throttles outbound fetches across all workers.
	ScrapeRatePerSecond float64 `validate:"required,gt=0"`

	Verbose bool
}

var serviceValidator = validator.New()

// FromEnv reads the service configuration from environment variables,
// applying defaults for everything except the API key.
func FromEnv() (*Service, error) {
	cfg := &Service{
		Port:                getEnvInt("PORT", 8080),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		Workers:             getEnvInt("WORKER_COUNT", 3),
		QueueDepth:          getEnvInt("QUEUE_DEPTH", 64),
		PageTimeout:         getEnvDuration("SCRAPE_PAGE_TIMEOUT", 30*time.Second),
		MarkerTimeout:       getEnvDuration("SCRAPE_MARKER_TIMEOUT", 10*time.Second),
		RecordTimeout:       getEnvDuration("RECORD_TIMEOUT", 2*time.Minute),
		ScrapeRatePerSecond: getEnvFloat("SCRAPE_RATE_PER_SECOND", 1),
		Verbose:             getEnvBool("VERBOSE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration bounds, including the timeout cascade: the
// page timeout must fit inside the record timeout with room for generation.
func (c *Service) Validate() error {
	if err := serviceValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.MarkerTimeout > c.PageTimeout {
		return fmt.Errorf("invalid configuration: marker timeout %v exceeds page timeout %v", c.MarkerTimeout, c.PageTimeout)
	}
	if c.PageTimeout >= c.RecordTimeout {
		return fmt.Errorf("invalid configuration: page timeout %v must be below record timeout %v", c.PageTimeout, c.RecordTimeout)
	}
	return nil
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as a float with a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
