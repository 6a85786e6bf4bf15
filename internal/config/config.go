// Package config handles application configuration via environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port        int
	BaseURL     string
	Environment string // "development" or "production"

	// Database
	DatabaseURL string

	// CORS
	CORSOrigins []string

	// HTTP limits
	RequestTimeout     time.Duration
	RateLimitPerMinute int

	// Scheduler
	SchedulerEnabled     bool
	CheckIntervalMinutes int

	// Static fetching
	FetchTimeout      time.Duration
	FetchMaxRedirects int
	FetchUserAgent    string

	// Rendered fetching (headless browser)
	RenderTimeout     time.Duration
	RenderIdleWindow  time.Duration
	RenderSettleDelay time.Duration
	ChromePath        string

	// Dynamic-content detection thresholds. A static fetch whose visible
	// text falls below DynamicMinTextBytes, or whose script share of the
	// document exceeds DynamicScriptRatio, is a candidate for re-fetching
	// through the browser.
	DynamicMinTextBytes int
	DynamicScriptRatio  float64

	// Object Storage (S3-compatible, e.g. Tigris) for raw HTML snapshots
	StorageEnabled   bool
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageRegion    string

	// Retention
	CheckRunMaxAge time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "file:shelfwatch.db"),

		// CORS
		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),

		// HTTP limits
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		// Scheduler
		SchedulerEnabled:     getEnvBool("ENABLE_SCHEDULER", true),
		CheckIntervalMinutes: getEnvInt("CHECK_INTERVAL_MINUTES", 30),

		// Static fetching
		FetchTimeout:      getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		FetchMaxRedirects: getEnvInt("FETCH_MAX_REDIRECTS", 10),
		FetchUserAgent:    getEnv("FETCH_USER_AGENT", defaultUserAgent),

		// Rendered fetching
		RenderTimeout:     getEnvDuration("RENDER_TIMEOUT", 60*time.Second),
		RenderIdleWindow:  getEnvDuration("RENDER_IDLE_WINDOW", 500*time.Millisecond),
		RenderSettleDelay: getEnvDuration("RENDER_SETTLE_DELAY", time.Second),
		ChromePath:        getEnv("CHROME_PATH", ""),

		// Dynamic-content detection
		DynamicMinTextBytes: getEnvInt("DYNAMIC_MIN_TEXT_BYTES", 10240),
		DynamicScriptRatio:  getEnvFloat("DYNAMIC_SCRIPT_RATIO", 0.35),

		// Object Storage (Tigris on Fly.io sets AWS_* vars automatically)
		StorageEndpoint:  getEnv("AWS_ENDPOINT_URL_S3", ""),
		StorageAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		StorageSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StorageBucket:    getEnvWithFallback("BUCKET_NAME", "STORAGE_BUCKET", ""),
		StorageRegion:    getEnv("AWS_REGION", "auto"),

		// Retention
		CheckRunMaxAge: getEnvDuration("CHECK_RUN_MAX_AGE", 90*24*time.Hour),
	}

	// Storage is enabled when both a bucket and an endpoint are configured.
	cfg.StorageEnabled = cfg.StorageBucket != "" && cfg.StorageEndpoint != ""

	// Validate
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d", cfg.Port)
	}
	if cfg.CheckIntervalMinutes < 1 {
		return nil, fmt.Errorf("CHECK_INTERVAL_MINUTES must be at least 1, got %d", cfg.CheckIntervalMinutes)
	}
	if cfg.FetchMaxRedirects < 0 {
		return nil, fmt.Errorf("FETCH_MAX_REDIRECTS must not be negative, got %d", cfg.FetchMaxRedirects)
	}
	if cfg.DynamicScriptRatio <= 0 || cfg.DynamicScriptRatio > 1 {
		return nil, fmt.Errorf("DYNAMIC_SCRIPT_RATIO must be in (0, 1], got %v", cfg.DynamicScriptRatio)
	}

	return cfg, nil
}

// CheckInterval returns the scheduler sweep interval as a duration.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvWithFallback(key, fallbackKey, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value := os.Getenv(fallbackKey); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
