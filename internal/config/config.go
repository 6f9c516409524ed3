// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the tracker.
type Config struct {
	// Storage
	PostgresDSN   string
	ClickHouseDSN string
	UseMemory     bool

	// Evaluation
	PollInterval         time.Duration
	FetchTimeout         time.Duration
	MaxConcurrentEntries int

	// Classification
	MinDiscountPercent    float64
	PriceTolerancePercent float64

	// Normalization
	TitleMatchThreshold float64

	// Notification
	WebhookURL string

	// Observability
	MetricsAddr string

	// Fixtures for the stub fetchers
	FixturesPath string
}

// Load reads configuration from the environment, consulting a .env file
// first when one exists. Values already set in the environment win.
func Load() (*Config, error) {
	// Missing .env is not an error
	_ = godotenv.Load()

	cfg := &Config{
		PostgresDSN:           os.Getenv("POSTGRES_DSN"),
		ClickHouseDSN:         os.Getenv("CLICKHOUSE_DSN"),
		UseMemory:             getEnvBool("USE_MEMORY", false),
		PollInterval:          time.Duration(getEnvInt("POLL_INTERVAL_HOURS", 6)) * time.Hour,
		FetchTimeout:          time.Duration(getEnvInt("FETCH_TIMEOUT_SEC", 15)) * time.Second,
		MaxConcurrentEntries:  getEnvInt("MAX_CONCURRENT_ENTRIES", 8),
		MinDiscountPercent:    getEnvFloat("MIN_DISCOUNT_PERCENT", 75),
		PriceTolerancePercent: getEnvFloat("PRICE_TOLERANCE_PERCENT", 5),
		TitleMatchThreshold:   getEnvFloat("TITLE_MATCH_THRESHOLD", 0.85),
		WebhookURL:            os.Getenv("WEBHOOK_URL"),
		MetricsAddr:           getEnvOrDefault("METRICS_ADDR", ":9090"),
		FixturesPath:          os.Getenv("FIXTURES_PATH"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. Which storage settings are required is up to
// the binary (the watcher can run in-memory, the CLIs cannot).
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %v", c.FetchTimeout)
	}
	if c.MaxConcurrentEntries < 1 {
		return fmt.Errorf("max concurrent entries must be at least 1, got %d", c.MaxConcurrentEntries)
	}
	if c.MinDiscountPercent < 0 || c.MinDiscountPercent > 100 {
		return fmt.Errorf("min discount percent must be in [0, 100], got %v", c.MinDiscountPercent)
	}
	if c.PriceTolerancePercent < 0 {
		return fmt.Errorf("price tolerance percent must be non-negative, got %v", c.PriceTolerancePercent)
	}
	if c.TitleMatchThreshold <= 0 || c.TitleMatchThreshold > 1 {
		return fmt.Errorf("title match threshold must be in (0, 1], got %v", c.TitleMatchThreshold)
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
