// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Directory for the market data cache (always absolute)
	UsersServiceURL  string // Users/agents backend
	MarketServiceURL string // Market, paper trading and orders backend
	LogLevel         string
	MarketsFile      string // Optional YAML catalogue overriding the embedded one
	CORSOrigins      []string
	Port             int
	DevMode          bool
	Backend          BackendConfig
	Jobs             JobsConfig
	Tracing          TracingConfig
}

// BackendConfig tunes calls to the external backend
type BackendConfig struct {
	Timeout            time.Duration
	AcceptRefreshDelay time.Duration // Re-list delay after accepting an order
	RejectRefreshDelay time.Duration // Re-list delay after rejecting an order
}

// TracingConfig controls OpenTelemetry span export
type TracingConfig struct {
	Endpoint    string  // OTLP gRPC collector, host:port
	SampleRatio float64 // Fraction of root traces kept, 0..1
	Enabled     bool
	Insecure    bool // Plaintext connection to the collector
}

// JobsConfig holds cron schedules for background jobs
type JobsConfig struct {
	QuoteWarmupSchedule  string
	CacheCleanupSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("PAPERDESK_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("PAPERDESK_PORT", 8090),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		UsersServiceURL:  strings.TrimRight(getEnv("USERS_SERVICE_URL", "http://localhost:8081"), "/"),
		MarketServiceURL: strings.TrimRight(getEnv("MARKET_SERVICE_URL", "http://localhost:8082"), "/"),
		MarketsFile:      getEnv("MARKETS_FILE", ""),
		CORSOrigins:      getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		Backend: BackendConfig{
			Timeout:            getEnvAsDuration("BACKEND_TIMEOUT", 30*time.Second),
			AcceptRefreshDelay: getEnvAsDuration("ACCEPT_REFRESH_DELAY", 2*time.Second),
			RejectRefreshDelay: getEnvAsDuration("REJECT_REFRESH_DELAY", 1500*time.Millisecond),
		},
		Jobs: JobsConfig{
			QuoteWarmupSchedule:  getEnv("QUOTE_WARMUP_SCHEDULE", "@every 5m"),
			CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "@every 1h"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio: getEnvAsFloat("TRACING_SAMPLE_RATIO", 1.0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for name, raw := range map[string]string{
		"USERS_SERVICE_URL":  c.UsersServiceURL,
		"MARKET_SERVICE_URL": c.MarketServiceURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if c.Backend.AcceptRefreshDelay < 0 || c.Backend.RejectRefreshDelay < 0 {
		return fmt.Errorf("refresh delays must not be negative")
	}
	if c.Tracing.Enabled {
		if strings.TrimSpace(c.Tracing.Endpoint) == "" {
			return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when tracing is enabled")
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			return fmt.Errorf("TRACING_SAMPLE_RATIO must be between 0 and 1, got %v", c.Tracing.SampleRatio)
		}
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

// getEnvAsDuration accepts Go durations ("1500ms") or bare milliseconds ("1500")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
