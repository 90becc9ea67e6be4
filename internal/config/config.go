// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultIndices are the dashboard index codes.
var DefaultIndices = []string{"s_sh000300", "int_dji", "int_nasdaq", "int_sp500"}

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases, always absolute
	Port     int
	LogLevel string
	DevMode  bool

	// StreamOriginPatterns are the cross-origin hosts allowed to open the
	// valuation websocket, in path.Match syntax (e.g. "*.example.com").
	StreamOriginPatterns []string

	// Valuation pipeline
	FetchWorkers   int
	AdapterTimeout time.Duration
	BatchDeadline  time.Duration
	QuoteTTL       time.Duration

	// History and directory caches
	HistoryTTL   time.Duration
	DirectoryTTL time.Duration

	// Tick store
	TickRetentionDays int
	PollSchedule      string

	// Diagnosis
	RiskFreeRate      float64
	ScoringRulesFile  string
	DashboardIndices  []string
	GeminiAPIKey      string
	GeminiModel       string
	UpstreamEndpoints UpstreamEndpoints
}

// UpstreamEndpoints override upstream base URLs. Empty means the built-in
// production hosts.
type UpstreamEndpoints struct {
	SinaQuote   string
	SinaSuggest string
	Tiantian    string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("FUNDPULSE_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		Port:                 getEnvAsInt("GO_PORT", 8001),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		StreamOriginPatterns: getEnvAsList("STREAM_ORIGIN_PATTERNS", nil),
		FetchWorkers:         getEnvAsInt("FETCH_WORKERS", 20),
		AdapterTimeout:       getEnvAsDuration("ADAPTER_TIMEOUT", 2*time.Second),
		BatchDeadline:        getEnvAsDuration("BATCH_DEADLINE", 5*time.Second),
		QuoteTTL:             getEnvAsDuration("QUOTE_TTL", 30*time.Second),
		HistoryTTL:           getEnvAsDuration("HISTORY_TTL", time.Hour),
		DirectoryTTL:         getEnvAsDuration("DIRECTORY_TTL", 24*time.Hour),
		TickRetentionDays:    getEnvAsInt("TICK_RETENTION_DAYS", 3),
		PollSchedule:         getEnv("POLL_SCHEDULE", "@every 30s"),
		RiskFreeRate:         getEnvAsFloat("RISK_FREE_RATE", 0.03),
		ScoringRulesFile:     getEnv("SCORING_RULES_FILE", ""),
		DashboardIndices:     getEnvAsList("DASHBOARD_INDICES", DefaultIndices),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		UpstreamEndpoints:    UpstreamEndpoints{
			SinaQuote:   getEnv("SINA_QUOTE_URL", ""),
			SinaSuggest: getEnv("SINA_SUGGEST_URL", ""),
			Tiantian:    getEnv("TIANTIAN_URL", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}
	if c.FetchWorkers <= 0 {
		return fmt.Errorf("FETCH_WORKERS must be positive, got %d", c.FetchWorkers)
	}
	if c.AdapterTimeout <= 0 || c.BatchDeadline <= 0 || c.QuoteTTL <= 0 {
		return fmt.Errorf("ADAPTER_TIMEOUT, BATCH_DEADLINE and QUOTE_TTL must be positive")
	}
	if c.HistoryTTL <= 0 || c.DirectoryTTL <= 0 {
		return fmt.Errorf("HISTORY_TTL and DIRECTORY_TTL must be positive")
	}
	if c.TickRetentionDays < 1 {
		return fmt.Errorf("TICK_RETENTION_DAYS must be at least 1, got %d", c.TickRetentionDays)
	}
	if strings.TrimSpace(c.PollSchedule) == "" {
		return fmt.Errorf("POLL_SCHEDULE must not be empty")
	}
	return nil
}

// AIEnabled reports whether AI commentary is configured
func (c *Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
