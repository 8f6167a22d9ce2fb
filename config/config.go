// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig
	Anthropic AnthropicConfig
	Trends    TrendsConfig
	RateLimit RateLimitConfig
	History   HistoryConfig
	Metrics   MetricsConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          string
	MasterKey     string
	BodySizeLimit int64
}

// AnthropicConfig holds the model API configuration
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// TrendsConfig holds trend fetching and caching configuration
type TrendsConfig struct {
	TTL           time.Duration
	MaxLimit      int
	SourceTimeout time.Duration

	// RedisURL selects the Redis cache backend when set; empty means the
	// in-memory cache.
	RedisURL string

	// CSVEnabled toggles the primary CSV export source. The RSS source and
	// static fallback are always in the chain.
	CSVEnabled bool
}

// RateLimitConfig holds per-endpoint rate limiter configuration
type RateLimitConfig struct {
	GenerateMax int
	TrendsMax   int
	Window      time.Duration
}

// HistoryConfig holds generation history configuration
type HistoryConfig struct {
	// Storage selects the backend: "memory", "sqlite", or "postgresql".
	Storage       string
	SQLitePath    string
	PostgresURL   string
	MaxConns      int
	RetentionDays int
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// LoggingConfig holds log output configuration
type LoggingConfig struct {
	// Format is "json" or "pretty".
	Format string
	Level  string
}

// Load reads configuration from an optional .env file and the environment.
// Environment variables always win.
func Load() (*Config, error) {
	v := viper.New()

	// Load .env file (optional, won't fail if not found)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("BODY_SIZE_LIMIT", 1<<20)
	v.SetDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514")
	v.SetDefault("TREND_TTL", 600)
	v.SetDefault("TREND_MAX_LIMIT", 480)
	v.SetDefault("TREND_SOURCE_TIMEOUT", 15)
	v.SetDefault("TREND_CSV_ENABLED", true)
	v.SetDefault("RATE_LIMIT_GENERATE", 5)
	v.SetDefault("RATE_LIMIT_TRENDS", 20)
	v.SetDefault("RATE_LIMIT_WINDOW", 60)
	v.SetDefault("HISTORY_STORAGE", "memory")
	v.SetDefault("HISTORY_SQLITE_PATH", ".cache/trendpress.db")
	v.SetDefault("HISTORY_MAX_CONNS", 10)
	v.SetDefault("HISTORY_RETENTION_DAYS", 0)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_ENDPOINT", "/metrics")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Server: ServerConfig{
			Port:          v.GetString("PORT"),
			MasterKey:     v.GetString("MASTER_KEY"),
			BodySizeLimit: v.GetInt64("BODY_SIZE_LIMIT"),
		},
		Anthropic: AnthropicConfig{
			APIKey: v.GetString("ANTHROPIC_API_KEY"),
			Model:  v.GetString("ANTHROPIC_MODEL"),
		},
		Trends: TrendsConfig{
			TTL:           time.Duration(v.GetInt("TREND_TTL")) * time.Second,
			MaxLimit:      v.GetInt("TREND_MAX_LIMIT"),
			SourceTimeout: time.Duration(v.GetInt("TREND_SOURCE_TIMEOUT")) * time.Second,
			RedisURL:      v.GetString("REDIS_URL"),
			CSVEnabled:    v.GetBool("TREND_CSV_ENABLED"),
		},
		RateLimit: RateLimitConfig{
			GenerateMax: v.GetInt("RATE_LIMIT_GENERATE"),
			TrendsMax:   v.GetInt("RATE_LIMIT_TRENDS"),
			Window:      time.Duration(v.GetInt("RATE_LIMIT_WINDOW")) * time.Second,
		},
		History: HistoryConfig{
			Storage:       v.GetString("HISTORY_STORAGE"),
			SQLitePath:    v.GetString("HISTORY_SQLITE_PATH"),
			PostgresURL:   v.GetString("DATABASE_URL"),
			MaxConns:      v.GetInt("HISTORY_MAX_CONNS"),
			RetentionDays: v.GetInt("HISTORY_RETENTION_DAYS"),
		},
		Metrics: MetricsConfig{
			Enabled:  v.GetBool("METRICS_ENABLED"),
			Endpoint: v.GetString("METRICS_ENDPOINT"),
		},
		Logging: LoggingConfig{
			Format: v.GetString("LOG_FORMAT"),
			Level:  v.GetString("LOG_LEVEL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.History.Storage {
	case "memory", "sqlite", "postgresql":
	default:
		return fmt.Errorf("invalid HISTORY_STORAGE %q (valid: memory, sqlite, postgresql)", c.History.Storage)
	}
	if c.History.Storage == "postgresql" && c.History.PostgresURL == "" {
		return fmt.Errorf("DATABASE_URL is required when HISTORY_STORAGE is postgresql")
	}

	switch c.Logging.Format {
	case "json", "pretty":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q (valid: json, pretty)", c.Logging.Format)
	}

	if c.RateLimit.GenerateMax <= 0 || c.RateLimit.TrendsMax <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if c.Trends.TTL <= 0 {
		return fmt.Errorf("TREND_TTL must be positive")
	}

	return nil
}
