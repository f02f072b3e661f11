package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	StoreBackend string `env:"STORE_BACKEND" default:"memory"`
	RedisURL     string `env:"REDIS_URL"`
	StateDir     string `env:"STATE_DIR"`

	// DatabaseURL, when set, moves mood history to Postgres for any backend.
	DatabaseURL string `env:"DATABASE_URL"`

	SessionIdleTimeout      time.Duration `env:"SESSION_IDLE_TIMEOUT" default:"30m"`
	SessionEvictionInterval time.Duration `env:"SESSION_EVICTION_INTERVAL" default:"1m"`

	HistoryDays int `env:"HISTORY_DAYS" default:"30"`

	WriteRateLimit float64 `env:"WRITE_RATE_LIMIT" default:"10"` // requests per second per IP
	WriteRateBurst int     `env:"WRITE_RATE_BURST" default:"20"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendFile:
		if cfg.StateDir == "" {
			return errors.New("STATE_DIR is required when STORE_BACKEND=file")
		}
	case BackendRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required when STORE_BACKEND=redis")
		}
		if _, err := url.Parse(cfg.RedisURL); err != nil {
			return fmt.Errorf("REDIS_URL is not a valid URL: %w", err)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, file, redis, got %q", cfg.StoreBackend)
	}

	if cfg.DatabaseURL != "" {
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			return errors.New("DATABASE_URL must be a postgres:// or postgresql:// URL")
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if cfg.SessionIdleTimeout <= 0 {
		return errors.New("SESSION_IDLE_TIMEOUT must be positive")
	}
	if cfg.SessionEvictionInterval <= 0 {
		return errors.New("SESSION_EVICTION_INTERVAL must be positive")
	}
	if cfg.HistoryDays < 1 {
		return errors.New("HISTORY_DAYS must be at least 1")
	}
	if cfg.WriteRateLimit <= 0 || cfg.WriteRateBurst < 1 {
		return errors.New("WRITE_RATE_LIMIT must be positive and WRITE_RATE_BURST at least 1")
	}

	return nil
}
