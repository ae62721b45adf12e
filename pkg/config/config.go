// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// Cache backends.
const (
	BackendRedis = "redis"
	BackendBolt  = "bolt"
)

// Config holds every runtime setting of the service.
type Config struct {
	// HTTP listener
	Host string `env:"HOST" envDefault:"127.0.0.1"`
	Port int    `env:"PORT" envDefault:"8000"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	// Upstream
	PokeAPIBaseURL string        `env:"POKEAPI_BASE_URL" envDefault:"https://pokeapi.co/api/v2/pokemon"`
	UserAgent      string        `env:"USER_AGENT" envDefault:"pokecache/0.1.0"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	// Cache
	CacheBackend  string        `env:"CACHE_BACKEND" envDefault:"redis"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"0s"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisUsername string        `env:"REDIS_USERNAME"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	BoltPath      string        `env:"BOLT_PATH" envDefault:"pokecache.bbolt"`

	// Charts
	ChartDir    string `env:"CHART_DIR" envDefault:"charts"`
	ChartFormat string `env:"CHART_FORMAT" envDefault:"png"`

	// HTTP behavior
	StrictStatusCodes bool          `env:"STRICT_STATUS_CODES" envDefault:"false"`
	RateLimit         float64       `env:"RATE_LIMIT" envDefault:"100"`
	RateLimitBurst    int           `env:"RATE_LIMIT_BURST" envDefault:"200"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Batch ingest
	BatchConcurrency int `env:"BATCH_CONCURRENCY" envDefault:"4"`
}

// Load parses the process environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be in 1..65535 (got %d)", c.Port)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error (got %q)", c.LogLevel)
	}
	if c.PokeAPIBaseURL == "" {
		return fmt.Errorf("POKEAPI_BASE_URL is required")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("USER_AGENT is required")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive (got %s)", c.HTTPTimeout)
	}
	switch c.CacheBackend {
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	case BackendBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("BOLT_PATH is required for the bolt backend")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be %q or %q (got %q)", BackendRedis, BackendBolt, c.CacheBackend)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative (got %s)", c.CacheTTL)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("REDIS_DB must not be negative (got %d)", c.RedisDB)
	}
	if c.ChartDir == "" {
		return fmt.Errorf("CHART_DIR is required")
	}
	if c.ChartFormat != "png" && c.ChartFormat != "svg" {
		return fmt.Errorf("CHART_FORMAT must be png or svg (got %q)", c.ChartFormat)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive (got %v)", c.RateLimit)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive (got %d)", c.RateLimitBurst)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive (got %s)", c.ShutdownTimeout)
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive (got %d)", c.BatchConcurrency)
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
