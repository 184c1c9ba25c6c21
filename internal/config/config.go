package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Cache     CacheConfig     `json:"cache"`
	Feeds     FeedsConfig     `json:"feeds"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Tracing   TracingConfig   `json:"tracing"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port string `json:"port"`
	Host string `json:"host"`
	// Max request body size in bytes (default: 10MB)
	MaxRequestBodySize int64 `json:"max_request_body_size"`
	// Allowed CORS origins (comma-separated)
	AllowedOrigins string `json:"allowed_origins"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Path string `json:"path"`
}

// CacheConfig selects the feed cache backend.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend       string `json:"backend"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
}

// FeedsConfig holds remote feed configuration.
type FeedsConfig struct {
	// URLs of authorised JSON feeds (comma-separated in env).
	URLs []string `json:"urls"`
	// TTLSeconds is how long a merged feed snapshot is served from cache.
	TTLSeconds int `json:"ttl_seconds"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `json:"enabled"`
	Rate    int  `json:"rate"`
	Window  int  `json:"window"` // in seconds
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"`
	ServiceName string `json:"service_name"`
	Environment string `json:"environment"`
}

// LoadConfig loads configuration from environment variables and/or config file.
// Environment variables take precedence over config file values.
func LoadConfig(configFile string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               "8080",
			Host:               "",
			MaxRequestBodySize: 10 << 20,
			AllowedOrigins:     "*",
		},
		Database: DatabaseConfig{
			Path: "./savvydeals.db",
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
		},
		Feeds: FeedsConfig{
			TTLSeconds: 1800,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    100,
			Window:  60,
		},
		Tracing: TracingConfig{
			ServiceName: "savvydeals-api",
			Environment: "development",
		},
	}

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	overrideFromEnv(cfg)

	return cfg, nil
}

// loadFromFile loads configuration from a JSON file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, cfg)
}

// overrideFromEnv overrides configuration with environment variables.
func overrideFromEnv(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if maxBodySize := os.Getenv("MAX_REQUEST_BODY_SIZE"); maxBodySize != "" {
		if size, err := strconv.ParseInt(maxBodySize, 10, 64); err == nil {
			cfg.Server.MaxRequestBodySize = size
		}
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = origins
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if backend := os.Getenv("CACHE_BACKEND"); backend != "" {
		cfg.Cache.Backend = backend
	}
	if addr := os.Getenv("CACHE_REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if password := os.Getenv("CACHE_REDIS_PASSWORD"); password != "" {
		cfg.Cache.RedisPassword = password
	}
	if db := os.Getenv("CACHE_REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.Cache.RedisDB = n
		}
	}
	if urls := os.Getenv("DEALS_FEED_URLS"); urls != "" {
		cfg.Feeds.URLs = splitList(urls)
	}
	if ttl := os.Getenv("DEALS_FEED_TTL_SECONDS"); ttl != "" {
		if n, err := strconv.Atoi(ttl); err == nil {
			cfg.Feeds.TTLSeconds = n
		}
	}
	if enabled := os.Getenv("RATE_LIMIT_ENABLED"); enabled != "" {
		cfg.RateLimit.Enabled = enabled == "true" || enabled == "1"
	}
	if rate := os.Getenv("RATE_LIMIT_RATE"); rate != "" {
		if r, err := strconv.Atoi(rate); err == nil {
			cfg.RateLimit.Rate = r
		}
	}
	if window := os.Getenv("RATE_LIMIT_WINDOW"); window != "" {
		if w, err := strconv.Atoi(window); err == nil {
			cfg.RateLimit.Window = w
		}
	}
	if enabled := os.Getenv("TRACING_ENABLED"); enabled != "" {
		cfg.Tracing.Enabled = enabled == "true" || enabled == "1"
	}
	if endpoint := os.Getenv("TRACING_ENDPOINT"); endpoint != "" {
		cfg.Tracing.Endpoint = endpoint
	}
	if name := os.Getenv("TRACING_SERVICE_NAME"); name != "" {
		cfg.Tracing.ServiceName = name
	}
	if env := os.Getenv("TRACING_ENVIRONMENT"); env != "" {
		cfg.Tracing.Environment = env
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache backend must be 'memory' or 'redis'")
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("redis address is required for the redis cache backend")
	}
	if c.Feeds.TTLSeconds <= 0 {
		return fmt.Errorf("feed TTL must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}
	return nil
}
