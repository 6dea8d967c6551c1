package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Store    StoreConfig
	Resolver ResolverConfig
	Catalog  CatalogConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GracefulShutdownTimeout time.Duration
	AllowedOrigins          []string
	RateLimit               int // requests per minute per client, 0 disables
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type RedisConfig struct {
	URL       string
	Password  string
	DB        int
	KeyPrefix string
}

// StoreConfig selects where the scan ledger is persisted.
type StoreConfig struct {
	Backend    string // file, sqlite, postgres, redis or memory
	Path       string // file backend document
	SQLitePath string
}

// ResolverConfig controls the remote product database lookup.
type ResolverConfig struct {
	Enabled       bool
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	RateLimit     float64 // requests per minute
	MaxConcurrent int
}

type CatalogConfig struct {
	Path string // empty means the embedded catalog
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// Store backends
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// DefaultResolverBaseURL is the Open Food Facts v0 product endpoint.
const DefaultResolverBaseURL = "https://world.openfoodfacts.org/api/v0/product"

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 15*time.Second),
			AllowedOrigins:          getEnvList("SERVER_ALLOWED_ORIGINS", []string{"*"}),
			RateLimit:               getEnvInt("SERVER_RATE_LIMIT", 120),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 4),
			MinConns:        getEnvInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", ""),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "ecoscan:"),
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(getEnv("STORE_BACKEND", BackendFile)),
			Path:       getEnv("STORE_PATH", "./ecoscan-data/ledger.json"),
			SQLitePath: getEnv("SQLITE_PATH", "./ecoscan-data/ecoscan.db"),
		},
		Resolver: ResolverConfig{
			Enabled:       getEnvBool("RESOLVER_ENABLED", true),
			BaseURL:       strings.TrimRight(getEnv("RESOLVER_BASE_URL", DefaultResolverBaseURL), "/"),
			UserAgent:     getEnv("RESOLVER_USER_AGENT", "EcoScan/1.0 (+https://github.com/rajasatyajit/EcoScan)"),
			Timeout:       getEnvDuration("RESOLVER_TIMEOUT", 10*time.Second),
			RateLimit:     getEnvFloat("RESOLVER_RATE_LIMIT", 100),
			MaxConcurrent: getEnvInt("RESOLVER_MAX_CONCURRENT", 4),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server rate limit must not be negative")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Path == "" {
			return fmt.Errorf("file store requires STORE_PATH")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite store requires SQLITE_PATH")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("postgres store requires DATABASE_URL")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("redis store requires REDIS_URL")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	if c.Resolver.Enabled {
		if c.Resolver.BaseURL == "" {
			return fmt.Errorf("resolver base url must be set when the resolver is enabled")
		}
		if c.Resolver.RateLimit <= 0 {
			return fmt.Errorf("resolver rate limit must be positive")
		}
		if c.Resolver.MaxConcurrent < 1 {
			return fmt.Errorf("resolver max concurrent must be at least 1")
		}
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
