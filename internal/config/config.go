// Package config loads and validates the ChorusDesk configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the CHD_ prefix (e.g., CHD_DATABASE_HOST
// overrides database.host in the YAML). This layering allows the same binary to
// run with a config.yaml in local development and with pure environment
// variables in containerized deployments.
//
// The CHD_JWT_SECRET variable is read directly by the auth package rather than
// through this file so secret handling stays in one place.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Audit     AuditConfig     `mapstructure:"audit"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// SecurityConfig holds HTTP security configuration.
type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig holds cross-origin resource sharing configuration.
type CORSConfig struct {
	// AllowedOrigins lists the origins permitted to call the API from a
	// browser. "*" allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// TokenExpiry is the lifetime of issued JWTs.
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
}

// LoggingConfig holds structured-logging configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is "json" or "text".
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds Prometheus exposition configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// PrometheusPort is the side-channel port serving GET /metrics,
	// deliberately separate from the main API listener.
	PrometheusPort int `mapstructure:"prometheus_port"`
}

// AuditConfig holds audit trail configuration.
type AuditConfig struct {
	// RetentionDays is how long audit entries are kept before the retention
	// job removes them. Zero disables the job entirely.
	RetentionDays int `mapstructure:"retention_days"`
	// PurgeIntervalHours is how often the retention job runs.
	PurgeIntervalHours int `mapstructure:"purge_interval_hours"`
	// ShipFilePath, when set, appends each committed entry to this file as a
	// JSON line so an external collector can tail it.
	ShipFilePath string `mapstructure:"ship_file_path"`
	// ShipWebhookURL, when set, POSTs each committed entry to this endpoint.
	ShipWebhookURL string `mapstructure:"ship_webhook_url"`
}

// RateLimitConfig holds request rate-limiting configuration.
type RateLimitConfig struct {
	// Backend is "memory" or "redis". Redis allows limits to be shared
	// across replicas.
	Backend           string      `mapstructure:"backend"`
	RequestsPerMinute int         `mapstructure:"requests_per_minute"`
	BurstSize         int         `mapstructure:"burst_size"`
	Redis             RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection configuration for the rate limiter.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Load reads configuration from the given path (or the default search paths
// when empty), applies environment overrides, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/chorusdesk")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables.
	}

	v.SetEnvPrefix("CHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind environment variables for nested structures.
	// This is necessary because AutomaticEnv() doesn't work well with Unmarshal().
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in sensitive fields so secrets can be
	// injected indirectly.
	cfg.Database.Password = os.ExpandEnv(cfg.Database.Password)
	cfg.RateLimit.Redis.Password = os.ExpandEnv(cfg.RateLimit.Redis.Password)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// bindEnvVars explicitly binds environment variables to config keys.
// viper.BindEnv only errors when called with zero keys; since every key here
// is a non-empty hardcoded string, any error indicates a programming bug and
// is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Server
		"server.host",
		"server.port",
		"server.base_url",
		"server.read_timeout",
		"server.write_timeout",

		// Database
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		// Auth
		"auth.token_expiry",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",

		// Audit
		"audit.retention_days",
		"audit.purge_interval_hours",
		"audit.ship_file_path",
		"audit.ship_webhook_url",

		// Rate limiting
		"rate_limit.backend",
		"rate_limit.requests_per_minute",
		"rate_limit.burst_size",
		"rate_limit.redis.addr",
		"rate_limit.redis.password",
		"rate_limit.redis.db",

		// Security
		"security.cors.allowed_origins",
	}

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var for %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "chorusdesk")
	v.SetDefault("database.user", "chorusdesk")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	v.SetDefault("auth.token_expiry", "12h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)

	v.SetDefault("audit.retention_days", 0) // keep forever by default
	v.SetDefault("audit.purge_interval_hours", 24)
	v.SetDefault("audit.ship_file_path", "")
	v.SetDefault("audit.ship_webhook_url", "")

	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.requests_per_minute", 200)
	v.SetDefault("rate_limit.burst_size", 50)
	v.SetDefault("rate_limit.redis.addr", "localhost:6379")
	v.SetDefault("rate_limit.redis.db", 0)

	v.SetDefault("security.cors.allowed_origins", []string{"*"})
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}

	if c.Audit.RetentionDays < 0 {
		return fmt.Errorf("audit.retention_days must not be negative")
	}
	if c.Audit.PurgeIntervalHours < 1 {
		return fmt.Errorf("audit.purge_interval_hours must be at least 1")
	}

	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid rate_limit.backend: %s (must be memory or redis)", c.RateLimit.Backend)
	}
	if c.RateLimit.Backend == "redis" && c.RateLimit.Redis.Addr == "" {
		return fmt.Errorf("rate_limit.redis.addr is required when using the redis backend")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format.
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
