// Package config provides configuration management for the research analytics service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Store backend names.
const (
	// BackendPostgres reads the graph directly through the pgx pool.
	BackendPostgres = "postgres"
	// BackendPostgREST reads the graph through a PostgREST endpoint.
	BackendPostgREST = "postgrest"
)

// Config holds all configuration for the research analytics service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Store selects and tunes the query backend.
	Store StoreConfig `mapstructure:"store"`
	// Pipeline contains paging, chunking, and cap settings for the aggregation pipeline.
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CORSAllowedOrigins lists the origins allowed by the CORS middleware. "*" allows any.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	// Default is "require". Use "disable" only for local development.
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 20).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 2).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
	// StatementCacheCapacity is the size of the prepared statement cache.
	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// StoreConfig holds query backend configuration.
type StoreConfig struct {
	// Backend is the store implementation (postgres, postgrest).
	Backend string `mapstructure:"backend"`
	// MaxInList is the largest membership list a single query may carry.
	MaxInList int `mapstructure:"max_in_list"`
	// PostgREST contains settings for the postgrest backend.
	PostgREST PostgRESTConfig `mapstructure:"postgrest"`
}

// PostgRESTConfig holds PostgREST backend settings.
type PostgRESTConfig struct {
	// BaseURL is the project URL (e.g. https://xyz.supabase.co).
	BaseURL string `mapstructure:"base_url"`
	// Path is the REST prefix appended to BaseURL (default: /rest/v1).
	Path string `mapstructure:"path"`
	// APIKey is the service key (loaded from RANALYTICS_STORE_POSTGREST_API_KEY env var).
	APIKey string `mapstructure:"-"`
	// Timeout is the timeout for a single REST call.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// Burst is the rate limiter burst size.
	Burst int `mapstructure:"burst"`
	// MaxRetries is the number of transport retries on 429 and 5xx (default: 0).
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base delay between transport retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// PipelineConfig holds aggregation pipeline limits.
type PipelineConfig struct {
	// PageSize is the number of rows requested per page.
	PageSize int `mapstructure:"page_size"`
	// MaxArticleIDs caps the verified article ids collected for a field.
	MaxArticleIDs int `mapstructure:"max_article_ids"`
	// MaxJoinRows caps the rows returned by a single join.
	MaxJoinRows int `mapstructure:"max_join_rows"`
	// MaxScanRows caps per-entity authorship scans.
	MaxScanRows int `mapstructure:"max_scan_rows"`
	// FieldScanMaxRows caps article scans used for field search and counting.
	FieldScanMaxRows int `mapstructure:"field_scan_max_rows"`
	// ChunkSize is the number of ids per membership-filtered join.
	ChunkSize int `mapstructure:"chunk_size"`
	// Concurrency is the number of chunks resolved in parallel.
	Concurrency int `mapstructure:"concurrency"`
	// RequestTimeout bounds a single use case execution.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RANALYTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/research-analytics-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets use mapstructure:"-" and never come from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Store.PostgREST.APIKey = os.Getenv("RANALYTICS_STORE_POSTGREST_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors_allowed_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "ranalytics")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "research_analytics")
	// Use RANALYTICS_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)
	v.SetDefault("database.statement_cache_capacity", 512)

	// Store defaults
	v.SetDefault("store.backend", BackendPostgres)
	v.SetDefault("store.max_in_list", 1000)
	v.SetDefault("store.postgrest.base_url", "")
	v.SetDefault("store.postgrest.path", "/rest/v1")
	v.SetDefault("store.postgrest.timeout", "30s")
	v.SetDefault("store.postgrest.rate_limit", 20.0)
	v.SetDefault("store.postgrest.burst", 20)
	v.SetDefault("store.postgrest.max_retries", 0)
	v.SetDefault("store.postgrest.retry_delay", "500ms")

	// Pipeline defaults
	v.SetDefault("pipeline.page_size", 1000)
	v.SetDefault("pipeline.max_article_ids", 20000)
	v.SetDefault("pipeline.max_join_rows", 20000)
	v.SetDefault("pipeline.max_scan_rows", 5000)
	v.SetDefault("pipeline.field_scan_max_rows", 200000)
	v.SetDefault("pipeline.chunk_size", 500)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.request_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "research_analytics")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	switch strings.ToLower(c.Store.Backend) {
	case BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
		}
	case BackendPostgREST:
		if c.Store.PostgREST.BaseURL == "" {
			return fmt.Errorf("store postgrest base_url is required when backend is %q", BackendPostgREST)
		}
		if _, err := url.ParseRequestURI(c.Store.PostgREST.BaseURL); err != nil {
			return fmt.Errorf("invalid store postgrest base_url: %w", err)
		}
		if c.Store.PostgREST.RateLimit <= 0 {
			return fmt.Errorf("store postgrest rate_limit must be positive")
		}
		if c.Store.PostgREST.MaxRetries < 0 {
			return fmt.Errorf("store postgrest max_retries must not be negative")
		}
	default:
		return fmt.Errorf("invalid store backend: %q", c.Store.Backend)
	}

	if c.Store.MaxInList <= 0 {
		return fmt.Errorf("store max_in_list must be positive")
	}

	p := c.Pipeline
	for name, value := range map[string]int{
		"page_size":           p.PageSize,
		"max_article_ids":     p.MaxArticleIDs,
		"max_join_rows":       p.MaxJoinRows,
		"max_scan_rows":       p.MaxScanRows,
		"field_scan_max_rows": p.FieldScanMaxRows,
		"chunk_size":          p.ChunkSize,
		"concurrency":         p.Concurrency,
	} {
		if value <= 0 {
			return fmt.Errorf("pipeline %s must be positive", name)
		}
	}
	if p.ChunkSize > c.Store.MaxInList {
		return fmt.Errorf("pipeline chunk_size (%d) must be <= store max_in_list (%d)", p.ChunkSize, c.Store.MaxInList)
	}
	if p.RequestTimeout <= 0 {
		return fmt.Errorf("pipeline request_timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics namespace is required when metrics are enabled")
	}

	return nil
}
