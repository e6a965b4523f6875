package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Application ApplicationConfig `yaml:"application"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Email       EmailConfig       `yaml:"email"`
	SES         SESConfig         `yaml:"ses"`
	AWS         AWSConfig         `yaml:"aws"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                int    `yaml:"port" env:"SERVER_PORT"`
	Host                string `yaml:"host" env:"SERVER_HOST"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

// Addr returns host:port for the listener.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ApplicationConfig holds settings visible to end users.
type ApplicationConfig struct {
	// BaseURL is the public address used in confirmation links.
	BaseURL string `yaml:"base_url" env:"APP_BASE_URL"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL                   string `yaml:"url" env:"DATABASE_URL"`
	MaxOpenConns          int    `yaml:"max_open_conns"`
	MaxIdleConns          int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSecs   int    `yaml:"conn_max_lifetime_seconds"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds"`
	StatementTimeoutMs    int    `yaml:"statement_timeout_ms"`
}

// RedisConfig holds Redis settings. An empty URL disables every Redis-backed
// feature.
type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

// IdempotencyConfig controls how saved responses are stored and guarded.
type IdempotencyConfig struct {
	// Backend is "postgres" or "dynamodb".
	Backend       string `yaml:"backend" env:"IDEMPOTENCY_BACKEND"`
	DynamoDBTable string `yaml:"dynamodb_table" env:"IDEMPOTENCY_DYNAMODB_TABLE"`
	Cache         struct {
		Enabled    bool `yaml:"enabled" env:"IDEMPOTENCY_CACHE_ENABLED"`
		TTLSeconds int  `yaml:"ttl_seconds"`
	} `yaml:"cache"`
	// InFlightLock serializes requests sharing a key. Off by default. The
	// lock is renewed while a publish runs, so LockTTLSeconds only bounds how
	// long a crashed holder blocks retries.
	InFlightLock   bool `yaml:"in_flight_lock" env:"IDEMPOTENCY_IN_FLIGHT_LOCK"`
	LockTTLSeconds int  `yaml:"lock_ttl_seconds"`
	// ReplayOnConflict replays the winner's response when a concurrent save
	// loses. Off by default.
	ReplayOnConflict bool `yaml:"replay_on_conflict" env:"IDEMPOTENCY_REPLAY_ON_CONFLICT"`
}

// CacheTTL returns the saved-response cache TTL.
func (c IdempotencyConfig) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// LockTTL returns the in-flight lock TTL.
func (c IdempotencyConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// EmailConfig selects and configures the outbound email transport.
type EmailConfig struct {
	// Provider is "http" (email API) or "ses".
	Provider           string `yaml:"provider" env:"EMAIL_PROVIDER"`
	Sender             string `yaml:"sender" env:"EMAIL_SENDER"`
	BaseURL            string `yaml:"base_url" env:"EMAIL_BASE_URL"`
	AuthorizationToken string `yaml:"authorization_token" env:"EMAIL_AUTHORIZATION_TOKEN"`
	TimeoutMs          int    `yaml:"timeout_ms"`
}

// Timeout returns the HTTP email client timeout.
func (c EmailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// SESConfig holds AWS SES configuration
type SESConfig struct {
	AccessKey string `yaml:"access_key" env:"AWS_SES_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"AWS_SES_SECRET_KEY"`
	Region    string `yaml:"region" env:"AWS_SES_REGION"`
}

// AWSConfig holds the region and profile for DynamoDB and S3.
type AWSConfig struct {
	Region  string `yaml:"region" env:"AWS_REGION"`
	Profile string `yaml:"profile" env:"AWS_PROFILE"`
}

// ArchiveConfig controls the published-issue archive.
type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ARCHIVE_ENABLED"`
	S3Bucket string `yaml:"s3_bucket" env:"ARCHIVE_S3_BUCKET"`
	Prefix   string `yaml:"prefix"`
}

// AuthConfig holds session settings.
type AuthConfig struct {
	CookieName        string `yaml:"cookie_name"`
	SessionTTLSeconds int    `yaml:"session_ttl_seconds"`
}

// SessionTTL returns the maximum session age accepted.
func (c AuthConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level     string `yaml:"level" env:"LOG_LEVEL"`
	RedactPII bool   `yaml:"redact_pii" env:"LOG_REDACT_PII"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" env:"OTEL_ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Config{Logging: LoggingConfig{RedactPII: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 120
	}
	if cfg.Application.BaseURL == "" {
		cfg.Application.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeSecs == 0 {
		cfg.Database.ConnMaxLifetimeSecs = 300
	}
	if cfg.Database.ConnectTimeoutSeconds == 0 {
		cfg.Database.ConnectTimeoutSeconds = 10
	}
	if cfg.Database.StatementTimeoutMs == 0 {
		cfg.Database.StatementTimeoutMs = 30000
	}
	if cfg.Idempotency.Backend == "" {
		cfg.Idempotency.Backend = "postgres"
	}
	if cfg.Idempotency.DynamoDBTable == "" {
		cfg.Idempotency.DynamoDBTable = "newsletter-idempotency"
	}
	if cfg.Idempotency.Cache.TTLSeconds == 0 {
		cfg.Idempotency.Cache.TTLSeconds = 86400
	}
	if cfg.Idempotency.LockTTLSeconds == 0 {
		cfg.Idempotency.LockTTLSeconds = 30
	}
	if cfg.Email.Provider == "" {
		cfg.Email.Provider = "http"
	}
	if cfg.Email.TimeoutMs == 0 {
		cfg.Email.TimeoutMs = 10000
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-west-2"
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "newsletters"
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "session_id"
	}
	if cfg.Auth.SessionTTLSeconds == 0 {
		cfg.Auth.SessionTTLSeconds = 86400
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "newsletter"
	}
}

// Validate reports settings that cannot work together.
func (cfg *Config) Validate() error {
	switch cfg.Idempotency.Backend {
	case "postgres", "dynamodb":
	default:
		return fmt.Errorf("idempotency.backend must be postgres or dynamodb, got %q", cfg.Idempotency.Backend)
	}
	switch cfg.Email.Provider {
	case "http":
		if cfg.Email.BaseURL == "" {
			return fmt.Errorf("email.base_url is required for the http provider")
		}
	case "ses":
	default:
		return fmt.Errorf("email.provider must be http or ses, got %q", cfg.Email.Provider)
	}
	if cfg.Email.Sender == "" {
		return fmt.Errorf("email.sender is required")
	}
	if cfg.Archive.Enabled && cfg.Archive.S3Bucket == "" {
		return fmt.Errorf("archive.s3_bucket is required when the archive is enabled")
	}
	if cfg.Idempotency.Cache.Enabled && cfg.Redis.URL == "" {
		return fmt.Errorf("idempotency.cache requires redis.url")
	}
	return nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
