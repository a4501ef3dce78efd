// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPort is returned when PORT is outside 1-65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidPolling is returned when the poll interval or budget is not positive.
	ErrInvalidPolling = errors.New("config: POLL_INTERVAL_MS and POLL_MAX_ATTEMPTS must be positive")
)

// Config holds all configuration for the application.
// Provider credentials are optional at load time; calls that need a missing
// credential fail individually.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	HTTPTimeoutSec int      `env:"HTTP_TIMEOUT_SEC, default=30" json:"http_timeout_sec"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// DashScope (Wan) settings
	DashScopeAPIKey      string `env:"DASHSCOPE_API_KEY" json:"-"`        // Masked in JSON
	AliModelStudioAPIKey string `env:"ALI_MODEL_STUDIO_API_KEY" json:"-"` // Masked in JSON
	DashScopeBaseURL     string `env:"DASHSCOPE_BASE_URL" json:"dashscope_base_url,omitempty"`
	PollIntervalMS       int    `env:"POLL_INTERVAL_MS, default=3000" json:"poll_interval_ms"`
	PollMaxAttempts      int    `env:"POLL_MAX_ATTEMPTS, default=40" json:"poll_max_attempts"`

	// Gemini settings
	GeminiAPIKey  string `env:"GEMINI_API_KEY" json:"-"` // Masked in JSON
	GeminiModel   string `env:"GEMINI_MODEL, default=gemini-2.5-flash" json:"gemini_model"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" json:"gemini_base_url,omitempty"`

	// Optional Redis session store
	RedisAddr     string `env:"REDIS_ADDR" json:"redis_addr,omitempty"`
	RedisPassword string `env:"REDIS_PASSWORD" json:"-"` // Masked in JSON
	RedisDB       int    `env:"REDIS_DB, default=0" json:"redis_db"`
	JobTTLHours   int    `env:"JOB_TTL_HOURS, default=24" json:"job_ttl_hours"`

	// Optional S3 settings for source image uploads
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON
	UploadURLTTLMin    int    `env:"UPLOAD_URL_TTL_MIN, default=60" json:"upload_url_ttl_min"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// WanAPIKey returns DASHSCOPE_API_KEY, falling back to ALI_MODEL_STUDIO_API_KEY.
func (c *Config) WanAPIKey() string {
	if k := strings.TrimSpace(c.DashScopeAPIKey); k != "" {
		return k
	}
	return strings.TrimSpace(c.AliModelStudioAPIKey)
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// RedisEnabled returns true if a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// PollInterval returns the wait between polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// HTTPTimeout returns the outbound HTTP client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// JobTTL returns how long sessions are kept in Redis. Zero means no expiry.
func (c *Config) JobTTL() time.Duration {
	if c.JobTTLHours <= 0 {
		return 0
	}
	return time.Duration(c.JobTTLHours) * time.Hour
}

// UploadURLTTL returns the lifetime of presigned image URLs.
func (c *Config) UploadURLTTL() time.Duration {
	return time.Duration(c.UploadURLTTLMin) * time.Minute
}

// LoadDotEnv loads variables from the given files (default ".env") without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that numeric settings are usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.PollIntervalMS <= 0 || c.PollMaxAttempts <= 0 {
		return ErrInvalidPolling
	}
	return nil
}

// NewLogger creates a structured logger writing to stdout.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger with an explicit destination.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DashScopeAPIKey: %s, DashScopeBaseURL: %s, PollIntervalMS: %d, PollMaxAttempts: %d, GeminiAPIKey: %s, GeminiModel: %s, RedisAddr: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		mask(c.WanAPIKey()),
		c.DashScopeBaseURL,
		c.PollIntervalMS,
		c.PollMaxAttempts,
		mask(c.GeminiAPIKey),
		c.GeminiModel,
		c.RedisAddr,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// mask reports only whether a secret is present.
func mask(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	return "***"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
