// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
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
	// ErrNoVendorConfigured is returned when no vendor has credentials.
	ErrNoVendorConfigured = errors.New("config: no video vendor configured (set RUNWAY_API_KEY, NEXT_PUBLIC_VEO_API_KEY, NEXT_PUBLIC_OPENAI_API_KEY or Kling keys)")
	// ErrInvalidPollInterval is returned when POLL_INTERVAL is not positive.
	ErrInvalidPollInterval = errors.New("config: POLL_INTERVAL must be positive")
	// ErrKlingKeyPairIncomplete is returned when only one of the Kling access/secret keys is set.
	ErrKlingKeyPairIncomplete = errors.New("config: KLING_ACCESS_KEY and KLING_SECRET_KEY must be set together")
)

// DotEnvFile is loaded by Load when present. Variables already in the
// environment win over the file.
const DotEnvFile = ".env"

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Storage settings
	TempDir               string `env:"TEMP_DIR, default=/tmp/concepto-video" json:"temp_dir"`
	ArtifactPublicBaseURL string `env:"ARTIFACT_PUBLIC_BASE_URL" json:"artifact_public_base_url,omitempty"`

	// Processing settings
	PollInterval  time.Duration `env:"POLL_INTERVAL, default=10s" json:"poll_interval"`
	FFmpegPath    string        `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty"`
	MaxMediaBytes int64         `env:"MAX_MEDIA_BYTES, default=52428800" json:"max_media_bytes"`

	// Runway settings
	RunwayAPIKey     string `env:"RUNWAY_API_KEY" json:"-"` // Masked in JSON
	RunwayBaseURL    string `env:"RUNWAY_API_BASE_URL" json:"runway_base_url,omitempty"`
	RunwayAPIVersion string `env:"RUNWAY_API_VERSION" json:"runway_api_version,omitempty"`

	// Kling settings. A static API key wins over the access/secret pair.
	KlingAPIKey    string `env:"NEXT_PUBLIC_KLING_API_KEY" json:"-"` // Masked in JSON
	KlingAccessKey string `env:"KLING_ACCESS_KEY" json:"-"`          // Masked in JSON
	KlingSecretKey string `env:"KLING_SECRET_KEY" json:"-"`          // Masked in JSON
	KlingBaseURL   string `env:"KLING_API_BASE_URL" json:"kling_base_url,omitempty"`

	// Veo settings. The Gemini key is used when no Veo key is set.
	VeoKey     string `env:"NEXT_PUBLIC_VEO_API_KEY" json:"-"`    // Masked in JSON
	GeminiKey  string `env:"NEXT_PUBLIC_GEMINI_API_KEY" json:"-"` // Masked in JSON
	VeoBaseURL string `env:"VEO_API_BASE_URL" json:"veo_base_url,omitempty"`

	// Sora settings
	OpenAIAPIKey string `env:"NEXT_PUBLIC_OPENAI_API_KEY" json:"-"` // Masked in JSON
	SoraBaseURL  string `env:"SORA_API_BASE_URL" json:"sora_base_url,omitempty"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Optional job persistence
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON, may carry a password

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// PostgresEnabled returns true if jobs should be stored in PostgreSQL.
func (c *Config) PostgresEnabled() bool {
	return c.DatabaseURL != ""
}

// RunwayEnabled returns true if Runway credentials are provided.
func (c *Config) RunwayEnabled() bool {
	return c.RunwayAPIKey != ""
}

// KlingEnabled returns true if a Kling API key or a complete key pair is provided.
func (c *Config) KlingEnabled() bool {
	return c.KlingAPIKey != "" || (c.KlingAccessKey != "" && c.KlingSecretKey != "")
}

// VeoAPIKey returns the Veo key, falling back to the Gemini key.
func (c *Config) VeoAPIKey() string {
	if c.VeoKey != "" {
		return c.VeoKey
	}
	return c.GeminiKey
}

// VeoEnabled returns true if a Veo or Gemini key is provided.
func (c *Config) VeoEnabled() bool {
	return c.VeoAPIKey() != ""
}

// SoraEnabled returns true if an OpenAI key is provided.
func (c *Config) SoraEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// EnabledVendors lists the vendors with credentials, in a stable order.
func (c *Config) EnabledVendors() []string {
	var out []string
	if c.RunwayEnabled() {
		out = append(out, "runway")
	}
	if c.VeoEnabled() {
		out = append(out, "veo")
	}
	if c.SoraEnabled() {
		out = append(out, "sora")
	}
	if c.KlingEnabled() {
		out = append(out, "kling")
	}
	return out
}

// Load reads DotEnvFile when it exists, then configuration from environment
// variables using go-envconfig.
func Load() (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", DotEnvFile, err)
	}

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration can serve at least one vendor.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.KlingAPIKey == "" && (c.KlingAccessKey == "") != (c.KlingSecretKey == "") {
		return ErrKlingKeyPairIncomplete
	}
	if len(c.EnabledVendors()) == 0 {
		return ErrNoVendorConfigured
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, Vendors: %v, TempDir: %s, PollInterval: %s, S3Bucket: %s, S3Region: %s, Postgres: %t, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.EnabledVendors(),
		c.TempDir,
		c.PollInterval,
		c.S3Bucket,
		c.S3Region,
		c.PostgresEnabled(),
		c.LogFormat,
		c.LogLevel,
	)
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
