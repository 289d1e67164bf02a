package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allVars = []string{
	"PORT", "ALLOWED_ORIGINS", "TEMP_DIR", "ARTIFACT_PUBLIC_BASE_URL", "POLL_INTERVAL",
	"FFMPEG_PATH", "MAX_MEDIA_BYTES",
	"RUNWAY_API_KEY", "RUNWAY_API_BASE_URL", "RUNWAY_API_VERSION",
	"NEXT_PUBLIC_KLING_API_KEY", "KLING_ACCESS_KEY", "KLING_SECRET_KEY", "KLING_API_BASE_URL",
	"NEXT_PUBLIC_VEO_API_KEY", "NEXT_PUBLIC_GEMINI_API_KEY", "VEO_API_BASE_URL",
	"NEXT_PUBLIC_OPENAI_API_KEY", "SORA_API_BASE_URL",
	"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
	"DATABASE_URL", "LOG_FORMAT", "LOG_LEVEL",
}

// clearEnv unsets every variable Load reads and restores them after the test.
// It also moves into an empty directory so no .env file is picked up.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allVars {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "/tmp/concepto-video", cfg.TempDir)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, int64(50<<20), cfg.MaxMediaBytes)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.EnabledVendors())
	assert.False(t, cfg.PostgresEnabled())
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")
	t.Setenv("TEMP_DIR", "/custom/temp")
	t.Setenv("POLL_INTERVAL", "2s")
	t.Setenv("RUNWAY_API_KEY", "rw-key")
	t.Setenv("RUNWAY_API_VERSION", "2025-01-01")
	t.Setenv("KLING_ACCESS_KEY", "ak")
	t.Setenv("KLING_SECRET_KEY", "sk")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "/custom/temp", cfg.TempDir)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "rw-key", cfg.RunwayAPIKey)
	assert.Equal(t, "2025-01-01", cfg.RunwayAPIVersion)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "http://localhost:9000", cfg.S3Endpoint)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"runway", "kling"}, cfg.EnabledVendors())
	assert.True(t, cfg.PostgresEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	// go-envconfig returns an error when parsing fails
	_, err := Load()
	require.Error(t, err)

	t.Setenv("PORT", "8080")
	t.Setenv("POLL_INTERVAL", "soon")
	_, err = Load()
	require.Error(t, err)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	dir, err := os.Getwd()
	require.NoError(t, err)
	content := "NEXT_PUBLIC_OPENAI_API_KEY=from-file\nPORT=9090\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, DotEnvFile), []byte(content), 0600))
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.OpenAIAPIKey)
	assert.Equal(t, 7070, cfg.Port, "environment wins over .env")
	assert.True(t, cfg.SoraEnabled())
}

func TestConfig_VeoAPIKey(t *testing.T) {
	assert.Equal(t, "veo", (&Config{VeoKey: "veo", GeminiKey: "gemini"}).VeoAPIKey())
	assert.Equal(t, "gemini", (&Config{GeminiKey: "gemini"}).VeoAPIKey())
	assert.False(t, (&Config{}).VeoEnabled())
}

func TestConfig_KlingEnabled(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected bool
	}{
		{"api key", Config{KlingAPIKey: "k"}, true},
		{"key pair", Config{KlingAccessKey: "ak", KlingSecretKey: "sk"}, true},
		{"only access key", Config{KlingAccessKey: "ak"}, false},
		{"only secret key", Config{KlingSecretKey: "sk"}, false},
		{"nothing", Config{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.KlingEnabled())
		})
	}
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:           8080,
		RunwayAPIKey:   "secret-key",
		OpenAIAPIKey:   "sk-openai",
		TempDir:        "/tmp/test",
		PollInterval:   10 * time.Second,
		S3Bucket:       "bucket",
		S3Region:       "region",
		DatabaseURL:    "postgres://user:hunter2@db/app",
		LogFormat:      "json",
		LogLevel:       "info",
		AllowedOrigins: []string{"*"},
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "runway")
	assert.Contains(t, str, "/tmp/test")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-key")
	assert.NotContains(t, str, "sk-openai")
	assert.NotContains(t, str, "hunter2")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{
		LogFormat: "json",
		LogLevel:  "info",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)

	// Capture output to verify it's JSON
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	testLogger := slog.New(handler)
	testLogger.Info("test message")

	// Should have JSON structure
	assert.Contains(t, buf.String(), `"msg"`)
	assert.Contains(t, buf.String(), "test message")
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{
		LogFormat: "text",
		LogLevel:  "debug",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
	// Just verify it returns a valid logger
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := &Config{PollInterval: time.Second, VeoKey: "k"}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("no vendor", func(t *testing.T) {
		cfg := &Config{PollInterval: time.Second}
		assert.ErrorIs(t, cfg.Validate(), ErrNoVendorConfigured)
	})

	t.Run("non-positive poll interval", func(t *testing.T) {
		cfg := &Config{VeoKey: "k"}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidPollInterval)
	})

	t.Run("half a kling key pair", func(t *testing.T) {
		cfg := &Config{PollInterval: time.Second, VeoKey: "k", KlingAccessKey: "ak"}
		assert.ErrorIs(t, cfg.Validate(), ErrKlingKeyPairIncomplete)
	})
}
