package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

const testConfigContent = `
webhook_url: "https://hooks.example.com/webhook/abc"
record_path: "result.json"
cookies_path: "servicem8_cookies.json"
fingerprint_path: "device_fingerprint.json"
screenshots_path: "screenshots"
log_level: "info"
request_timeout: "30s"
max_log_body_size: "1MB"
auth_token: "old_token"
`

// writeTestConfig writes the given content to a temp config file and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// TestLoadConfig tests loading configuration from a file.
//
//nolint:paralleltest // Cannot run in parallel due to Viper global state.
func TestLoadConfig(t *testing.T) {
	viper.Reset()

	path := writeTestConfig(t, testConfigContent)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://hooks.example.com/webhook/abc", cfg.WebhookURL)
	assert.Equal(t, "result.json", cfg.RecordPath)
	assert.Equal(t, "old_token", cfg.AuthToken)
	assert.Equal(t, "30s", cfg.RequestTimeout)
}

// TestLoadConfig_MissingFile tests that a missing config file is an error.
//
//nolint:paralleltest // Cannot run in parallel due to Viper global state.
func TestLoadConfig_MissingFile(t *testing.T) {
	viper.Reset()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// TestLoadConfig_EnvironmentCredentials tests that EMAIL and PASSWORD come from the environment.
//
//nolint:paralleltest // Cannot run in parallel due to Viper global state and environment.
func TestLoadConfig_EnvironmentCredentials(t *testing.T) {
	viper.Reset()

	t.Setenv("EMAIL", "operator@example.com")
	t.Setenv("PASSWORD", "hunter2")
	t.Setenv("AUTH_CODE", "123456")
	t.Setenv("SERVER_MODE", "true")

	path := writeTestConfig(t, testConfigContent)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "operator@example.com", cfg.Email)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.Equal(t, "123456", cfg.AuthCode)
	assert.True(t, cfg.ServerMode)
}

// TestValidateConfig tests configuration validation and derived fields.
func TestValidateConfig(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		return &Config{
			WebhookURL:      "https://hooks.example.com/webhook/abc",
			RecordPath:      "result.json",
			LogLevel:        "info",
			RequestTimeout:  "30s",
			MaxLogBodySize:  "1MB",
			CookiesPath:     "servicem8_cookies.json",
			FingerprintPath: "device_fingerprint.json",
			ScreenshotsPath: "screenshots",
		}
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectedErr error
		check       func(*testing.T, *Config)
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, ServiceM8BaseURL, cfg.ServiceM8BaseURL)
				assert.Equal(t, zapcore.InfoLevel, cfg.ParsedLogLevel)
				assert.Equal(t, 30*time.Second, cfg.ParsedRequestTimeout)
				assert.Equal(t, uint64(1000*1000), cfg.ParsedMaxLogBodySize)
			},
		},
		{
			name:        "unknown log level",
			mutate:      func(cfg *Config) { cfg.LogLevel = "verbose" },
			expectedErr: ErrUnknownLogLevel,
		},
		{
			name:        "empty record path",
			mutate:      func(cfg *Config) { cfg.RecordPath = "  " },
			expectedErr: ErrEmptyRecordPath,
		},
		{
			name:        "negative request timeout",
			mutate:      func(cfg *Config) { cfg.RequestTimeout = "-5s" },
			expectedErr: ErrInvalidRequestTimeout,
		},
		{
			name:   "invalid request timeout format",
			mutate: func(cfg *Config) { cfg.RequestTimeout = "banana" },
		},
		{
			name:   "invalid max log body size",
			mutate: func(cfg *Config) { cfg.MaxLogBodySize = "lots" },
		},
		{
			name:   "empty max log body size falls back to default",
			mutate: func(cfg *Config) { cfg.MaxLogBodySize = "" },
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, uint64(DefaultMaxLogBodySize), cfg.ParsedMaxLogBodySize)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)

			switch {
			case tt.expectedErr != nil:
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
			case tt.check != nil:
				require.NoError(t, err)
				tt.check(t, cfg)
			default:
				require.Error(t, err)
			}
		})
	}
}

// TestSaveAuthToken tests that saving the token preserves the config file layout.
//
//nolint:paralleltest // Cannot run in parallel due to Viper global state.
func TestSaveAuthToken(t *testing.T) {
	viper.Reset()

	path := writeTestConfig(t, testConfigContent)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	cfg.AuthToken = "fresh_token"
	require.NoError(t, SaveAuthToken(cfg))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(content), `auth_token: "fresh_token"`)
	assert.NotContains(t, string(content), "old_token")

	// Key order must survive the rewrite.
	webhookIdx := strings.Index(string(content), "webhook_url")
	recordIdx := strings.Index(string(content), "record_path")
	assert.Less(t, webhookIdx, recordIdx)
}

// TestSaveAuthToken_AppendsMissingKey tests that a config without auth_token gains one.
//
//nolint:paralleltest // Cannot run in parallel due to Viper global state.
func TestSaveAuthToken_AppendsMissingKey(t *testing.T) {
	viper.Reset()

	path := writeTestConfig(t, "webhook_url: \"https://hooks.example.com/x\"\nlog_level: \"info\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	cfg.AuthToken = "brand_new"
	require.NoError(t, SaveAuthToken(cfg))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `auth_token: "brand_new"`)
}

// TestSaveAuthToken_RecreatedFileOmitsCredentials tests that recreating a lost
// config file never leaks the env-bound credentials into it.
//
//nolint:paralleltest // Cannot run in parallel due to Viper global state and environment.
func TestSaveAuthToken_RecreatedFileOmitsCredentials(t *testing.T) {
	viper.Reset()

	t.Setenv("EMAIL", "operator@example.com")
	t.Setenv("PASSWORD", "hunter2")
	t.Setenv("AUTH_CODE", "123456")

	path := writeTestConfig(t, testConfigContent)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// The file disappearing between load and save forces a recreate.
	require.NoError(t, os.Remove(path))

	cfg.AuthToken = "recreated_token"
	require.NoError(t, SaveAuthToken(cfg))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(content), "recreated_token")
	assert.NotContains(t, string(content), "operator@example.com")
	assert.NotContains(t, string(content), "hunter2")
	assert.NotContains(t, string(content), "123456")
	assert.NotContains(t, string(content), "email")
	assert.NotContains(t, string(content), "password")
}
