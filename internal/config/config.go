// Package config loads, validates, and persists the application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/avoronin/servicem8-relay/internal/constants"
	"github.com/avoronin/servicem8-relay/internal/logger"
)

// Config holds all configuration settings.
type Config struct {
	// Email is the ServiceM8 account email, supplied via the EMAIL environment variable.
	Email string `mapstructure:"email"`
	// Password is the ServiceM8 account password, supplied via the PASSWORD environment variable.
	Password string `mapstructure:"password"`
	// AuthCode is the two-factor authentication code, supplied via the AUTH_CODE environment variable.
	AuthCode string `mapstructure:"auth_code"`
	// AuthToken is the most recently extracted s_auth token (written back after extraction).
	AuthToken string `mapstructure:"auth_token"`
	// WebhookURL is the endpoint the credential record is forwarded to.
	WebhookURL string `mapstructure:"webhook_url"`
	// RecordPath is the file the extracted credential record is written to.
	RecordPath string `mapstructure:"record_path"`
	// CookiesPath is the file browser session cookies are persisted to.
	CookiesPath string `mapstructure:"cookies_path"`
	// FingerprintPath is the file the captured device fingerprint is stored in.
	FingerprintPath string `mapstructure:"fingerprint_path"`
	// ScreenshotsPath is the directory failure screenshots are saved to.
	ScreenshotsPath string `mapstructure:"screenshots_path"`
	// ServerMode runs the browser headless, for execution on a machine without a display.
	// It can be toggled via the SERVER_MODE environment variable.
	ServerMode bool `mapstructure:"server_mode"`
	// LogLevel specifies the logging verbosity level.
	LogLevel string `mapstructure:"log_level"`
	// RequestTimeout bounds the webhook POST (e.g., "30s").
	RequestTimeout string `mapstructure:"request_timeout"`
	// MaxLogBodySize is the maximum request/response body size included in debug logs (e.g., "1MB").
	MaxLogBodySize string `mapstructure:"max_log_body_size"`
	// ServiceM8BaseURL is the base URL of the scraped application (set automatically).
	ServiceM8BaseURL string
	// ParsedLogLevel is the parsed zap log level.
	ParsedLogLevel zapcore.Level
	// ParsedRequestTimeout is the parsed webhook request timeout.
	ParsedRequestTimeout time.Duration
	// ParsedMaxLogBodySize is the parsed maximum logged body size in bytes.
	ParsedMaxLogBodySize uint64
}

const (
	// ServiceM8BaseURL is the base URL for the ServiceM8 web application.
	ServiceM8BaseURL = "https://go.servicem8.com"

	// DefaultConfigFilename is the default name of the configuration file.
	DefaultConfigFilename = ".servicem8-relay.yaml"

	// DefaultRecordPath is the default credential record filename.
	DefaultRecordPath = "result.json"

	// DefaultCookiesPath is the default session cookies filename.
	DefaultCookiesPath = "servicem8_cookies.json"

	// DefaultFingerprintPath is the default device fingerprint filename.
	DefaultFingerprintPath = "device_fingerprint.json"

	// DefaultScreenshotsPath is the default directory for failure screenshots.
	DefaultScreenshotsPath = "screenshots"

	// DefaultRequestTimeout is the default webhook request timeout.
	DefaultRequestTimeout = "30s"

	// DefaultMaxLogBodySize is the default maximum size for logged HTTP bodies.
	DefaultMaxLogBodySize = 1 * 1024 * 1024 // 1 MB
)

// Static error definitions for better error handling.
var (
	// ErrUnknownLogLevel indicates that the log level is not recognized.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrInvalidRequestTimeout indicates that the request timeout is invalid.
	ErrInvalidRequestTimeout = errors.New("request_timeout must be positive")
	// ErrEmptyRecordPath indicates that the credential record path is missing.
	ErrEmptyRecordPath = errors.New("record_path cannot be empty")
)

// LoadConfig loads configuration settings from a YAML file and the environment.
// EMAIL, PASSWORD, AUTH_CODE, and SERVER_MODE are taken from the environment
// and never read from (or written to) the configuration file.
func LoadConfig(configFilename string) (*Config, error) {
	if configFilename == "" {
		configFilename = DefaultConfigFilename
	}

	viper.SetConfigFile(configFilename)

	// Credentials come exclusively from the environment.
	_ = viper.BindEnv("email", "EMAIL")
	_ = viper.BindEnv("password", "PASSWORD")
	_ = viper.BindEnv("auth_code", "AUTH_CODE")
	_ = viper.BindEnv("server_mode", "SERVER_MODE")

	viper.SetDefault("record_path", DefaultRecordPath)
	viper.SetDefault("cookies_path", DefaultCookiesPath)
	viper.SetDefault("fingerprint_path", DefaultFingerprintPath)
	viper.SetDefault("screenshots_path", DefaultScreenshotsPath)
	viper.SetDefault("request_timeout", DefaultRequestTimeout)
	viper.SetDefault("log_level", "info")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config from file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ValidateConfig checks the configuration for validity and sets derived fields.
func ValidateConfig(cfg *Config) error {
	cfg.ServiceM8BaseURL = ServiceM8BaseURL

	parsedLogLevel, isLogLevelCorrect := logger.ParseLogLevel(cfg.LogLevel)
	if !isLogLevelCorrect {
		return fmt.Errorf("%w: '%s'", ErrUnknownLogLevel, cfg.LogLevel)
	}

	cfg.ParsedLogLevel = parsedLogLevel

	if strings.TrimSpace(cfg.RecordPath) == "" {
		return ErrEmptyRecordPath
	}

	parsedRequestTimeout, err := time.ParseDuration(cfg.RequestTimeout)
	if err != nil {
		return fmt.Errorf("failed to parse request timeout: %w", err)
	}

	if parsedRequestTimeout <= 0 {
		return ErrInvalidRequestTimeout
	}

	cfg.ParsedRequestTimeout = parsedRequestTimeout

	maxLogBodySize := strings.TrimSpace(cfg.MaxLogBodySize)
	if maxLogBodySize != "" && maxLogBodySize != "0" {
		cfg.ParsedMaxLogBodySize, err = humanize.ParseBytes(maxLogBodySize)
		if err != nil {
			return fmt.Errorf("failed to parse max log body size: %w", err)
		}
	}

	if cfg.ParsedMaxLogBodySize == 0 {
		cfg.ParsedMaxLogBodySize = DefaultMaxLogBodySize
	}

	return nil
}

// SaveAuthToken persists the extracted auth token to the configuration file
// while preserving the original format and key order.
func SaveAuthToken(cfg *Config) error {
	configFile := getConfigFilePath()

	// Read the original file content.
	originalContent, err := os.ReadFile(configFile)
	if err != nil {
		return handleMissingConfigFile(configFile, cfg.AuthToken, err)
	}

	// Parse YAML while preserving order using yaml.Node.
	var node yaml.Node
	if err = yaml.Unmarshal(originalContent, &node); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Update the auth_token value in the node tree.
	updateAuthTokenInNode(&node, cfg.AuthToken)

	// Marshal back to YAML (preserves order).
	newContent, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err = os.WriteFile(configFile, newContent, constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigFilePath returns the config file path from viper or the default.
func getConfigFilePath() string {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		return DefaultConfigFilename
	}

	return configFile
}

// handleMissingConfigFile creates a new config file if it doesn't exist.
func handleMissingConfigFile(configFile, authToken string, err error) error {
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// File doesn't exist, create it with a fresh viper instance.
	// The global instance carries the env-bound credentials, which must
	// never end up in the configuration file.
	fileSettings := viper.New()
	fileSettings.Set("auth_token", authToken)

	if err = fileSettings.SafeWriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	return nil
}

// updateAuthTokenInNode updates the auth_token value in the YAML node tree.
func updateAuthTokenInNode(node *yaml.Node, authToken string) {
	// The root node is a document node, content[0] is the actual map.
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return
	}

	mapNode := node.Content[0]

	// Iterate through key-value pairs (stored as alternating nodes).
	for i := 0; i < len(mapNode.Content)-1; i += 2 {
		keyNode := mapNode.Content[i]
		valueNode := mapNode.Content[i+1]

		if keyNode.Value == "auth_token" {
			// Update the value while preserving style.
			valueNode.Value = authToken

			// Ensure it's quoted if it contains special characters.
			if valueNode.Style == 0 {
				valueNode.Style = yaml.DoubleQuotedStyle
			}

			return
		}
	}

	// No auth_token key yet, append one to the mapping.
	mapNode.Content = append(mapNode.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: "auth_token"},
		&yaml.Node{Kind: yaml.ScalarNode, Value: authToken, Style: yaml.DoubleQuotedStyle},
	)
}
