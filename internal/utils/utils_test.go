package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSanitizeFilename tests the SanitizeFilename function.
func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "clean name",
			input:    "20250830_120000_login_failed",
			expected: "20250830_120000_login_failed",
		},
		{
			name:     "invalid characters replaced",
			input:    `shot:at/12"30`,
			expected: "shot_at_12_30",
		},
		{
			name:     "windows reserved name",
			input:    "CON.png",
			expected: "_CON.png",
		},
		{
			name:     "trailing dots removed",
			input:    "screenshot...",
			expected: "screenshot",
		},
		{
			name:     "only invalid characters",
			input:    "...",
			expected: "_",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

// TestIsFileExist tests the IsFileExist function.
func TestIsFileExist(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()

	existingFile := filepath.Join(tempDir, "present.json")
	require.NoError(t, os.WriteFile(existingFile, []byte("{}"), 0o600))

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{
			name:     "existing file",
			path:     existingFile,
			expected: true,
		},
		{
			name:     "missing file",
			path:     filepath.Join(tempDir, "absent.json"),
			expected: false,
		},
		{
			name:     "directory is not a file",
			path:     tempDir,
			expected: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exists, err := IsFileExist(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, exists)
		})
	}
}

// TestExtractNamedGroup tests the ExtractNamedGroup function.
func TestExtractNamedGroup(t *testing.T) {
	t.Parallel()

	re := regexp.MustCompile(`s_auth=(?P<token>[a-f0-9]+)`)

	tests := []struct {
		name     string
		group    string
		input    string
		expected string
	}{
		{
			name:     "token present",
			group:    "token",
			input:    "https://go.servicem8.com/CalendarStoreRequest?s_auth=deadbeef01",
			expected: "deadbeef01",
		},
		{
			name:     "no match",
			group:    "token",
			input:    "no tokens here",
			expected: "",
		},
		{
			name:     "unknown group name",
			group:    "missing",
			input:    "s_auth=deadbeef01",
			expected: "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, ExtractNamedGroup(re, tt.group, tt.input))
		})
	}
}

// TestIsTextContentType tests the IsTextContentType function.
func TestIsTextContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		expected    bool
	}{
		{
			name:        "plain text",
			contentType: "text/plain",
			expected:    true,
		},
		{
			name:        "json",
			contentType: "application/json",
			expected:    true,
		},
		{
			name:        "json with utf-8 charset",
			contentType: "application/json; charset=utf-8",
			expected:    true,
		},
		{
			name:        "binary",
			contentType: "application/octet-stream",
			expected:    false,
		},
		{
			name:        "invalid",
			contentType: "",
			expected:    false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, IsTextContentType(tt.contentType))
		})
	}
}

// TestRandomPause tests that RandomPause sleeps within the expected bounds.
func TestRandomPause(t *testing.T) {
	t.Parallel()

	start := time.Now()

	RandomPause(10*time.Millisecond, 20*time.Millisecond)

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
}

// TestSimpleUserAgentProvider tests the SimpleUserAgentProvider implementation.
func TestSimpleUserAgentProvider(t *testing.T) {
	t.Parallel()

	provider := NewSimpleUserAgentProvider("test-agent")
	assert.Equal(t, "test-agent", provider.GetUserAgent())
}
