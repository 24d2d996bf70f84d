package record

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSaveAndLoad tests that a credential record survives a write/read cycle.
func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "result.json")

	endpoints := []Endpoint{
		{
			URL:    "https://go.servicem8.com/CalendarStoreRequest?s_cv=&s_auth=deadbeef01",
			Cookie: "sid=abc; region=au",
			SAuth:  "deadbeef01",
		},
		{
			URL:      "https://go.servicem8.com/CalendarStoreRequest?s_cv=&s_auth=cafebabe02",
			Cookie:   "sid=abc; region=au",
			SAuth:    "cafebabe02",
			Fallback: true,
		},
	}

	require.NoError(t, Save(path, endpoints))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, endpoints, loaded)
}

// TestSave_NilRecordWritesEmptyArray tests that nil is persisted as [] rather than null.
func TestSave_NilRecordWritesEmptyArray(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "result.json")

	require.NoError(t, Save(path, nil))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(content))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

// TestSave_OverwritesPreviousRecord tests that each save replaces the prior file.
func TestSave_OverwritesPreviousRecord(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "result.json")

	require.NoError(t, Save(path, []Endpoint{{URL: "https://a", SAuth: "aa"}}))
	require.NoError(t, Save(path, []Endpoint{{URL: "https://b", SAuth: "bb"}}))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "https://b", loaded[0].URL)
}

// TestLoad_MissingFile tests that a missing file yields ErrRecordNotFound.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

// TestLoad_InvalidJSON tests that malformed content is a parse error, not a panic.
func TestLoad_InvalidJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecordNotFound)
}

// TestNewWebhookPayload tests envelope construction.
func TestNewWebhookPayload(t *testing.T) {
	t.Parallel()

	endpoints := []Endpoint{{URL: "https://a", SAuth: "aa"}}

	payload := NewWebhookPayload(endpoints)

	assert.Equal(t, endpoints, payload.ServiceM8Data)
	assert.Equal(t, 1, payload.TotalEndpoints)

	_, err := uuid.Parse(payload.RunID)
	assert.NoError(t, err)

	_, err = time.Parse(time.RFC3339, payload.Timestamp)
	assert.NoError(t, err)
}

// TestNewWebhookPayload_NilRecord tests that a nil record marshals as an empty array.
func TestNewWebhookPayload_NilRecord(t *testing.T) {
	t.Parallel()

	payload := NewWebhookPayload(nil)

	assert.Equal(t, 0, payload.TotalEndpoints)

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"servicem8_data":[]`)
}
