// Package record defines the credential record produced by the extractor
// and consumed by the forwarder, along with its file persistence and the
// webhook envelope it is shipped in.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/avoronin/servicem8-relay/internal/constants"
)

// Endpoint is a single extracted API endpoint: a ready-to-call URL together
// with the session cookie string and the s_auth token it embeds.
type Endpoint struct {
	// URL is the fully assembled endpoint URL including the s_auth query parameter.
	URL string `json:"url"`
	// Cookie is the session cookie string ("name=value; name=value").
	Cookie string `json:"cookie"`
	// SAuth is the bare s_auth token value.
	SAuth string `json:"s_auth"`
	// Fallback marks entries built from a general token when no endpoint-specific token was found.
	Fallback bool `json:"fallback,omitempty"`
}

// WebhookPayload is the envelope POSTed to the webhook.
type WebhookPayload struct {
	// ServiceM8Data is the credential record itself.
	ServiceM8Data []Endpoint `json:"servicem8_data"`
	// Timestamp is the send time in RFC 3339 format.
	Timestamp string `json:"timestamp"`
	// TotalEndpoints is the number of entries in ServiceM8Data.
	TotalEndpoints int `json:"total_endpoints"`
	// RunID uniquely identifies this forwarding run.
	RunID string `json:"run_id"`
}

// Static error definitions for better error handling.
var (
	// ErrRecordNotFound indicates that the credential record file does not exist.
	ErrRecordNotFound = errors.New("credential record file not found")
)

// NewWebhookPayload wraps a credential record in a webhook envelope.
func NewWebhookPayload(endpoints []Endpoint) *WebhookPayload {
	if endpoints == nil {
		endpoints = []Endpoint{}
	}

	return &WebhookPayload{
		ServiceM8Data:  endpoints,
		Timestamp:      time.Now().Format(time.RFC3339),
		TotalEndpoints: len(endpoints),
		RunID:          uuid.NewString(),
	}
}

// Load reads a credential record from the given file.
// A missing file yields ErrRecordNotFound.
func Load(path string) ([]Endpoint, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, path)
		}

		return nil, fmt.Errorf("failed to read credential record: %w", err)
	}

	var endpoints []Endpoint
	if err = json.Unmarshal(content, &endpoints); err != nil {
		return nil, fmt.Errorf("failed to parse credential record: %w", err)
	}

	return endpoints, nil
}

// Save writes a credential record to the given file, overwriting any previous one.
// A nil record is written as an empty array so downstream consumers never see null.
func Save(path string, endpoints []Endpoint) error {
	if endpoints == nil {
		endpoints = []Endpoint{}
	}

	content, err := json.MarshalIndent(endpoints, "", "   ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential record: %w", err)
	}

	if err = os.WriteFile(path, content, constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write credential record: %w", err)
	}

	return nil
}
