package forwarder

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/avoronin/servicem8-relay/internal/config"
	"github.com/avoronin/servicem8-relay/internal/logger"
	"github.com/avoronin/servicem8-relay/internal/record"
	transport "github.com/avoronin/servicem8-relay/internal/transport/http"
	"github.com/avoronin/servicem8-relay/internal/utils"
)

// Static error definitions for better error handling.
var (
	// ErrEmptyWebhookURL indicates that no webhook destination is configured.
	ErrEmptyWebhookURL = errors.New("webhook_url is not configured")
	// ErrWebhookRejected indicates that the webhook answered with a non-2xx status.
	ErrWebhookRejected = errors.New("webhook rejected the credential record")
)

// Service defines the interface for forwarding the credential record.
type Service interface {
	// Forward loads the credential record and delivers it to the webhook.
	Forward(ctx context.Context) error
}

// ServiceImpl implements the Service interface using a resty HTTP client.
type ServiceImpl struct {
	cfg    *config.Config
	client *resty.Client
}

// NewService creates a new webhook forwarding service.
func NewService(cfg *config.Config) *ServiceImpl {
	httpTransport := transport.NewUserAgentInjector(
		transport.NewLogTransport(http.DefaultTransport, cfg.ParsedMaxLogBodySize),
		utils.NewSimpleUserAgentProvider(transport.DefaultUserAgent))

	timeout := cfg.ParsedRequestTimeout
	if timeout <= 0 {
		timeout = transport.DefaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetTransport(httpTransport)

	return &ServiceImpl{
		cfg:    cfg,
		client: client,
	}
}

// Forward reads the credential record from disk, wraps it in a webhook
// payload, and delivers it with a single POST request. The record file is
// required; delivery is attempted exactly once.
func (s *ServiceImpl) Forward(ctx context.Context) error {
	if s.cfg.WebhookURL == "" {
		return ErrEmptyWebhookURL
	}

	endpoints, err := record.Load(s.cfg.RecordPath)
	if err != nil {
		return fmt.Errorf("failed to load credential record from '%s': %w", s.cfg.RecordPath, err)
	}

	payload := record.NewWebhookPayload(endpoints)

	logger.Infof(ctx, "Forwarding %d endpoint(s) to webhook (run %s)",
		payload.TotalEndpoints, payload.RunID)

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(s.cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook request: %w", err)
	}

	if !resp.IsSuccess() {
		// The caller reports the failure; carry the details in the error.
		return fmt.Errorf("%w: status %s, body: %s", ErrWebhookRejected, resp.Status(), resp.String())
	}

	logger.Infof(ctx, "Webhook accepted the record: %s %s", resp.Status(), resp.String())

	return nil
}
