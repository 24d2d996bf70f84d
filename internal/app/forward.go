package app

import (
	"context"

	"github.com/avoronin/servicem8-relay/internal/config"
	"github.com/avoronin/servicem8-relay/internal/logger"
	"github.com/avoronin/servicem8-relay/internal/service/forwarder"
)

// ExecuteForwardCommand executes the forward command.
// It loads the credential record and delivers it to the configured webhook.
func ExecuteForwardCommand(ctx context.Context, cfg *config.Config) {
	forwarderService := forwarder.NewService(cfg)

	if err := forwarderService.Forward(ctx); err != nil {
		logger.Fatalf(ctx, "Forwarding failed: %v", err)
		return
	}

	logger.Info(ctx, "Credential record forwarded successfully")
}
