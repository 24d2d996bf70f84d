package app

import (
	"context"

	"github.com/avoronin/servicem8-relay/internal/config"
	"github.com/avoronin/servicem8-relay/internal/logger"
	"github.com/avoronin/servicem8-relay/internal/service/extractor"
)

// ExecuteFingerprintCommand executes the fingerprint command.
// It opens a visible browser, reads the machine's real device identity,
// and saves it so later headless runs can present the same fingerprint.
func ExecuteFingerprintCommand(ctx context.Context, cfg *config.Config) {
	extractorService, err := extractor.NewService(cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize extraction service: %v", err)
		return
	}

	fingerprint, err := extractorService.CaptureFingerprint(ctx)
	if err != nil {
		logger.Fatalf(ctx, "Fingerprint capture failed: %v", err)
		return
	}

	logger.Infof(ctx, "Captured device fingerprint: %s on %s (%s)",
		fingerprint.UserAgent, fingerprint.Platform, fingerprint.Timezone)
	logger.Infof(ctx, "Fingerprint saved to '%s'", cfg.FingerprintPath)
}
