package app

import (
	"context"

	"github.com/avoronin/servicem8-relay/internal/config"
	"github.com/avoronin/servicem8-relay/internal/logger"
	"github.com/avoronin/servicem8-relay/internal/record"
	"github.com/avoronin/servicem8-relay/internal/service/extractor"
)

// ExecuteExtractCommand executes the extract command.
// It drives a browser through the ServiceM8 login, scrapes the session
// tokens and cookies, and writes the credential record to disk.
func ExecuteExtractCommand(ctx context.Context, cfg *config.Config) {
	extractorService, err := extractor.NewService(cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize extraction service: %v", err)
		return
	}

	endpoints, err := extractorService.Extract(ctx)
	if err != nil {
		logger.Fatalf(ctx, "Extraction failed: %v", err)
		return
	}

	// An empty record is still written so downstream consumers see a fresh run.
	if err = record.Save(cfg.RecordPath, endpoints); err != nil {
		logger.Fatalf(ctx, "Failed to save credential record: %v", err)
		return
	}

	logger.Infof(ctx, "Saved %d endpoint(s) to '%s'", len(endpoints), cfg.RecordPath)

	if len(endpoints) == 0 {
		return
	}

	// Keep the freshest token in the configuration file for quick inspection.
	cfg.AuthToken = endpoints[0].SAuth

	if err = config.SaveAuthToken(cfg); err != nil {
		logger.Warnf(ctx, "Failed to update auth token in configuration: %v", err)
		return
	}

	logger.Info(ctx, "Configuration updated with the freshest auth token")
}
