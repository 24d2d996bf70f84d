package extractor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/avoronin/servicem8-relay/internal/constants"
	"github.com/avoronin/servicem8-relay/internal/logger"
	"github.com/avoronin/servicem8-relay/internal/utils"
)

// screenshotTimestampLayout names screenshots by capture time.
const screenshotTimestampLayout = "20060102_150405"

// captureFailureScreenshot saves a screenshot of the current page to help
// diagnose a failed step. Screenshot failures are never fatal.
func (s *ServiceImpl) captureFailureScreenshot(ctx context.Context, description string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf(ctx, "captureFailureScreenshot panic recovered: %v", r)
		}
	}()

	if s.page == nil {
		return
	}

	data, err := s.page.Screenshot(true, nil)
	if err != nil {
		logger.Debugf(ctx, "Could not capture screenshot: %v", err)

		return
	}

	if err = os.MkdirAll(s.cfg.ScreenshotsPath, constants.DefaultFolderPermissions); err != nil {
		logger.Debugf(ctx, "Could not create screenshots directory: %v", err)

		return
	}

	filename := utils.SanitizeFilename(
		time.Now().Format(screenshotTimestampLayout)+"_"+description) + constants.ExtensionPNG
	path := filepath.Join(s.cfg.ScreenshotsPath, filename)

	if err = os.WriteFile(path, data, constants.DefaultFilePermissions); err != nil {
		logger.Debugf(ctx, "Could not write screenshot: %v", err)

		return
	}

	logger.Infof(ctx, "Screenshot saved: %s", path)
}
