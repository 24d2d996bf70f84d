package extractor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/avoronin/servicem8-relay/internal/logger"
	http_transport "github.com/avoronin/servicem8-relay/internal/transport/http"
)

// initBrowser initializes the rod browser instance.
func (s *ServiceImpl) initBrowser(ctx context.Context) error {
	logger.Debug(ctx, "Initializing browser")

	// Create a temporary directory for incognito-like session.
	// A fresh profile each run avoids stale state and leftover sessions
	// from earlier extractions.
	tempDir, err := os.MkdirTemp("", "servicem8-relay-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary user data directory: %w", err)
	}

	logger.Debugf(ctx, "Using temporary profile directory: %s", tempDir)

	// Store tempDir for cleanup.
	s.tempDir = tempDir

	browserLauncher := launcher.New().
		// Headless only in server mode, so the operator can watch the session otherwise.
		Headless(s.cfg.ServerMode).
		// Use temporary directory for incognito-like behavior.
		UserDataDir(tempDir).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("window-size", "1920,1080").
		Set("lang", "en-AU").
		Set("user-agent", s.userAgent())

	// Try to find existing Chrome installation first.
	if chromePath, exists := launcher.LookPath(); exists {
		logger.Debugf(ctx, "Using system Chrome installation at: %s", chromePath)
		browserLauncher = browserLauncher.Bin(chromePath)
	} else {
		// Fall back to downloading Chromium.
		logger.Debug(ctx, "System Chrome not found, downloading Chromium")
	}

	if s.cfg.ServerMode {
		logger.Info(ctx, "Running in server mode with headless browser")
	}

	launcherURL := browserLauncher.MustLaunch()

	logger.Debugf(ctx, "Browser launched at: %s", launcherURL)

	// Create browser instance.
	browserInstance := rod.New().ControlURL(launcherURL)

	// Enable trace and slow motion only in debug mode.
	if logger.IsDebugLevel() {
		logger.Debug(ctx, "Debug mode enabled - enabling browser trace and slow motion")

		browserInstance = browserInstance.
			// Enable tracing - logs all CDP events.
			Trace(true).
			// Slow down actions for visibility.
			SlowMotion(browserSlowMotionDelay)
	}

	s.browser = browserInstance.MustConnect()

	// Create a stealth-enabled page so the automated session looks like a regular browser.
	s.page = stealth.MustPage(s.browser)

	if err = s.applyFingerprint(ctx); err != nil {
		logger.Warnf(ctx, "Could not apply device fingerprint: %v", err)
	}

	logger.Debug(ctx, "Browser initialized successfully with stealth mode")

	return nil
}

// userAgent returns the stored fingerprint's user agent, or the shared default.
func (s *ServiceImpl) userAgent() string {
	if s.fingerprint != nil && s.fingerprint.UserAgent != "" {
		return s.fingerprint.UserAgent
	}

	return http_transport.DefaultUserAgent
}

// applyFingerprint replays the stored device identity onto the page so
// repeated automated logins look like the same device.
func (s *ServiceImpl) applyFingerprint(ctx context.Context) error {
	if s.fingerprint == nil {
		logger.Debug(ctx, "No device fingerprint stored, using defaults")

		return nil
	}

	logger.Debugf(ctx, "Applying device fingerprint: %s", s.fingerprint.UserAgent)

	override := &proto.NetworkSetUserAgentOverride{
		UserAgent: s.fingerprint.UserAgent,
	}

	if s.fingerprint.Language != "" {
		override.AcceptLanguage = s.fingerprint.Language
	}

	if s.fingerprint.Platform != "" {
		override.Platform = s.fingerprint.Platform
	}

	if err := override.Call(s.page); err != nil {
		return fmt.Errorf("failed to override user agent: %w", err)
	}

	if s.fingerprint.Timezone != "" {
		timezoneOverride := &proto.EmulationSetTimezoneOverride{
			TimezoneID: s.fingerprint.Timezone,
		}

		if err := timezoneOverride.Call(s.page); err != nil {
			return fmt.Errorf("failed to override timezone: %w", err)
		}
	}

	return nil
}

// isBrowserAlive checks if the browser is still running.
func (s *ServiceImpl) isBrowserAlive(ctx context.Context) bool {
	defer func() {
		// Recover from panic if browser is dead.
		if r := recover(); r != nil {
			logger.Debugf(ctx, "Browser panic recovered: %v", r)
		}
	}()

	// Try to get page info - will panic if browser/page is closed.
	_, err := s.page.Info()

	return err == nil
}

// currentURL safely gets the current page URL.
func (s *ServiceImpl) currentURL(ctx context.Context) (string, error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf(ctx, "currentURL panic recovered: %v", r)
		}
	}()

	info, err := s.page.Info()
	if err != nil {
		return "", err
	}

	return info.URL, nil
}

// cleanup closes the browser and cleans up resources.
func (s *ServiceImpl) cleanup(ctx context.Context) {
	if s.browser != nil {
		// Close browser and wait for it to fully terminate.
		if err := s.browser.Close(); err != nil {
			logger.Debugf(ctx, "Browser close error (expected): %v", err)
		}
	}

	// Clean up temporary profile directory.
	if s.tempDir != "" {
		// Give Chrome a moment to release file locks.
		time.Sleep(browserCleanupDelay)

		if err := os.RemoveAll(s.tempDir); err != nil {
			// This can fail on Windows or if Chrome hasn't fully exited.
			// Not a critical error, so just debug log it.
			logger.Debugf(ctx, "Could not clean up temp directory %s: %v", s.tempDir, err)
		}
	}
}
