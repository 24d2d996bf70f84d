package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"github.com/avoronin/servicem8-relay/internal/config"
	"github.com/avoronin/servicem8-relay/internal/logger"
	"github.com/avoronin/servicem8-relay/internal/record"
)

const (
	// browserSlowMotionDelay is the delay between browser actions for visibility during debugging.
	browserSlowMotionDelay = 200 * time.Millisecond

	// loginFormTimeout is the maximum time to wait for the login form to appear.
	loginFormTimeout = 15 * time.Second

	// postSubmitDelay is the delay after submitting the login form before checking the outcome.
	postSubmitDelay = 5 * time.Second

	// pageSettleDelay is the delay after navigation to let the page settle.
	pageSettleDelay = 3 * time.Second

	// dynamicContentDelay is the extra wait on the dispatch board for scripts to
	// finish injecting the tokens into page state.
	dynamicContentDelay = 20 * time.Second

	// keystrokeMinDelay is the minimum delay between simulated keystrokes.
	keystrokeMinDelay = 80 * time.Millisecond
	// keystrokeMaxDelay is the maximum delay between simulated keystrokes.
	keystrokeMaxDelay = 160 * time.Millisecond

	// fieldPauseMinDelay is the minimum pause between form fields.
	fieldPauseMinDelay = 1 * time.Second
	// fieldPauseMaxDelay is the maximum pause between form fields.
	fieldPauseMaxDelay = 2 * time.Second

	// browserCleanupDelay is the delay to wait for Chrome to release file locks before cleanup.
	browserCleanupDelay = 500 * time.Millisecond

	// loginFieldEmailSelector is the CSS selector for the email field on the login form.
	loginFieldEmailSelector = "#user_email"
	// loginFieldPasswordSelector is the CSS selector for the password field on the login form.
	loginFieldPasswordSelector = "#user_password"
	// loginSubmitSelector is the CSS selector for the login form submit button.
	loginSubmitSelector = `button[type='submit']`

	// dispatchBoardURI is the URI path of the dispatch board page.
	dispatchBoardURI = "/job_dispatch"

	// serviceM8Domain is the domain the session must stay on.
	serviceM8Domain = "servicem8.com"
)

// Static error definitions for better error handling.
var (
	// ErrMissingCredentials indicates that EMAIL or PASSWORD was not supplied.
	ErrMissingCredentials = errors.New("EMAIL and PASSWORD environment variables are required")

	// ErrLoginFailed is returned when the login form was submitted but the session stayed on the login page.
	ErrLoginFailed = errors.New("login failed - still on login page after submit")

	// ErrLoginFormNotFound is returned when the login form never appeared.
	ErrLoginFormNotFound = errors.New("login form not found")

	// ErrBrowserClosed is returned when the browser terminated unexpectedly.
	ErrBrowserClosed = errors.New("browser was closed unexpectedly")

	// ErrMissingAuthCode is returned when the account asks for a two-factor code but AUTH_CODE was not supplied.
	ErrMissingAuthCode = errors.New("two-factor code required but AUTH_CODE environment variable is not set")

	// ErrTwoFactorInputNotFound is returned when the authentication code input could not be located.
	ErrTwoFactorInputNotFound = errors.New("authentication code input not found")
)

// Service extracts a credential record from a live ServiceM8 session.
type Service interface {
	// Extract logs in, scrapes tokens and cookies, and returns the assembled credential record.
	Extract(ctx context.Context) ([]record.Endpoint, error)
	// CaptureFingerprint opens a browser session and records the device fingerprint.
	CaptureFingerprint(ctx context.Context) (*Fingerprint, error)
}

// ServiceImpl drives the browser-based extraction for ServiceM8.
type ServiceImpl struct {
	cfg     *config.Config
	browser *rod.Browser
	page    *rod.Page
	// fingerprint is the stored device identity applied to the session, nil when none is saved.
	fingerprint *Fingerprint
	// tempDir stores the temporary profile directory for cleanup.
	tempDir string
}

// NewService creates a new browser extraction service.
func NewService(cfg *config.Config) (*ServiceImpl, error) {
	return &ServiceImpl{
		cfg: cfg,
	}, nil
}

// Extract logs into ServiceM8, navigates to the dispatch board, and scrapes
// the s_auth tokens and session cookies into a credential record.
// Any failure before the record is assembled is returned as an error; no
// partial or fabricated record is ever produced.
func (s *ServiceImpl) Extract(ctx context.Context) ([]record.Endpoint, error) {
	logger.Info(ctx, "Starting ServiceM8 credential extraction")

	if s.cfg.Email == "" || s.cfg.Password == "" {
		return nil, ErrMissingCredentials
	}

	fingerprint, err := LoadFingerprint(s.cfg.FingerprintPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load device fingerprint: %w", err)
	}

	s.fingerprint = fingerprint

	if err = s.initBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	defer s.cleanup(ctx)

	if err = s.login(ctx); err != nil {
		s.captureFailureScreenshot(ctx, "login_failed")

		return nil, fmt.Errorf("login failed: %w", err)
	}

	if err = s.navigateToDispatch(ctx); err != nil {
		s.captureFailureScreenshot(ctx, "dispatch_navigation_failed")

		return nil, fmt.Errorf("failed to open dispatch board: %w", err)
	}

	// The dispatch board builds its API URLs in JavaScript after load.
	logger.Info(ctx, "Waiting for dynamic content to load...")
	time.Sleep(dynamicContentDelay)

	tokens, err := s.extractAuthTokens(ctx)
	if err != nil {
		s.captureFailureScreenshot(ctx, "token_extraction_failed")

		return nil, fmt.Errorf("failed to extract tokens: %w", err)
	}

	cookieString, err := s.sessionCookieString(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect session cookies: %w", err)
	}

	endpoints := buildEndpoints(tokens, cookieString)
	if len(endpoints) == 0 {
		logger.Warn(ctx, "No s_auth tokens found on the dispatch board - producing an empty record")
	} else {
		logger.Infof(ctx, "Extracted %d API endpoints", len(endpoints))
	}

	// Persist the session so the next run can skip the login form.
	if err = s.saveCookies(ctx); err != nil {
		logger.Warnf(ctx, "Could not save session cookies: %v", err)
	}

	return endpoints, nil
}
