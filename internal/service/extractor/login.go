package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/avoronin/servicem8-relay/internal/logger"
	"github.com/avoronin/servicem8-relay/internal/utils"
)

// login establishes an authenticated ServiceM8 session.
// It first tries to resume a previous session from saved cookies and falls
// back to filling in the login form with the configured credentials.
func (s *ServiceImpl) login(ctx context.Context) error {
	logger.Infof(ctx, "Opening %s", s.cfg.ServiceM8BaseURL)

	if err := s.page.Navigate(s.cfg.ServiceM8BaseURL); err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}

	if err := s.page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load login page: %w", err)
	}

	time.Sleep(pageSettleDelay)

	// Saved cookies may carry a still-valid session.
	if s.loginWithCookies(ctx) {
		logger.Info(ctx, "Logged in using saved session cookies")

		return nil
	}

	return s.loginWithForm(ctx)
}

// loginWithCookies tries to resume a session from the saved cookies file.
func (s *ServiceImpl) loginWithCookies(ctx context.Context) bool {
	restored, err := s.restoreCookies(ctx)
	if err != nil {
		logger.Debugf(ctx, "Could not restore saved cookies: %v", err)

		return false
	}

	if !restored {
		return false
	}

	// Reload so the restored cookies take effect.
	if err = s.page.Navigate(s.cfg.ServiceM8BaseURL); err != nil {
		logger.Debugf(ctx, "Navigation after cookie restore failed: %v", err)

		return false
	}

	if err = s.page.WaitLoad(); err != nil {
		return false
	}

	time.Sleep(pageSettleDelay)

	currentURL, err := s.currentURL(ctx)
	if err != nil {
		return false
	}

	if isLoginPage(currentURL) {
		// The saved session is stale; drop it so the next run doesn't retry it.
		logger.Debug(ctx, "Saved cookies are no longer valid, clearing them")
		s.clearSavedCookies(ctx)

		return false
	}

	return true
}

// loginWithForm fills in and submits the credential form.
func (s *ServiceImpl) loginWithForm(ctx context.Context) error {
	logger.Info(ctx, "Logging in with credentials")

	if !s.isBrowserAlive(ctx) {
		return ErrBrowserClosed
	}

	emailField, err := s.page.Timeout(loginFormTimeout).Element(loginFieldEmailSelector)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrLoginFormNotFound, loginFieldEmailSelector)
	}

	if err = s.typeIntoField(emailField, s.cfg.Email); err != nil {
		return fmt.Errorf("failed to enter email: %w", err)
	}

	utils.RandomPause(fieldPauseMinDelay, fieldPauseMaxDelay)

	passwordField, err := s.page.Timeout(loginFormTimeout).Element(loginFieldPasswordSelector)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrLoginFormNotFound, loginFieldPasswordSelector)
	}

	if err = s.typeIntoField(passwordField, s.cfg.Password); err != nil {
		return fmt.Errorf("failed to enter password: %w", err)
	}

	utils.RandomPause(fieldPauseMinDelay, fieldPauseMaxDelay)

	submitButton, err := s.page.Timeout(loginFormTimeout).Element(loginSubmitSelector)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrLoginFormNotFound, loginSubmitSelector)
	}

	if err = submitButton.ScrollIntoView(); err != nil {
		logger.Debugf(ctx, "Could not scroll submit button into view: %v", err)
	}

	if err = submitButton.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click submit button: %w", err)
	}

	time.Sleep(postSubmitDelay)

	// Accounts with two-factor authentication get a code prompt here.
	if err = s.completeTwoFactor(ctx); err != nil {
		return err
	}

	currentURL, err := s.currentURL(ctx)
	if err != nil {
		return fmt.Errorf("failed to read post-login URL: %w", err)
	}

	logger.Debugf(ctx, "Post-login URL: %s", currentURL)

	if isLoginPage(currentURL) {
		return ErrLoginFailed
	}

	logger.Info(ctx, "Login successful")

	return nil
}

// typeIntoField clears an input field and types the value with human-paced keystrokes.
func (s *ServiceImpl) typeIntoField(field *rod.Element, value string) error {
	if err := field.SelectAllText(); err != nil {
		return err
	}

	for _, char := range value {
		if err := field.Input(string(char)); err != nil {
			return err
		}

		utils.RandomPause(keystrokeMinDelay, keystrokeMaxDelay)
	}

	return nil
}

// navigateToDispatch opens the dispatch board where the API tokens live.
func (s *ServiceImpl) navigateToDispatch(ctx context.Context) error {
	dispatchURL := s.cfg.ServiceM8BaseURL + dispatchBoardURI

	logger.Infof(ctx, "Navigating to dispatch board: %s", dispatchURL)

	if err := s.page.Navigate(dispatchURL); err != nil {
		return fmt.Errorf("failed to navigate to dispatch board: %w", err)
	}

	if err := s.page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load dispatch board: %w", err)
	}

	time.Sleep(pageSettleDelay)

	currentURL, err := s.currentURL(ctx)
	if err != nil {
		return err
	}

	// Getting bounced back to the login form means the session is not valid.
	if isLoginPage(currentURL) {
		return ErrLoginFailed
	}

	logger.Debugf(ctx, "Dispatch board loaded: %s", currentURL)

	return nil
}

// isLoginPage reports whether the URL still belongs to the login flow.
// A session is considered established only when the browser is on a
// servicem8.com page that is not a login page.
func isLoginPage(url string) bool {
	lowered := strings.ToLower(url)

	if !strings.Contains(lowered, serviceM8Domain) {
		return true
	}

	return strings.Contains(lowered, "login")
}
