package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/avoronin/servicem8-relay/internal/logger"
)

// twoFactorLookupTimeout bounds the search for each candidate code input.
const twoFactorLookupTimeout = 2 * time.Second

// twoFactorMarkers identify the authentication-code page in its HTML.
//
//nolint:gochecknoglobals // These are immutable marker strings and used as constants.
var twoFactorMarkers = []string{
	"authentication code",
	"enter your authentication",
}

// twoFactorCodeSelectors are tried in order to locate the code input field.
//
//nolint:gochecknoglobals // These are immutable selectors and used as constants.
var twoFactorCodeSelectors = []string{
	"input[type='text']",
	"input[type='number']",
	"input[name*='code']",
	"input[id*='code']",
	"input[placeholder*='code']",
	"input[placeholder*='digit']",
}

// completeTwoFactor fills in the two-factor authentication code when the
// post-submit page asks for one. Accounts without two-factor enabled never
// reach the code page, so a page without the markers is a no-op.
func (s *ServiceImpl) completeTwoFactor(ctx context.Context) error {
	html, err := s.page.HTML()
	if err != nil {
		return fmt.Errorf("failed to read post-submit page: %w", err)
	}

	if !containsTwoFactorMarker(html) {
		logger.Debug(ctx, "No two-factor authentication page detected")

		return nil
	}

	logger.Info(ctx, "Two-factor authentication page detected")

	if s.cfg.AuthCode == "" {
		return ErrMissingAuthCode
	}

	codeField, err := s.findTwoFactorInput()
	if err != nil {
		return err
	}

	if err = s.typeIntoField(codeField, s.cfg.AuthCode); err != nil {
		return fmt.Errorf("failed to enter authentication code: %w", err)
	}

	submitButton, err := s.page.Timeout(loginFormTimeout).Element(loginSubmitSelector)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrLoginFormNotFound, loginSubmitSelector)
	}

	if err = submitButton.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to submit authentication code: %w", err)
	}

	logger.Info(ctx, "Authentication code submitted")

	time.Sleep(postSubmitDelay)

	return nil
}

// findTwoFactorInput locates the authentication code input field.
func (s *ServiceImpl) findTwoFactorInput() (*rod.Element, error) {
	for _, selector := range twoFactorCodeSelectors {
		field, err := s.page.Timeout(twoFactorLookupTimeout).Element(selector)
		if err == nil {
			return field, nil
		}
	}

	return nil, ErrTwoFactorInputNotFound
}

// containsTwoFactorMarker reports whether the page HTML belongs to the
// authentication-code step.
func containsTwoFactorMarker(html string) bool {
	lowered := strings.ToLower(html)

	for _, marker := range twoFactorMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}

	return false
}
