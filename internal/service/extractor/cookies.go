package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-rod/rod/lib/proto"

	"github.com/avoronin/servicem8-relay/internal/constants"
	"github.com/avoronin/servicem8-relay/internal/logger"
	"github.com/avoronin/servicem8-relay/internal/utils"
)

// sessionCookieString joins the current session cookies into the
// "name=value; name=value" form the scraped API endpoints expect.
func (s *ServiceImpl) sessionCookieString(ctx context.Context) (string, error) {
	cookies, err := s.page.Cookies(nil)
	if err != nil {
		return "", fmt.Errorf("failed to read cookies: %w", err)
	}

	logger.Debugf(ctx, "Found %d cookies", len(cookies))

	pairs := make([]string, 0, len(cookies))
	for _, cookie := range cookies {
		pairs = append(pairs, cookie.Name+"="+cookie.Value)
	}

	return strings.Join(pairs, "; "), nil
}

// saveCookies persists the current session cookies to the configured file.
func (s *ServiceImpl) saveCookies(ctx context.Context) error {
	cookies, err := s.page.Cookies(nil)
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}

	content, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if err = os.WriteFile(s.cfg.CookiesPath, content, constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write cookies file: %w", err)
	}

	logger.Debugf(ctx, "Saved %d cookies to %s", len(cookies), s.cfg.CookiesPath)

	return nil
}

// restoreCookies loads saved cookies into the browser session.
// It reports whether any cookies were restored.
func (s *ServiceImpl) restoreCookies(ctx context.Context) (bool, error) {
	exists, err := utils.IsFileExist(s.cfg.CookiesPath)
	if err != nil {
		return false, err
	}

	if !exists {
		logger.Debug(ctx, "No cookies file found")

		return false, nil
	}

	content, err := os.ReadFile(filepath.Clean(s.cfg.CookiesPath))
	if err != nil {
		return false, fmt.Errorf("failed to read cookies file: %w", err)
	}

	var cookies []*proto.NetworkCookie
	if err = json.Unmarshal(content, &cookies); err != nil {
		return false, fmt.Errorf("failed to parse cookies file: %w", err)
	}

	if len(cookies) == 0 {
		return false, nil
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, cookie := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   cookie.Domain,
			Path:     cookie.Path,
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HTTPOnly,
		})
	}

	if err = s.page.SetCookies(params); err != nil {
		return false, fmt.Errorf("failed to set cookies: %w", err)
	}

	logger.Debugf(ctx, "Restored %d cookies from %s", len(params), s.cfg.CookiesPath)

	return true, nil
}

// clearSavedCookies removes the cookies file after a failed session resume.
func (s *ServiceImpl) clearSavedCookies(ctx context.Context) {
	if err := os.Remove(s.cfg.CookiesPath); err != nil && !os.IsNotExist(err) {
		logger.Debugf(ctx, "Could not remove cookies file: %v", err)
	}
}
