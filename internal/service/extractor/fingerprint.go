package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avoronin/servicem8-relay/internal/constants"
	"github.com/avoronin/servicem8-relay/internal/logger"
	"github.com/avoronin/servicem8-relay/internal/utils"
)

// Fingerprint is the device identity captured from a live browser session
// and replayed on automated logins so every run looks like the same device.
type Fingerprint struct {
	UserAgent        string   `json:"user_agent"`
	Platform         string   `json:"platform"`
	Language         string   `json:"language"`
	Languages        []string `json:"languages"`
	Timezone         string   `json:"timezone"`
	ScreenResolution string   `json:"screen_resolution"`
	ColorDepth       int      `json:"color_depth"`
	PixelRatio       float64  `json:"pixel_ratio"`
	WebGLVendor      string   `json:"webgl_vendor"`
	WebGLRenderer    string   `json:"webgl_renderer"`
	CapturedAt       string   `json:"captured_at"`
}

// captureFingerprintJS reads the fingerprint fields from the live page.
const captureFingerprintJS = `() => {
	const fp = {
		user_agent: navigator.userAgent,
		platform: navigator.platform,
		language: navigator.language,
		languages: Array.from(navigator.languages || []),
		timezone: Intl.DateTimeFormat().resolvedOptions().timeZone,
		screen_resolution: screen.width + 'x' + screen.height,
		color_depth: screen.colorDepth,
		pixel_ratio: window.devicePixelRatio,
	};

	try {
		const canvas = document.createElement('canvas');
		const gl = canvas.getContext('webgl') || canvas.getContext('experimental-webgl');
		fp.webgl_vendor = gl ? gl.getParameter(gl.VENDOR) : 'unknown';
		fp.webgl_renderer = gl ? gl.getParameter(gl.RENDERER) : 'unknown';
	} catch (e) {
		fp.webgl_vendor = 'unknown';
		fp.webgl_renderer = 'unknown';
	}

	return fp;
}`

// fingerprintSettleDelay lets the page settle before reading fingerprint fields.
const fingerprintSettleDelay = 3 * time.Second

// LoadFingerprint reads a stored fingerprint from the given file.
// A missing file is not an error; it yields a nil fingerprint.
func LoadFingerprint(path string) (*Fingerprint, error) {
	exists, err := utils.IsFileExist(path)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, nil //nolint:nilnil // Absence of a fingerprint is a valid state, not an error.
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read fingerprint file: %w", err)
	}

	var fingerprint Fingerprint
	if err = json.Unmarshal(content, &fingerprint); err != nil {
		return nil, fmt.Errorf("failed to parse fingerprint file: %w", err)
	}

	return &fingerprint, nil
}

// SaveFingerprint writes a fingerprint to the given file.
func SaveFingerprint(path string, fingerprint *Fingerprint) error {
	content, err := json.MarshalIndent(fingerprint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal fingerprint: %w", err)
	}

	if err = os.WriteFile(path, content, constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write fingerprint file: %w", err)
	}

	return nil
}

// CaptureFingerprint opens a browser session on the ServiceM8 login page,
// records the device fingerprint, and saves it to the configured file.
// The browser is always visible so the operator captures their real identity.
func (s *ServiceImpl) CaptureFingerprint(ctx context.Context) (*Fingerprint, error) {
	logger.Info(ctx, "Starting device fingerprint capture")

	// Capture must reflect the operator's real browser identity, not a headless one.
	s.cfg.ServerMode = false

	if err := s.initBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	defer s.cleanup(ctx)

	// Capture in the ServiceM8 context so origin-dependent values match.
	if err := s.page.Navigate(s.cfg.ServiceM8BaseURL); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	if err := s.page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	time.Sleep(fingerprintSettleDelay)

	eval, err := s.page.Eval(captureFingerprintJS)
	if err != nil {
		return nil, fmt.Errorf("failed to read fingerprint: %w", err)
	}

	value := eval.Value

	languages := make([]string, 0, len(value.Get("languages").Arr()))
	for _, language := range value.Get("languages").Arr() {
		languages = append(languages, language.Str())
	}

	fingerprint := &Fingerprint{
		UserAgent:        value.Get("user_agent").Str(),
		Platform:         value.Get("platform").Str(),
		Language:         value.Get("language").Str(),
		Languages:        languages,
		Timezone:         value.Get("timezone").Str(),
		ScreenResolution: value.Get("screen_resolution").Str(),
		ColorDepth:       value.Get("color_depth").Int(),
		PixelRatio:       value.Get("pixel_ratio").Num(),
		WebGLVendor:      value.Get("webgl_vendor").Str(),
		WebGLRenderer:    value.Get("webgl_renderer").Str(),
		CapturedAt:       time.Now().Format(time.RFC3339),
	}

	if err = SaveFingerprint(s.cfg.FingerprintPath, fingerprint); err != nil {
		return nil, err
	}

	logger.Infof(ctx, "Fingerprint saved to %s", s.cfg.FingerprintPath)

	return fingerprint, nil
}
