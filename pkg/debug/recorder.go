// Package debug captures diagnostic artifacts (screenshots, page HTML) when
// debug mode is enabled. Every method is a no-op otherwise, so callers can
// request captures unconditionally at failure points.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ldreader/pkg/browser"
	"ldreader/pkg/config"
	"ldreader/pkg/logger"
)

// Recorder writes failure artifacts under the configured directories.
type Recorder struct {
	enabled       bool
	screenshotDir string
	logsDir       string
	log           logger.Logger
	now           func() time.Time
}

// NewRecorder builds a Recorder from the debug configuration.
func NewRecorder(cfg config.DebugConfig) *Recorder {
	return &Recorder{
		enabled:       cfg.Enabled,
		screenshotDir: cfg.ScreenshotDir,
		logsDir:       cfg.LogsDir,
		log:           logger.GetLogger(),
		now:           time.Now,
	}
}

// Screenshot saves a full-page screenshot named after the account and
// reason. Capture failures are logged, never propagated.
func (r *Recorder) Screenshot(page browser.Page, reason, accountName string) {
	if !r.enabled {
		r.log.WithField("reason", reason).Debug("screenshot skipped, debug disabled")
		return
	}

	data, err := page.Screenshot()
	if err != nil {
		r.log.WithError(err).Warn("failed to take screenshot")
		return
	}
	path, err := r.write(r.screenshotDir, accountName, reason, "png", data)
	if err != nil {
		r.log.WithError(err).Warn("failed to save screenshot")
		return
	}
	r.log.WithField("path", path).Info("screenshot saved")
}

// SaveHTML dumps the current page HTML for offline inspection.
func (r *Recorder) SaveHTML(page browser.Page, reason, accountName string) {
	if !r.enabled {
		r.log.WithField("reason", reason).Debug("HTML dump skipped, debug disabled")
		return
	}

	html, err := page.Content()
	if err != nil {
		r.log.WithError(err).Warn("failed to read page content")
		return
	}
	path, err := r.write(r.logsDir, accountName, reason, "html", []byte(html))
	if err != nil {
		r.log.WithError(err).Warn("failed to save page HTML")
		return
	}
	r.log.WithField("path", path).Info("page HTML saved")
}

func (r *Recorder) write(dir, accountName, reason, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	filename := fmt.Sprintf("%s_%s_%s.%s",
		sanitize(accountName), r.now().Format("20060102_150405"), sanitize(reason), ext)
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

// sanitize maps anything outside [a-zA-Z0-9] to '_' so account names and
// reasons are always safe filename components.
func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
