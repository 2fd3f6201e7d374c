package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Sink is a write-only debug directory for failed CAPTCHA images, raw model
// responses and page snapshots. Nothing here is ever read back by the
// scraper; it exists for operator inspection.
type Sink struct {
	dir string
	log *zap.Logger
}

func NewSink(dir string, log *zap.Logger) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact dir: %w", err)
	}
	return &Sink{dir: dir, log: log}, nil
}

func (s *Sink) stamp(prefix, label, ext string) string {
	// Nanosecond precision keeps retries within the same second from
	// overwriting each other.
	ts := time.Now().Format("20060102_150405.000000000")
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s_%s.%s", prefix, label, ts, ext))
}

// SaveCaptchaFailure persists the image and the raw/cleaned model response
// for a CAPTCHA the solver rejected.
func (s *Sink) SaveCaptchaFailure(label string, image []byte, raw, cleaned string) {
	imgPath := s.stamp("FAILED_CAPTCHA", label, "png")
	txtPath := s.stamp("FAILED_RESPONSE", label, "txt")
	if err := os.WriteFile(imgPath, image, 0o644); err != nil {
		s.log.Error("failed to save captcha image", zap.Error(err))
		return
	}
	body := fmt.Sprintf("Raw: %q\nCleaned: %q\n", raw, cleaned)
	if err := os.WriteFile(txtPath, []byte(body), 0o644); err != nil {
		s.log.Error("failed to save captcha response", zap.Error(err))
		return
	}
	s.log.Info("saved failed captcha artifacts", zap.String("image", imgPath))
}

// SavePage persists an HTML snapshot taken at an unexpected page state.
func (s *Sink) SavePage(label, html string) {
	path := s.stamp("PAGE", label, "html")
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		s.log.Error("failed to save page snapshot", zap.Error(err))
		return
	}
	s.log.Info("saved page snapshot", zap.String("path", path))
}

// SaveScreenshot persists a PNG screenshot.
func (s *Sink) SaveScreenshot(label string, png []byte) {
	path := s.stamp("SCREEN", label, "png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		s.log.Error("failed to save screenshot", zap.Error(err))
		return
	}
	s.log.Info("saved screenshot", zap.String("path", path))
}
