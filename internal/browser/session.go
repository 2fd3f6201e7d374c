package browser

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"court_spider/internal/config"
)

// Session wraps a single rod-driven browser page. All scraping is strictly
// sequential over this one page; there is no pooling.
type Session struct {
	browser    *rod.Browser
	page       *rod.Page
	navTimeout time.Duration
	log        *zap.Logger
}

func NewSession(cfg config.BrowserConfig, log *zap.Logger) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser launch: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser connect: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("browser page: %w", err)
	}

	log.Info("browser session ready", zap.Bool("headless", cfg.Headless))
	return &Session{
		browser:    b,
		page:       page,
		navTimeout: time.Duration(cfg.NavTimeoutSec) * time.Second,
		log:        log,
	}, nil
}

// Navigate loads the URL and blocks until the load event fires.
func (s *Session) Navigate(url string) error {
	p := s.page.Timeout(s.navTimeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

// NavigateBack performs a history back navigation, the cheap way to return
// from a results view to the search form.
func (s *Session) NavigateBack() error {
	return s.page.Timeout(s.navTimeout).NavigateBack()
}

// WaitElement blocks until the selector resolves or the nav timeout
// elapses.
func (s *Session) WaitElement(selector string) error {
	_, err := s.page.Timeout(s.navTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// SetValue assigns the field value through JS and fires an input event,
// which is more reliable than keystrokes for date widgets that reformat
// input.
func (s *Session) SetValue(selector, value string) error {
	el, err := s.page.Timeout(s.navTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	_, err = el.Eval(`(v) => { this.value = v; this.dispatchEvent(new Event('input', {bubbles: true})); this.dispatchEvent(new Event('change', {bubbles: true})); }`, value)
	if err != nil {
		return fmt.Errorf("set value on %q: %w", selector, err)
	}
	return nil
}

// TypeValue clears the field and types the text keystroke by keystroke,
// for widgets that only accept typed input.
func (s *Session) TypeValue(selector, text string) error {
	el, err := s.page.Timeout(s.navTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select text in %q: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("type into %q: %w", selector, err)
	}
	return nil
}

// SelectOption picks a <select> option by its value attribute.
func (s *Session) SelectOption(selector, value string) error {
	el, err := s.page.Timeout(s.navTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	opt := fmt.Sprintf(`option[value=%q]`, value)
	if err := el.Select([]string{opt}, true, rod.SelectorTypeCSSSector); err != nil {
		return fmt.Errorf("select %q on %q: %w", value, selector, err)
	}
	return nil
}

// Click dispatches a left click on the selector.
func (s *Session) Click(selector string) error {
	el, err := s.page.Timeout(s.navTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// HTML returns the current full page markup.
func (s *Session) HTML() (string, error) {
	return s.page.HTML()
}

// Screenshot captures the visible viewport as PNG.
func (s *Session) Screenshot() ([]byte, error) {
	return s.page.Screenshot(false, nil)
}

// ElementPNG screenshots a single element, the capture path for CAPTCHA
// images rendered server-side.
func (s *Session) ElementPNG(selector string) ([]byte, error) {
	el, err := s.page.Timeout(s.navTimeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", selector, err)
	}
	if err := el.ScrollIntoView(); err != nil {
		return nil, fmt.Errorf("scroll to %q: %w", selector, err)
	}
	png, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("screenshot %q: %w", selector, err)
	}
	return png, nil
}

// DataURIPNG decodes an element's base64 data-URI src attribute, the
// capture path for CAPTCHAs embedded inline.
func (s *Session) DataURIPNG(selector string) ([]byte, error) {
	el, err := s.page.Timeout(s.navTimeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", selector, err)
	}
	src, err := el.Attribute("src")
	if err != nil {
		return nil, fmt.Errorf("src of %q: %w", selector, err)
	}
	if src == nil || !strings.HasPrefix(*src, "data:image/") {
		return nil, fmt.Errorf("element %q src is not an inline image", selector)
	}
	_, payload, ok := strings.Cut(*src, ",")
	if !ok {
		return nil, fmt.Errorf("element %q src has no data payload", selector)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %q src: %w", selector, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("element %q src decoded empty", selector)
	}
	return raw, nil
}

func (s *Session) Close() error {
	return s.browser.Close()
}
