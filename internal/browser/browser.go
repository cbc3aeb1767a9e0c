package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/sirupsen/logrus"

	"gigleads/internal/config"
	"gigleads/pkg/utils"
)

// Page is the browser surface the scraping pipeline drives. Session is the
// rod-backed implementation; tests substitute fakes.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	HTML() (string, error)
	CurrentURL() string
	Click(selector string) error
	Fill(selector, value string) error
	Eval(js string) error
	ElementScreenshot(selector string) ([]byte, error)
	Close()
}

// Manager owns one browser process and hands out stealth pages. One page is
// reused for the sequential passes; the email batch acquires extra tabs.
type Manager struct {
	config   *config.Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	mu       sync.Mutex
	logger   *logrus.Logger
}

// Session wraps one page/tab. Close is idempotent and safe on every exit path.
type Session struct {
	page    *rod.Page
	manager *Manager
	mu      sync.Mutex
	closed  bool
}

// NewManager creates a browser manager. The browser is not launched until Start.
func NewManager(cfg *config.Config, logger *logrus.Logger) *Manager {
	l := launcher.New().
		Headless(cfg.Scraper.HeadlessMode).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-gpu").          // prevents GPU context failures in Docker
		Set("disable-dev-shm-usage") // overcomes Docker shared memory limitations

	if chromePath := getSystemChromePath(); chromePath != "" {
		l = l.Bin(chromePath)
		logger.WithField("chrome_path", chromePath).Info("Using system Chrome browser")
	}

	if cfg.Scraper.UserAgent != "" {
		l = l.Set("user-agent", cfg.Scraper.UserAgent)
	}

	return &Manager{
		config:   cfg,
		launcher: l,
		logger:   logger,
	}
}

// Start launches and connects the browser. A failure here is fatal for the
// whole run and is surfaced as a browser-launch error.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		return nil
	}

	url, err := m.launcher.Launch()
	if err != nil {
		return utils.NewBrowserLaunchError(err.Error())
	}

	browser := rod.New().ControlURL(url).Context(ctx)
	if err := browser.Connect(); err != nil {
		return utils.NewBrowserLaunchError(err.Error())
	}

	m.browser = browser
	m.logger.Info("Browser instance launched")
	return nil
}

// Acquire returns a new stealth page. Callers must Close the returned page;
// the usual shape is `defer sess.Close()` right after a successful Acquire.
func (m *Manager) Acquire(ctx context.Context) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return nil, utils.NewBrowserLaunchError("browser not started")
	}

	page, err := m.createStealthPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}

	return &Session{page: page, manager: m}, nil
}

func (m *Manager) createStealthPage() (*rod.Page, error) {
	var page *rod.Page
	var err error

	if m.config.Scraper.StealthMode {
		page, err = stealth.Page(m.browser)
	} else {
		page, err = m.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, err
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.config.Scraper.ViewportWidth,
		Height:            m.config.Scraper.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		m.logger.WithField("error", err.Error()).Warn("Failed to set viewport")
	}

	if m.config.Scraper.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: m.config.Scraper.UserAgent,
		})
		if err != nil {
			m.logger.WithField("error", err.Error()).Warn("Failed to set user agent")
		}
	}

	return page, nil
}

// Cleanup closes the browser process. Safe to call more than once.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if err := rod.Try(func() { m.browser.MustClose() }); err != nil {
			m.logger.WithField("error", err.Error()).Warn("Browser close failed")
		}
		m.browser = nil
	}
	m.launcher.Cleanup()
	m.logger.Info("Browser manager cleanup completed")
}

// Navigate loads a URL and waits for the page load event, bounded by timeout.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := rod.Try(func() {
		s.page.Context(navCtx).MustNavigate(url).MustWaitLoad()
	})
	if err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return utils.NewNavigationTimeoutError(url)
		}
		return utils.NewNavigationError(url, err.Error())
	}
	return nil
}

// HTML returns the full HTML content of the current page.
func (s *Session) HTML() (string, error) {
	html, err := s.page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get page HTML: %w", err)
	}
	return html, nil
}

// CurrentURL returns the page's current location.
func (s *Session) CurrentURL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Click clicks the first element matching the selector.
func (s *Session) Click(selector string) error {
	return rod.Try(func() {
		s.page.Timeout(10 * time.Second).MustElement(selector).MustClick()
	})
}

// Fill replaces the value of the first element matching the selector.
func (s *Session) Fill(selector, value string) error {
	return rod.Try(func() {
		el := s.page.Timeout(10 * time.Second).MustElement(selector)
		el.MustSelectAllText().MustInput(value)
	})
}

// Eval runs a JavaScript snippet in the page context.
func (s *Session) Eval(js string) error {
	return rod.Try(func() {
		s.page.MustEval(js)
	})
}

// ElementScreenshot captures a PNG of the first element matching the selector.
func (s *Session) ElementScreenshot(selector string) ([]byte, error) {
	var data []byte
	err := rod.Try(func() {
		el := s.page.Timeout(10 * time.Second).MustElement(selector)
		data = el.MustScreenshot()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to screenshot element %q: %w", selector, err)
	}
	return data, nil
}

// Close releases the underlying page. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if err := rod.Try(func() { s.page.MustClose() }); err != nil {
		s.manager.logger.WithField("error", err.Error()).Debug("Page close failed")
	}
}

// getSystemChromePath finds the system-installed Chrome/Chromium browser
func getSystemChromePath() string {
	if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		if _, err := os.Stat(chromeBin); err == nil {
			return chromeBin
		}
	}

	commonPaths := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/opt/google/chrome/chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
