package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/aluiziolira/go-price-sync/config"
)

// stealthScript masks the usual headless-automation markers before any page
// script runs. The overrides mirror what the target site inspects.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => ['es-CL', 'es', 'en'] });
Object.defineProperty(navigator, 'platform', { get: () => 'Win32' });
window.chrome = window.chrome || { runtime: {} };
`

// BrowserStrategy drives a locally controlled headless browser. One browser
// instance is launched lazily and shared by all sessions of a run; each
// session owns a single page so the retry controller can re-use the live tab
// across attempts and recovery clicks.
type BrowserStrategy struct {
	cfg *config.Config

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowserStrategy builds the browser-session strategy from cfg. The
// browser process is not started until the first session is requested.
func NewBrowserStrategy(cfg *config.Config) *BrowserStrategy {
	return &BrowserStrategy{cfg: cfg}
}

func (b *BrowserStrategy) ensureBrowser() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New().Headless(true).NoSandbox(true).Leakless(false)
	if path, exists := launcher.LookPath(); exists {
		l = l.Bin(path)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	b.launcher = l
	b.browser = browser
	return browser, nil
}

// NewSession opens a fresh page with the fingerprint overrides applied.
func (b *BrowserStrategy) NewSession() (Session, error) {
	browser, err := b.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: b.cfg.UserAgent,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("set user agent: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if _, err := page.EvalOnNewDocument(stealthScript); err != nil {
		page.Close()
		return nil, fmt.Errorf("install stealth script: %w", err)
	}

	return &browserSession{
		page:         page,
		wait:         b.cfg.BrowserWait,
		marker:       regexp.QuoteMeta(b.cfg.MarkerText),
		retryControl: regexp.QuoteMeta(b.cfg.RetryControl),
	}, nil
}

// Close shuts the shared browser down.
func (b *BrowserStrategy) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	if b.launcher != nil {
		b.launcher.Kill()
	}
	b.browser = nil
	b.launcher = nil
	return err
}

// browserSession wraps one live page for the lifetime of one product.
type browserSession struct {
	page         *rod.Page
	wait         time.Duration
	marker       string
	retryControl string

	current   string // URL of the page currently loaded
	recovered bool   // retry control was clicked; next fetch re-waits in place
}

// Fetch loads the URL and waits for visibility of the marker element before
// snapshotting the rendered HTML. Navigation is skipped only when a recovery
// click just happened on the same page: the click replaces the reload, so the
// fetch re-waits on the live page. A plain retry always re-navigates, since
// the stale page already failed to become ready once.
func (s *browserSession) Fetch(ctx context.Context, url string) (*Page, error) {
	start := time.Now()
	page := s.page.Context(ctx)

	if shouldNavigate(s.current, url, s.recovered) {
		if err := page.Timeout(s.wait).Navigate(url); err != nil {
			return nil, classify(fmt.Errorf("navigate: %w", err))
		}
		s.current = url
	}
	s.recovered = false

	el, err := page.Timeout(s.wait).ElementR("*", s.marker)
	if err != nil {
		return nil, TimeoutError{Err: fmt.Errorf("wait for price element: %w", err)}
	}
	if err := el.Timeout(s.wait).WaitVisible(); err != nil {
		return nil, TimeoutError{Err: fmt.Errorf("price element not visible: %w", err)}
	}

	content, err := page.HTML()
	if err != nil {
		return nil, classify(fmt.Errorf("read page html: %w", err))
	}

	return &Page{
		HTML:    content,
		URL:     url,
		Elapsed: time.Since(start),
	}, nil
}

// Recover clicks the page's retry control when one is visible. It reports
// whether the click happened; the caller re-fetches on the same session
// afterwards.
func (s *browserSession) Recover(ctx context.Context) bool {
	page := s.page.Context(ctx)

	el, err := page.Timeout(3 * time.Second).ElementR("button", s.retryControl)
	if err != nil {
		return false
	}
	if visible, err := el.Visible(); err != nil || !visible {
		return false
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		slog.Debug("retry control click failed", slog.Any("error", err))
		return false
	}
	s.recovered = true
	return true
}

// shouldNavigate decides whether a fetch must (re)load the page. Only a
// fetch that directly follows a successful recovery click on the same URL
// may skip navigation.
func shouldNavigate(current, url string, recovered bool) bool {
	return current != url || !recovered
}

// Screenshot persists the current page state as a PNG.
func (s *browserSession) Screenshot(path string) error {
	data, err := s.page.Screenshot(false, nil)
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}

func (s *browserSession) Close() error {
	return s.page.Close()
}
