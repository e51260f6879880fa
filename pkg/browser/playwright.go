package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"

	"ldreader/pkg/config"
)

// Launcher owns the process-wide Playwright runtime and launches one
// isolated browser per account session.
type Launcher struct {
	pw  *playwright.Playwright
	cfg config.BrowserConfig
}

// NewLauncher installs (if needed) and starts the Playwright runtime.
func NewLauncher(cfg config.BrowserConfig) (*Launcher, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	return &Launcher{pw: pw, cfg: cfg}, nil
}

// NewSession launches a fresh browser with its own context and page. When
// storageStatePath points at an existing snapshot the context restores it,
// otherwise the session starts unauthenticated.
func (l *Launcher) NewSession(storageStatePath string) (*Session, error) {
	browser, err := l.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.cfg.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Locale: playwright.String(l.cfg.Locale),
	}
	if storageStatePath != "" {
		if _, err := os.Stat(storageStatePath); err == nil {
			contextOpts.StorageStatePath = playwright.String(storageStatePath)
		}
	}

	browserCtx, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Session{
		browser: browser,
		context: browserCtx,
		page:    page,
		timeout: l.cfg.NavigationTimeout,
	}, nil
}

// Close stops the Playwright runtime. Sessions must be closed first.
func (l *Launcher) Close() error {
	if l.pw == nil {
		return nil
	}
	if err := l.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	l.pw = nil
	return nil
}

// Session is one account's exclusively-owned browser, context, and page.
// It implements Page and StateSaver.
type Session struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration
}

var _ Page = (*Session)(nil)
var _ StateSaver = (*Session)(nil)

// Navigate loads url, waiting for domcontentloaded like the original bot so
// slow third-party assets do not stall the run.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (s *Session) URL() string {
	return s.page.URL()
}

func (s *Session) Text(selector string) (string, error) {
	element, err := s.page.QuerySelector(selector)
	if err != nil {
		return "", fmt.Errorf("selector query failed: %w", err)
	}
	if element == nil {
		return "", ErrNoElement
	}
	text, err := element.InnerText()
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	return text, nil
}

func (s *Session) Fill(selector, value string) error {
	if err := s.page.Fill(selector, value); err != nil {
		return fmt.Errorf("fill %s failed: %w", selector, err)
	}
	return nil
}

func (s *Session) Click(selector string) error {
	if err := s.page.Click(selector); err != nil {
		return fmt.Errorf("click %s failed: %w", selector, err)
	}
	return nil
}

func (s *Session) ScrollByViewport() error {
	if _, err := s.page.Evaluate("window.scrollBy(0, window.innerHeight)"); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

func (s *Session) WaitForURL(url string, timeout time.Duration) error {
	err := s.page.WaitForURL(url, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait for url %s failed: %w", url, err)
	}
	return nil
}

func (s *Session) Screenshot() ([]byte, error) {
	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

func (s *Session) Content() (string, error) {
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("content extraction failed: %w", err)
	}
	return html, nil
}

// SaveStorageState snapshots cookies and local storage to path.
func (s *Session) SaveStorageState(path string) error {
	if _, err := s.context.StorageState(path); err != nil {
		return fmt.Errorf("failed to save storage state: %w", err)
	}
	return nil
}

// Close releases the page, context, and browser. Errors are ignored so
// cleanup always proceeds to the next resource.
func (s *Session) Close() {
	_ = s.page.Close()
	_ = s.context.Close()
	_ = s.browser.Close()
}
