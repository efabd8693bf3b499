package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// playwrightSession implements Session on top of a dedicated Playwright
// browser, context and page.
type playwrightSession struct {
	name      string
	browser   playwright.Browser
	context   playwright.BrowserContext
	page      playwright.Page
	createdAt time.Time
}

// Navigate implements Session.
func (s *playwrightSession) Navigate(url string) error {
	waitUntil := playwright.WaitUntilStateDomcontentloaded
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitUntil,
	}); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Click implements Session.
func (s *playwrightSession) Click(locator string, timeout time.Duration) error {
	opts := playwright.PageClickOptions{}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}
	if err := s.page.Click(locator, opts); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// TypeText implements Session. Fill is preferred over per-keystroke typing
// because it works uniformly on inputs, textareas and contenteditable
// surfaces; it falls back to keystroke typing for elements Fill rejects.
func (s *playwrightSession) TypeText(locator, text string) error {
	if err := s.page.Fill(locator, text); err != nil {
		if typeErr := s.page.Type(locator, text, playwright.PageTypeOptions{
			Delay: playwright.Float(30),
		}); typeErr != nil {
			return fmt.Errorf("fill failed: %w", err)
		}
	}
	return nil
}

// SetFiles implements Session.
func (s *playwrightSession) SetFiles(locator string, paths ...string) error {
	if err := s.page.SetInputFiles(locator, paths); err != nil {
		return fmt.Errorf("file attach failed: %w", err)
	}
	return nil
}

// WaitForLocator implements Session.
func (s *playwrightSession) WaitForLocator(locator string, timeout time.Duration) bool {
	state := playwright.WaitForSelectorStateVisible
	_, err := s.page.WaitForSelector(locator, playwright.PageWaitForSelectorOptions{
		State:   state,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return err == nil
}

// Screenshot implements Session. The capture is viewport-only; element
// resolution works on what a user would currently see.
func (s *playwrightSession) Screenshot() ([]byte, error) {
	buf, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

// CurrentURL implements Session.
func (s *playwrightSession) CurrentURL() string {
	return s.page.URL()
}

// VisibleText implements Session.
func (s *playwrightSession) VisibleText() (string, error) {
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("content extraction failed: %w", err)
	}
	return visibleText(html), nil
}
