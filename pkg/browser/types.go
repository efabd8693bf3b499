// Package browser manages Playwright-backed browser sessions.
//
// Each posting run acquires one isolated session per platform. Sessions are
// never shared across platforms so cookies and fingerprint state from one
// platform can not bleed into another.
package browser

import "time"

// Session is the capability surface consumed by the resolver and poster
// layers. Implementations must treat every wait as bounded; an unbounded
// wait hangs the whole run.
type Session interface {
	// Navigate loads the given URL and waits for the page to settle.
	Navigate(url string) error

	// Click clicks the element matching the locator, waiting up to
	// timeout for it to become actionable.
	Click(locator string, timeout time.Duration) error

	// TypeText fills the element matching the locator with text.
	TypeText(locator, text string) error

	// SetFiles attaches local files to a file input.
	SetFiles(locator string, paths ...string) error

	// WaitForLocator reports whether an element matching the locator
	// became visible within the timeout. It never returns an error;
	// absence is an expected outcome.
	WaitForLocator(locator string, timeout time.Duration) bool

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot() ([]byte, error)

	// CurrentURL returns the page's current URL.
	CurrentURL() string

	// VisibleText returns the human-visible text of the current page.
	VisibleText() (string, error)
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window.
	Headless bool

	// Viewport sets the initial viewport size.
	Viewport *Viewport

	// Timeout sets the default timeout for page operations.
	Timeout time.Duration
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Default values for session creation.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultMaxSessions    = 5
)
