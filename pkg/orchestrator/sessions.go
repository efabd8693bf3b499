package orchestrator

import (
	"sync"

	"github.com/postwright/postwright/pkg/browser"
)

// SessionFactory provides isolated browser sessions to the run loop. It is
// an interface so tests can run the full orchestration path without a real
// browser.
type SessionFactory interface {
	// Start launches a session under a unique name.
	Start(name string, headless bool) (browser.Session, error)

	// Close tears one session down.
	Close(name string) error

	// Shutdown releases all sessions and the underlying runtime.
	Shutdown() error
}

// PlaywrightFactory is the production SessionFactory. The Playwright
// runtime is started lazily on the first session so constructing an
// orchestrator stays cheap for credential-only operations.
type PlaywrightFactory struct {
	mu      sync.Mutex
	manager *browser.Manager
}

// NewPlaywrightFactory creates the default factory.
func NewPlaywrightFactory() *PlaywrightFactory {
	return &PlaywrightFactory{manager: browser.NewManager()}
}

// Start implements SessionFactory.
func (f *PlaywrightFactory) Start(name string, headless bool) (browser.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.manager.Initialize(); err != nil {
		return nil, err
	}
	return f.manager.StartSession(name, browser.SessionOptions{Headless: headless})
}

// Close implements SessionFactory.
func (f *PlaywrightFactory) Close(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.manager.CloseSession(name)
}

// Shutdown implements SessionFactory.
func (f *PlaywrightFactory) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.manager.Shutdown()
}
