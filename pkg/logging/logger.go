// Package logging provides structured component loggers for Postwright.
//
// Every logger carries the component name and a run ID shared by all
// components for the lifetime of the process, so one posting run can be
// followed across the queue, resolver, poster and orchestrator.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
)

// Options configures the process-wide log handler.
type Options struct {
	// Level is the minimum level that will be emitted.
	Level slog.Level

	// Writer receives log output. Defaults to stderr so log lines never
	// mix with result output on stdout.
	Writer io.Writer

	// NoColor disables ANSI colors in the console handler.
	NoColor bool
}

var (
	mu      sync.Mutex
	handler slog.Handler

	runID     string
	runIDOnce sync.Once
)

// RunID returns the identifier for this process execution. It is generated
// once and shared by every component logger.
func RunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

// Init installs the process-wide handler. Calling it is optional; the first
// call to For installs a default console handler if none is set.
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handler = tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: time.TimeOnly,
		NoColor:    opts.NoColor,
	})
}

// For returns a logger for the given component.
func For(component string) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if handler == nil {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.TimeOnly,
		})
	}

	return slog.New(handler).With(
		slog.String("component", component),
		slog.String("run", shortID(RunID())),
	)
}

// shortID trims a UUID down to its first segment, which is plenty for
// correlating lines within one process.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
