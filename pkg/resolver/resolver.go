// Package resolver maps logical element names to concrete page locators.
//
// Third-party platforms redesign their UI without notice, so a static
// selector table alone breaks silently on every redesign. The resolver
// therefore asks a vision-capable model to locate the elements on a live
// screenshot, and falls back to a per-platform static table when the model
// path fails, returns garbage or times out. Resolution never fails past
// this boundary: the worst outcome is a map whose values are empty, and the
// poster decides what a missing element means for its current step.
package resolver

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/postwright/postwright/pkg/browser"
	"github.com/postwright/postwright/pkg/llm"
	"github.com/postwright/postwright/pkg/logging"
)

// Task identifies which set of logical elements is needed.
type Task string

const (
	TaskLogin   Task = "login"
	TaskCompose Task = "compose"
)

// Logical element names. A Map produced for a task always contains exactly
// the names of that task.
const (
	ElemUsername       = "username_field"
	ElemPassword       = "password_field"
	ElemSubmit         = "submit_button"
	ElemComposeTrigger = "create_post_button"
	ElemTextField      = "text_field"
	ElemUpload         = "upload_input"
)

var taskElements = map[Task][]string{
	TaskLogin:   {ElemUsername, ElemPassword, ElemSubmit},
	TaskCompose: {ElemComposeTrigger, ElemTextField, ElemUpload, ElemSubmit},
}

// ElementsFor returns the logical element names a task requires.
func ElementsFor(task Task) []string {
	names := taskElements[task]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Map holds resolved locators keyed by logical element name. An empty value
// means the element could not be resolved; callers must treat it as absent
// and skip or fail the dependent step.
type Map map[string]string

// DefaultTimeout bounds one model-assisted resolution attempt.
const DefaultTimeout = 30 * time.Second

// Resolver resolves element maps for (platform, task) pairs.
type Resolver struct {
	provider llm.Provider
	timeout  time.Duration
	log      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout bounds each model call. Resolution latency sits on the
// critical path of a posting run, so the bound should stay tight.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		r.timeout = timeout
	}
}

// New creates a resolver. A nil provider disables the model-assisted path
// entirely; resolution then always uses the fallback table.
func New(provider llm.Provider, opts ...Option) *Resolver {
	r := &Resolver{
		provider: provider,
		timeout:  DefaultTimeout,
		log:      logging.For("resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the element map for the session's current page. The
// returned map always has exactly the keys of ElementsFor(task).
func (r *Resolver) Resolve(ctx context.Context, session browser.Session, platform string, task Task) Map {
	names := ElementsFor(task)

	if r.provider != nil {
		if resolved, ok := r.resolveWithModel(ctx, session, platform, task, names); ok {
			return resolved
		}
	}

	r.log.Info("using fallback selectors", "platform", platform, "task", string(task))
	return normalize(fallbackFor(platform, task), names)
}

// resolveWithModel runs the model-assisted path. Any failure (screenshot,
// transport, timeout, malformed response) is logged and reported as not-ok
// so the caller degrades to the fallback table.
func (r *Resolver) resolveWithModel(ctx context.Context, session browser.Session, platform string, task Task, names []string) (Map, bool) {
	screenshot, err := session.Screenshot()
	if err != nil {
		r.log.Warn("screenshot unavailable", "platform", platform, "error", err)
		return nil, false
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	response, err := r.provider.Complete(callCtx, llm.Request{
		Prompt:      buildPrompt(session.CurrentURL(), platform, task, names),
		ImagePNG:    screenshot,
		Temperature: 0.1,
	})
	if err != nil {
		r.log.Warn("element detection call failed", "platform", platform, "task", string(task), "error", err)
		return nil, false
	}

	parsed, err := parseSelectors(response)
	if err != nil {
		r.log.Warn("element detection response malformed", "platform", platform, "task", string(task), "error", err)
		return nil, false
	}

	r.log.Debug("detected elements", "platform", platform, "task", string(task), "resolved", countResolved(parsed))
	return normalize(parsed, names), true
}

// parseSelectors extracts the locator mapping from a model response. The
// response is expected to be a single JSON object, possibly wrapped in a
// markdown code fence; null values mean unresolved.
func parseSelectors(response string) (Map, error) {
	text := strings.TrimSpace(response)
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var raw map[string]*string
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}

	out := make(Map, len(raw))
	for name, locator := range raw {
		if locator != nil {
			out[name] = *locator
		} else {
			out[name] = ""
		}
	}
	return out, nil
}

// normalize shapes an arbitrary mapping to exactly the requested names,
// dropping extras and filling gaps with empty values.
func normalize(m Map, names []string) Map {
	out := make(Map, len(names))
	for _, name := range names {
		out[name] = m[name]
	}
	return out
}

func countResolved(m Map) int {
	n := 0
	for _, locator := range m {
		if locator != "" {
			n++
		}
	}
	return n
}
