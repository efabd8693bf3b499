// Package llm provides abstractions for LLM provider integration.
//
// Providers handle API communication with model services and return plain
// text responses. This keeps providers focused on model concerns without
// coupling them to element resolution or orchestration. The resolver layer
// is responsible for prompt construction and for parsing structured data
// out of responses, so providers stay reusable in other contexts.
package llm

import "context"

// Request describes a single completion call.
type Request struct {
	// System is an optional system prompt.
	System string

	// Prompt is the user-facing instruction.
	Prompt string

	// ImagePNG optionally attaches a PNG screenshot as visual context.
	// Providers that cannot handle images must return an error rather
	// than silently dropping it.
	ImagePNG []byte

	// Temperature controls sampling. Zero means provider default.
	Temperature float64

	// MaxTokens bounds the response length. Zero means provider default.
	MaxTokens int64
}

// Provider defines the interface for LLM integrations.
//
// Complete sends one request and returns the full response text. The call
// must honor ctx cancellation and deadlines; callers time-box every call
// because resolution latency is on the critical path of a posting run.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)

	// Model returns the model name being used.
	Model() string
}
