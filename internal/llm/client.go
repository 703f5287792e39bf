package llm

import "context"

// Client is the interface a commit-message generator talks to. It
// deliberately knows nothing about threads, runs, or assistants — a
// single prompt goes in, a completion comes out.
type Client interface {
	// Chat sends a completion request and returns the full response.
	Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error)

	// ChatStream sends a completion request and, if callback is
	// non-nil, streams accumulated text deltas to it as they arrive.
	ChatStream(ctx context.Context, model string, messages []Message, callback StreamCallback) (*ChatResponse, error)
}
