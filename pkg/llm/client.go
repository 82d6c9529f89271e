// Package llm implements the generative backend protocol: a bounded
// chat completion request against an OpenAI-compatible, Anthropic, or
// Ollama backend, returning the generated text plus any citations the
// backend attached (search-capable models return source URLs).
package llm

import (
	"context"
	"errors"
)

// ErrModelRejected marks a hard backend refusal (invalid model identifier,
// malformed request, auth failure). Callers must surface it; there is no
// fallback text.
var ErrModelRejected = errors.New("request rejected by backend")

// Message is one turn of a chat-style conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes a single bounded completion call.
type CompletionRequest struct {
	// Model overrides the client's configured model when set.
	Model    string
	Messages []Message

	// MaxTokens bounds the output. Zero lets the backend default apply
	// (Anthropic requires a value and falls back to its own default).
	MaxTokens   int
	Temperature float64

	// Search hints for backends that browse (Perplexity-style models).
	// Ignored by backends without search.
	EnableSearch  bool
	SearchRecency string
}

// CompletionResponse is the backend's reply.
type CompletionResponse struct {
	Text string

	// Citations holds source URLs for search-capable backends, in the
	// order the backend returned them. Nil for backends without search.
	Citations []string
}

// Client is the generative backend protocol. Implementations make exactly
// one logical completion call per Complete invocation; transport-level
// retries on 429/5xx happen below this boundary.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
