// Package llm defines the Provider interface for the generative classifier
// backend.
//
// The provider wraps a chat-completion model (a local Ollama instance in the
// stock setup) behind a minimal generate call: a fixed system instruction
// plus one user message in, raw free text out. The caller owns all prompt
// construction and all parsing of the response — the provider passes text
// through verbatim in both directions.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Provider is the abstraction over any chat-completion backend.
type Provider interface {
	// Generate sends the system instruction and user message to the model
	// and returns the full response text. Returns an error if the request
	// fails or ctx is cancelled; an empty response with a nil error is
	// valid (the model produced nothing).
	Generate(ctx context.Context, system, user string) (string, error)

	// ModelID returns the backend-specific model identifier ("llama3.2",
	// ...). Useful for logging and event attribution.
	ModelID() string
}
