// Package embeddings defines the Provider interface for text-embedding
// backends.
//
// An embeddings provider maps text to dense float32 vectors used by the
// example store for nearest-neighbour intent matching. Vectors from a single
// Provider instance share one dimensionality and one vector space; the
// example store must not mix vectors from different models.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
type Provider interface {
	// Embed computes the embedding vector for one text string. The result
	// has length Dimensions() and is stable for identical input. The text
	// is passed through verbatim; any model-specific prefixing is the
	// caller's responsibility.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the fixed vector length produced by this provider.
	Dimensions() int

	// ModelID returns the backend-specific model identifier
	// ("nomic-embed-text", ...).
	ModelID() string
}
