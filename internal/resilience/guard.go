package resilience

import (
	"context"

	"github.com/fbruckner/takt/pkg/provider/embeddings"
	"github.com/fbruckner/takt/pkg/provider/llm"
)

// Compile-time checks for the guarded provider surfaces.
var (
	_ llm.Provider        = (*GuardedGenerator)(nil)
	_ embeddings.Provider = (*GuardedEmbedder)(nil)
)

// GuardedGenerator is an llm.Provider whose Generate calls pass through a
// [Breaker].
type GuardedGenerator struct {
	inner   llm.Provider
	breaker *Breaker
}

// GuardGenerator wraps p with b.
func GuardGenerator(p llm.Provider, b *Breaker) *GuardedGenerator {
	return &GuardedGenerator{inner: p, breaker: b}
}

// Generate implements llm.Provider.
func (g *GuardedGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	var out string
	err := g.breaker.Do(func() error {
		var err error
		out, err = g.inner.Generate(ctx, system, user)
		return err
	})
	return out, err
}

// ModelID implements llm.Provider.
func (g *GuardedGenerator) ModelID() string { return g.inner.ModelID() }

// GuardedEmbedder is an embeddings.Provider whose Embed calls pass through
// a [Breaker].
type GuardedEmbedder struct {
	inner   embeddings.Provider
	breaker *Breaker
}

// GuardEmbedder wraps p with b. Sharing one breaker between generator and
// embedder is intentional when both hit the same server.
func GuardEmbedder(p embeddings.Provider, b *Breaker) *GuardedEmbedder {
	return &GuardedEmbedder{inner: p, breaker: b}
}

// Embed implements embeddings.Provider.
func (g *GuardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := g.breaker.Do(func() error {
		var err error
		vec, err = g.inner.Embed(ctx, text)
		return err
	})
	return vec, err
}

// Dimensions implements embeddings.Provider.
func (g *GuardedEmbedder) Dimensions() int { return g.inner.Dimensions() }

// ModelID implements embeddings.Provider.
func (g *GuardedEmbedder) ModelID() string { return g.inner.ModelID() }
