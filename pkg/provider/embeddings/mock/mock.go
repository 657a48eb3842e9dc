// Package mock provides a deterministic embeddings.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/fbruckner/takt/pkg/provider/embeddings"
)

// Compile-time check that *Provider satisfies embeddings.Provider.
var _ embeddings.Provider = (*Provider)(nil)

// Provider returns fixed vectors per input text. Texts without an entry in
// Vectors fall back to Default (which may be nil). Safe for concurrent use.
type Provider struct {
	mu      sync.Mutex
	Vectors map[string][]float32
	Default []float32
	Err     error

	// Calls records every embedded text in order.
	Calls []string
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, text)
	if p.Err != nil {
		return nil, p.Err
	}
	if v, ok := p.Vectors[text]; ok {
		return v, nil
	}
	return p.Default, nil
}

// Dimensions implements embeddings.Provider from the Default vector length.
func (p *Provider) Dimensions() int { return len(p.Default) }

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string { return "mock" }
