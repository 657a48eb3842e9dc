// Package mock provides a scriptable llm.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/fbruckner/takt/pkg/provider/llm"
)

// Compile-time check that *Provider satisfies llm.Provider.
var _ llm.Provider = (*Provider)(nil)

// Provider returns canned responses in order, one per Generate call, and
// records every call it receives. Safe for concurrent use.
type Provider struct {
	mu        sync.Mutex
	Responses []string
	Err       error

	// Calls records the (system, user) pair of each Generate invocation.
	Calls [][2]string
}

// Generate pops the next canned response. When the script is exhausted the
// last response repeats; with no responses at all an empty string is
// returned.
func (p *Provider) Generate(_ context.Context, system, user string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, [2]string{system, user})
	if p.Err != nil {
		return "", p.Err
	}
	if len(p.Responses) == 0 {
		return "", nil
	}
	resp := p.Responses[0]
	if len(p.Responses) > 1 {
		p.Responses = p.Responses[1:]
	}
	return resp, nil
}

// ModelID implements llm.Provider.
func (p *Provider) ModelID() string { return "mock" }
