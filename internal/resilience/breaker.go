// Package resilience shields the command path from a wedged model server.
//
// Both intent classification and example embedding talk to a local Ollama
// instance. When that server hangs or dies, every push-to-talk command would
// otherwise block on a full HTTP timeout before the parser can demote to the
// next tier. [Breaker] is a three-state circuit breaker (closed, open,
// half-open) that fails those calls fast instead; [GuardGenerator] and
// [GuardEmbedder] wrap the two provider surfaces with a shared breaker.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned instead of calling the dependency while the breaker
// is open.
var ErrOpen = errors.New("resilience: breaker is open")

// State is the operating mode of a [Breaker].
type State int

const (
	// Closed forwards all calls.
	Closed State = iota

	// Open rejects calls with [ErrOpen] until the cooldown elapses.
	Open

	// HalfOpen lets a single probe call through after the cooldown. The
	// probe's outcome decides between Closed and Open.
	HalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

const (
	defaultMaxFailures = 3
	defaultCooldown    = 20 * time.Second
)

// Breaker trips after consecutive failures and recovers through a single
// half-open probe.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// Option is a functional option for Breaker.
type Option func(*Breaker)

// WithMaxFailures sets how many consecutive failures trip the breaker.
// Defaults to 3.
func WithMaxFailures(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.maxFailures = n
		}
	}
}

// WithCooldown sets how long the breaker stays open before allowing a
// probe. Defaults to 20s.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// NewBreaker creates a closed breaker. name labels log lines.
func NewBreaker(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:        name,
		maxFailures: defaultMaxFailures,
		cooldown:    defaultCooldown,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Do runs fn unless the breaker is open. While open it returns [ErrOpen]
// without calling fn; after the cooldown exactly one concurrent probe is
// let through.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// admit decides whether the next call may proceed, transitioning to
// half-open when the cooldown has elapsed.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return nil
	case Open:
		if time.Since(b.openedAt) < b.cooldown {
			return ErrOpen
		}
		b.state = HalfOpen
		b.probing = true
		slog.Info("breaker half-open, probing", "name", b.name)
		return nil
	default: // HalfOpen
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	}
}

// record books the call outcome and moves the state machine.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == HalfOpen {
		b.probing = false
		if err != nil {
			b.state = Open
			b.openedAt = time.Now()
			slog.Warn("breaker re-opened after failed probe", "name", b.name)
			return
		}
		b.state = Closed
		b.failures = 0
		slog.Info("breaker closed after successful probe", "name", b.name)
		return
	}

	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.maxFailures {
		b.state = Open
		b.openedAt = time.Now()
		slog.Warn("breaker opened", "name", b.name, "consecutive_failures", b.failures)
	}
}

// State returns the current state. An open breaker whose cooldown has
// elapsed reports [HalfOpen]; the transition itself happens on the next Do.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && time.Since(b.openedAt) >= b.cooldown {
		return HalfOpen
	}
	return b.state
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.probing = false
}
