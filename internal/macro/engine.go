package macro

import (
	"log/slog"
	"sync"

	"github.com/fbruckner/takt/internal/profile"
)

// ParamStore is the slice of session state the engine reads and writes.
// *session.State satisfies it.
type ParamStore interface {
	Param(name string) (float64, bool)
	SetParam(name string, v float64)
	ProfileName() string
}

// Engine plays the active macro's steps as their bars arrive. Steps execute
// at most once per activation, in any order, gated purely by bar arrival:
// Tick fires every step whose offset has been reached, so a stalled clock
// catches up in one call.
//
// Engine is safe for concurrent use; Tick runs on the background clock
// goroutine while Run and Stop arrive from the command path.
type Engine struct {
	mu         sync.Mutex
	state      ParamStore
	send       func(key string, value any)
	currentBar func() int

	active    string
	startBar  int
	stepsDone map[int]bool
}

// NewEngine wires the engine to session state, a dispatch function, and the
// scheduler's bar position.
func NewEngine(state ParamStore, send func(key string, value any), currentBar func() int) *Engine {
	return &Engine{
		state:      state,
		send:       send,
		currentBar: currentBar,
	}
}

// Run activates the named macro and clears executed-step tracking. Returns
// false when no macro by that name exists; the caller treats that as a
// no-op, not an error. Step offsets count from the bar at activation.
func (e *Engine) Run(name string) bool {
	m := Get(name)
	if m == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = m.Name
	e.startBar = e.currentBar()
	e.stepsDone = make(map[int]bool, len(m.Steps))
	slog.Info("macro started", "macro", m.Name, "steps", len(m.Steps))
	return true
}

// Tick executes every not-yet-run step whose bar has arrived. No-op when no
// macro is active.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == "" {
		return
	}
	m := Get(e.active)
	if m == nil {
		return
	}
	elapsed := e.currentBar() - e.startBar
	prof := profile.Get(e.state.ProfileName())
	for _, step := range m.Steps {
		if step.BarOffset > elapsed || e.stepsDone[step.BarOffset] {
			continue
		}
		e.executeStep(step, prof)
		e.stepsDone[step.BarOffset] = true
	}
}

// Stop deactivates the macro and clears executed-step tracking.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = ""
	e.stepsDone = nil
}

// Active returns the running macro's name, or "".
func (e *Engine) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// executeStep applies one step: read the parameter, apply delta or absolute
// value, clamp to the active profile if one resolves, dispatch, mirror into
// state. Callers hold e.mu.
func (e *Engine) executeStep(step Step, prof *profile.Profile) {
	if step.Kind != KindSetParam || step.Param == "" {
		return
	}
	val, ok := e.state.Param(step.Param)
	if !ok {
		val = 0.5
	}
	switch {
	case step.Delta != nil:
		val += *step.Delta
	case step.Value != nil:
		val = *step.Value
	default:
		return
	}
	if prof != nil {
		val = prof.Clamp(val, step.Param)
	}
	e.send(step.Param, val)
	e.state.SetParam(step.Param, val)
	slog.Debug("macro step", "macro", e.active, "bar_offset", step.BarOffset, "param", step.Param, "value", val)
}
