// Package session owns the shared performance state and the interaction
// state machine that ties parsing, confirmation, correction learning, and
// dispatch together.
package session

import "sync"

// Snapshot is a consistent read-only view of the performance state.
type Snapshot struct {
	Energy   float64
	Darkness float64
	Hats     float64
	BPM      int
	KickOn   int
	Profile  string
}

// State is the single shared performance state. The command path and the
// background clock both read and write it, so every access goes through the
// internal lock; components never see the fields directly.
type State struct {
	mu       sync.RWMutex
	energy   float64
	darkness float64
	hats     float64
	bpm      int
	kickOn   int
	profile  string
}

// NewState returns the stock starting state: mid everything, four-on-the-
// floor at 128 under the peak profile.
func NewState() *State {
	return &State{
		energy:   0.5,
		darkness: 0.5,
		hats:     0.5,
		bpm:      128,
		kickOn:   1,
		profile:  "peak",
	}
}

// Snapshot returns a consistent copy of all fields.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Energy:   s.energy,
		Darkness: s.darkness,
		Hats:     s.hats,
		BPM:      s.bpm,
		KickOn:   s.kickOn,
		Profile:  s.profile,
	}
}

// Param reads a continuous parameter by wire key. The second return is false
// for keys that are not continuous parameters.
func (s *State) Param(name string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch name {
	case "energy":
		return s.energy, true
	case "darkness":
		return s.darkness, true
	case "hats":
		return s.hats, true
	}
	return 0, false
}

// SetParam writes a continuous parameter by wire key. Unknown keys are
// ignored.
func (s *State) SetParam(name string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case "energy":
		s.energy = v
	case "darkness":
		s.darkness = v
	case "hats":
		s.hats = v
	}
}

// BPM returns the current tempo.
func (s *State) BPM() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bpm
}

// SetBPM stores the tempo.
func (s *State) SetBPM(bpm int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bpm = bpm
}

// KickOn reports the kick state as 0 or 1.
func (s *State) KickOn() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kickOn
}

// SetKickOn stores the kick state.
func (s *State) SetKickOn(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kickOn = v
}

// ProfileName returns the active profile name.
func (s *State) ProfileName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// SetProfileName stores the active profile name.
func (s *State) SetProfileName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = name
}
