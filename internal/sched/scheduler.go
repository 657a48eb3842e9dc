// Package sched converts tempo into musical time and runs the due-action
// queue. A bar is four beats; the current bar position advances with the
// wall clock at a rate set by the bpm. Changing the tempo bends the timeline
// — future bars arrive at the new rate — without resetting elapsed position.
package sched

import (
	"sync"
	"time"
)

const (
	minBPM = 60
	maxBPM = 200

	// bigActionWindow is the anti-spam throttle: at most one big action per
	// this many bars, measured from the bar the previous one fired.
	bigActionWindow = 8
)

// Action is a queued zero-argument operation due at a bar. Created by
// [Scheduler.Schedule]; mutable only via [Scheduler.Cancel].
type Action struct {
	DueBar    int
	fn        func()
	cancelled bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithNowFunc substitutes the wall clock, for tests.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler tracks bar position and fires queued actions as their bar
// arrives. All methods are safe for concurrent use: Tick runs on the
// background clock goroutine while Schedule and Cancel are called from the
// command path.
type Scheduler struct {
	mu         sync.Mutex
	bpm        float64
	barPos     float64
	lastAt     time.Time
	queue      []*Action
	lastBigBar float64

	now func() time.Time
}

// New creates a Scheduler at the given tempo. The bar position starts at
// zero and begins advancing from the first Tick.
func New(bpm float64, opts ...Option) *Scheduler {
	s := &Scheduler{
		bpm:        clampBPM(bpm),
		lastBigBar: -100, // far enough back that the first big action is never throttled
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.lastAt = s.now()
	return s
}

// SecondsPerBar returns the current wall-clock length of one bar.
func (s *Scheduler) SecondsPerBar() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return secondsPerBar(s.bpm)
}

// SetBPM re-clamps bpm into [60,200] and changes the rate of future bar
// advancement. Position already accumulated is untouched.
func (s *Scheduler) SetBPM(bpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
	s.bpm = clampBPM(bpm)
}

// CurrentBar returns the whole-number bar position.
func (s *Scheduler) CurrentBar() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
	return int(s.barPos)
}

// Tick advances the bar position and fires — then removes — every
// non-cancelled queued action whose bar has arrived. All overdue actions
// fire within the single call: a stalled clock catches up in one burst
// rather than spreading missed steps over future ticks. Cancelled actions
// are dropped without firing once due.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	s.advanceLocked()
	bar := int(s.barPos)

	var due []*Action
	remaining := s.queue[:0]
	for _, a := range s.queue {
		switch {
		case a.cancelled:
			// dropped
		case a.DueBar <= bar:
			due = append(due, a)
		default:
			remaining = append(remaining, a)
		}
	}
	s.queue = remaining
	s.mu.Unlock()

	// Fire outside the lock: actions call back into session state and may
	// re-enter the scheduler.
	for _, a := range due {
		a.fn()
	}
}

// Schedule enqueues fn due the given number of bars from now and returns the
// queued action for possible cancellation.
func (s *Scheduler) Schedule(bars int, fn func()) *Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
	a := &Action{DueBar: int(s.barPos) + bars, fn: fn}
	s.queue = append(s.queue, a)
	return a
}

// ScheduleBig enqueues a disruptive action, subject to the anti-spam
// throttle: if fewer than 8 bars have elapsed since the last big action
// fired, nothing is scheduled and nil is returned. The throttle anchor moves
// to the bar at which the action actually fires, not the bar it was
// scheduled.
func (s *Scheduler) ScheduleBig(bars int, fn func()) *Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
	if s.barPos-s.lastBigBar < bigActionWindow {
		return nil
	}
	a := &Action{DueBar: int(s.barPos) + bars}
	a.fn = func() {
		fn()
		s.mu.Lock()
		s.advanceLocked()
		s.lastBigBar = s.barPos
		s.mu.Unlock()
	}
	s.queue = append(s.queue, a)
	return a
}

// Cancel marks the action cancelled. It is dropped on the next Tick without
// firing. Cancelling an already-fired or nil action is a no-op.
func (s *Scheduler) Cancel(a *Action) {
	if a == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a.cancelled = true
}

// Pending returns the number of queued, non-cancelled actions.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.queue {
		if !a.cancelled {
			n++
		}
	}
	return n
}

// advanceLocked folds wall-clock time elapsed since the last observation
// into the bar position at the current tempo. Callers hold s.mu.
func (s *Scheduler) advanceLocked() {
	now := s.now()
	elapsed := now.Sub(s.lastAt).Seconds()
	s.lastAt = now
	if elapsed > 0 {
		s.barPos += elapsed / secondsPerBar(s.bpm)
	}
}

func secondsPerBar(bpm float64) float64 {
	return 4 * 60.0 / bpm
}

func clampBPM(bpm float64) float64 {
	return max(minBPM, min(maxBPM, bpm))
}
