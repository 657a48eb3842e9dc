package session

import (
	"context"
	"testing"

	"github.com/fbruckner/takt/internal/intent"
	"github.com/fbruckner/takt/internal/memory"
	"github.com/fbruckner/takt/internal/sched"
)

// parseResult is one scripted parser outcome.
type parseResult struct {
	in   intent.Intent
	tier intent.Tier
}

// fakeParser pops scripted results and records learned corrections.
type fakeParser struct {
	results []parseResult
	learned []learnedCorrection
}

type learnedCorrection struct {
	original string
	in       intent.Intent
}

func (p *fakeParser) Parse(_ context.Context, _ string) (intent.Intent, intent.Tier) {
	if len(p.results) == 0 {
		return intent.Unknown(), intent.TierUnknown
	}
	r := p.results[0]
	p.results = p.results[1:]
	return r.in, r.tier
}

func (p *fakeParser) LearnCorrection(_ context.Context, original string, in intent.Intent) error {
	p.learned = append(p.learned, learnedCorrection{original, in})
	return nil
}

// fakeSender records every dispatched pair.
type fakeSender struct {
	sent []dispatched
}

type dispatched struct {
	key   string
	value any
}

func (s *fakeSender) Send(key string, value any) error {
	s.sent = append(s.sent, dispatched{key, value})
	return nil
}

func (s *fakeSender) keys() []string {
	out := make([]string, len(s.sent))
	for i, d := range s.sent {
		out[i] = d.key
	}
	return out
}

// fakeMacros records Run calls.
type fakeMacros struct {
	known  map[string]bool
	active string
	runs   []string
}

func (m *fakeMacros) Run(name string) bool {
	m.runs = append(m.runs, name)
	if m.known[name] {
		m.active = name
		return true
	}
	return false
}

func (m *fakeMacros) Active() string { return m.active }

// fakeSched records big-action requests; refuse makes it throttle.
type fakeSched struct {
	refuse   bool
	requests []int
	fns      []func()
}

func (s *fakeSched) ScheduleBig(bars int, fn func()) *sched.Action {
	s.requests = append(s.requests, bars)
	if s.refuse {
		return nil
	}
	s.fns = append(s.fns, fn)
	return &sched.Action{DueBar: bars}
}

type fixture struct {
	parser *fakeParser
	sender *fakeSender
	macros *fakeMacros
	sched  *fakeSched
	store  *memory.Store
	c      *Controller
}

func newFixture(t *testing.T, results ...parseResult) *fixture {
	t.Helper()
	store, err := memory.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		parser: &fakeParser{results: results},
		sender: &fakeSender{},
		macros: &fakeMacros{known: map[string]bool{"tighten_hats": true}},
		sched:  &fakeSched{},
		store:  store,
	}
	f.c = NewController(NewState(), f.parser, f.sender, f.macros, f.sched, store)
	return f
}

func auto(name string, slots map[string]any) parseResult {
	return parseResult{intent.Normalize(name, slots, 0.9), intent.TierKNNAuto}
}

func suggest(name string, slots map[string]any) parseResult {
	return parseResult{intent.Normalize(name, slots, 0.7), intent.TierLLMSuggest}
}

func TestController_AutoApply(t *testing.T) {
	ctx := context.Background()

	t.Run("relative tempo change", func(t *testing.T) {
		f := newFixture(t, auto("SET_BPM", map[string]any{"delta": 10.0}))

		res := f.c.HandleUtterance(ctx, "zehn schneller")
		if res.Tier != intent.TierKNNAuto || res.Intent != intent.NameSetBPM {
			t.Fatalf("result = %+v", res)
		}
		// Disruptive intents are preceded by a save marker for undo.
		want := []dispatched{{"save", 1}, {"bpm", 138}}
		if len(f.sender.sent) != 2 || f.sender.sent[0] != want[0] || f.sender.sent[1] != want[1] {
			t.Fatalf("sent = %v, want %v", f.sender.sent, want)
		}
		if got := f.c.State().BPM(); got != 138 {
			t.Fatalf("state bpm = %d, want 138", got)
		}
		if f.c.Phase() != PhaseIdle {
			t.Fatalf("phase = %v, want idle", f.c.Phase())
		}
	})

	t.Run("absolute parameter mirrors into state", func(t *testing.T) {
		f := newFixture(t, auto("SET_ENERGY", map[string]any{"value": 0.9}))

		f.c.HandleUtterance(ctx, "energie auf neunzig prozent")
		if len(f.sender.sent) != 1 || f.sender.sent[0].key != "energy" || f.sender.sent[0].value != 0.9 {
			t.Fatalf("sent = %v", f.sender.sent)
		}
		if snap := f.c.State().Snapshot(); snap.Energy != 0.9 {
			t.Fatalf("state energy = %v, want 0.9", snap.Energy)
		}
	})

	t.Run("break with kick off becomes a filter break", func(t *testing.T) {
		f := newFixture(t, auto("BREAK", map[string]any{"bars": 8.0}))
		f.c.State().SetKickOn(0)

		f.c.HandleUtterance(ctx, "break")
		keys := f.sender.keys()
		want := []string{"save", "break", "break_mode"}
		if len(keys) != 3 || keys[0] != want[0] || keys[1] != want[1] || keys[2] != want[2] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
		if f.sender.sent[2].value != "filter" {
			t.Fatalf("break_mode = %v, want filter", f.sender.sent[2].value)
		}
	})

	t.Run("dispatch is persisted as an event", func(t *testing.T) {
		f := newFixture(t, auto("DROP", nil))
		f.c.HandleUtterance(ctx, "lass krachen")

		var n int
		if err := f.store.DB().QueryRow("SELECT COUNT(*) FROM events WHERE intent = 'DROP'").Scan(&n); err != nil {
			t.Fatalf("query events: %v", err)
		}
		if n != 1 {
			t.Fatalf("events = %d, want 1", n)
		}
	})
}

func TestController_ConfirmFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("yes applies the pending suggestion", func(t *testing.T) {
		f := newFixture(t, suggest("DROP", nil))

		res := f.c.HandleUtterance(ctx, "volles brett")
		if f.c.Phase() != PhaseAwaitingConfirm {
			t.Fatalf("phase = %v, want awaiting_confirm", f.c.Phase())
		}
		if res.Message != "Unsicher. Sag: ja / nein / abbrechen" {
			t.Fatalf("message = %q", res.Message)
		}
		if len(f.sender.sent) != 0 {
			t.Fatalf("suggestion dispatched before confirmation: %v", f.sender.sent)
		}

		res = f.c.HandleUtterance(ctx, "ja")
		if res.Tier != intent.TierConfirmed {
			t.Fatalf("tier = %q, want confirmed", res.Tier)
		}
		keys := f.sender.keys()
		if len(keys) != 2 || keys[0] != "save" || keys[1] != "drop" {
			t.Fatalf("keys = %v, want [save drop]", keys)
		}
		if f.c.Phase() != PhaseIdle {
			t.Fatalf("phase = %v, want idle", f.c.Phase())
		}
	})

	t.Run("cancel discards silently", func(t *testing.T) {
		f := newFixture(t, suggest("DROP", nil))

		f.c.HandleUtterance(ctx, "volles brett")
		res := f.c.HandleUtterance(ctx, "abbrechen")
		if f.c.Phase() != PhaseIdle {
			t.Fatalf("phase = %v, want idle", f.c.Phase())
		}
		if len(f.sender.sent) != 0 {
			t.Fatalf("cancelled suggestion dispatched: %v", f.sender.sent)
		}
		if res.Message != "" {
			t.Fatalf("message = %q, want empty", res.Message)
		}
	})

	t.Run("unclear answer keeps the window open", func(t *testing.T) {
		f := newFixture(t, suggest("DROP", nil))

		f.c.HandleUtterance(ctx, "volles brett")
		res := f.c.HandleUtterance(ctx, "äh was")
		if f.c.Phase() != PhaseAwaitingConfirm {
			t.Fatalf("phase = %v, want awaiting_confirm", f.c.Phase())
		}
		if res.Message != "Unsicher. Sag: ja / nein / abbrechen" {
			t.Fatalf("message = %q", res.Message)
		}
	})
}

func TestController_CorrectionFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("no then correction applies and learns", func(t *testing.T) {
		f := newFixture(t,
			suggest("DROP", nil),
			auto("SET_ENERGY", map[string]any{"delta": 0.1}),
		)

		f.c.HandleUtterance(ctx, "mehr druck")
		res := f.c.HandleUtterance(ctx, "nein")
		if f.c.Phase() != PhaseCorrecting {
			t.Fatalf("phase = %v, want correcting", f.c.Phase())
		}
		if res.Message != "Sag den richtigen Befehl" {
			t.Fatalf("message = %q", res.Message)
		}

		res = f.c.HandleUtterance(ctx, "energie leicht hoch")
		if res.Tier != intent.TierCorrected || res.Intent != intent.NameSetEnergy {
			t.Fatalf("result = %+v", res)
		}
		if f.c.Phase() != PhaseIdle {
			t.Fatalf("phase = %v, want idle", f.c.Phase())
		}
		if len(f.sender.sent) != 1 || f.sender.sent[0].key != "energy" {
			t.Fatalf("sent = %v", f.sender.sent)
		}
		// Learned under the originally rejected phrase, not the correction.
		if len(f.parser.learned) != 1 || f.parser.learned[0].original != "mehr druck" {
			t.Fatalf("learned = %+v", f.parser.learned)
		}
		if f.parser.learned[0].in.Name != intent.NameSetEnergy {
			t.Fatalf("learned intent = %q", f.parser.learned[0].in.Name)
		}
	})

	t.Run("unresolvable correction returns to idle without learning", func(t *testing.T) {
		f := newFixture(t,
			suggest("DROP", nil),
			parseResult{intent.Unknown(), intent.TierUnknown},
		)

		f.c.HandleUtterance(ctx, "mehr druck")
		f.c.HandleUtterance(ctx, "nein")
		res := f.c.HandleUtterance(ctx, "blubb")
		if f.c.Phase() != PhaseIdle {
			t.Fatalf("phase = %v, want idle", f.c.Phase())
		}
		if res.Message != "Nicht erkannt." {
			t.Fatalf("message = %q", res.Message)
		}
		if len(f.parser.learned) != 0 {
			t.Fatalf("learned = %+v, want none", f.parser.learned)
		}
	})
}

func TestController_Rejection(t *testing.T) {
	f := newFixture(t, parseResult{intent.Unknown(), intent.TierUnknown})
	res := f.c.HandleUtterance(context.Background(), "kompletter quatsch")
	if res.Message != "Nicht erkannt." {
		t.Fatalf("message = %q", res.Message)
	}
	if f.c.Phase() != PhaseIdle {
		t.Fatalf("phase = %v, want idle", f.c.Phase())
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("sent = %v, want nothing", f.sender.sent)
	}
}

func TestController_EmptyPhrase(t *testing.T) {
	f := newFixture(t)
	res := f.c.HandleUtterance(context.Background(), "")
	if res.Message != "Nichts erkannt." {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestController_ProfileSet(t *testing.T) {
	f := newFixture(t, auto("PROFILE_SET", map[string]any{"name": "warmup"}))
	f.c.HandleUtterance(context.Background(), "warmup modus")

	snap := f.c.State().Snapshot()
	if snap.Profile != "warmup" {
		t.Fatalf("profile = %q, want warmup", snap.Profile)
	}
	if snap.BPM != 122 {
		t.Fatalf("bpm = %d, want warmup default 122", snap.BPM)
	}
	if snap.Energy != 0.4 {
		t.Fatalf("energy = %v, want warmup default 0.4", snap.Energy)
	}
	// Defaults, tempo, and the profile name all go over the wire.
	sentKeys := map[string]bool{}
	for _, k := range f.sender.keys() {
		sentKeys[k] = true
	}
	for _, k := range []string{"energy", "darkness", "hats", "bpm", "profile"} {
		if !sentKeys[k] {
			t.Fatalf("key %q not dispatched; sent %v", k, f.sender.keys())
		}
	}
}

func TestController_MacroRun(t *testing.T) {
	t.Run("known macro starts", func(t *testing.T) {
		f := newFixture(t, auto("MACRO_RUN", map[string]any{"name": "tighten_hats"}))
		f.c.HandleUtterance(context.Background(), "hats enger")
		if len(f.macros.runs) != 1 || f.macros.runs[0] != "tighten_hats" {
			t.Fatalf("runs = %v", f.macros.runs)
		}
		if f.macros.Active() != "tighten_hats" {
			t.Fatalf("active = %q", f.macros.Active())
		}
	})
	t.Run("unknown macro is a no-op", func(t *testing.T) {
		f := newFixture(t, auto("MACRO_RUN", map[string]any{"name": "gibt_es_nicht"}))
		f.c.HandleUtterance(context.Background(), "unbekanntes makro")
		if f.macros.Active() != "" {
			t.Fatalf("active = %q, want empty", f.macros.Active())
		}
	})
}

func TestController_RatePersistsWithActiveMacro(t *testing.T) {
	f := newFixture(t, auto("RATE", map[string]any{"rating": "gut"}))
	f.macros.active = "tighten_hats"

	f.c.HandleUtterance(context.Background(), "das ist gut")

	names, err := f.store.PreferredMacros(context.Background(), 5)
	if err != nil {
		t.Fatalf("preferred macros: %v", err)
	}
	if len(names) != 1 || names[0] != "tighten_hats" {
		t.Fatalf("preferred = %v, want [tighten_hats]", names)
	}
}

func TestController_Schedule(t *testing.T) {
	ctx := context.Background()

	t.Run("enqueues a deferred big action", func(t *testing.T) {
		f := newFixture(t, auto("SCHEDULE", map[string]any{"action": "drop", "bars": 4.0}))
		f.c.HandleUtterance(ctx, "drop in vier takten")

		if len(f.sched.requests) != 1 || f.sched.requests[0] != 4 {
			t.Fatalf("requests = %v, want [4]", f.sched.requests)
		}
		// The deferred action dispatches the keyword when it fires.
		if len(f.sched.fns) != 1 {
			t.Fatalf("fns = %d, want 1", len(f.sched.fns))
		}
		before := len(f.sender.sent)
		f.sched.fns[0]()
		if len(f.sender.sent) != before+1 || f.sender.sent[before].key != "drop" {
			t.Fatalf("deferred action sent %v", f.sender.sent[before:])
		}
	})

	t.Run("throttled schedule is a quiet no-op", func(t *testing.T) {
		f := newFixture(t, auto("SCHEDULE", map[string]any{"action": "drop", "bars": 4.0}))
		f.sched.refuse = true
		f.c.HandleUtterance(ctx, "drop in vier takten")
		if len(f.sched.fns) != 0 {
			t.Fatalf("fns = %d, want 0", len(f.sched.fns))
		}
	})
}
