package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fbruckner/takt/internal/intent"
	"github.com/fbruckner/takt/internal/memory"
	"github.com/fbruckner/takt/internal/observe"
	"github.com/fbruckner/takt/internal/osc"
	"github.com/fbruckner/takt/internal/profile"
	"github.com/fbruckner/takt/internal/sched"
)

// Phase is the interaction state machine position.
type Phase int

const (
	// PhaseIdle: the next utterance is a fresh command.
	PhaseIdle Phase = iota

	// PhaseAwaitingConfirm: a suggestion is pending; the next utterance is a
	// yes/no/cancel answer. The window has no timeout — it persists until
	// the next utterance is processed.
	PhaseAwaitingConfirm

	// PhaseCorrecting: the next utterance is the command the performer
	// actually meant; it is applied and learned under the rejected phrase.
	PhaseCorrecting
)

// String returns the phase name for logs.
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingConfirm:
		return "awaiting_confirm"
	case PhaseCorrecting:
		return "correcting"
	}
	return "idle"
}

// Parser resolves phrases and learns corrections. *intent.Parser satisfies it.
type Parser interface {
	Parse(ctx context.Context, phrase string) (intent.Intent, intent.Tier)
	LearnCorrection(ctx context.Context, originalPhrase string, corrected intent.Intent) error
}

// Sender dispatches one wire update. *osc.Client satisfies it.
type Sender interface {
	Send(key string, value any) error
}

// MacroRunner is the macro engine surface the controller drives.
type MacroRunner interface {
	Run(name string) bool
	Active() string
}

// BigScheduler schedules throttled big actions. *sched.Scheduler satisfies
// it; a nil result means the throttle refused.
type BigScheduler interface {
	ScheduleBig(bars int, fn func()) *sched.Action
}

// Result is what one processed utterance produced, for presentation.
type Result struct {
	Phrase     string
	Intent     intent.Name
	Slots      intent.Slots
	Confidence float64
	Tier       intent.Tier
	Phase      Phase

	// Message is a user-facing note ("Unsicher. Sag: ja / nein / abbrechen").
	Message string
}

// Controller ties parsing, confirmation, correction learning, and dispatch
// together. It owns the interaction phase; the shared [State] is guarded by
// its own lock so the background clock can write it concurrently.
//
// HandleUtterance is not safe for concurrent calls — the foreground command
// path is inherently serial (record, transcribe, parse, decide) and the
// caller invokes it from a single loop.
type Controller struct {
	state   *State
	parser  Parser
	sender  Sender
	macros  MacroRunner
	sched   BigScheduler
	store   *memory.Store
	metrics *observe.Metrics

	phase         Phase
	pendingIntent intent.Intent
	pendingPhrase string
}

// NewController wires the controller. store may be nil in tests; events and
// ratings are then not persisted.
func NewController(state *State, parser Parser, sender Sender, macros MacroRunner, sched BigScheduler, store *memory.Store) *Controller {
	return &Controller{
		state:   state,
		parser:  parser,
		sender:  sender,
		macros:  macros,
		sched:   sched,
		store:   store,
		metrics: observe.DefaultMetrics(),
	}
}

// Phase returns the current interaction phase.
func (c *Controller) Phase() Phase { return c.phase }

// State returns the shared session state.
func (c *Controller) State() *State { return c.state }

// HandleUtterance processes one transcribed utterance according to the
// current phase. An empty phrase means nothing was recognised: no state
// change, and the phase returns to idle only from the correction round.
func (c *Controller) HandleUtterance(ctx context.Context, phrase string) Result {
	if phrase == "" {
		return Result{Phase: c.phase, Message: "Nichts erkannt."}
	}

	switch c.phase {
	case PhaseAwaitingConfirm:
		return c.handleConfirmAnswer(ctx, phrase)
	case PhaseCorrecting:
		return c.handleCorrection(ctx, phrase)
	default:
		return c.handleCommand(ctx, phrase)
	}
}

// handleCommand runs the idle-phase path: parse, context rules, then apply,
// suggest, or reject by tier.
func (c *Controller) handleCommand(ctx context.Context, phrase string) Result {
	in, tier := c.parser.Parse(ctx, phrase)
	in = intent.ApplyContext(in, intent.ContextState{KickOn: c.state.KickOn()})
	c.metrics.RecordIntent(ctx, string(in.Name), string(tier))

	switch {
	case tier.Auto():
		c.apply(ctx, in, phrase, tier)
		return Result{Phrase: phrase, Intent: in.Name, Slots: in.Slots, Confidence: in.Confidence, Tier: tier, Phase: c.phase}

	case tier.Suggest():
		c.pendingIntent = in
		c.pendingPhrase = phrase
		c.phase = PhaseAwaitingConfirm
		return Result{
			Phrase: phrase, Intent: in.Name, Slots: in.Slots, Confidence: in.Confidence, Tier: tier,
			Phase:   c.phase,
			Message: "Unsicher. Sag: ja / nein / abbrechen",
		}

	default:
		return Result{Phrase: phrase, Intent: intent.NameUnknown, Tier: intent.TierUnknown, Phase: c.phase, Message: "Nicht erkannt."}
	}
}

// handleConfirmAnswer resolves the pending suggestion from a yes/no/cancel
// answer. An unclassifiable answer keeps the window open.
func (c *Controller) handleConfirmAnswer(ctx context.Context, answer string) Result {
	in, phrase := c.pendingIntent, c.pendingPhrase

	switch ClassifyAnswer(answer) {
	case AnswerYes:
		c.phase = PhaseIdle
		c.pendingPhrase = ""
		c.apply(ctx, in, phrase, intent.TierConfirmed)
		return Result{Phrase: phrase, Intent: in.Name, Slots: in.Slots, Confidence: in.Confidence, Tier: intent.TierConfirmed, Phase: c.phase}

	case AnswerNo:
		c.phase = PhaseCorrecting
		return Result{Phrase: phrase, Intent: in.Name, Phase: c.phase, Message: "Sag den richtigen Befehl"}

	case AnswerCancel:
		c.phase = PhaseIdle
		c.pendingIntent = intent.Unknown()
		c.pendingPhrase = ""
		return Result{Phase: c.phase}

	default:
		return Result{Phrase: phrase, Intent: in.Name, Phase: c.phase, Message: "Unsicher. Sag: ja / nein / abbrechen"}
	}
}

// handleCorrection parses the utterance as the intended command, applies it,
// and learns it under the originally rejected phrase. The phase always
// returns to idle, resolvable or not.
func (c *Controller) handleCorrection(ctx context.Context, phrase string) Result {
	original := c.pendingPhrase
	c.phase = PhaseIdle
	c.pendingIntent = intent.Unknown()
	c.pendingPhrase = ""

	in, _ := c.parser.Parse(ctx, phrase)
	if in.Name == intent.NameUnknown {
		return Result{Phrase: phrase, Intent: intent.NameUnknown, Tier: intent.TierCorrected, Phase: c.phase, Message: "Nicht erkannt."}
	}

	in = intent.ApplyContext(in, intent.ContextState{KickOn: c.state.KickOn()})
	c.apply(ctx, in, phrase, intent.TierCorrected)
	if err := c.parser.LearnCorrection(ctx, original, in); err != nil {
		// The command itself succeeded; only future matching quality suffers.
		slog.Error("correction learning failed", "original", original, "err", err)
	} else {
		c.metrics.Corrections.Add(ctx, 1)
	}
	return Result{Phrase: phrase, Intent: in.Name, Slots: in.Slots, Confidence: in.Confidence, Tier: intent.TierCorrected, Phase: c.phase}
}

// bigIntents marks the intents preceded by a save marker, so the backend can
// undo them.
var bigIntents = map[intent.Name]struct{}{
	intent.NameBreak: {}, intent.NameDrop: {}, intent.NameSetBPM: {}, intent.NameReset: {},
}

// apply dispatches a resolved intent: save marker for the disruptive ones,
// special handling for RATE / PROFILE_SET / MACRO_RUN / SCHEDULE, then the
// wire updates in order, mirrored into session state, and an event row for
// every non-empty dispatch.
func (c *Controller) apply(ctx context.Context, in intent.Intent, phrase string, tier intent.Tier) {
	msgs := osc.Messages(in, c.stateView())

	if _, ok := bigIntents[in.Name]; ok {
		c.send("save", 1)
	}

	switch in.Name {
	case intent.NameRate:
		if in.Slots.Rating != "" && c.store != nil {
			if err := c.store.AddRating(ctx, in.Slots.Rating, c.macros.Active()); err != nil {
				slog.Warn("rating not persisted", "err", err)
			}
		}

	case intent.NameProfileSet:
		if prof := profile.Get(in.Slots.Name); prof != nil {
			c.state.SetProfileName(prof.Name)
			for param, v := range prof.Defaults {
				c.send(param, v)
				c.state.SetParam(param, v)
			}
			c.send("bpm", prof.DefaultBPM)
			c.state.SetBPM(prof.DefaultBPM)
		}

	case intent.NameMacroRun:
		if !c.macros.Run(in.Slots.Name) {
			slog.Info("unknown macro", "name", in.Slots.Name)
		}

	case intent.NameSchedule:
		c.enqueueScheduled(ctx, in)
	}

	for _, m := range msgs {
		c.send(m.Key, m.Value)
		c.mirror(m)
	}

	if len(msgs) > 0 && c.store != nil {
		payload, err := json.Marshal(msgs)
		if err == nil {
			err = c.store.LogEvent(ctx, memory.Event{
				Intent:  string(in.Name),
				Phrase:  phrase,
				Tier:    string(tier),
				Slots:   in.Slots.Map(),
				Payload: string(payload),
			})
		}
		if err != nil {
			slog.Warn("event not persisted", "intent", in.Name, "err", err)
		}
	}

	slog.Info("intent applied", "intent", in.Name, "tier", tier, "slots", in.Slots.String())
}

// enqueueScheduled registers a SCHEDULE intent's deferred action as a big
// action. The throttle refusing it is a normal negative result.
func (c *Controller) enqueueScheduled(ctx context.Context, in intent.Intent) {
	if c.sched == nil || in.Slots.Action == "" || in.Slots.Bars == nil {
		return
	}
	action := in.Slots.Action
	if a := c.sched.ScheduleBig(*in.Slots.Bars, func() {
		c.send(action, 1)
	}); a == nil {
		slog.Info("big action throttled", "action", action)
		c.metrics.ThrottleRejections.Add(ctx, 1)
	}
}

// send dispatches one pair, logging failures at the boundary. Transport is
// fire-and-forget; a failed send never blocks or corrupts the session.
func (c *Controller) send(key string, value any) {
	if err := c.sender.Send(key, value); err != nil {
		slog.Warn("dispatch failed", "key", key, "err", err)
		return
	}
	c.metrics.RecordDispatch(context.Background(), key)
}

// mirror writes a dispatched update back into session state for the keys
// that are state-bearing.
func (c *Controller) mirror(m osc.Message) {
	switch m.Key {
	case "energy", "darkness", "hats":
		if f, ok := m.Value.(float64); ok {
			c.state.SetParam(m.Key, f)
		}
	case "bpm":
		if b, ok := m.Value.(int); ok {
			c.state.SetBPM(b)
		}
	case "kick_on":
		if k, ok := m.Value.(int); ok {
			c.state.SetKickOn(k)
		}
	case "profile":
		if p, ok := m.Value.(string); ok {
			c.state.SetProfileName(p)
		}
	}
}

// stateView projects the shared state into the protocol mapping's view.
func (c *Controller) stateView() osc.State {
	snap := c.state.Snapshot()
	return osc.State{
		Energy:   snap.Energy,
		Darkness: snap.Darkness,
		Hats:     snap.Hats,
		BPM:      snap.BPM,
		KickOn:   snap.KickOn,
	}
}

// Describe renders the current state for the interactive prompt.
func (c *Controller) Describe() string {
	s := c.state.Snapshot()
	return fmt.Sprintf("energy=%.2f darkness=%.2f hats=%.2f bpm=%d kick=%d profile=%s macro=%s phase=%s",
		s.Energy, s.Darkness, s.Hats, s.BPM, s.KickOn, s.Profile, c.macros.Active(), c.phase)
}

// RunClock drives the background musical clock: every interval it aligns the
// scheduler's tempo with session state, advances bar position, and ticks the
// scheduler queue and macro engine. It returns when ctx is cancelled, which
// is the clean-shutdown join point for the caller.
func RunClock(ctx context.Context, interval time.Duration, state *State, tick func(bpm int)) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			tick(state.BPM())
		}
	}
}
