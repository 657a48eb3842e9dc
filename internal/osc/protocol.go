// Package osc maps resolved intents onto the wire vocabulary of the sound
// backend and sends them as OSC messages. Sonic Pi listens on a single
// address, /ai, and every message is one [key, value] pair.
package osc

import (
	"fmt"

	"github.com/fbruckner/takt/internal/intent"
)

// Address is the OSC address the sound backend listens on.
const Address = "/ai"

// Message is one ordered key/value update for the control surface.
type Message struct {
	Key   string
	Value any // float64, int, or string
}

// State is the slice of session state the protocol mapping reads when
// resolving relative adjustments.
type State struct {
	Energy   float64
	Darkness float64
	Hats     float64
	BPM      int
	KickOn   int
}

// Messages converts a normalized intent plus the current state snapshot into
// the ordered wire updates it implies. Relative adjustments resolve against
// the snapshot here; the caller mirrors the results back into session state
// after dispatch. The switch is exhaustive over the closed vocabulary —
// adding an intent without a wire mapping does not compile past review.
func Messages(in intent.Intent, st State) []Message {
	switch in.Name {
	case intent.NameSetEnergy:
		return []Message{{Key: "energy", Value: resolveParam(in.Slots, st.Energy)}}

	case intent.NameSetDarkness:
		return []Message{{Key: "darkness", Value: resolveParam(in.Slots, st.Darkness)}}

	case intent.NameSetHats:
		return []Message{{Key: "hats", Value: resolveParam(in.Slots, st.Hats)}}

	case intent.NameSetBPM:
		bpm := st.BPM
		if in.Slots.Value != nil {
			bpm = int(*in.Slots.Value)
		} else if in.Slots.Delta != nil {
			bpm += int(*in.Slots.Delta)
		}
		bpm = max(60, min(200, bpm))
		return []Message{{Key: "bpm", Value: bpm}}

	case intent.NameKickOn:
		v := 1
		if in.Slots.Value != nil {
			v = int(*in.Slots.Value)
		}
		return []Message{{Key: "kick_on", Value: v}}

	case intent.NameBreak:
		bars := 8
		if in.Slots.Bars != nil {
			bars = *in.Slots.Bars
		}
		msgs := []Message{{Key: "break", Value: bars}}
		if in.Slots.Mode != "" {
			msgs = append(msgs, Message{Key: "break_mode", Value: in.Slots.Mode})
		}
		return msgs

	case intent.NameDrop:
		return []Message{{Key: "drop", Value: 1}}

	case intent.NameUndo:
		return []Message{{Key: "undo", Value: 1}}

	case intent.NameSave:
		return []Message{{Key: "save", Value: 1}}

	case intent.NameReset:
		return []Message{{Key: "reset", Value: 1}}

	case intent.NameProfileSet:
		if in.Slots.Name == "" {
			return nil
		}
		return []Message{{Key: "profile", Value: in.Slots.Name}}

	case intent.NameMacroRun:
		if in.Slots.Name == "" {
			return nil
		}
		return []Message{{Key: "macro", Value: in.Slots.Name}}

	case intent.NameSchedule:
		if in.Slots.Action == "" || in.Slots.Bars == nil {
			return nil
		}
		return []Message{{Key: "schedule", Value: fmt.Sprintf("%s:%d", in.Slots.Action, *in.Slots.Bars)}}

	case intent.NameHold:
		return []Message{{Key: "hold", Value: 1}}

	case intent.NameRate, intent.NameUnknown:
		// Ratings are persisted, not dispatched.
		return nil
	}
	return nil
}

// resolveParam computes the new value of a continuous parameter from its
// slots: an absolute value wins over a delta, a delta adjusts the current
// value within [0,1], and no slot at all keeps the current value.
func resolveParam(s intent.Slots, current float64) float64 {
	switch {
	case s.Value != nil:
		return *s.Value
	case s.Delta != nil:
		return max(0, min(1, current+*s.Delta))
	}
	return current
}
