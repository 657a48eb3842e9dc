// Package intent implements the tiered intent resolution pipeline: typed
// intents over a closed vocabulary, nearest-neighbour matching against the
// example store, a generative LLM fallback with strict-retry JSON extraction,
// rule-based slot normalization, and state-dependent context rules.
package intent

import (
	"fmt"
	"strings"
)

// Name identifies one intent from the closed vocabulary. Anything outside the
// vocabulary normalizes to [NameUnknown].
type Name string

const (
	NameSetEnergy   Name = "SET_ENERGY"
	NameSetDarkness Name = "SET_DARKNESS"
	NameSetHats     Name = "SET_HATS"
	NameSetBPM      Name = "SET_BPM"
	NameKickOn      Name = "KICK_ON"
	NameBreak       Name = "BREAK"
	NameDrop        Name = "DROP"
	NameUndo        Name = "UNDO"
	NameSave        Name = "SAVE"
	NameReset       Name = "RESET"
	NameProfileSet  Name = "PROFILE_SET"
	NameMacroRun    Name = "MACRO_RUN"
	NameSchedule    Name = "SCHEDULE"
	NameHold        Name = "HOLD"
	NameRate        Name = "RATE"
	NameUnknown     Name = "UNKNOWN"
)

// vocabulary is the closed set of recognised intent names.
var vocabulary = map[Name]struct{}{
	NameSetEnergy: {}, NameSetDarkness: {}, NameSetHats: {}, NameSetBPM: {},
	NameKickOn: {}, NameBreak: {}, NameDrop: {}, NameUndo: {}, NameSave: {},
	NameReset: {}, NameProfileSet: {}, NameMacroRun: {}, NameSchedule: {},
	NameHold: {}, NameRate: {}, NameUnknown: {},
}

// ParseName maps an arbitrary string to a vocabulary Name. Whitespace is
// trimmed and the name upper-cased; unrecognised names become NameUnknown.
func ParseName(s string) Name {
	n := Name(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := vocabulary[n]; !ok {
		return NameUnknown
	}
	return n
}

// Tier is the decision-confidence bucket that accepted an intent.
type Tier string

const (
	TierKNNAuto    Tier = "knn_auto"
	TierKNNSuggest Tier = "knn_suggest"
	TierLLMAuto    Tier = "llm_auto"
	TierLLMSuggest Tier = "llm_suggest"
	TierUnknown    Tier = "unknown"
	TierConfirmed  Tier = "confirmed"
	TierCorrected  Tier = "corrected"
)

// Auto reports whether t applies without confirmation.
func (t Tier) Auto() bool { return t == TierKNNAuto || t == TierLLMAuto }

// Suggest reports whether t requires a confirmation round-trip.
func (t Tier) Suggest() bool { return t == TierKNNSuggest || t == TierLLMSuggest }

// Slots carries the validated slot values of a normalized intent. Only the
// normalizer constructs populated Slots; which fields are set depends on the
// intent name (see Normalize). Numeric fields are pointers so that "absent"
// and "zero" stay distinct — SET_ENERGY value=0 is a valid command.
type Slots struct {
	// Value is the absolute target for SET_* and KICK_ON intents.
	Value *float64

	// Delta is the relative adjustment for SET_* intents.
	Delta *float64

	// Bars is the length slot of BREAK and SCHEDULE.
	Bars *int

	// Mode is the optional BREAK variant ("filter", ...).
	Mode string

	// Name is the target of PROFILE_SET and MACRO_RUN.
	Name string

	// Action is the scheduled action keyword of SCHEDULE.
	Action string

	// Rating is the RATE verdict; one of gut, langweilig, peak, fail.
	Rating string
}

// Map renders the populated slots as a generic map, the form used for
// persistence (example store, event log) and display.
func (s Slots) Map() map[string]any {
	m := map[string]any{}
	if s.Value != nil {
		m["value"] = *s.Value
	}
	if s.Delta != nil {
		m["delta"] = *s.Delta
	}
	if s.Bars != nil {
		m["bars"] = *s.Bars
	}
	if s.Mode != "" {
		m["mode"] = s.Mode
	}
	if s.Name != "" {
		m["name"] = s.Name
	}
	if s.Action != "" {
		m["action"] = s.Action
	}
	if s.Rating != "" {
		m["rating"] = s.Rating
	}
	return m
}

// String renders the slots compactly for logs and the interactive prompt.
func (s Slots) String() string {
	parts := make([]string, 0, 4)
	for k, v := range s.Map() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, " ")
}

// Intent is a resolved command: a vocabulary name, validated slots, and the
// confidence of whichever tier produced it.
type Intent struct {
	Name       Name
	Slots      Slots
	Confidence float64
}

// Unknown is the zero-confidence UNKNOWN intent.
func Unknown() Intent {
	return Intent{Name: NameUnknown}
}
