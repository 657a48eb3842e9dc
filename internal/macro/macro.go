// Package macro defines bar-offset step sequences and the engine that plays
// them against live session state. A macro is static and read-only; running
// one only tracks which steps have fired this activation.
package macro

import "strings"

// StepKind discriminates what a step does. Only parameter adjustment exists
// today; the kind field keeps room for transport-level steps.
type StepKind string

const (
	// KindSetParam adjusts a continuous session parameter, relatively
	// (Delta) or absolutely (Value).
	KindSetParam StepKind = "set_param"
)

// Step is one macro action, gated purely by bar arrival.
type Step struct {
	// BarOffset is the bar, counted from macro activation handling, at or
	// after which the step fires. Each step fires at most once per run.
	BarOffset int

	Kind  StepKind
	Param string

	// Delta, when set, is added to the parameter's current value.
	Delta *float64

	// Value, when set (and Delta is not), replaces the parameter.
	Value *float64
}

// Macro is a named, ordered step sequence.
type Macro struct {
	Name  string
	Steps []Step
}

// registry holds the built-in macros. Offsets and deltas are tuned for slow
// techno arcs: small moves every few bars.
var registry = map[string]*Macro{
	"hypnotischer_zug": {
		Name: "hypnotischer_zug",
		Steps: []Step{
			delta(0, "hats", -0.1),
			delta(4, "darkness", 0.1),
			delta(8, "energy", 0.1),
			delta(12, "hats", 0.15),
		},
	},
	"mechanischer_groove": {
		Name: "mechanischer_groove",
		Steps: []Step{
			delta(0, "hats", 0.1),
			delta(4, "energy", 0.05),
			delta(8, "darkness", -0.05),
		},
	},
	"schmutziger_peak": {
		Name: "schmutziger_peak",
		Steps: []Step{
			delta(0, "energy", 0.2),
			delta(4, "darkness", 0.1),
			delta(8, "hats", 0.15),
		},
	},
	"micro_variation": {
		Name: "micro_variation",
		Steps: []Step{
			delta(0, "hats", -0.02),
			delta(2, "hats", 0.02),
			delta(4, "hats", -0.02),
			delta(6, "hats", 0.02),
		},
	},
	"tighten_hats": {
		Name: "tighten_hats",
		Steps: []Step{
			delta(0, "hats", -0.05),
			delta(4, "hats", 0.03),
			delta(8, "hats", -0.02),
		},
	},
}

// Get looks up a macro by name, tolerating case and spoken separators:
// "Hypnotischer Zug" and "hypnotischer-zug" both resolve. Returns nil when
// absent.
func Get(name string) *Macro {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer(" ", "_", "-", "_").Replace(n)
	return registry[n]
}

// List returns the registered macro names.
func List() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}

func delta(offset int, param string, d float64) Step {
	return Step{BarOffset: offset, Kind: KindSetParam, Param: param, Delta: &d}
}
