// Package profile defines the static operating envelopes a live set runs
// under. A profile constrains tempo and parameter ranges for a performance
// context (warming up, peak time, ...); the registry is fixed at compile
// time and never mutated.
package profile

import "strings"

// Range is an inclusive parameter interval.
type Range struct {
	Lo, Hi float64
}

// Profile is a named safety envelope.
type Profile struct {
	Name              string
	BPMMin, BPMMax    int
	MaxDeltaPerMinute float64

	// ParamClamps bounds individual parameters; parameters without an entry
	// pass through unchanged.
	ParamClamps map[string]Range

	// AllowedActions names the action classes permitted in this envelope.
	AllowedActions map[string]struct{}

	// Defaults are applied to session state when the profile is activated.
	Defaults map[string]float64

	// DefaultBPM is dispatched alongside Defaults on activation.
	DefaultBPM int
}

// Allows reports whether the action class is permitted in this envelope.
func (p *Profile) Allows(action string) bool {
	_, ok := p.AllowedActions[action]
	return ok
}

// Clamp constrains value into this profile's range for param, if one is
// defined. Parameters without a clamp pass through unchanged.
func (p *Profile) Clamp(value float64, param string) float64 {
	r, ok := p.ParamClamps[param]
	if !ok {
		return value
	}
	return max(r.Lo, min(r.Hi, value))
}

// registry holds the built-in envelopes.
var registry = map[string]*Profile{
	"warmup": {
		Name:              "warmup",
		BPMMin:            115,
		BPMMax:            128,
		MaxDeltaPerMinute: 2.0,
		ParamClamps: map[string]Range{
			"energy":   {0.2, 0.6},
			"darkness": {0.3, 0.7},
			"hats":     {0.3, 0.6},
		},
		AllowedActions: actionSet("bpm_small", "break", "energy", "darkness", "hats"),
		Defaults:       map[string]float64{"energy": 0.4, "darkness": 0.5, "hats": 0.45},
		DefaultBPM:     122,
	},
	"peak": {
		Name:              "peak",
		BPMMin:            125,
		BPMMax:            135,
		MaxDeltaPerMinute: 5.0,
		ParamClamps: map[string]Range{
			"energy":   {0.5, 1.0},
			"darkness": {0.2, 0.8},
			"hats":     {0.4, 1.0},
		},
		AllowedActions: actionSet("bpm", "break", "drop", "energy", "darkness", "hats", "macro"),
		Defaults:       map[string]float64{"energy": 0.75, "darkness": 0.4, "hats": 0.7},
		DefaultBPM:     128,
	},
	"afterhour": {
		Name:              "afterhour",
		BPMMin:            110,
		BPMMax:            122,
		MaxDeltaPerMinute: 3.0,
		ParamClamps: map[string]Range{
			"energy":   {0.2, 0.6},
			"darkness": {0.5, 0.95},
			"hats":     {0.2, 0.6},
		},
		AllowedActions: actionSet("bpm_small", "break", "energy", "darkness", "hats"),
		Defaults:       map[string]float64{"energy": 0.35, "darkness": 0.7, "hats": 0.4},
		DefaultBPM:     118,
	},
	"industrial": {
		Name:              "industrial",
		BPMMin:            130,
		BPMMax:            145,
		MaxDeltaPerMinute: 4.0,
		ParamClamps: map[string]Range{
			"energy":   {0.6, 1.0},
			"darkness": {0.4, 0.9},
			"hats":     {0.5, 1.0},
		},
		AllowedActions: actionSet("bpm", "break", "drop", "energy", "darkness", "hats", "macro"),
		Defaults:       map[string]float64{"energy": 0.8, "darkness": 0.6, "hats": 0.75},
		DefaultBPM:     135,
	},
}

// Get looks up a profile case-insensitively. Returns nil when absent —
// callers must handle the negative case (an unknown PROFILE_SET is a no-op,
// not an error).
func Get(name string) *Profile {
	return registry[strings.ToLower(strings.TrimSpace(name))]
}

// List returns the registered profile names.
func List() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}

func actionSet(actions ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		s[a] = struct{}{}
	}
	return s
}
