package intent

import (
	"fmt"
	"strconv"
	"strings"
)

// Normalize validates a raw intent against the closed vocabulary and clamps
// its slots into the documented per-intent bounds. It is the single
// constructor of populated [Slots]: downstream components never see
// out-of-range or malformed values. Unrecognised slot keys are dropped, and
// an unrecognised name yields UNKNOWN with empty slots. Normalize never
// fails — bad values are clamped or discarded, not reported.
func Normalize(name string, raw map[string]any, confidence float64) Intent {
	n := ParseName(name)
	out := Intent{Name: n, Confidence: confidence}

	switch n {
	case NameSetEnergy, NameSetDarkness, NameSetHats:
		if v, ok := rawFloat(raw, "value"); ok {
			out.Slots.Value = ptr(clamp(v, 0, 1))
		}
		if d, ok := rawFloat(raw, "delta"); ok {
			out.Slots.Delta = ptr(clamp(d, -1, 1))
		}

	case NameSetBPM:
		if v, ok := rawFloat(raw, "value"); ok {
			out.Slots.Value = ptr(float64(clampInt(int(v), 60, 200)))
		}
		if d, ok := rawFloat(raw, "delta"); ok {
			out.Slots.Delta = ptr(float64(clampInt(int(d), -50, 50)))
		}

	case NameKickOn:
		v, hasV := raw["value"]
		if !hasV {
			v = 1
		}
		out.Slots.Value = ptr(0.0)
		switch t := v.(type) {
		case bool:
			if t {
				out.Slots.Value = ptr(1.0)
			}
		case string:
			if t == "1" || t == "on" || strings.EqualFold(t, "true") {
				out.Slots.Value = ptr(1.0)
			}
		default:
			if f, ok := rawFloat(raw, "value"); ok && f == 1 {
				out.Slots.Value = ptr(1.0)
			}
		}

	case NameBreak:
		bars := 8
		switch b := raw["bars"].(type) {
		case string:
			// Spoken bar counts come back as words of the power-of-two grid.
			if mapped, ok := map[string]int{"4": 4, "8": 8, "16": 16, "32": 32}[b]; ok {
				bars = mapped
			}
		default:
			if f, ok := rawFloat(raw, "bars"); ok {
				bars = int(f)
			}
		}
		out.Slots.Bars = ptr(clampInt(bars, 4, 32))
		if m, ok := raw["mode"].(string); ok {
			out.Slots.Mode = m
		} else if raw["mode"] != nil {
			out.Slots.Mode = fmt.Sprintf("%v", raw["mode"])
		}

	case NameProfileSet, NameMacroRun:
		out.Slots.Name = rawString(raw, "name")

	case NameSchedule:
		out.Slots.Action = rawString(raw, "action")
		bars := 8.0
		if f, ok := rawFloat(raw, "bars"); ok {
			bars = f
		}
		out.Slots.Bars = ptr(clampInt(int(bars), 1, 64))

	case NameRate:
		r := strings.ToLower(rawString(raw, "rating"))
		switch r {
		case "gut", "langweilig", "peak", "fail":
			out.Slots.Rating = r
		}

	case NameDrop, NameUndo, NameSave, NameReset, NameHold, NameUnknown:
		// No slots.
	}

	return out
}

// ContextState is the slice of session state the context rules read.
type ContextState struct {
	KickOn int
}

// ApplyContext applies state-dependent remapping after normalization. Rules
// are pure: the input intent is not mutated, a copy is returned.
//
// Current rule: a BREAK with the kick already off is musically a filter
// sweep, not a drum drop-out — default the mode slot to "filter" when the
// performer did not say one.
func ApplyContext(in Intent, st ContextState) Intent {
	if in.Name == NameBreak && st.KickOn == 0 && in.Slots.Mode == "" {
		in.Slots.Mode = "filter"
	}
	return in
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func ptr[T any](v T) *T { return &v }

// rawFloat reads raw[key] as a float64, accepting JSON numbers, Go numeric
// types, and numeric strings (the LLM occasionally quotes numbers).
func rawFloat(raw map[string]any, key string) (float64, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func rawString(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
