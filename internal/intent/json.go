package intent

import (
	"encoding/json"
	"regexp"
)

// objectPattern matches the first brace-balanced object in free text, one
// nesting level deep — enough for {"intent":...,"slots":{...}} shapes while
// staying tolerant of prose around it.
var objectPattern = regexp.MustCompile(`(?s)\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)

// ExtractJSON finds the first JSON-like object embedded in text and decodes
// it. Returns false when no object is found or the candidate does not parse.
func ExtractJSON(text string) (map[string]any, bool) {
	candidate := objectPattern.FindString(text)
	if candidate == "" {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(candidate), &m); err != nil {
		return nil, false
	}
	return m, true
}
