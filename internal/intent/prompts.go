package intent

// systemPrompt is the fixed instruction given to the generative classifier.
// It pins the closed vocabulary and the per-intent slot contracts so the
// model has no room to invent intents. The interface language stays German
// because the performer speaks German commands.
const systemPrompt = `Du bist ein Intent-Parser für eine Techno-Sprachsteuerung.
Antworte NUR mit einem einzigen JSON-Objekt. Kein anderer Text, kein Markdown.
Format: {"intent":"NAME","slots":{...},"confidence":0.0-1.0}

Erlaubte Intents: SET_ENERGY, SET_DARKNESS, SET_HATS, SET_BPM, KICK_ON, BREAK, DROP, UNDO, SAVE, RESET, PROFILE_SET, MACRO_RUN, SCHEDULE, HOLD, RATE, UNKNOWN

Slots je Intent:
- SET_ENERGY: value (0-1) oder delta (-1 bis 1)
- SET_DARKNESS: value oder delta
- SET_HATS: value oder delta
- SET_BPM: value (60-200) oder delta (-50 bis 50)
- KICK_ON: value (0 oder 1)
- BREAK: bars (4/8/16/32), mode (optional)
- PROFILE_SET: name (string)
- MACRO_RUN: name (string)
- SCHEDULE: action (string), bars (int)
- HOLD: (leere slots)
- RATE: rating (gut/langweilig/peak/fail)

Bei Unklarheit: intent UNKNOWN, confidence niedrig.`

// strictRetryPrefix is prepended to the user prompt on the single retry after
// a failed JSON extraction.
const strictRetryPrefix = "Antworte NUR mit einem JSON-Objekt, kein anderer Text. "

// userPrompt formats the utterance for the classifier.
func userPrompt(phrase string) string {
	return "Phrase: \"" + phrase + "\"\nJSON:"
}
