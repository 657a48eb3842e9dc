package session

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Answer classifies the spoken reply to a confirmation prompt.
type Answer int

const (
	// AnswerUnclear means the reply matched no class; the confirmation
	// window stays open.
	AnswerUnclear Answer = iota

	// AnswerYes applies the pending suggestion.
	AnswerYes

	// AnswerNo opens the correction round.
	AnswerNo

	// AnswerCancel discards the pending suggestion.
	AnswerCancel
)

// answerWords maps each class to its spoken forms, German first.
var answerWords = map[Answer][]string{
	AnswerYes:    {"ja", "yes", "j", "y", "bestätigen"},
	AnswerNo:     {"nein", "no", "n"},
	AnswerCancel: {"abbrechen", "cancel", "abbruch"},
}

// fuzzyAnswerThreshold is the minimum Jaro-Winkler score for accepting a
// near-miss transcription ("jah", "cancle") as an answer word. Single-letter
// forms are exact-only; fuzzy matching them would swallow everything.
const fuzzyAnswerThreshold = 0.88

// ClassifyAnswer maps a transcribed reply to an answer class. The first
// word decides: exact match against the known forms first, then a
// Jaro-Winkler pass to absorb STT misspellings.
func ClassifyAnswer(reply string) Answer {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(reply)))
	if len(fields) == 0 {
		return AnswerUnclear
	}
	word := fields[0]

	for class, words := range answerWords {
		for _, w := range words {
			if word == w {
				return class
			}
		}
	}

	best, bestScore := AnswerUnclear, 0.0
	for class, words := range answerWords {
		for _, w := range words {
			if len(w) < 2 {
				continue
			}
			score := matchr.JaroWinkler(word, w, true)
			if score > bestScore {
				best, bestScore = class, score
			}
		}
	}
	if bestScore >= fuzzyAnswerThreshold {
		return best
	}
	return AnswerUnclear
}
