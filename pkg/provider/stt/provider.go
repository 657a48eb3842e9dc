// Package stt defines the Transcriber interface for speech-to-text
// backends.
//
// Unlike streaming voice agents, takt works push-to-talk: the recorder
// hands over one complete mono float32 buffer and the transcriber maps it
// to text in a single call. Silence or unintelligible audio yields an empty
// string with a nil error — that is a normal outcome, not a failure.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Transcriber maps a recorded sample buffer to text.
type Transcriber interface {
	// Transcribe converts samples (mono float32 PCM, the provider's
	// configured sample rate, normalised to [-1,1]) into text. Returns ""
	// on silence. Returns an error only for operational failures (model
	// not loaded, ctx cancelled).
	Transcribe(ctx context.Context, samples []float32) (string, error)
}
