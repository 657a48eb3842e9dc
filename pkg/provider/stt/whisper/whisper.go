// Package whisper implements stt.Transcriber with the whisper.cpp CGO
// bindings, running speech recognition fully locally. The whisper.cpp
// static library (libwhisper.a) and headers must be available at link time
// via LIBRARY_PATH and C_INCLUDE_PATH.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/fbruckner/takt/pkg/provider/stt"
)

// Compile-time check that *Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

const defaultLanguage = "de"

// Transcriber transcribes buffered utterances with whisper.cpp. The model
// is loaded once at construction and shared; each Transcribe call creates
// its own whisper context, so concurrent calls do not interfere.
type Transcriber struct {
	model    whisperlib.Model
	language string

	// closeOnce guards the model teardown.
	closeOnce sync.Once
}

// Option is a functional option for Transcriber.
type Option func(*Transcriber)

// WithLanguage sets the transcription language code ("de", "en", ...).
// Defaults to "de".
func WithLanguage(lang string) Option {
	return func(t *Transcriber) {
		if lang != "" {
			t.language = lang
		}
	}
}

// New loads the whisper.cpp model from modelPath. The caller must Close the
// transcriber when done.
func New(modelPath string, opts ...Option) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	t := &Transcriber{model: model, language: defaultLanguage}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the model.
func (t *Transcriber) Close() error {
	var err error
	t.closeOnce.Do(func() {
		if t.model != nil {
			err = t.model.Close()
		}
	})
	return err
}

// Transcribe implements stt.Transcriber. Empty input or pure silence comes
// back as "".
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	if len(samples) == 0 {
		return "", nil
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: new context: %w", err)
	}
	if err := wctx.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("whisper: set language %q: %w", t.language, err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
