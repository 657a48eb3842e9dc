// Package mock provides a scriptable stt.Transcriber for tests.
package mock

import (
	"context"
	"sync"

	"github.com/fbruckner/takt/pkg/provider/stt"
)

// Compile-time check that *Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber returns scripted transcripts in order. When the script is
// exhausted the last entry repeats; an empty script yields "".
type Transcriber struct {
	mu sync.Mutex

	// Transcripts are returned one per call, in order.
	Transcripts []string
	// Err, when set, is returned by every call.
	Err error

	// Calls records the sample buffer lengths of all invocations.
	Calls []int

	next int
}

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(_ context.Context, samples []float32) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, len(samples))
	if t.Err != nil {
		return "", t.Err
	}
	if len(t.Transcripts) == 0 {
		return "", nil
	}
	i := t.next
	if i >= len(t.Transcripts) {
		i = len(t.Transcripts) - 1
	}
	t.next++
	return t.Transcripts[i], nil
}
