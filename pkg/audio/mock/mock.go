// Package mock provides an in-memory audio.Recorder for tests.
package mock

import (
	"context"
	"sync"

	"github.com/fbruckner/takt/pkg/audio"
)

// Compile-time checks for the audio package interfaces.
var (
	_ audio.Recorder = (*Recorder)(nil)
	_ audio.Lister   = (*Recorder)(nil)
)

// Recorder returns canned sample buffers instead of touching hardware.
type Recorder struct {
	mu sync.Mutex

	// Samples is returned by every Record call.
	Samples []float32
	// Err, when set, is returned by every Record call.
	Err error
	// Devices is returned by InputDevices.
	Devices []audio.Device
	// Rate is the reported sample rate; defaults to 16000 when zero.
	Rate int

	// Calls records the requested durations of all Record invocations.
	Calls []float64

	closed bool
}

// Record implements audio.Recorder.
func (r *Recorder) Record(_ context.Context, seconds float64) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, seconds)
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Samples, nil
}

// SampleRate implements audio.Recorder.
func (r *Recorder) SampleRate() int {
	if r.Rate > 0 {
		return r.Rate
	}
	return 16000
}

// InputDevices implements audio.Lister.
func (r *Recorder) InputDevices() ([]audio.Device, error) {
	return r.Devices, nil
}

// Close implements audio.Recorder.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
