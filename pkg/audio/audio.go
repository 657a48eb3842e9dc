// Package audio defines the interfaces and types for microphone capture used
// by the push-to-talk input loop.
//
// The primary abstraction is [Recorder]: it records a fixed-length mono buffer
// from an input device on demand. Implementations are provided by backend
// packages (audio/portaudio for real hardware, audio/mock for tests).
//
// This package lives under pkg/ because external code (alternative capture
// backends) is expected to implement [Recorder].
package audio

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Device describes an audio input device available on the host.
type Device struct {
	// Index is the backend-assigned device index.
	Index int

	// Name is the human-readable device name.
	Name string

	// MaxInputChannels is the channel count the device supports for capture.
	MaxInputChannels int

	// DefaultSampleRate in Hz as reported by the backend.
	DefaultSampleRate float64
}

// String returns a one-line description suitable for device listings.
func (d Device) String() string {
	return fmt.Sprintf("[%d] %s (in=%d, %.0f Hz)", d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
}

// Recorder captures mono PCM audio from an input device.
type Recorder interface {
	// Record captures audio for the given duration in seconds and returns
	// mono float32 samples at the recorder's configured sample rate. The
	// context cancels an in-flight recording; partial data is discarded.
	Record(ctx context.Context, seconds float64) ([]float32, error)

	// SampleRate returns the capture sample rate in Hz.
	SampleRate() int

	// Close releases the underlying device.
	Close() error
}

// Lister enumerates input devices. Backends that can enumerate hardware
// implement it alongside [Recorder] construction.
type Lister interface {
	// InputDevices returns all devices with at least one input channel.
	InputDevices() ([]Device, error)
}

// ResolveDevice picks an input device from a user-supplied selector. An empty
// selector means the backend default (returned index is -1). A numeric
// selector matches by index; anything else matches by case-insensitive name
// substring, first hit wins.
func ResolveDevice(devices []Device, selector string) (Device, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return Device{Index: -1, Name: "default"}, nil
	}
	if idx, err := strconv.Atoi(selector); err == nil {
		for _, d := range devices {
			if d.Index == idx {
				return d, nil
			}
		}
		return Device{}, fmt.Errorf("audio: no input device with index %d", idx)
	}
	needle := strings.ToLower(selector)
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), needle) {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("audio: no input device matching %q", selector)
}
