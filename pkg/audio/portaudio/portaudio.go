// Package portaudio implements audio.Recorder on top of PortAudio, capturing
// mono float32 PCM from a host input device.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/fbruckner/takt/pkg/audio"
)

// Compile-time checks for the audio package interfaces.
var (
	_ audio.Recorder = (*Recorder)(nil)
	_ audio.Lister   = (*Recorder)(nil)
)

const (
	defaultSampleRate = 16000
	framesPerBuffer   = 1024
)

// Recorder records mono audio via PortAudio. Construct with New and release
// with Close; only one recording may be in flight at a time.
type Recorder struct {
	sampleRate int
	device     *pa.DeviceInfo // nil means backend default

	mu     sync.Mutex
	closed bool

	closeOnce sync.Once
}

// Option is a functional option for Recorder.
type Option func(*Recorder)

// WithSampleRate overrides the capture sample rate. Defaults to 16000 Hz,
// which is what speech models expect.
func WithSampleRate(rate int) Option {
	return func(r *Recorder) {
		if rate > 0 {
			r.sampleRate = rate
		}
	}
}

// New initializes PortAudio and opens the input device matching selector
// (see audio.ResolveDevice; empty selects the host default).
func New(selector string, opts ...Option) (*Recorder, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	r := &Recorder{sampleRate: defaultSampleRate}
	for _, o := range opts {
		o(r)
	}

	devices, err := r.InputDevices()
	if err != nil {
		pa.Terminate()
		return nil, err
	}
	resolved, err := audio.ResolveDevice(devices, selector)
	if err != nil {
		pa.Terminate()
		return nil, err
	}
	if resolved.Index >= 0 {
		infos, err := pa.Devices()
		if err != nil {
			pa.Terminate()
			return nil, fmt.Errorf("portaudio: list devices: %w", err)
		}
		r.device = infos[resolved.Index]
	}
	return r, nil
}

// InputDevices implements audio.Lister.
func (r *Recorder) InputDevices() ([]audio.Device, error) {
	infos, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: list devices: %w", err)
	}
	var devices []audio.Device
	for i, info := range infos {
		if info.MaxInputChannels < 1 {
			continue
		}
		devices = append(devices, audio.Device{
			Index:             i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		})
	}
	return devices, nil
}

// SampleRate implements audio.Recorder.
func (r *Recorder) SampleRate() int {
	return r.sampleRate
}

// Record implements audio.Recorder. It blocks for the full duration unless
// the context is cancelled first.
func (r *Recorder) Record(ctx context.Context, seconds float64) ([]float32, error) {
	if seconds <= 0 {
		return nil, fmt.Errorf("portaudio: invalid duration %v", seconds)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("portaudio: recorder is closed")
	}

	buf := make([]float32, framesPerBuffer)
	stream, err := r.openStream(buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("portaudio: start stream: %w", err)
	}
	defer stream.Stop()

	total := int(seconds * float64(r.sampleRate))
	samples := make([]float32, 0, total)
	for len(samples) < total {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("portaudio: %w", err)
		}
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("portaudio: read stream: %w", err)
		}
		n := total - len(samples)
		if n > len(buf) {
			n = len(buf)
		}
		samples = append(samples, buf[:n]...)
	}
	return samples, nil
}

func (r *Recorder) openStream(buf []float32) (*pa.Stream, error) {
	if r.device == nil {
		stream, err := pa.OpenDefaultStream(1, 0, float64(r.sampleRate), framesPerBuffer, buf)
		if err != nil {
			return nil, fmt.Errorf("portaudio: open default stream: %w", err)
		}
		return stream, nil
	}
	params := pa.StreamParameters{
		Input: pa.StreamDeviceParameters{
			Device:   r.device,
			Channels: 1,
			Latency:  r.device.DefaultLowInputLatency,
		},
		SampleRate:      float64(r.sampleRate),
		FramesPerBuffer: framesPerBuffer,
	}
	stream, err := pa.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open stream for %q: %w", r.device.Name, err)
	}
	return stream, nil
}

// Close terminates PortAudio. Safe to call multiple times.
func (r *Recorder) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		err = pa.Terminate()
	})
	return err
}
