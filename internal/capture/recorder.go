// SPDX-License-Identifier: MIT

// Package capture records mono audio from a PortAudio input device so a
// live take can be analysed like a decoded file.
package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	applog "specview/internal/log"
)

// Config describes one recording.
type Config struct {
	DeviceID        int
	SampleRate      float64
	FramesPerBuffer int
	Duration        time.Duration
	LowLatency      bool
}

// Validate checks the recording parameters.
func (c Config) Validate() error {
	if c.DeviceID < DefaultDeviceID {
		return fmt.Errorf("invalid device ID: %d", c.DeviceID)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %g", c.SampleRate)
	}
	if c.FramesPerBuffer <= 0 {
		return fmt.Errorf("frames per buffer must be positive, got %d", c.FramesPerBuffer)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", c.Duration)
	}
	return nil
}

// take accumulates samples from the stream callback until it is full.
type take struct {
	mu      sync.Mutex
	samples []float32
	full    chan struct{}
	once    sync.Once
}

func newTake(n int) *take {
	return &take{samples: make([]float32, 0, n), full: make(chan struct{})}
}

// write is the PortAudio callback. It never grows the slice past its
// capacity.
func (t *take) write(in []float32) {
	t.mu.Lock()
	room := cap(t.samples) - len(t.samples)
	if room > 0 {
		t.samples = append(t.samples, in[:min(room, len(in))]...)
		room = cap(t.samples) - len(t.samples)
	}
	t.mu.Unlock()

	if room == 0 {
		t.once.Do(func() { close(t.full) })
	}
}

func (t *take) result() []float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.samples
}

// Record captures cfg.Duration of mono audio. It returns early with the
// samples gathered so far if ctx is cancelled. PortAudio must be
// initialised.
func Record(ctx context.Context, cfg Config) ([]float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	device, err := InputDevice(cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	latency := device.DefaultHighInputLatency
	if cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: cfg.FramesPerBuffer,
		SampleRate:      cfg.SampleRate,
	}

	tk := newTake(int(math.Ceil(cfg.Duration.Seconds() * cfg.SampleRate)))
	stream, err := portaudio.OpenStream(params, tk.write)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}
	applog.Infof("Capture: Recording %s from %q at %.0f Hz", cfg.Duration, device.Name, cfg.SampleRate)

	var cause error
	select {
	case <-tk.full:
	case <-ctx.Done():
		cause = ctx.Err()
	}

	if err := stream.Stop(); err != nil {
		return nil, fmt.Errorf("failed to stop input stream: %w", err)
	}

	samples := tk.result()
	if cause != nil {
		applog.Warnf("Capture: Interrupted after %d samples: %v", len(samples), cause)
		if errors.Is(cause, context.Canceled) && len(samples) > 0 {
			return samples, nil
		}
		return samples, cause
	}

	applog.Infof("Capture: Recorded %d samples (peak %.3f)", len(samples), Peak(samples))
	return samples, nil
}

// Peak returns the largest absolute sample value.
func Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		peak = max(peak, float32(math.Abs(float64(s))))
	}
	return peak
}

// TrimSilence drops leading and trailing samples whose magnitude is below
// threshold (0..1). It returns a sub-slice of samples.
func TrimSilence(samples []float32, threshold float32) []float32 {
	threshold = max(0, min(1, threshold))

	start := 0
	for start < len(samples) && float32(math.Abs(float64(samples[start]))) < threshold {
		start++
	}
	end := len(samples)
	for end > start && float32(math.Abs(float64(samples[end-1]))) < threshold {
		end--
	}
	return samples[start:end]
}

// SaveWAV writes samples as a 16-bit mono WAV file.
func SaveWAV(path string, samples []float32, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := wav.NewEncoder(file, sampleRate, 16, 1, 1)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		v := math.Round(float64(s) * math.MaxInt16)
		buf.Data[i] = int(max(math.MinInt16, min(math.MaxInt16, v)))
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalise WAV file: %w", err)
	}
	return file.Close()
}
