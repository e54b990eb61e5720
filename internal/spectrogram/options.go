// SPDX-License-Identifier: MIT

// Package spectrogram turns a mono sample buffer into a time-frequency RGBA
// image with a Short-Time Fourier Transform. Each analysis frame becomes one
// column; row 0 holds the highest frequency bin.
package spectrogram

import (
	"errors"
	"fmt"
	"math"

	"specview/internal/window"
	"specview/pkg/bitint"
)

const (
	DefaultFFTSize   = 2048
	DefaultHopSize   = 512
	DefaultMinDB     = -90.0
	DefaultMaxDB     = -10.0
	DefaultMaxFrames = 10000

	// MaxFFTSize bounds the frame length so scratch buffers stay allocatable.
	MaxFFTSize = 1 << 16
)

// Options describe one analysis request. They are treated as immutable once
// the request is issued.
type Options struct {
	FFTSize    int         // Frame length, power of two.
	HopSize    int         // Frame advance in samples.
	Window     window.Kind // Analysis window applied to every frame.
	MinDB      float64     // Colour floor.
	MaxDB      float64     // Colour ceiling.
	SampleRate float64     // Hz.
	MaxFrames  int         // Hard cap on output width.
}

// DefaultOptions returns the standard analysis settings for audio sampled at
// sampleRate.
func DefaultOptions(sampleRate float64) Options {
	return Options{
		FFTSize:    DefaultFFTSize,
		HopSize:    DefaultHopSize,
		Window:     window.Hann,
		MinDB:      DefaultMinDB,
		MaxDB:      DefaultMaxDB,
		SampleRate: sampleRate,
		MaxFrames:  DefaultMaxFrames,
	}
}

// Validate checks the preconditions the rasterizer relies on. It is the only
// place they are checked; the FFT loops assume them.
func (o Options) Validate() error {
	var errs []error

	if o.FFTSize < 2 || o.FFTSize > MaxFFTSize || !bitint.IsPowerOfTwo(o.FFTSize) {
		errs = append(errs, fmt.Errorf("fft size must be a power of two in [2, %d], got %d", MaxFFTSize, o.FFTSize))
	}
	if o.HopSize <= 0 {
		errs = append(errs, fmt.Errorf("hop size must be positive, got %d", o.HopSize))
	}
	if !o.Window.Valid() {
		errs = append(errs, fmt.Errorf("unsupported window %v", o.Window))
	}
	if !(o.MinDB < o.MaxDB) || math.IsInf(o.MinDB, 0) || math.IsInf(o.MaxDB, 0) {
		errs = append(errs, fmt.Errorf("min dB (%g) must be below max dB (%g)", o.MinDB, o.MaxDB))
	}
	if !(o.SampleRate > 0) || math.IsInf(o.SampleRate, 0) {
		errs = append(errs, fmt.Errorf("sample rate must be positive and finite, got %g", o.SampleRate))
	}
	if o.MaxFrames <= 0 {
		errs = append(errs, fmt.Errorf("max frames must be positive, got %d", o.MaxFrames))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid spectrogram options: %w", errors.Join(errs...))
	}
	return nil
}

// Bins returns the number of frequency rows an image built with o will have.
func (o Options) Bins() int {
	return o.FFTSize >> 1
}
