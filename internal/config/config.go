// SPDX-License-Identifier: MIT

// Package config loads the application configuration from defaults, an
// optional YAML file, a .env file and ENV_* environment overrides.
package config

import (
	"specview/internal/colormap"
	"specview/internal/spectrogram"
)

// Core configuration constants that define the boundaries and defaults
// for the analysis engine.
const (
	// Analysis defaults
	DefaultFFTSize   = spectrogram.DefaultFFTSize   // 2048-point frames
	DefaultHopSize   = spectrogram.DefaultHopSize   // 75% overlap at the default size
	DefaultWindow    = "hann"                       // Hann window
	DefaultMinDB     = spectrogram.DefaultMinDB     // Colour floor (dB)
	DefaultMaxDB     = spectrogram.DefaultMaxDB     // Colour ceiling (dB)
	DefaultMaxFrames = spectrogram.DefaultMaxFrames // Output width cap
	DefaultColorMap  = colormap.Default             // Magma-like palette

	// Scheduler defaults
	DefaultOffload  = true // Compute on the worker goroutine
	DefaultFallback = true // Recompute inline when the worker fails

	// Capture defaults
	DefaultDeviceID        = MinDeviceID // System default input device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultCaptureSeconds  = 5           // Length of a capture take

	// Transport defaults
	DefaultWSAddress = "localhost:8080"

	DefaultLogLevel = "info"

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
	MaxFFTSize      = spectrogram.MaxFFTSize
)

// NewConfig returns a Config holding the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Spectrogram: SpectrogramConfig{
			FFTSize:   DefaultFFTSize,
			HopSize:   DefaultHopSize,
			Window:    DefaultWindow,
			MinDB:     DefaultMinDB,
			MaxDB:     DefaultMaxDB,
			MaxFrames: DefaultMaxFrames,
			ColorMap:  DefaultColorMap,
		},
		Scheduler: SchedulerConfig{
			Offload:  DefaultOffload,
			Fallback: DefaultFallback,
		},
		Capture: CaptureConfig{
			Device:          DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			Seconds:         DefaultCaptureSeconds,
		},
		Transport: TransportConfig{
			WSAddress: DefaultWSAddress,
		},
	}
}
