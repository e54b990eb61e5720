// SPDX-License-Identifier: MIT

// Package decode loads audio files into mono float32 sample buffers for the
// spectrogram engine. WAV, FLAC and MP3 are supported. Multi-channel sources
// keep channel 0 only; the samples are scaled to [-1, 1).
package decode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "specview/internal/log"
	"specview/internal/spectrogram"
)

// ErrUnsupportedFormat is returned for files whose extension has no decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Audio is a decoded, single-channel recording.
type Audio struct {
	Samples    []float32
	SampleRate int
	Channels   int // channel count of the source, before channel 0 was taken
	BitDepth   int
	Format     string
	Duration   time.Duration
}

// Buffer moves the samples into a SampleBuffer ready for submission. The
// Audio no longer holds them afterwards.
func (a *Audio) Buffer() *spectrogram.SampleBuffer {
	buf := spectrogram.NewSampleBuffer(a.Samples)
	a.Samples = nil
	return buf
}

func newAudio(format string, samples []float32, sampleRate, channels, bitDepth int) (*Audio, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%s: invalid sample rate %d", format, sampleRate)
	}
	seconds := float64(len(samples)) / float64(sampleRate)
	return &Audio{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   bitDepth,
		Format:     format,
		Duration:   time.Duration(seconds * float64(time.Second)),
	}, nil
}

var extensions = []string{".wav", ".flac", ".mp3"}

// Supported reports whether path has an extension File can decode.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Extensions returns the file extensions File understands.
func Extensions() []string {
	return append([]string(nil), extensions...)
}

// File decodes the audio file at path, choosing the decoder by extension.
func File(path string) (*Audio, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	var a *Audio
	switch ext {
	case ".wav":
		a, err = WAV(f)
	case ".flac":
		a, err = FLAC(f)
	case ".mp3":
		a, err = MP3(f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	applog.Infof("Decode: %s %s, %d Hz, %d ch, %d samples (%s)",
		a.Format, filepath.Base(path), a.SampleRate, a.Channels, len(a.Samples), a.Duration.Round(time.Millisecond))
	if a.Channels > 1 {
		applog.Debugf("Decode: Using channel 0 of %d", a.Channels)
	}
	return a, nil
}

// scaleInt converts a signed integer sample of the given bit depth to a
// float in [-1, 1).
func scaleInt(v int, bitDepth int) float32 {
	return float32(float64(v) / float64(int64(1)<<(bitDepth-1)))
}
