// SPDX-License-Identifier: MIT
package decode

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV encodes interleaved PCM data to a temporary file.
func writeWAV(t *testing.T, name string, data []int, sampleRate, bitDepth, channels int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestFileWAVMono(t *testing.T) {
	data := []int{0, 16384, -16384, 32767, -32768}
	path := writeWAV(t, "mono.wav", data, 8000, 16, 1)

	a, err := File(path)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}

	if a.SampleRate != 8000 || a.Channels != 1 || a.BitDepth != 16 || a.Format != "wav" {
		t.Errorf("metadata = %+v", a)
	}
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768, -1}
	if len(a.Samples) != len(want) {
		t.Fatalf("len(Samples) = %d, want %d", len(a.Samples), len(want))
	}
	for i := range want {
		if math.Abs(float64(a.Samples[i]-want[i])) > 1e-6 {
			t.Errorf("Samples[%d] = %g, want %g", i, a.Samples[i], want[i])
		}
	}
	if want := time.Duration(float64(len(data)) / 8000 * float64(time.Second)); a.Duration != want {
		t.Errorf("Duration = %v, want %v", a.Duration, want)
	}
}

func TestFileWAVKeepsFirstChannel(t *testing.T) {
	// Left ramps up, right is constant.
	var data []int
	for i := range 100 {
		data = append(data, i*100, 9999)
	}
	path := writeWAV(t, "stereo.wav", data, 44100, 16, 2)

	a, err := File(path)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if a.Channels != 2 {
		t.Errorf("Channels = %d, want 2", a.Channels)
	}
	if len(a.Samples) != 100 {
		t.Fatalf("len(Samples) = %d, want 100", len(a.Samples))
	}
	for i, s := range a.Samples {
		if want := float32(i*100) / 32768; math.Abs(float64(s-want)) > 1e-6 {
			t.Fatalf("Samples[%d] = %g, want %g (left channel)", i, s, want)
		}
	}
}

func TestAudioBufferTransfersOwnership(t *testing.T) {
	path := writeWAV(t, "short.wav", []int{1, 2, 3, 4}, 8000, 16, 1)
	a, err := File(path)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}

	buf := a.Buffer()
	if a.Samples != nil {
		t.Error("Audio still holds samples after Buffer()")
	}
	samples, err := buf.Detach()
	if err != nil || len(samples) != 4 {
		t.Errorf("Detach() = %d samples, %v", len(samples), err)
	}
}

func TestFileErrors(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "noise.wav")
	if err := os.WriteFile(garbage, []byte("definitely not RIFF data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := File(garbage); err == nil {
		t.Error("File() accepted an invalid WAV")
	}

	if _, err := File(filepath.Join(dir, "notes.txt")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("File(.txt) error = %v, want ErrUnsupportedFormat", err)
	}

	if _, err := File(filepath.Join(dir, "missing.wav")); err == nil {
		t.Error("File() on a missing path returned no error")
	}
}

func TestFLACRejectsNonFLAC(t *testing.T) {
	if _, err := FLAC(bytes.NewReader([]byte("RIFF....WAVEfmt "))); err == nil {
		t.Error("FLAC() accepted a stream without the fLaC signature")
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.wav", true},
		{"B.WAV", true},
		{"dir/c.flac", true},
		{"d.mp3", true},
		{"e.ogg", false},
		{"wav", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Supported(tt.path); got != tt.want {
				t.Errorf("Supported(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	exts := Extensions()
	exts[0] = ".xyz"
	if Extensions()[0] == ".xyz" {
		t.Error("Extensions() exposed the internal slice")
	}
}
