// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
)

func zeroCrossings(s []float32) int {
	n := 0
	for i := 1; i < len(s); i++ {
		if (s[i-1] < 0) != (s[i] < 0) {
			n++
		}
	}
	return n
}

func peakAbs(s []float32) float64 {
	var p float64
	for _, v := range s {
		p = max(p, math.Abs(float64(v)))
	}
	return p
}

func TestGenerateSineWave(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		frequency  float64
		amplitude  float64
	}{
		{"1kHz at 8kHz", 8000, 1000, 0.5},
		{"440Hz at 44.1kHz", 44100, 440, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := int(tt.sampleRate) // one second
			wave := GenerateSineWave(size, tt.sampleRate, tt.frequency, tt.amplitude)

			if len(wave) != size {
				t.Fatalf("len = %d, want %d", len(wave), size)
			}
			if p := peakAbs(wave); p > tt.amplitude+1e-6 || p < tt.amplitude*0.95 {
				t.Errorf("peak = %g, want ≈ %g", p, tt.amplitude)
			}
			// Two crossings per cycle.
			if n, want := zeroCrossings(wave), 2*tt.frequency; math.Abs(float64(n)-want) > 2 {
				t.Errorf("zero crossings = %d, want %g ± 2", n, want)
			}
		})
	}
}

func TestGenerateComplexWaveStaysInRange(t *testing.T) {
	wave := GenerateComplexWave(8000, 8000)
	if p := peakAbs(wave); p == 0 || p > 0.9+1e-6 {
		t.Errorf("peak = %g, want in (0, 0.9]", p)
	}
}

func TestGenerateChirpRises(t *testing.T) {
	if got := GenerateChirp(0, 8000, 100, 1000); len(got) != 0 {
		t.Errorf("GenerateChirp(0) length = %d, want 0", len(got))
	}

	chirp := GenerateChirp(8000, 8000, 100, 3000)
	quarter := len(chirp) / 4
	early := zeroCrossings(chirp[:quarter])
	late := zeroCrossings(chirp[len(chirp)-quarter:])
	if late <= early {
		t.Errorf("chirp did not rise: early crossings %d, late %d", early, late)
	}
}

func TestFindPeakBinClampsRange(t *testing.T) {
	mags := []float64{0, 1, 5, 2, 9, 3}

	tests := []struct {
		name       string
		start, end int
		want       int
	}{
		{"full", 0, 5, 4},
		{"before global peak", 0, 3, 2},
		{"negative start", -3, 5, 4},
		{"end past slice", 0, 100, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(mags, tt.start, tt.end); got != tt.want {
				t.Errorf("FindPeakBin(%d, %d) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}

	if got := FindPeakBin(nil, 0, 10); got != 0 {
		t.Errorf("FindPeakBin(nil) = %d, want 0", got)
	}
}
