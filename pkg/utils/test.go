// Package utils holds synthetic signal helpers shared by the package tests.
package utils

import "math"

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics, peaking
// at 0.9 full scale.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2 // 440Hz fundamental + harmonics
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// GenerateSineWave returns size samples of a pure tone with the given peak
// amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * amplitude)
	}
	return buffer
}

// GenerateChirp sweeps linearly from startHz to endHz over size samples.
func GenerateChirp(size int, sampleRate, startHz, endHz float64) []float32 {
	buffer := make([]float32, size)
	if size == 0 {
		return buffer
	}
	duration := float64(size) / sampleRate
	rate := (endHz - startHz) / duration
	for i := range buffer {
		t := float64(i) / sampleRate
		phase := 2 * math.Pi * (startHz*t + 0.5*rate*t*t)
		buffer[i] = float32(math.Sin(phase) * 0.5)
	}
	return buffer
}

func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
