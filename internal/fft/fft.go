// SPDX-License-Identifier: MIT

// Package fft implements the in-place radix-2 Cooley-Tukey transform used by
// the spectrogram rasterizer. It works on caller-owned real/imaginary slices
// so one pair of scratch buffers can be reused for every frame.
package fft

import (
	"math"

	"specview/pkg/bitint"
)

// Transform replaces (re, im) with their forward discrete Fourier transform,
//
//	X[k] = sum_j x[j] * e^(-2*pi*i*j*k/n)
//
// without normalisation. len(re) must equal len(im) and be a power of two;
// neither is checked, a violation produces meaningless output rather than an
// error. Transform does not allocate.
//
// The twiddle factor for each stage is advanced by complex multiplication, so
// a transform of length n makes log2(n) trigonometric calls instead of one
// per butterfly.
func Transform(re, im []float64) {
	n := len(re)
	if n < 2 {
		return
	}

	// --- 1. Bit-reversal permutation ---
	width := bitint.Log2(n)
	for i := range n {
		j := bitint.ReverseBits(i, width)
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	// --- 2. Butterfly stages ---
	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		stepSin, stepCos := math.Sincos(-2 * math.Pi / float64(size))

		for start := 0; start < n; start += size {
			wr, wi := 1.0, 0.0
			for k := range half {
				a := start + k
				b := a + half

				tr := wr*re[b] - wi*im[b]
				ti := wr*im[b] + wi*re[b]

				re[b] = re[a] - tr
				im[b] = im[a] - ti
				re[a] += tr
				im[a] += ti

				wr, wi = wr*stepCos-wi*stepSin, wr*stepSin+wi*stepCos
			}
		}
	}
}

// Magnitude returns |X[b]| for a transformed buffer pair.
func Magnitude(re, im []float64, b int) float64 {
	return math.Sqrt(re[b]*re[b] + im[b]*im[b])
}

// BinFrequency returns the centre frequency (Hz) of bin b for a transform of
// length n over audio sampled at sampleRate.
func BinFrequency(b, n int, sampleRate float64) float64 {
	if n <= 0 {
		return 0
	}
	return float64(b) * sampleRate / float64(n)
}
