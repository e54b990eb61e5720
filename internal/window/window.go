// SPDX-License-Identifier: MIT

// Package window generates the analysis windows applied to each STFT frame.
// Coefficients follow the symmetric (n-1) definitions:
//
//	Hann:     w[i] = 0.5 * (1 - cos(2*pi*i/(n-1)))
//	Hamming:  w[i] = 0.54 - 0.46*cos(2*pi*i/(n-1))
//	Blackman: w[i] = 0.42 - 0.5*cos(2*pi*i/(n-1)) + 0.08*cos(4*pi*i/(n-1))
//
// n == 1 divides by zero; callers guarantee n >= 2.
package window

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// Kind selects a window function. The set is closed.
type Kind int

// Enum for available window functions.
const (
	Hann Kind = iota
	Hamming
	Blackman
)

// String returns the lower-case name used in configuration files.
func (k Kind) String() string {
	switch k {
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Blackman:
		return "blackman"
	default:
		return fmt.Sprintf("window(%d)", int(k))
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= Hann && k <= Blackman
}

// ParseKind converts a name (case-insensitive) to a Kind. It returns Hann
// and an error if the name is unknown.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	default:
		return Hann, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// New returns n coefficients of the selected window.
func New(kind Kind, n int) []float64 {
	coeffs := make([]float64, n)
	Fill(coeffs, kind)
	return coeffs
}

// Fill overwrites coeffs with the selected window. The gonum functions
// multiply in place, so the slice is reset to ones first. An invalid kind
// leaves a rectangular window.
func Fill(coeffs []float64, kind Kind) {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch kind {
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	}
}
