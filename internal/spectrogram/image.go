// SPDX-License-Identifier: MIT
package spectrogram

import (
	"image"
	"time"
)

// Image is a rasterized spectrogram. Pixels is RGBA, row-major, Width*Height*4
// bytes. Column x is analysis frame x; row 0 is the highest frequency bin and
// row Height-1 is bin 0.
type Image struct {
	Pixels       []byte
	Width        int
	Height       int
	MaxFrequency float64 // Nyquist, SampleRate/2.
	SampleRate   float64
	Duration     float64 // Seconds of audio covered.

	HopSize int // Effective hop after frame-cap decimation.
	FFTSize int
}

// Stride returns the byte length of one row.
func (img *Image) Stride() int {
	return img.Width * 4
}

// At returns the RGBA quad at column x, row y.
func (img *Image) At(x, y int) (r, g, b, a uint8) {
	i := y*img.Stride() + x*4
	p := img.Pixels[i : i+4 : i+4]
	return p[0], p[1], p[2], p[3]
}

// BinAt returns the frequency bin drawn on row y.
func (img *Image) BinAt(y int) int {
	return img.Height - 1 - y
}

// FrequencyAt returns the centre frequency (Hz) of row y.
func (img *Image) FrequencyAt(y int) float64 {
	if img.FFTSize == 0 {
		return 0
	}
	return float64(img.BinAt(y)) * img.SampleRate / float64(img.FFTSize)
}

// TimeAt returns the start time of column x.
func (img *Image) TimeAt(x int) time.Duration {
	if img.SampleRate <= 0 {
		return 0
	}
	seconds := float64(x*img.HopSize) / img.SampleRate
	return time.Duration(seconds * float64(time.Second))
}

// RGBA exposes the pixels as an image.RGBA sharing the same backing slice.
func (img *Image) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    img.Pixels,
		Stride: img.Stride(),
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
}
