// SPDX-License-Identifier: MIT
package spectrogram

import (
	"errors"
	"math"

	"specview/internal/fft"
	"specview/internal/window"
)

// ColorMap converts a decibel value, already clamped to [minDB, maxDB], into
// an RGBA quad.
type ColorMap func(db, minDB, maxDB float64) (r, g, b, a uint8)

// ErrNoColorMap is returned by Rasterize when no colour map is supplied.
var ErrNoColorMap = errors.New("spectrogram: nil colour map")

// FrameLayout returns how many frames a buffer of n samples produces and the
// hop actually used between them.
//
// A buffer shorter than one frame still yields a single zero-padded frame.
// When the natural frame count exceeds opts.MaxFrames the hop is widened to
// floor((n-FFTSize)/(MaxFrames-1)) so the capped frames still span the whole
// buffer.
func FrameLayout(n int, opts Options) (frames, hop int) {
	hop = opts.HopSize
	frames = 1
	if n >= opts.FFTSize {
		frames = (n-opts.FFTSize)/hop + 1
	}

	if frames > opts.MaxFrames {
		frames = opts.MaxFrames
		if frames > 1 {
			hop = (n - opts.FFTSize) / (frames - 1)
		}
	}
	return frames, hop
}

// workspace is the per-request scratch arena. It is sized once and reused
// for every frame.
type workspace struct {
	coeffs []float64
	re     []float64
	im     []float64
}

func newWorkspace(size int, kind window.Kind) *workspace {
	return &workspace{
		coeffs: window.New(kind, size),
		re:     make([]float64, size),
		im:     make([]float64, size),
	}
}

// load copies the windowed frame starting at offset into re and clears im.
// Samples past the end of the buffer are zero.
func (ws *workspace) load(samples []float32, offset int) {
	avail := 0
	if offset < len(samples) {
		avail = min(len(ws.re), len(samples)-offset)
	}
	for i := range avail {
		ws.re[i] = float64(samples[offset+i]) * ws.coeffs[i]
	}
	for i := avail; i < len(ws.re); i++ {
		ws.re[i] = 0
	}
	clear(ws.im)
}

// Rasterize computes the spectrogram of samples. Options are validated once
// here; the per-frame loops assume they hold.
func Rasterize(samples []float32, opts Options, cmap ColorMap) (*Image, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if cmap == nil {
		return nil, ErrNoColorMap
	}

	frames, hop := FrameLayout(len(samples), opts)
	bins := opts.Bins()

	img := &Image{
		Pixels:       make([]byte, frames*bins*4),
		Width:        frames,
		Height:       bins,
		MaxFrequency: opts.SampleRate / 2,
		SampleRate:   opts.SampleRate,
		Duration:     float64(len(samples)) / opts.SampleRate,
		HopSize:      hop,
		FFTSize:      opts.FFTSize,
	}

	ws := newWorkspace(opts.FFTSize, opts.Window)
	stride := img.Stride()

	for f := range frames {
		ws.load(samples, f*hop)
		fft.Transform(ws.re, ws.im)

		for b := range bins {
			mag := fft.Magnitude(ws.re, ws.im, b)

			db := opts.MinDB
			if mag > 0 {
				db = 20 * math.Log10(mag)
			}
			db = max(opts.MinDB, min(opts.MaxDB, db))

			r, g, bl, a := cmap(db, opts.MinDB, opts.MaxDB)
			i := (bins-1-b)*stride + f*4
			img.Pixels[i] = r
			img.Pixels[i+1] = g
			img.Pixels[i+2] = bl
			img.Pixels[i+3] = a
		}
	}

	return img, nil
}
