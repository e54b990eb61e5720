// SPDX-License-Identifier: MIT

// Package render writes delivered spectrogram images to disk.
package render

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"

	"specview/internal/spectrogram"
)

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("render: empty image")

// WritePNG encodes img as PNG. Row 0 of the image, the highest frequency,
// becomes the top row of the file.
func WritePNG(w io.Writer, img *spectrogram.Image) error {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return ErrEmptyImage
	}
	if len(img.Pixels) != img.Width*img.Height*4 {
		return fmt.Errorf("render: pixel buffer has %d bytes, want %d", len(img.Pixels), img.Width*img.Height*4)
	}

	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img.RGBA())
}

// SavePNG writes img to path, replacing any existing file.
func SavePNG(path string, img *spectrogram.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if err := WritePNG(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
