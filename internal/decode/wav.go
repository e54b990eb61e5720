// SPDX-License-Identifier: MIT
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// WAV decodes a PCM WAV stream.
func WAV(r io.ReadSeeker) (*Audio, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("wav: not a valid WAV file")
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}

	channels := int(d.NumChans)
	bitDepth := int(d.BitDepth)
	if channels < 1 {
		return nil, fmt.Errorf("wav: invalid channel count %d", channels)
	}
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("wav: unsupported bit depth %d", bitDepth)
	}

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := range frames {
		v := buf.Data[i*channels]
		if bitDepth == 8 {
			// 8-bit WAV is unsigned.
			v -= 128
		}
		samples[i] = scaleInt(v, bitDepth)
	}

	return newAudio("wav", samples, int(d.SampleRate), channels, bitDepth)
}
