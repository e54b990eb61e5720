// SPDX-License-Identifier: MIT
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// FLAC decodes a FLAC stream frame by frame.
func FLAC(r io.Reader) (*Audio, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("flac: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	bitDepth := int(info.BitsPerSample)
	if bitDepth < 4 || bitDepth > 32 {
		return nil, fmt.Errorf("flac: unsupported bit depth %d", bitDepth)
	}

	samples := make([]float32, 0, info.NSamples)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac: after %d samples: %w", len(samples), err)
		}
		for _, v := range frame.Subframes[0].Samples {
			samples = append(samples, scaleInt(int(v), bitDepth))
		}
	}

	return newAudio("flac", samples, int(info.SampleRate), int(info.NChannels), bitDepth)
}
