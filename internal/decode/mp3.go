// SPDX-License-Identifier: MIT
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// mp3 output is always 16-bit little-endian stereo.
const (
	mp3Channels   = 2
	mp3BitDepth   = 16
	mp3FrameBytes = mp3Channels * mp3BitDepth / 8
)

// MP3 decodes an MP3 stream, keeping the left channel.
func MP3(r io.Reader) (*Audio, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}

	var samples []float32
	if n := d.Length(); n > 0 {
		samples = make([]float32, 0, n/mp3FrameBytes)
	}

	buf := make([]byte, 8192)
	var carry int
	for {
		n, err := d.Read(buf[carry:])
		n += carry

		whole := n - n%mp3FrameBytes
		for i := 0; i < whole; i += mp3FrameBytes {
			left := int16(binary.LittleEndian.Uint16(buf[i : i+2]))
			samples = append(samples, scaleInt(int(left), mp3BitDepth))
		}
		carry = copy(buf, buf[whole:n])

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("mp3: %w", err)
		}
	}

	return newAudio("mp3", samples, d.SampleRate(), mp3Channels, mp3BitDepth)
}
