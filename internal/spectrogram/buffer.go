// SPDX-License-Identifier: MIT
package spectrogram

import (
	"errors"
	"sync"
)

// ErrBufferDetached is returned when a SampleBuffer has already handed its
// samples to another owner.
var ErrBufferDetached = errors.New("sample buffer already detached")

// SampleBuffer holds one channel of audio until it is handed to a compute
// request. Detach moves the samples out exactly once, so the submitting side
// cannot keep using a slice that a worker goroutine now owns. Build a fresh
// SampleBuffer for every request.
type SampleBuffer struct {
	mu      sync.Mutex
	samples []float32
	gone    bool
}

// NewSampleBuffer wraps samples. The caller gives up its reference.
func NewSampleBuffer(samples []float32) *SampleBuffer {
	return &SampleBuffer{samples: samples}
}

// Len returns the number of samples still owned by the buffer, 0 once
// detached.
func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Detached reports whether ownership has already moved.
func (b *SampleBuffer) Detached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gone
}

// Detach transfers the samples to the caller without copying and empties
// the buffer.
func (b *SampleBuffer) Detach() ([]float32, error) {
	if b == nil {
		return nil, ErrBufferDetached
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gone {
		return nil, ErrBufferDetached
	}
	s := b.samples
	b.samples = nil
	b.gone = true
	return s, nil
}
