// SPDX-License-Identifier: MIT

// Package transport carries scheduler transitions to the outside world:
// browser clients over WebSocket, the log, or several sinks at once.
package transport

import (
	"specview/internal/scheduler"
	"specview/internal/spectrogram"
)

// Transport is a scheduler sink that holds resources.
// Implementations must be safe for concurrent use.
type Transport interface {
	scheduler.Sink
	Close() error
}

// MultiSink forwards every transition to each of its sinks in order.
type MultiSink []scheduler.Sink

var _ scheduler.Sink = MultiSink(nil)

func (m MultiSink) Loading(generation uint64) {
	for _, s := range m {
		s.Loading(generation)
	}
}

func (m MultiSink) Deliver(generation uint64, img *spectrogram.Image) {
	for _, s := range m {
		s.Deliver(generation, img)
	}
}

func (m MultiSink) Fail(generation uint64, err error) {
	for _, s := range m {
		s.Fail(generation, err)
	}
}
