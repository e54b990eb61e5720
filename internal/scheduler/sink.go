// SPDX-License-Identifier: MIT
package scheduler

import (
	"context"

	"specview/internal/spectrogram"
)

// EventKind identifies a sink transition.
type EventKind int

const (
	EventLoading EventKind = iota
	EventDelivered
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventLoading:
		return "loading"
	case EventDelivered:
		return "delivered"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one sink transition as a value.
type Event struct {
	Kind       EventKind
	Generation uint64
	Image      *spectrogram.Image
	Err        error
}

// ChannelSink publishes transitions on a buffered channel. The reader must
// keep draining it; a full channel blocks the scheduler.
type ChannelSink struct {
	events chan Event
}

var _ Sink = (*ChannelSink)(nil)

// NewChannelSink creates a sink whose channel buffers size events.
func NewChannelSink(size int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, size)}
}

// Events returns the receive side of the channel.
func (c *ChannelSink) Events() <-chan Event {
	return c.events
}

func (c *ChannelSink) Loading(generation uint64) {
	c.events <- Event{Kind: EventLoading, Generation: generation}
}

func (c *ChannelSink) Deliver(generation uint64, img *spectrogram.Image) {
	c.events <- Event{Kind: EventDelivered, Generation: generation, Image: img}
}

func (c *ChannelSink) Fail(generation uint64, err error) {
	c.events <- Event{Kind: EventFailed, Generation: generation, Err: err}
}

// Wait consumes events until generation is delivered or fails. Events for
// other generations are skipped.
func (c *ChannelSink) Wait(ctx context.Context, generation uint64) (*spectrogram.Image, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev := <-c.events:
			if ev.Generation != generation {
				continue
			}
			switch ev.Kind {
			case EventDelivered:
				return ev.Image, nil
			case EventFailed:
				return nil, ev.Err
			}
		}
	}
}
