// SPDX-License-Identifier: MIT
package transport

import (
	"sync"
	"time"

	applog "specview/internal/log"
	"specview/internal/spectrogram"
)

// LoggingTransport reports transitions through the application log. It is
// the status display for headless runs.
type LoggingTransport struct {
	mu         sync.Mutex
	generation uint64
	started    time.Time
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// elapsed returns how long generation has been loading, or 0 if it is not
// the one being timed.
func (lt *LoggingTransport) elapsed(generation uint64) time.Duration {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if generation != lt.generation || lt.started.IsZero() {
		return 0
	}
	return time.Since(lt.started)
}

func (lt *LoggingTransport) Loading(generation uint64) {
	lt.mu.Lock()
	lt.generation, lt.started = generation, time.Now()
	lt.mu.Unlock()
	applog.Infof("Transport: Generation %d loading", generation)
}

func (lt *LoggingTransport) Deliver(generation uint64, img *spectrogram.Image) {
	applog.Infof("Transport: Generation %d delivered %dx%d (%.1fs of audio, hop %d) in %s",
		generation, img.Width, img.Height, img.Duration, img.HopSize, lt.elapsed(generation).Round(time.Millisecond))
}

func (lt *LoggingTransport) Fail(generation uint64, err error) {
	applog.Errorf("Transport: Generation %d failed after %s: %v",
		generation, lt.elapsed(generation).Round(time.Millisecond), err)
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
