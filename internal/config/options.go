// SPDX-License-Identifier: MIT
package config

import (
	"specview/internal/colormap"
	applog "specview/internal/log"
	"specview/internal/spectrogram"
	"specview/internal/window"
)

// SpectrogramOptions converts the spectrogram section into analysis options
// for audio sampled at sampleRate. The config must have been validated.
func (c *Config) SpectrogramOptions(sampleRate float64) spectrogram.Options {
	kind, _ := window.ParseKind(c.Spectrogram.Window)
	return spectrogram.Options{
		FFTSize:    c.Spectrogram.FFTSize,
		HopSize:    c.Spectrogram.HopSize,
		Window:     kind,
		MinDB:      c.Spectrogram.MinDB,
		MaxDB:      c.Spectrogram.MaxDB,
		SampleRate: sampleRate,
		MaxFrames:  c.Spectrogram.MaxFrames,
	}
}

// Palette returns the configured colour map.
func (c *Config) Palette() (*colormap.Palette, error) {
	return colormap.ByName(c.Spectrogram.ColorMap)
}

// EffectiveLogLevel returns the level to run at. Debug wins over log_level.
func (c *Config) EffectiveLogLevel() applog.LogLevel {
	if c.Debug {
		return applog.LevelDebug
	}
	level, ok := applog.ParseLevel(c.LogLevel)
	if !ok {
		return applog.LevelInfo
	}
	return level
}
