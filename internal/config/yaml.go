// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"specview/internal/colormap"
	applog "specview/internal/log"
	"specview/internal/window"
	"specview/pkg/bitint"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug       bool              `yaml:"debug"`     // Enable debug logging regardless of log_level.
	LogLevel    string            `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Spectrogram SpectrogramConfig `yaml:"spectrogram"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Capture     CaptureConfig     `yaml:"capture"`
	Transport   TransportConfig   `yaml:"transport"`
}

// SpectrogramConfig holds the STFT and colouring settings.
type SpectrogramConfig struct {
	FFTSize   int     `yaml:"fft_size"`   // Frame length, power of two.
	HopSize   int     `yaml:"hop_size"`   // Frame advance in samples.
	Window    string  `yaml:"window"`     // "hann", "hamming" or "blackman".
	MinDB     float64 `yaml:"min_db"`     // Colour floor.
	MaxDB     float64 `yaml:"max_db"`     // Colour ceiling.
	MaxFrames int     `yaml:"max_frames"` // Output width cap.
	ColorMap  string  `yaml:"colormap"`   // Palette name.
}

// SchedulerConfig selects where requests are computed.
type SchedulerConfig struct {
	Offload  bool `yaml:"offload"`  // Use the background worker.
	Fallback bool `yaml:"fallback"` // Recompute inline after a worker failure.
}

// CaptureConfig holds the live recording settings.
type CaptureConfig struct {
	Device          int     `yaml:"device"`            // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per PortAudio callback.
	Seconds         float64 `yaml:"seconds"`           // Length of a take.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio.
}

// TransportConfig holds the WebSocket server settings.
type TransportConfig struct {
	WSAddress string `yaml:"ws_address"` // Listen address for the WebSocket server.
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. A .env file in the working directory is loaded into the environment
// first; ENV_* overrides are applied last and the result is validated.
func LoadConfig(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("Config: Loaded %s", path)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads path into the process environment when it exists.
// Variables already set are left alone.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not a valid level", c.LogLevel))
	}

	s := c.Spectrogram
	if s.FFTSize < 2 || s.FFTSize > MaxFFTSize || !bitint.IsPowerOfTwo(s.FFTSize) {
		errs = append(errs, fmt.Errorf("spectrogram.fft_size must be a power of two in [2, %d], got %d", MaxFFTSize, s.FFTSize))
	}
	if s.HopSize <= 0 {
		errs = append(errs, fmt.Errorf("spectrogram.hop_size must be positive, got %d", s.HopSize))
	}
	if _, err := window.ParseKind(s.Window); err != nil {
		errs = append(errs, fmt.Errorf("spectrogram.window: %w", err))
	}
	if math.IsNaN(s.MinDB) || math.IsNaN(s.MaxDB) || s.MinDB >= s.MaxDB {
		errs = append(errs, fmt.Errorf("spectrogram.min_db (%g) must be below max_db (%g)", s.MinDB, s.MaxDB))
	}
	if s.MaxFrames <= 0 {
		errs = append(errs, fmt.Errorf("spectrogram.max_frames must be positive, got %d", s.MaxFrames))
	}
	if _, err := colormap.ByName(s.ColorMap); err != nil {
		errs = append(errs, fmt.Errorf("spectrogram.colormap: %w", err))
	}

	cp := c.Capture
	if cp.Device < MinDeviceID {
		errs = append(errs, fmt.Errorf("capture.device must be >= %d, got %d", MinDeviceID, cp.Device))
	}
	if cp.SampleRate < MinSampleRate || cp.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("capture.sample_rate must be in [%d, %d], got %g", MinSampleRate, MaxSampleRate, cp.SampleRate))
	}
	if cp.FramesPerBuffer <= 0 || cp.FramesPerBuffer > MaxBufferFrames {
		errs = append(errs, fmt.Errorf("capture.frames_per_buffer must be in [1, %d], got %d", MaxBufferFrames, cp.FramesPerBuffer))
	}
	if cp.Seconds <= 0 {
		errs = append(errs, fmt.Errorf("capture.seconds must be positive, got %g", cp.Seconds))
	}

	if !strings.Contains(c.Transport.WSAddress, ":") {
		errs = append(errs, fmt.Errorf("transport.ws_address %q appears invalid (missing port?)", c.Transport.WSAddress))
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies ENV_* variables on top of the loaded values. A
// variable that is set but does not parse is an error.
func (c *Config) applyEnvOverrides() error {
	var errs []error

	envBool := func(name string, dst *bool) {
		if val, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
			applog.Debugf("Config: Overriding from %s: %v", name, b)
		}
	}
	envInt := func(name string, dst *int) {
		if val, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
			applog.Debugf("Config: Overriding from %s: %d", name, n)
		}
	}
	envString := func(name string, dst *string) {
		if val, ok := os.LookupEnv(name); ok {
			*dst = val
			applog.Debugf("Config: Overriding from %s: %s", name, val)
		}
	}

	// ENV_{...}
	// General overrides.
	envBool("ENV_DEBUG", &c.Debug)
	envString("ENV_LOG_LEVEL", &c.LogLevel)

	// Analysis overrides.
	envInt("ENV_FFT_SIZE", &c.Spectrogram.FFTSize)
	envInt("ENV_HOP_SIZE", &c.Spectrogram.HopSize)
	envString("ENV_WINDOW", &c.Spectrogram.Window)
	envInt("ENV_MAX_FRAMES", &c.Spectrogram.MaxFrames)
	envString("ENV_COLORMAP", &c.Spectrogram.ColorMap)

	// Transport overrides.
	envString("ENV_WS_ADDRESS", &c.Transport.WSAddress)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment override: %w", errors.Join(errs...))
	}
	return nil
}
