// SPDX-License-Identifier: MIT

// Package cmd implements the command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"specview/internal/colormap"
	"specview/internal/config"
	"specview/internal/decode"
	applog "specview/internal/log"
	"specview/internal/scheduler"
	"specview/internal/spectrogram"
	"specview/pkg/build"
)

// options holds the persistent flags shared by every command.
type options struct {
	configPath string
	verbose    bool
	logLevel   string

	fftSize   int
	hopSize   int
	window    string
	minDB     float64
	maxDB     float64
	maxFrames int
	colorMap  string
	noOffload bool

	// Resolved in PersistentPreRunE.
	cfg     *config.Config
	palette *colormap.Palette
}

// Execute runs the root command with the process arguments.
func Execute() error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(os.Args[1:])
	return rootCmd.Execute()
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()

	// General Configuration
	flags.StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML config file (default: ./config.yaml if present)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show debug output")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn, error")

	// Analysis Configuration
	flags.IntVar(&opts.fftSize, "fft-size", config.DefaultFFTSize,
		"FFT frame length (power of two)")
	flags.IntVar(&opts.hopSize, "hop-size", config.DefaultHopSize,
		"Samples between successive frames")
	flags.StringVarP(&opts.window, "window", "w", config.DefaultWindow,
		"Window function: hann, hamming, blackman")
	flags.Float64Var(&opts.minDB, "min-db", config.DefaultMinDB,
		"Magnitude mapped to the bottom of the colour map")
	flags.Float64Var(&opts.maxDB, "max-db", config.DefaultMaxDB,
		"Magnitude mapped to the top of the colour map")
	flags.IntVar(&opts.maxFrames, "max-frames", config.DefaultMaxFrames,
		"Maximum image width in frames")
	flags.StringVar(&opts.colorMap, "colormap", config.DefaultColorMap,
		fmt.Sprintf("Colour map: %v", colormap.Names()))
	flags.BoolVar(&opts.noOffload, "no-offload", false,
		"Compute on the calling goroutine instead of the worker")

	rootCmd.AddCommand(
		newRenderCommand(opts),
		newServeCommand(opts),
		newBrowseCommand(opts),
		newCaptureCommand(opts),
		newDevicesCommand(),
	)

	return rootCmd
}

// resolve loads the config file and lets explicitly set flags override it.
func (o *options) resolve(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if o.verbose {
		cfg.Debug = true
	}
	if changed("fft-size") {
		cfg.Spectrogram.FFTSize = o.fftSize
	}
	if changed("hop-size") {
		cfg.Spectrogram.HopSize = o.hopSize
	}
	if changed("window") {
		cfg.Spectrogram.Window = o.window
	}
	if changed("min-db") {
		cfg.Spectrogram.MinDB = o.minDB
	}
	if changed("max-db") {
		cfg.Spectrogram.MaxDB = o.maxDB
	}
	if changed("max-frames") {
		cfg.Spectrogram.MaxFrames = o.maxFrames
	}
	if changed("colormap") {
		cfg.Spectrogram.ColorMap = o.colorMap
	}
	if o.noOffload {
		cfg.Scheduler.Offload = false
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	applog.SetLevel(cfg.EffectiveLogLevel())

	palette, err := cfg.Palette()
	if err != nil {
		return err
	}

	o.cfg = cfg
	o.palette = palette
	applog.Debugf("CLI: %s window, fft %d, hop %d, %s colour map, offload %v",
		cfg.Spectrogram.Window, cfg.Spectrogram.FFTSize, cfg.Spectrogram.HopSize,
		palette.Name(), cfg.Scheduler.Offload)
	return nil
}

// newScheduler builds a scheduler for the resolved configuration.
func (o *options) newScheduler(sink scheduler.Sink) *scheduler.Scheduler {
	var backend scheduler.Backend
	if o.cfg.Scheduler.Offload {
		backend = scheduler.NewWorkerBackend()
	}
	return scheduler.New(backend, sink, o.palette.ColorMap(),
		scheduler.WithFallback(o.cfg.Scheduler.Fallback))
}

// analyse decodes path and submits it.
func (o *options) analyse(s *scheduler.Scheduler, path string) (uint64, error) {
	a, err := decode.File(path)
	if err != nil {
		return 0, err
	}
	return s.Submit(a.Buffer(), o.cfg.SpectrogramOptions(float64(a.SampleRate)))
}

// describe logs the shape of a delivered image.
func (o *options) describe(img *spectrogram.Image) {
	applog.Infof("CLI: %d frames x %d bins, hop %d, %s window, 0-%.0f Hz over %.2fs",
		img.Width, img.Height, img.HopSize, o.cfg.Spectrogram.Window, img.MaxFrequency, img.Duration)
}
