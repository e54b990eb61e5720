// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"specview/internal/capture"
	applog "specview/internal/log"
	"specview/internal/render"
	"specview/internal/scheduler"
	"specview/internal/spectrogram"
	"specview/internal/transport"
)

func newCaptureCommand(opts *options) *cobra.Command {
	var (
		output    string
		wavOutput string
		deviceID  int
		seconds   float64
		trim      float64
	)

	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Record from an input device and render the take",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg.Capture
			if cmd.Flags().Changed("device") {
				cfg.Device = deviceID
			}
			if cmd.Flags().Changed("seconds") {
				cfg.Seconds = seconds
			}
			if output == "" {
				output = "capture-" + time.Now().UTC().Format("02-01-2006-150405") + ".png"
			}

			recCfg := capture.Config{
				DeviceID:        cfg.Device,
				SampleRate:      cfg.SampleRate,
				FramesPerBuffer: cfg.FramesPerBuffer,
				Duration:        time.Duration(cfg.Seconds * float64(time.Second)),
				LowLatency:      cfg.LowLatency,
			}

			// Initialize PortAudio subsystem
			if err := capture.Initialize(); err != nil {
				return err
			}
			defer capture.Terminate()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Recording %s... (Ctrl+C to stop early)\n", recCfg.Duration)
			samples, err := capture.Record(ctx, recCfg)
			if err != nil {
				return err
			}
			applog.Infof("CLI: Captured %d samples, peak %.3f", len(samples), capture.Peak(samples))

			if trim > 0 {
				samples = capture.TrimSilence(samples, float32(trim))
			}
			if wavOutput != "" {
				if err := capture.SaveWAV(wavOutput, samples, int(recCfg.SampleRate)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recording saved to: %s\n", wavOutput)
			}

			sink := scheduler.NewChannelSink(8)
			s := opts.newScheduler(transport.MultiSink{sink, transport.NewLoggingTransport()})
			defer s.Close()

			buf := spectrogram.NewSampleBuffer(samples)
			gen, err := s.Submit(buf, opts.cfg.SpectrogramOptions(recCfg.SampleRate))
			if err != nil {
				return err
			}
			// The signal context may already be cancelled by an early stop.
			img, err := sink.Wait(cmd.Context(), gen)
			if err != nil {
				return err
			}
			opts.describe(img)

			if err := render.SavePNG(output, img); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Spectrogram saved to: %s\n", output)
			return nil
		},
	}

	captureCmd.Flags().StringVarP(&output, "output", "o", "",
		"Output PNG path. Default is capture-DD-MM-YYYY-HHMMSS.png")
	captureCmd.Flags().StringVar(&wavOutput, "wav", "",
		"Also save the take as a 16-bit WAV file")
	captureCmd.Flags().IntVarP(&deviceID, "device", "d", capture.DefaultDeviceID,
		"Input device ID. Use the 'devices' command to see available devices.")
	captureCmd.Flags().Float64VarP(&seconds, "seconds", "s", 0,
		"Length of the take in seconds")
	captureCmd.Flags().Float64Var(&trim, "trim", 0,
		"Trim leading and trailing audio quieter than this level (0..1)")

	return captureCmd
}
