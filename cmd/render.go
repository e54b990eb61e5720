// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	applog "specview/internal/log"
	"specview/internal/render"
	"specview/internal/scheduler"
	"specview/internal/spectrogram"
	"specview/internal/transport"
)

func newRenderCommand(opts *options) *cobra.Command {
	var output string

	renderCmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render the spectrogram of an audio file to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".png"
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			img, err := opts.renderFile(ctx, args[0])
			if err != nil {
				return err
			}
			if err := render.SavePNG(output, img); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Spectrogram saved to: %s\n", output)
			return nil
		},
	}

	renderCmd.Flags().StringVarP(&output, "output", "o", "",
		"Output PNG path. Default is the input name with a .png extension")

	return renderCmd
}

// renderFile runs one file through a scheduler and waits for the result.
func (o *options) renderFile(ctx context.Context, path string) (*spectrogram.Image, error) {
	sink := scheduler.NewChannelSink(8)
	s := o.newScheduler(transport.MultiSink{sink, transport.NewLoggingTransport()})
	defer s.Close()

	gen, err := o.analyse(s, path)
	if err != nil {
		return nil, err
	}

	img, err := sink.Wait(ctx, gen)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}
	o.describe(img)
	applog.Debugf("CLI: %+v", s.Stats())
	return img, nil
}
