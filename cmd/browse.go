// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	applog "specview/internal/log"
	"specview/internal/tui"
)

func newBrowseCommand(opts *options) *cobra.Command {
	var logFile string

	browseCmd := &cobra.Command{
		Use:   "browse [dir]",
		Short: "Browse a directory of audio files in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			// The alternate screen owns stdout; logs go to a file.
			f, err := os.Create(logFile)
			if err != nil {
				return fmt.Errorf("failed to create log file: %w", err)
			}
			defer f.Close()
			applog.SetOutput(f)
			defer applog.SetOutput(os.Stderr)

			sink := &tui.ProgramSink{}
			s := opts.newScheduler(sink)
			defer s.Close()

			browser := tui.NewBrowser(dir, s, opts.cfg.SpectrogramOptions)
			return tui.Run(browser, sink)
		},
	}

	browseCmd.Flags().StringVar(&logFile, "log-file", filepath.Join(os.TempDir(), "specview.log"),
		"Where to write logs while the browser is open")

	return browseCmd
}
