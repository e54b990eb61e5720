// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	applog "specview/internal/log"
	"specview/internal/transport"
)

func newServeCommand(opts *options) *cobra.Command {
	var root string

	serveCmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Stream spectrograms to WebSocket clients",
		Long: "Serve spectrograms over WebSocket. Clients connect to /ws, list files under\n" +
			"--root at /files, select one with {\"type\":\"select\",\"path\":\"...\"} and\n" +
			"fetch the latest image from /image.png. An optional file is analysed at startup.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wst := transport.NewWebSocketTransport(opts.cfg.Transport.WSAddress, root)
			s := opts.newScheduler(transport.MultiSink{wst, transport.NewLoggingTransport()})

			// Selections arrive on their own goroutines; the scheduler keeps
			// only the newest.
			wst.SetSelectHandler(func(path string) {
				if _, err := opts.analyse(s, path); err != nil {
					applog.Errorf("CLI: %v", err)
				}
			})
			wst.Start()

			if len(args) == 1 {
				go func() {
					if _, err := opts.analyse(s, args[0]); err != nil {
						applog.Errorf("CLI: %v", err)
					}
				}()
			}

			// Block until termination signal is received
			done := make(chan os.Signal, 1)
			signal.Notify(done, os.Interrupt, syscall.SIGTERM)
			<-done

			if err := s.Close(); err != nil {
				applog.Errorf("CLI: Error closing scheduler: %v", err)
			}
			return wst.Close()
		},
	}

	serveCmd.Flags().StringVar(&root, "root", ".",
		"Directory clients may select files from")

	return serveCmd
}
