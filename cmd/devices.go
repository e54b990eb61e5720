// SPDX-License-Identifier: MIT
package cmd

import (
	"github.com/spf13/cobra"

	"specview/internal/capture"
)

func newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := capture.Initialize(); err != nil {
				return err
			}
			defer capture.Terminate()
			return capture.ListDevices(cmd.OutOrStdout())
		},
	}
}
