// SPDX-License-Identifier: MIT
package cmd

import (
	"pocket/internal/audio"
	"pocket/internal/tui"

	"github.com/spf13/cobra"
)

func newDevicesCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"list"},
		Short:   "List available audio devices",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			if interactive {
				return tui.StartDeviceListUI()
			}
			return audio.ListDevices(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&interactive, "tui", "t", false, "Browse devices interactively")
	return cmd
}
