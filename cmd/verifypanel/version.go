package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/verifypanel/internal/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// No config needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := version.Version
			if version.BuildDate != "" {
				out += " (" + version.BuildDate + ")"
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
		},
	}
}
