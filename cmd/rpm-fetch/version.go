package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.Version=..."
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rpm-fetch %s (commit %s, built %s, %s/%s)\n",
				Version, CommitSHA, BuildDate, runtime.GOOS, runtime.GOARCH)
		},
	}
}
