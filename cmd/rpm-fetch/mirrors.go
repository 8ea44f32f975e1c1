package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/open-edge-platform/rpm-fetch/internal/config"
	"github.com/open-edge-platform/rpm-fetch/internal/mirrorlist"
)

// createMirrorsCommand creates the mirrors subcommand
func createMirrorsCommand() *cobra.Command {
	mirrorsCmd := &cobra.Command{
		Use:   "mirrors [flags]",
		Short: "Print the mirror list for a release and architecture",
		Long: `Mirrors fetches and parses the mirror list and prints one base URL
per line in the order fetch would try them. With --verbose the comment
lines sent by the mirror manager are printed too.`,
		Args: cobra.NoArgs,
		RunE: executeMirrors,
	}
	mirrorsCmd.Flags().AddFlagSet(repoFlagSet())
	return mirrorsCmd
}

// executeMirrors handles the mirrors command logic
func executeMirrors(cmd *cobra.Command, args []string) error {
	cfg := *config.Global()
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}
	p, err := resolveProvider(&cfg)
	if err != nil {
		return err
	}

	list, err := mirrorlist.NewFetcher(nil, p.MirrorListURL).FetchList(cmd.Context(), cfg.Release, cfg.Arch)
	if err != nil && !errors.Is(err, mirrorlist.ErrNoMirrorsAvailable) {
		return err
	}

	out := cmd.OutOrStdout()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose && list != nil {
		for _, c := range list.Comments {
			fmt.Fprintln(out, "# "+c)
		}
	}
	if err != nil {
		return err
	}
	for _, m := range list.Mirrors {
		fmt.Fprintln(out, m.BaseURL)
	}
	return nil
}
