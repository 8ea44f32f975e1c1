package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-edge-platform/rpm-fetch/internal/config"
	"github.com/open-edge-platform/rpm-fetch/internal/utils/logger"
)

// createValidateCommand creates the validate subcommand
func createValidateCommand() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate [flags] CONFIG_FILE",
		Short: "Validate an rpm-fetch config file",
		Long: `Validate a config file against the schema without fetching anything.
The file must be YAML. Unknown keys, malformed durations and out of range
values are reported.`,
		Args: cobra.ExactArgs(1),
		RunE: executeValidate,
	}

	return validateCmd
}

// executeValidate handles the validate command logic
func executeValidate(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	configPath := args[0]

	log.Infof("validating config file: %s", configPath)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := config.ParseGlobalConfig(data)
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	log.Infof("✓ Config validation successful for %s", configPath)
	log.Infof("Release: %s/%s (packages: %s), repo %s", cfg.Release, cfg.Arch, cfg.PackageArch, cfg.Repo)

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		log.Infof("Workers: %d, max mirrors: %d", cfg.Workers, cfg.MaxMirrors)
		log.Infof("Destination: %s", cfg.Dest)
		if cfg.MirrorListURL != "" {
			log.Infof("Mirror list template: %s", cfg.MirrorListURL)
		}
		if cfg.Timeout > 0 || cfg.AttemptTimeout > 0 {
			log.Infof("Timeouts: run %s, attempt %s", cfg.Timeout, cfg.AttemptTimeout)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", configPath)
	return nil
}
