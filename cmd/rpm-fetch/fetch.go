package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-edge-platform/rpm-fetch/internal/config"
	"github.com/open-edge-platform/rpm-fetch/internal/mirrorlist"
	"github.com/open-edge-platform/rpm-fetch/internal/ospackage"
	"github.com/open-edge-platform/rpm-fetch/internal/ospackage/rpmutils"
	"github.com/open-edge-platform/rpm-fetch/internal/pkgfetcher"
	"github.com/open-edge-platform/rpm-fetch/internal/progress"
	"github.com/open-edge-platform/rpm-fetch/internal/storage"
	utilsconfig "github.com/open-edge-platform/rpm-fetch/internal/utils/config"
	"github.com/open-edge-platform/rpm-fetch/internal/utils/logger"
	"github.com/open-edge-platform/rpm-fetch/internal/utils/network"
)

// progressOut is where progress bars and failure lines are drawn
var progressOut io.Writer = os.Stderr

// createFetchCommand creates the fetch subcommand
func createFetchCommand() *cobra.Command {
	fetchCmd := &cobra.Command{
		Use:   "fetch [flags] PACKAGE",
		Short: "Download one RPM, falling back across mirrors",
		Long: `Fetch downloads PACKAGE (a name-version-release stem such as
linux-firmware-20230919-1) from the Fedora mirrors for the selected release.
Mirrors are tried in mirror-list order until one delivers the complete file.
The path of the saved package is printed on success.`,
		Args: cobra.ExactArgs(1),
		RunE: executeFetch,
	}

	fetchCmd.Flags().AddFlagSet(repoFlagSet())
	fetchCmd.Flags().String("package-arch", "", "RPM architecture (default noarch)")
	fetchCmd.Flags().String("dest", "", "Destination directory or bucket URL (default .)")
	fetchCmd.Flags().Int("workers", 0, "Mirrors to race at once; 1 tries them one by one (default 1)")
	fetchCmd.Flags().Int("max-mirrors", 0, "Try at most this many mirrors (0 for all)")
	fetchCmd.Flags().Duration("timeout", 0, "Give up on the whole fetch after this long (0 for no limit)")
	fetchCmd.Flags().Duration("attempt-timeout", 0, "Give up on a single mirror after this long (0 for no limit)")
	fetchCmd.Flags().String("checksum", "", "Expected digest, sha256:<hex> or sha512:<hex>")
	fetchCmd.Flags().String("gpg-key", "", "OpenPGP public key file the package must be signed with")
	fetchCmd.Flags().Bool("verify-header", false, "Check the RPM header matches the requested package")
	fetchCmd.Flags().String("progress", "", "Progress output: auto, bar, log or none (default auto)")
	fetchCmd.Flags().Bool("no-progress", false, "Disable progress output")
	fetchCmd.Flags().String("report-dir", "", "Append a per-run attempt report to a file in this directory")

	return fetchCmd
}

// executeFetch handles the fetch command logic
func executeFetch(cmd *cobra.Command, args []string) error {
	cfg := *config.Global()
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}

	path, err := runFetch(cmd.Context(), &cfg, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// runFetch downloads name as configured by cfg and returns where it was saved.
func runFetch(ctx context.Context, cfg *config.GlobalConfig, name string) (string, error) {
	log := logger.Logger()
	helpers := utilsconfig.NewConfigHelpers(cfg)

	spec := ospackage.PackageSpec{
		Name:        name,
		ReleaseTag:  cfg.Release,
		Arch:        cfg.Arch,
		PackageArch: cfg.PackageArch,
	}
	if err := spec.Validate(); err != nil {
		return "", err
	}

	p, err := resolveProvider(cfg)
	if err != nil {
		return "", err
	}
	verifier, err := rpmutils.NewVerifier(cfg.Checksum, gpgKeyFor(cfg, p), cfg.VerifyHeader)
	if err != nil {
		return "", fmt.Errorf("configuring verification: %w", err)
	}
	factory, err := progress.NewFactory(progressOut, cfg.Progress)
	if err != nil {
		return "", err
	}

	dest, err := helpers.DestDir()
	if err != nil {
		return "", fmt.Errorf("resolving destination: %w", err)
	}
	if err := helpers.CreateDestDir(); err != nil {
		return "", fmt.Errorf("creating destination: %w", err)
	}
	store, err := storage.Open(ctx, dest)
	if err != nil {
		return "", err
	}
	defer store.Close()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	fetcher := pkgfetcher.New(
		mirrorlist.NewFetcher(nil, p.MirrorListURL),
		network.NewSecureHTTPClient(0),
		store,
		pkgfetcher.Options{
			Workers:        helpers.Workers(),
			MaxMirrors:     cfg.MaxMirrors,
			AttemptTimeout: cfg.AttemptTimeout,
			Progress:       factory,
			Verifier:       verifier,
		},
	)
	if helpers.IsDebugMode() {
		log.Debugf("effective configuration: %+v", *cfg)
	}
	log.Debugf("mirror list from %s: %s", p.Name(), p.MirrorListURL(cfg.Release, cfg.Arch))
	if helpers.RaceMode() {
		log.Infof("racing up to %d mirrors at a time", helpers.Workers())
	}
	if verifier.Enabled() {
		log.Infof("verifying %s before it is stored", spec)
	}

	res, runErr := fetcher.Run(ctx, spec)
	if res != nil {
		writeReport(helpers, res)
	}
	if runErr != nil {
		return "", runErr
	}
	return res.SavedPath, nil
}

func writeReport(helpers *utilsconfig.ConfigHelpers, res *pkgfetcher.RunResult) {
	log := logger.Logger()
	dir, err := helpers.ReportDir()
	if err != nil || dir == "" {
		return
	}
	if err := helpers.CreateReportDir(); err != nil {
		log.Warnf("cannot create report directory: %v", err)
		return
	}
	path, err := logger.WriteListReport(dir, res.Report())
	if err != nil {
		log.Warnf("writing run report: %v", err)
		return
	}
	log.Infof("run report written to %s", path)
}
