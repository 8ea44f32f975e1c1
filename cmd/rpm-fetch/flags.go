package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/open-edge-platform/rpm-fetch/internal/config"
	"github.com/open-edge-platform/rpm-fetch/internal/provider"
	"github.com/open-edge-platform/rpm-fetch/internal/provider/repofile"
	"github.com/open-edge-platform/rpm-fetch/internal/utils/logger"
)

// repoFlagSet holds the flags shared by every command that talks to the
// mirror manager.
func repoFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("repository", pflag.ContinueOnError)
	fs.String("release", "", "Fedora release (default 39)")
	fs.String("arch", "", "Repository architecture (default x86_64)")
	fs.String("repo", "", fmt.Sprintf("Mirror-list provider: %s (default fedora)", strings.Join(provider.Names(), ", ")))
	fs.String("repo-file", "", "dnf .repo file whose enabled sections become --repo choices")
	fs.String("mirrorlist-url", "", "Mirror-list URL template with {release} and {arch}, overrides --repo")
	return fs
}

// applyFlags copies every flag the user set onto cfg. Unset flags leave the
// config value alone so file and environment settings survive.
func applyFlags(cmd *cobra.Command, cfg *config.GlobalConfig) error {
	var err error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		fs := cmd.Flags()
		switch f.Name {
		case "release":
			cfg.Release = f.Value.String()
		case "arch":
			cfg.Arch = f.Value.String()
		case "package-arch":
			cfg.PackageArch = f.Value.String()
		case "repo":
			cfg.Repo = f.Value.String()
		case "repo-file":
			cfg.RepoFile = f.Value.String()
		case "mirrorlist-url":
			cfg.MirrorListURL = f.Value.String()
		case "dest":
			cfg.Dest = f.Value.String()
		case "report-dir":
			cfg.ReportDir = f.Value.String()
		case "checksum":
			cfg.Checksum = f.Value.String()
		case "gpg-key":
			cfg.GPGKey = f.Value.String()
		case "progress":
			cfg.Progress = f.Value.String()
		case "workers":
			cfg.Workers, err = fs.GetInt("workers")
		case "max-mirrors":
			cfg.MaxMirrors, err = fs.GetInt("max-mirrors")
		case "timeout":
			cfg.Timeout, err = fs.GetDuration("timeout")
		case "attempt-timeout":
			cfg.AttemptTimeout, err = fs.GetDuration("attempt-timeout")
		case "verify-header":
			cfg.VerifyHeader, err = fs.GetBool("verify-header")
		}
	})
	if err != nil {
		return err
	}
	// --no-progress wins over --progress whatever their order.
	if cmd.Flags().Changed("no-progress") {
		off, err := cmd.Flags().GetBool("no-progress")
		if err != nil {
			return err
		}
		if off {
			cfg.Progress = "none"
		}
	}
	return cfg.Validate()
}

// resolveProvider picks the mirror-list source: an explicit template wins
// over the named provider. Sections of cfg.RepoFile are registered first so
// they can be named with --repo.
func resolveProvider(cfg *config.GlobalConfig) (provider.Provider, error) {
	if cfg.MirrorListURL != "" {
		return provider.Template(cfg.MirrorListURL), nil
	}
	if cfg.RepoFile != "" {
		if _, err := repofile.Register(cfg.RepoFile); err != nil {
			return nil, err
		}
	}
	p, ok := provider.Get(cfg.Repo)
	if !ok {
		return nil, fmt.Errorf("unknown repo %q (available: %s)", cfg.Repo, strings.Join(provider.Names(), ", "))
	}
	return p, nil
}

// gpgKeyFor returns the configured key file, or the repo file's key when
// the section asks for gpgcheck and the key is installed.
func gpgKeyFor(cfg *config.GlobalConfig, p provider.Provider) string {
	if cfg.GPGKey != "" {
		return cfg.GPGKey
	}
	rc, ok := p.(repofile.RepoConfig)
	if !ok || !rc.GPGCheck {
		return ""
	}
	path := rc.GPGKeyPath(cfg.Release, cfg.Arch)
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		logger.Logger().Warnf("repo %s wants gpgcheck but key %s is not readable, skipping signature check", rc.Section, path)
		return ""
	}
	return path
}
