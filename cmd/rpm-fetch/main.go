package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/open-edge-platform/rpm-fetch/internal/config"
	_ "github.com/open-edge-platform/rpm-fetch/internal/provider/fedora"
	"github.com/open-edge-platform/rpm-fetch/internal/utils/logger"
)

// Persistent command flags
var (
	configFile string
	logLevel   string
	dotEnvFile = ".env"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := createRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Logger().Sync()
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// createRootCommand builds the command tree
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rpm-fetch",
		Short: "Download a Fedora RPM from the first mirror that serves it",
		Long: `rpm-fetch resolves the Fedora mirror list for a release and
architecture and downloads one package, falling back to the next mirror
whenever a download fails. With --workers above 1 several mirrors are
raced and the first complete download wins.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		fmt.Sprintf("Config file (default: ./%s, then $XDG_CONFIG_HOME/rpm-fetch/config.yml)", config.DefaultConfigFile))
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Enable debug logging (ignored when --log-level is set)")

	rootCmd.AddCommand(createFetchCommand())
	rootCmd.AddCommand(createMirrorsCommand())
	rootCmd.AddCommand(createValidateCommand())
	rootCmd.AddCommand(createVersionCommand())

	attachLoggingHooks(rootCmd)
	return rootCmd
}

// attachLoggingHooks loads configuration and sets up logging before any
// subcommand runs.
func attachLoggingHooks(root *cobra.Command) {
	for _, cmd := range root.Commands() {
		cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
			return initRuntime(cmd)
		}
	}
}

// resolveRequestedLogLevel returns the level asked for on the command line,
// or "" when the config decides.
func resolveRequestedLogLevel(cmd *cobra.Command) string {
	if logLevel != "" {
		return logLevel
	}
	if cmd == nil || cmd.Flags().Lookup("verbose") == nil {
		return ""
	}
	if v, err := cmd.Flags().GetBool("verbose"); err == nil && v {
		return "debug"
	}
	return ""
}

// initRuntime layers .env, config file and environment into the global
// config and installs the logger.
func initRuntime(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(dotEnvFile); err != nil {
		return err
	}
	cfg, path, err := config.LoadGlobalConfig(configFile)
	if err != nil {
		return err
	}
	if err := config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return err
	}
	if level := resolveRequestedLogLevel(cmd); level != "" {
		cfg.Logging.Level = level
	}
	if _, err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	config.SetGlobal(cfg)

	if path != "" {
		logger.Logger().Debugf("using config file %s", path)
	}
	return nil
}
