package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/ledger/pkg/cli"
	"mercator-hq/ledger/pkg/config"
	"mercator-hq/ledger/pkg/telemetry/logging"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger - record listings, audit dashboards and retention",
		Long: `Ledger stores products, users and audit events and serves filtered,
paged and sorted listings over them.

It provides:
  - An HTTP API with per-kind listing, lookup, creation and export
  - Audit dashboards: events per day, per operation, per status and top actors
  - Scheduled and on-demand audit retention sweeps

Configuration is read from --config (YAML) with LEDGER_* environment
overrides; without a file the built-in defaults apply.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "config file path (default: built-in defaults)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newRunCmd(g),
		newRecordsCmd(g),
		newRetentionCmd(g),
		newStatsCmd(g),
		newVersionCmd(),
		newCompletionCmd(),
	)
	return root
}

// loadConfig reads the config file with environment overrides for one-shot
// commands. The run command uses the global singleton instead so reloads
// can replace it.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(g.configFile)
	if err != nil {
		return nil, cli.NewConfigError(g.configFile, err)
	}
	return cfg, nil
}

// setupLogging sends one-shot command logs to stderr. Without --verbose only
// warnings and errors are shown so they do not drown the command output.
func (g *globalFlags) setupLogging(cfg *config.Config) {
	lc := logging.FromConfig(cfg.Telemetry.Logging, os.Stderr)
	lc.Format = "text"
	switch {
	case g.verbose:
		lc.Level = "debug"
	case lc.Level == "debug" || lc.Level == "info":
		lc.Level = "warn"
	}
	if _, err := logging.Setup(lc); err != nil {
		slog.Warn("failed to configure logging", "error", err)
	}
}
