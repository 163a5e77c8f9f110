package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/ledger/pkg/cli"
	"mercator-hq/ledger/pkg/clock"
	"mercator-hq/ledger/pkg/config"
	"mercator-hq/ledger/pkg/dashboard"
	"mercator-hq/ledger/pkg/records"
	"mercator-hq/ledger/pkg/records/retention"
	"mercator-hq/ledger/pkg/server"
	"mercator-hq/ledger/pkg/telemetry"
	"mercator-hq/ledger/pkg/telemetry/health"
)

type runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the ledger server",
		Long: `Start the HTTP API together with the audit retention scheduler.

When --config names a file, it is watched for changes. A valid edit replaces
the running configuration and retention settings apply from the next sweep;
an invalid edit is logged and ignored.

Examples:
  # Start with built-in defaults
  ledger run

  # Start with a config file
  ledger run --config /etc/ledger/config.yaml

  # Override listen address
  ledger run --listen 0.0.0.0:8080

  # Validate config without starting
  ledger run --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, g, f)
		},
	}

	cmd.Flags().StringVarP(&f.listenAddress, "listen", "l", "", "override listen address")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "validate config without starting the server")
	return cmd
}

func runServer(cmd *cobra.Command, g *globalFlags, f *runFlags) error {
	if err := config.Initialize(g.configFile, f.overrides(g)...); err != nil {
		return cli.NewConfigError(g.configFile, err)
	}
	cfg := config.GetConfig()

	out := cmd.OutOrStdout()
	if f.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	tel, err := telemetry.New(&cfg.Telemetry, versionInfo(), nil)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	printBanner(out, g, cfg)

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	b, err := openBackend(&cfg.Storage)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer b.Close()
	fmt.Fprintf(out, "✓ Storage opened (%s)\n", cfg.Storage.Backend)

	sweeper := newSweeper(b, cfg, config.GetConfig, tel.Metrics())

	lock := b.locker()
	scheduler := retention.NewScheduler(lock, cfg.Retention.LeaseTTL)
	if err := scheduler.Register(ctx, records.AuditEventKind.Name(), cfg.Retention.Schedule, sweeper.Run); err != nil {
		return cli.NewCommandError("run", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()
	if next := scheduler.NextRun(records.AuditEventKind.Name()); next != nil {
		fmt.Fprintf(out, "✓ Retention scheduler started (next sweep %s)\n", next.Format("2006-01-02 15:04 MST"))
	}

	if g.configFile != "" {
		watcher, err := config.WatchAndReload(ctx, g.configFile)
		if err != nil {
			slog.Warn("config hot reload disabled", "path", g.configFile, "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	checker := tel.Health()
	if b.sqlite != nil {
		checker.RegisterCheck("storage", health.StorageCheck(b.sqlite))
	}
	checker.RegisterCheck("scheduler", health.SchedulerCheck(scheduler.IsRunning))

	srv, err := server.New(cfg, server.Services{
		Stores:    b.stores,
		Sweeper:   sweeper,
		Locker:    lock,
		Dashboard: dashboard.NewAuditDashboard(b.stores.AuditEvents, clock.System{}, cfg.Dashboard.TopActors, tel.Metrics()),
		Health:    checker,
		Metrics:   tel.Metrics(),
		Version:   tel.Version(),
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	scheme := "http"
	if cfg.Server.TLS.Enabled {
		scheme = "https"
	}
	fmt.Fprintf(out, "✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Fprintf(out, "✓ Health endpoint: %s://%s%s\n", scheme, cfg.Server.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "✓ Metrics endpoint: %s://%s%s\n", scheme, cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// overrides turns the flags into config overrides, so they survive a
// reload of the config file.
func (f *runFlags) overrides(g *globalFlags) []config.Override {
	var out []config.Override
	if f.listenAddress != "" {
		addr := f.listenAddress
		out = append(out, func(c *config.Config) { c.Server.ListenAddress = addr })
	}
	level := f.logLevel
	if g.verbose {
		level = "debug"
	}
	if level != "" {
		out = append(out, func(c *config.Config) { c.Telemetry.Logging.Level = level })
	}
	return out
}

func printBanner(out io.Writer, g *globalFlags, cfg *config.Config) {
	fmt.Fprintf(out, "Ledger v%s\n", Version)
	if g.configFile != "" {
		fmt.Fprintf(out, "Loading configuration from: %s\n", g.configFile)
	} else {
		fmt.Fprintln(out, "Using built-in configuration defaults")
	}
	fmt.Fprintln(out, "✓ Configuration loaded")

	slog.Debug("retention policy",
		"enabled", cfg.Retention.Enabled,
		"retention_days", cfg.Retention.RetentionDays,
		"schedule", cfg.Retention.Schedule,
	)
}
