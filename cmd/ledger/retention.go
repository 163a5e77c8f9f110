package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/ledger/pkg/cli"
	"mercator-hq/ledger/pkg/config"
	"mercator-hq/ledger/pkg/records"
	"mercator-hq/ledger/pkg/records/retention"
)

func newRetentionCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Delete audit events by age, entity or actor",
		Long: `Run audit retention on demand.

  sweep   applies retention.retention_days, as the scheduled job does
  entity  deletes every event recorded against one entity
  actor   deletes every event recorded by one actor

The sweep honors retention.enabled and archives doomed events to
retention.archive_dir when it is set.`,
	}
	cmd.AddCommand(newRetentionSweepCmd(g), newRetentionEntityCmd(g), newRetentionActorCmd(g))
	return cmd
}

func newRetentionSweepCmd(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete audit events older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cli.ParseOutputFormat(format)
			if err != nil {
				return cli.NewCommandError("retention sweep", err)
			}
			return withSweeper(cmd, g, "retention sweep", func(ctx context.Context, s *retention.AuditSweeper) error {
				result, err := s.Apply(ctx, retention.TriggerManual)
				if err != nil {
					return err
				}
				if out == cli.FormatJSON {
					return cli.NewFormatter(out).FormatTo(cmd.OutOrStdout(), result)
				}
				t := cli.Table{Headers: []string{"kind", "cutoff", "deleted", "skipped"}}
				t.Append(result.Kind, result.Cutoff, result.Deleted, result.Skipped)
				return cli.NewFormatter(out).FormatTo(cmd.OutOrStdout(), t)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, csv")
	return cmd
}

func newRetentionEntityCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "entity <entity-kind> <entity-id>",
		Short:   "Delete every audit event for one entity",
		Args:    cobra.ExactArgs(2),
		Example: "  ledger retention entity products 9f1c2d7e",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSweeper(cmd, g, "retention entity", func(ctx context.Context, s *retention.AuditSweeper) error {
				n, err := s.SweepForEntity(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d audit events for %s %s\n", n, args[0], args[1])
				return nil
			})
		},
	}
}

func newRetentionActorCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "actor <actor>",
		Short:   "Delete every audit event recorded by one actor",
		Args:    cobra.ExactArgs(1),
		Example: "  ledger retention actor alice",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSweeper(cmd, g, "retention actor", func(ctx context.Context, s *retention.AuditSweeper) error {
				n, err := s.SweepForActor(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d audit events by %s\n", n, args[0])
				return nil
			})
		},
	}
}

// withSweeper opens storage and hands fn a sweeper over the configured
// policy. The sweep takes the same lease as the scheduled job.
func withSweeper(cmd *cobra.Command, g *globalFlags, name string, fn func(context.Context, *retention.AuditSweeper) error) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	g.setupLogging(cfg)

	b, err := openBackend(&cfg.Storage)
	if err != nil {
		return cli.NewCommandError(name, err)
	}
	defer b.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	lock := b.locker()
	release, ok, err := lock.TryLock(ctx, retention.LeaseName(records.AuditEventKind.Name()), cfg.Retention.LeaseTTL)
	if err != nil {
		return cli.NewCommandError(name, err)
	}
	if !ok {
		return cli.NewCommandError(name, fmt.Errorf("another retention sweep holds the lease, try again later"))
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("failed to release retention lease", "error", err)
		}
	}()

	sweeper := newSweeper(b, cfg, func() *config.Config { return cfg }, nil)
	if err := fn(ctx, sweeper); err != nil {
		return cli.NewCommandError(name, err)
	}
	return nil
}
