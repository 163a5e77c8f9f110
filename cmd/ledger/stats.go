package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/ledger/pkg/cli"
	"mercator-hq/ledger/pkg/clock"
	"mercator-hq/ledger/pkg/dashboard"
)

func newStatsCmd(g *globalFlags) *cobra.Command {
	var (
		timeRange string
		format    string
	)

	ranges := make([]string, len(dashboard.TimeRanges))
	for i, r := range dashboard.TimeRanges {
		ranges[i] = string(r)
	}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print audit dashboard statistics",
		Long: `Print the audit dashboard series for a lookback window: events per
day, events per operation, the most active actors and success/failure counts.`,
		Example: `  ledger stats --range last_30_days
  ledger stats --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := dashboard.ParseTimeRange(timeRange)
			if err != nil {
				return cli.NewCommandError("stats", err)
			}
			out, err := cli.ParseOutputFormat(format)
			if err != nil {
				return cli.NewCommandError("stats", err)
			}

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			g.setupLogging(cfg)

			b, err := openBackend(&cfg.Storage)
			if err != nil {
				return cli.NewCommandError("stats", err)
			}
			defer b.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if cfg.Dashboard.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Dashboard.Timeout)
				defer cancel()
			}

			d := dashboard.NewAuditDashboard(b.stores.AuditEvents, clock.System{}, cfg.Dashboard.TopActors, nil)
			stats, err := d.Stats(ctx, r)
			if err != nil {
				return cli.NewCommandError("stats", err)
			}

			if out == cli.FormatJSON {
				return cli.NewFormatter(out).FormatTo(cmd.OutOrStdout(), stats)
			}
			return printStats(cmd.OutOrStdout(), out, stats)
		},
	}

	cmd.Flags().StringVar(&timeRange, "range", string(dashboard.DefaultTimeRange), "lookback window: "+strings.Join(ranges, ", "))
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, csv")
	return cmd
}

// printStats writes one table per series. CSV output prefixes each row with
// the series name so the result stays a single table.
func printStats(w io.Writer, format cli.OutputFormat, stats *dashboard.Stats) error {
	series := []struct {
		name   string
		points []dashboard.ChartPoint
	}{
		{"logs_over_time", stats.LogsOverTime},
		{"by_operation", stats.ByOperation},
		{"top_actors", stats.TopActors},
		{"by_status", stats.ByStatus},
	}

	f := cli.NewFormatter(format)
	if format == cli.FormatCSV {
		t := cli.Table{Headers: []string{"series", "label", "value"}}
		for _, s := range series {
			for _, p := range s.points {
				t.Append(s.name, p.Label, p.Value)
			}
		}
		return f.FormatTo(w, t)
	}

	fmt.Fprintf(w, "Audit statistics, %s (since %s)\n", stats.Range, cli.Cell(stats.Since))
	for _, s := range series {
		fmt.Fprintf(w, "\n%s\n", s.name)
		t := cli.Table{Headers: []string{"label", "value"}}
		for _, p := range s.points {
			t.Append(p.Label, p.Value)
		}
		if len(t.Data) == 0 {
			fmt.Fprintln(w, "  (no events)")
			continue
		}
		if err := f.FormatTo(w, t); err != nil {
			return err
		}
	}
	return nil
}
