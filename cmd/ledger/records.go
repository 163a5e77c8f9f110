package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/ledger/pkg/cli"
	"mercator-hq/ledger/pkg/clock"
	"mercator-hq/ledger/pkg/config"
	"mercator-hq/ledger/pkg/records"
	"mercator-hq/ledger/pkg/records/export"
	"mercator-hq/ledger/pkg/records/query"
)

// kindNames lists accepted kind arguments.
var kindNames = []string{"products", "users", "audit_events"}

type recordsFlags struct {
	filters  []string
	sort     []string
	page     int
	size     int
	timezone string
	format   string
	output   string
}

// values turns --filter key=value and --sort flags into query parameters.
func (f *recordsFlags) values() (url.Values, error) {
	v := url.Values{}
	for _, kv := range f.filters {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --filter %q (expected key=value)", kv)
		}
		v.Add(key, value)
	}
	v["sort"] = append([]string(nil), f.sort...)
	return v, nil
}

func (f *recordsFlags) location(cfg *config.Config) (*time.Location, error) {
	name := f.timezone
	if name == "" {
		name = cfg.Server.DefaultTimezone
	}
	return clock.LoadLocation(name)
}

func (f *recordsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.filters, "filter", "f", nil, "filter as key=value (repeatable), e.g. actor=alice, from=2024-01-01")
	cmd.Flags().StringArrayVar(&f.sort, "sort", nil, "sort as field or field,asc|desc (repeatable)")
	cmd.Flags().StringVar(&f.timezone, "timezone", "", "zone for date-only filters (default: server.default_timezone)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (default: stdout)")
}

func newRecordsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Query and export records",
		Long: `Query and export products, users and audit events directly from storage.

Filters use the same names as the HTTP API query parameters:
  products:     sku, name, category, min_price, max_price, min_stock, max_stock,
                active, created_from, created_until
  users:        username, email, full_name, role, active, created_from, created_until
  audit_events: actor, operation, entity_kind, entity_id, success, status,
                details, from, until`,
	}
	cmd.AddCommand(newRecordsQueryCmd(g), newRecordsExportCmd(g))
	return cmd
}

func newRecordsQueryCmd(g *globalFlags) *cobra.Command {
	f := &recordsFlags{}
	cmd := &cobra.Command{
		Use:       "query <kind>",
		Short:     "Print one page of matching records",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames,
		Example: `  ledger records query products --filter category=tools --sort price,desc
  ledger records query audit_events -f actor=alice -f from=2024-01-01 --page 1 --size 50 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecords(cmd, g, f, args[0], "records query", queryRecords)
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&f.page, "page", 0, "zero-based page index")
	cmd.Flags().IntVar(&f.size, "size", 0, "page size (default: query.default_page_size)")
	cmd.Flags().StringVar(&f.format, "format", "text", "output format: text, json, csv")
	return cmd
}

func newRecordsExportCmd(g *globalFlags) *cobra.Command {
	f := &recordsFlags{}
	cmd := &cobra.Command{
		Use:       "export <kind>",
		Short:     "Export every matching record",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames,
		Example: `  ledger records export audit_events --filter operation=LOGIN --format csv -o logins.csv
  ledger records export products --filter active=true`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecords(cmd, g, f, args[0], "records export", exportRecords)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.format, "format", export.FormatJSON, "export format: json, csv")
	return cmd
}

// recordsRun carries what one records subcommand needs.
type recordsRun struct {
	cfg    *config.Config
	flags  *recordsFlags
	values url.Values
	loc    *time.Location
	out    io.Writer
}

// normalizeKind maps a kind argument to its canonical name.
func normalizeKind(arg string) (string, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(arg)), "-", "_")
	for _, k := range kindNames {
		if name == k {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q (must be one of %s)", arg, strings.Join(kindNames, ", "))
}

// withRecords loads config, opens storage and the output, then hands off to
// run for the resolved kind.
func withRecords(cmd *cobra.Command, g *globalFlags, f *recordsFlags, kindArg, name string,
	run func(ctx context.Context, kind string, b *backend, r recordsRun) error) error {
	kind, err := normalizeKind(kindArg)
	if err != nil {
		return cli.NewCommandError(name, err)
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	g.setupLogging(cfg)

	values, err := f.values()
	if err != nil {
		return cli.NewCommandError(name, err)
	}
	loc, err := f.location(cfg)
	if err != nil {
		return cli.NewCommandError(name, err)
	}

	b, err := openBackend(&cfg.Storage)
	if err != nil {
		return cli.NewCommandError(name, err)
	}
	defer b.Close()

	out := cmd.OutOrStdout()
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return cli.NewCommandError(name, fmt.Errorf("failed to create output file: %w", err))
		}
		defer file.Close()
		out = file
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Query.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Query.Timeout)
		defer cancel()
	}

	r := recordsRun{cfg: cfg, flags: f, values: values, loc: loc, out: out}
	if err := run(ctx, kind, b, r); err != nil {
		return cli.NewCommandError(name, err)
	}
	return nil
}

func queryRecords(ctx context.Context, kind string, b *backend, r recordsRun) error {
	switch kind {
	case "products":
		return queryKind(ctx, r, records.ProductKind, b.stores.Products, query.ProductFilter)
	case "users":
		return queryKind(ctx, r, records.UserKind, b.stores.Users, query.UserFilter)
	default:
		return queryKind(ctx, r, records.AuditEventKind, b.stores.AuditEvents, query.AuditFilter)
	}
}

func exportRecords(ctx context.Context, kind string, b *backend, r recordsRun) error {
	switch kind {
	case "products":
		return exportKind(ctx, r, records.ProductKind, b.stores.Products, query.ProductFilter)
	case "users":
		return exportKind(ctx, r, records.UserKind, b.stores.Users, query.UserFilter)
	default:
		return exportKind(ctx, r, records.AuditEventKind, b.stores.AuditEvents, query.AuditFilter)
	}
}

func newExecutor[R any](r recordsRun, kind records.Kind[R], store records.Store[R]) *query.Executor[R] {
	return query.NewExecutor(kind, store, nil).WithLimits(query.Limits{
		DefaultSize: r.cfg.Query.DefaultPageSize,
		MaxSize:     r.cfg.Query.MaxPageSize,
	})
}

func queryKind[R any](ctx context.Context, r recordsRun, kind records.Kind[R], store records.Store[R], criteria query.FilterFunc[R]) error {
	format, err := cli.ParseOutputFormat(r.flags.format)
	if err != nil {
		return err
	}

	f, err := criteria(r.values, r.loc)
	if err != nil {
		return err
	}
	order, err := query.OrderFromValues(r.values, kind)
	if err != nil {
		return err
	}

	page, err := newExecutor(r, kind, store).Page(ctx, f, query.PageRequest[R]{
		Page:  r.flags.page,
		Size:  r.flags.size,
		Order: order,
	})
	if err != nil {
		return err
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(r.out, page)
	}

	if err := cli.NewFormatter(format).FormatTo(r.out, recordTable(kind, page.Items)); err != nil {
		return err
	}
	if format == cli.FormatText {
		fmt.Fprintf(r.out, "\npage %d of %d (%d total)\n", page.Page+1, max(page.TotalPages, 1), page.Total)
	}
	return nil
}

func exportKind[R any](ctx context.Context, r recordsRun, kind records.Kind[R], store records.Store[R], criteria query.FilterFunc[R]) error {
	exporter, err := export.New(r.flags.format, kind)
	if err != nil {
		return err
	}

	f, err := criteria(r.values, r.loc)
	if err != nil {
		return err
	}
	order, err := query.OrderFromValues(r.values, kind)
	if err != nil {
		return err
	}

	items, err := newExecutor(r, kind, store).All(ctx, f, order)
	if err != nil {
		return err
	}
	if err := exporter.Export(ctx, items, r.out); err != nil {
		return err
	}

	slog.Info("export complete", "kind", kind.Name(), "format", exporter.Format(), "records", len(items))
	return nil
}

// recordTable lays out recs with one column per kind field.
func recordTable[R any](kind records.Kind[R], recs []R) cli.Table {
	fields := kind.Fields()
	t := cli.Table{Headers: make([]string, len(fields))}
	for i, f := range fields {
		t.Headers[i] = f.Name()
	}
	for i := range recs {
		cells := make([]any, len(fields))
		for j, f := range fields {
			cells[j] = f.Value(&recs[i])
		}
		t.Append(cells...)
	}
	return t
}
