/*
Package cli provides helpers shared by the ledger command.

Output Formatting:

Commands print results as aligned text tables, JSON or CSV. Tabular results
implement Tabular; anything else is printed with %v by the text formatter:

	formatter := cli.NewFormatter(cli.FormatText)
	table := cli.Table{Headers: []string{"kind", "deleted"}}
	table.Append("audit_events", 12)
	if err := formatter.FormatTo(os.Stdout, table); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Errors:

ConfigError and CommandError carry enough context for main to print one
line and exit non-zero.
*/
package cli
