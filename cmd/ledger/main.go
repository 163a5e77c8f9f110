// Ledger serves filtered, paged listings over products, users and audit
// events, computes audit dashboards and enforces audit retention.
//
// Usage:
//
//	# Start the HTTP API, retention scheduler and config watcher
//	ledger run --config /etc/ledger/config.yaml
//
//	# List audit events for one actor, newest first
//	ledger records query audit_events --filter actor=alice --size 50
//
//	# Export every failed login to CSV
//	ledger records export audit_events --filter operation=LOGIN --filter success=false --format csv -o logins.csv
//
//	# Run the retention policy once
//	ledger retention sweep
//
//	# Dashboard statistics for the last 30 days
//	ledger stats --range LAST_30_DAYS
package main

import (
	"fmt"
	"os"

	"mercator-hq/ledger/pkg/cli"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}
