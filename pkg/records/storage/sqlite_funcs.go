package storage

import (
	"database/sql"
	"database/sql/driver"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
)

// foldFunc lower-cases text with Unicode rules. SQLite's LOWER folds ASCII
// only, so Contains predicates match through this function on both drivers.
const foldFunc = "ledger_fold"

// driverCGOFuncs is mattn/go-sqlite3 with foldFunc installed on every
// connection.
const driverCGOFuncs = "sqlite3_ledger"

func init() {
	sql.Register(driverCGOFuncs, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(foldFunc, strings.ToLower, true)
		},
	})

	// modernc registers scalar functions process-wide for new connections.
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
}

// sqlDriverName maps a configured driver to the database/sql name to open.
func sqlDriverName(configured string) string {
	if configured == DriverCGO {
		return driverCGOFuncs
	}
	return configured
}
