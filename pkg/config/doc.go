// Package config provides configuration management for the ledger service.
//
// Configuration is read from a YAML file, layered over built-in defaults and
// then over environment variable overrides, and validated before use.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("ledger.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("ledger.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention LEDGER_SECTION_FIELD:
//
//   - LEDGER_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - LEDGER_SERVER_TLS_CERT_FILE overrides server.tls.cert_file
//   - LEDGER_STORAGE_SQLITE_PATH overrides storage.sqlite.path
//   - LEDGER_RETENTION_RETENTION_DAYS overrides retention.retention_days
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Overrides passed to Initialize, such as command line flags
//  5. Validation (fails fast if invalid)
//
// Booleans omitted from the file keep their defaults; an explicit false is
// honored.
//
// # Singleton and Hot Reload
//
//	if err := config.Initialize("ledger.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// WatchAndReload watches the file and swaps the global configuration when it
// changes. Each reload reapplies the environment and the Initialize
// overrides. A change that fails validation is logged and ignored.
//
// For tests, prefer passing explicit *Config values over the singleton.
package config
