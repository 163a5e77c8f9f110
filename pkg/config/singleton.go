package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Override adjusts a freshly loaded configuration, typically from command
// line flags. Overrides run after environment overrides and before
// validation, on the first load and again on every reload.
type Override func(*Config)

var (
	current atomic.Pointer[Config]

	// loadMu serializes loads and guards source.
	loadMu sync.Mutex
	source struct {
		path      string
		overrides []Override
	}

	initOnce sync.Once
)

// Initialize loads configuration from path with environment overrides, then
// overrides, and stores it as the global configuration. Subsequent calls are
// ignored.
func Initialize(path string, overrides ...Override) error {
	var initErr error
	initOnce.Do(func() {
		loadMu.Lock()
		defer loadMu.Unlock()

		cfg, err := load(path, overrides)
		if err != nil {
			initErr = err
			return
		}
		source.path = path
		source.overrides = overrides
		current.Store(cfg)
	})
	return initErr
}

// GetConfig returns the global configuration, or nil before Initialize.
// Callers must treat the returned value as read-only.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig replaces the global configuration. Intended for tests.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// ReloadConfig reloads configuration from path, reapplying the overrides
// given to Initialize. The global configuration is replaced only if the
// result validates.
func ReloadConfig(path string) error {
	loadMu.Lock()
	defer loadMu.Unlock()

	cfg, err := load(path, source.overrides)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	source.path = path
	current.Store(cfg)
	return nil
}

// Path returns the file the global configuration was loaded from.
func Path() string {
	loadMu.Lock()
	defer loadMu.Unlock()
	return source.path
}

// MustGetConfig returns the global configuration and panics if it has not
// been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
