// Package config provides the engine configuration types for GSQL.
// This package is decoupled from CLI concerns: the page store takes an
// EngineConfig directly, and the CLI layers koanf sources on top of it.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/gsql/pkg/adapter"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// EngineConfig holds the tuning knobs of one engine instance.
type EngineConfig struct {
	// Path is the store file, or ":memory:". Set from the top-level
	// "database" key.
	Path string `koanf:"-"`

	// Backend selects the store: "sqlite" (durable) or "memory".
	Backend string `koanf:"-"`

	BufferPoolSize   int           `koanf:"buffer_pool_size"`
	TxTimeout        time.Duration `koanf:"tx_timeout"`
	BackupRetention  int           `koanf:"backup_retention"`
	ConnectRetries   int           `koanf:"connect_retries"`
	LockRetries      int           `koanf:"lock_retries"`
	RetryBackoff     time.Duration `koanf:"retry_backoff"`
	MaxFunctionSteps uint64        `koanf:"max_function_steps"`

	// Pragmas are applied to every SQLite connection, e.g. temp_store: memory.
	Pragmas map[string]string `koanf:"pragmas"`

	// Params are passed to the delegate adapter untouched.
	Params map[string]any `koanf:"params"`
}

// IsMemoryPath reports whether the store lives only in memory.
func (c EngineConfig) IsMemoryPath() bool {
	return c.Path == "" || c.Path == ":memory:"
}

// AdapterConfig builds the delegate adapter configuration.
func (c *EngineConfig) AdapterConfig() adapter.Config {
	params := make(map[string]any, len(c.Params)+1)
	for k, v := range c.Params {
		params[k] = v
	}
	if len(c.Pragmas) > 0 {
		pragmas := make(map[string]string, len(c.Pragmas))
		for k, v := range c.Pragmas {
			pragmas[k] = v
		}
		params["pragmas"] = pragmas
	}
	return adapter.Config{
		Type:   adapter.DefaultType,
		Path:   c.Path,
		Params: params,
	}
}

// Validate checks that the configuration is usable.
func (c *EngineConfig) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "", BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendSQLite, BackendMemory)
	}
	if c.BufferPoolSize < 0 {
		return fmt.Errorf("buffer_pool_size must not be negative, got %d", c.BufferPoolSize)
	}
	if c.BackupRetention < 0 {
		return fmt.Errorf("backup_retention must not be negative, got %d", c.BackupRetention)
	}
	if c.TxTimeout < 0 {
		return fmt.Errorf("tx_timeout must not be negative, got %s", c.TxTimeout)
	}
	return nil
}
