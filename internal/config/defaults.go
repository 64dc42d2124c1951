package config

import "time"

// Default configuration values.
const (
	DefaultDatabase         = "gsql.db"
	DefaultBackend          = BackendSQLite
	DefaultBufferPoolSize   = 1000
	DefaultTxTimeout        = 30 * time.Second
	DefaultBackupRetention  = 5
	DefaultConnectRetries   = 3
	DefaultLockRetries      = 3
	DefaultRetryBackoff     = 100 * time.Millisecond
	DefaultMaxFunctionSteps = 100_000
)

// ApplyDefaults fills every zero field with its default. Path is left
// alone: an empty path means an in-memory store.
func (c *EngineConfig) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.BufferPoolSize == 0 {
		c.BufferPoolSize = DefaultBufferPoolSize
	}
	if c.TxTimeout == 0 {
		c.TxTimeout = DefaultTxTimeout
	}
	if c.BackupRetention == 0 {
		c.BackupRetention = DefaultBackupRetention
	}
	if c.ConnectRetries == 0 {
		c.ConnectRetries = DefaultConnectRetries
	}
	if c.LockRetries == 0 {
		c.LockRetries = DefaultLockRetries
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.MaxFunctionSteps == 0 {
		c.MaxFunctionSteps = DefaultMaxFunctionSteps
	}
}

// Defaults returns a fully defaulted configuration for path.
func Defaults(path string) EngineConfig {
	c := EngineConfig{Path: path}
	c.ApplyDefaults()
	return c
}
