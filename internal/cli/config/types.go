// Package config provides configuration management for the GSQL CLI.
//
// Engine tuning lives in internal/config.EngineConfig; this package adds
// the CLI-level fields and layers koanf sources on top.
package config

import (
	intconfig "github.com/leapstack-labs/gsql/internal/config"
)

// EngineConfig is an alias for the shared engine configuration.
type EngineConfig = intconfig.EngineConfig

// Config holds all CLI configuration options.
type Config struct {
	Database     string       `koanf:"database"`
	Backend      string       `koanf:"backend"`
	Verbose      bool         `koanf:"verbose"`
	OutputFormat string       `koanf:"output"`
	Engine       EngineConfig `koanf:"engine"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// Default configuration values.
const (
	DefaultDatabase = intconfig.DefaultDatabase
	DefaultBackend  = intconfig.DefaultBackend
	DefaultOutput   = OutputTable
)

// ToEngineConfig returns the engine configuration with the top-level
// database and backend folded in and defaults applied.
func (c *Config) ToEngineConfig() EngineConfig {
	ec := c.Engine
	ec.Path = c.Database
	ec.Backend = c.Backend
	if ec.Backend == intconfig.BackendMemory {
		ec.Path = ":memory:"
	}
	ec.ApplyDefaults()
	return ec
}
