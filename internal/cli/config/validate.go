package config

import (
	"fmt"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case OutputTable, OutputJSON:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", c.OutputFormat, OutputTable, OutputJSON)
	}
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("database is required\nHint: set database in gsql.yaml or pass --database")
	}
	ec := c.ToEngineConfig()
	if err := ec.Validate(); err != nil {
		return fmt.Errorf("invalid engine configuration: %w", err)
	}
	return nil
}
