package core

import "database/sql"

// AdapterConfig holds configuration for connecting a delegate backend.
type AdapterConfig struct {
	Type    string            // registered adapter name, e.g. "sqlite"
	Path    string            // store file path or ":memory:"
	Options map[string]string // driver DSN options
	Params  map[string]any    // adapter-specific settings (pragmas, ...)
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}

// ExecResult reports the effect of a statement that returns no rows.
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64
}
