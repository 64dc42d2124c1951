// Package adapter defines the delegate backend contract of the GSQL page store.
//
// This package contains the public contract that every durable backend must
// implement. Concrete adapters live in pkg/adapters/ subdirectories and
// register themselves by name from init().
package adapter

import (
	"context"
	"database/sql"

	"github.com/leapstack-labs/gsql/pkg/core"
)

// Type aliases for the shared types defined in pkg/core.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Adapter is a delegate SQL backend. The page store drives it through a
// single logical connection; implementations need not be safe for
// concurrent use.
type Adapter interface {
	// Name returns the registered adapter name.
	Name() string

	// Connect opens the database described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Pin dedicates one pooled connection to the adapter. Every later
	// statement runs on it, so session state (open transactions, temp
	// objects) survives between calls.
	Pin(ctx context.Context) error

	// Handle exposes the underlying pool for tools that need *sql.DB,
	// such as schema migrations. It must not be used after Pin.
	Handle() *sql.DB

	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, query string, args ...any) (core.ExecResult, error)

	// Query executes a statement that returns rows. Callers close the rows.
	Query(ctx context.Context, query string, args ...any) (*Rows, error)

	// Native transaction primitives.
	core.TxBackend

	// IntegrityCheck verifies the on-disk structure.
	IntegrityCheck(ctx context.Context) error

	// Checkpoint flushes the write-ahead log into the main file.
	Checkpoint(ctx context.Context) error

	// Vacuum rebuilds the database file.
	Vacuum(ctx context.Context) error

	// BackupTo writes a consistent full copy of the database to path.
	BackupTo(ctx context.Context, path string) error

	// Classify maps a driver error onto the core error taxonomy. Errors it
	// does not recognise are returned unchanged.
	Classify(err error) error
}
