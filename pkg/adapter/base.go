package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/gsql/pkg/core"
)

// ErrNotConnected is returned by operations on a closed adapter.
var ErrNotConnected = errors.New("database connection not established")

// querier is the subset shared by *sql.DB and *sql.Conn.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, Query and transaction primitives.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Conn   *sql.Conn // set by Pin
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

func (b *BaseSQLAdapter) q() (querier, error) {
	if b.Conn != nil {
		return b.Conn, nil
	}
	if b.DB != nil {
		return b.DB, nil
	}
	return nil, ErrNotConnected
}

// Handle returns the connection pool.
func (b *BaseSQLAdapter) Handle() *sql.DB {
	return b.DB
}

// Pin takes the single pooled connection for exclusive use.
func (b *BaseSQLAdapter) Pin(ctx context.Context) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if b.Conn != nil {
		return nil
	}
	conn, err := b.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to pin connection: %w", err)
	}
	b.Conn = conn
	return nil
}

// Close closes the pinned connection and the pool.
func (b *BaseSQLAdapter) Close() error {
	var errs []error
	if b.Conn != nil {
		errs = append(errs, b.Conn.Close())
		b.Conn = nil
	}
	if b.DB != nil {
		b.logger().Debug("closing database connection")
		errs = append(errs, b.DB.Close())
		b.DB = nil
	}
	return errors.Join(errs...)
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, query string, args ...any) (core.ExecResult, error) {
	q, err := b.q()
	if err != nil {
		return core.ExecResult{}, err
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return core.ExecResult{}, fmt.Errorf("failed to execute SQL: %w", err)
	}
	var out core.ExecResult
	// Drivers may not support either value; zero is the honest answer then.
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, query string, args ...any) (*core.Rows, error) {
	q, err := b.q()
	if err != nil {
		return nil, err
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// ---------- Transaction primitives ----------

// BeginTx issues a plain BEGIN. Backends with locking modes override it.
func (b *BaseSQLAdapter) BeginTx(ctx context.Context, _ core.Isolation) error {
	_, err := b.Exec(ctx, "BEGIN")
	return err
}

// CommitTx issues COMMIT.
func (b *BaseSQLAdapter) CommitTx(ctx context.Context) error {
	_, err := b.Exec(ctx, "COMMIT")
	return err
}

// RollbackTx issues ROLLBACK.
func (b *BaseSQLAdapter) RollbackTx(ctx context.Context) error {
	_, err := b.Exec(ctx, "ROLLBACK")
	return err
}

// Savepoint creates a named savepoint.
func (b *BaseSQLAdapter) Savepoint(ctx context.Context, name string) error {
	_, err := b.Exec(ctx, "SAVEPOINT "+QuoteIdent(name))
	return err
}

// RollbackToSavepoint undoes work done after the savepoint; the savepoint
// itself stays open.
func (b *BaseSQLAdapter) RollbackToSavepoint(ctx context.Context, name string) error {
	_, err := b.Exec(ctx, "ROLLBACK TO SAVEPOINT "+QuoteIdent(name))
	return err
}

// ReleaseSavepoint releases the savepoint and every later one.
func (b *BaseSQLAdapter) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := b.Exec(ctx, "RELEASE SAVEPOINT "+QuoteIdent(name))
	return err
}

// QuoteIdent quotes an identifier with double quotes, doubling embedded ones.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral quotes a string literal with single quotes.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
