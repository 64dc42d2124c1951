package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/gsql/pkg/adapter"
	"github.com/leapstack-labs/gsql/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
	params *Params
}

// New creates a new SQLite adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// Name returns the registered adapter name.
func (a *Adapter) Name() string {
	return "sqlite"
}

// Connect opens a SQLite database. Use ":memory:" for a private in-memory
// database. The pool is capped at one connection so pragmas and session
// state apply to every statement.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite", buildDSN(path, params, cfg.Options))
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", a.Classify(err))
	}

	a.DB = db
	a.Cfg = cfg
	a.params = params
	a.Logger.Debug("connected", slog.String("path", path))
	return nil
}

// BeginTx starts a transaction in the requested locking mode.
func (a *Adapter) BeginTx(ctx context.Context, iso core.Isolation) error {
	if iso == "" {
		iso = core.IsolationDeferred
	}
	_, err := a.Exec(ctx, "BEGIN "+string(iso))
	return err
}

// IntegrityCheck runs PRAGMA integrity_check and reports any finding as a
// storage error.
func (a *Adapter) IntegrityCheck(ctx context.Context) error {
	rows, err := a.Query(ctx, "PRAGMA integrity_check")
	if err != nil {
		return &core.StorageError{Op: "integrity check", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return &core.StorageError{Op: "integrity check", Err: err}
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return &core.StorageError{Op: "integrity check", Err: err}
	}
	if len(problems) > 0 {
		if len(problems) > 3 {
			problems = append(problems[:3], fmt.Sprintf("and %d more", len(problems)-3))
		}
		return &core.StorageError{Op: "integrity check", Err: fmt.Errorf("%w: %s", core.ErrCorrupt, strings.Join(problems, "; "))}
	}
	return nil
}

// Checkpoint copies the write-ahead log into the main database file.
func (a *Adapter) Checkpoint(ctx context.Context) error {
	rows, err := a.Query(ctx, "PRAGMA wal_checkpoint(FULL)")
	if err != nil {
		return fmt.Errorf("failed to checkpoint: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
	}
	return rows.Err()
}

// Vacuum rebuilds the database file.
func (a *Adapter) Vacuum(ctx context.Context) error {
	if _, err := a.Exec(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum: %w", err)
	}
	return nil
}

// BackupTo writes a consistent copy of the database to path. The target
// must not exist.
func (a *Adapter) BackupTo(ctx context.Context, path string) error {
	if _, err := a.Exec(ctx, "VACUUM INTO "+adapter.QuoteLiteral(path)); err != nil {
		return fmt.Errorf("failed to back up to %s: %w", path, err)
	}
	return nil
}
