// Package pagestore is the durable GSQL store. It owns the connection to a
// delegate SQL backend, recovers damaged files on open, caches schemas in
// the buffer pool and compiles parsed statements into backend SQL.
package pagestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/gsql/internal/bufferpool"
	"github.com/leapstack-labs/gsql/internal/config"
	"github.com/leapstack-labs/gsql/internal/txn"
	"github.com/leapstack-labs/gsql/pkg/adapter"
	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/spf13/afero"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("store is closed")

// Version is recorded in _gsql_metadata.
const Version = "1.0"

// Engine is the durable page store. All methods are safe for concurrent
// use; statements are serialized on one engine-wide mutex.
type Engine struct {
	mu     sync.Mutex
	cfg    config.EngineConfig
	layout layout
	fs     afero.Fs
	logger *slog.Logger
	now    func() time.Time

	adp       adapter.Adapter
	pool      *bufferpool.Pool
	txm       *txn.Manager
	session   *txn.Session
	meta      *Metadata
	sessionID string
	migration int64
	counters  map[string]int64
	fallback  bool
	closed    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithFs sets the filesystem used for metadata, flag and backup files.
// The store file itself is always opened by the backend driver.
func WithFs(fsys afero.Fs) Option {
	return func(e *Engine) { e.fs = fsys }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Open opens or creates the store described by cfg. A damaged store file
// is recovered from the latest valid backup, repaired, or reset.
func Open(ctx context.Context, cfg config.EngineConfig, opts ...Option) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	e := &Engine{
		cfg:       cfg,
		layout:    newLayout(cfg.Path),
		fs:        afero.NewOsFs(),
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		sessionID: uuid.NewString(),
		counters:  make(map[string]int64),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("store", e.layout.store))

	pool, err := bufferpool.New(cfg.BufferPoolSize)
	if err != nil {
		return nil, err
	}
	e.pool = pool

	if err := e.open(ctx); err != nil {
		return nil, err
	}

	e.txm = txn.NewManager(retryBackend{e},
		txn.WithLogger(e.logger),
		txn.WithTimeout(cfg.TxTimeout),
		txn.WithInvalidator(e.pool),
		txn.WithFinishHook(e.logTransaction),
		txn.WithClock(e.now),
	)
	e.session = txn.NewSession(e.txm)

	e.logger.Info("store opened",
		slog.String("session", e.sessionID),
		slog.Int64("schema_version", e.migration),
		slog.Bool("fallback", e.fallback))
	return e, nil
}

func (e *Engine) open(ctx context.Context) error {
	if e.layout.memory {
		adp, err := e.connectWithRetry(ctx, e.layout.store)
		if err != nil {
			return err
		}
		e.adp = adp
		e.meta = newMetadata(e.now())
		return e.initialize(ctx)
	}

	if err := e.fs.MkdirAll(e.layout.dir(), 0o755); err != nil {
		return &core.StorageError{Op: "open", Err: err}
	}
	meta, err := loadMetadata(e.fs, e.layout.metaFile(), e.now())
	if err != nil {
		return &core.StorageError{Op: "open", Err: err}
	}
	e.meta = meta

	if exists, _ := afero.Exists(e.fs, e.layout.flagFile()); exists {
		e.logger.Warn("previous recovery did not finish, checking store")
	}

	adp, err := e.connectWithRetry(ctx, e.layout.store)
	switch {
	case err == nil:
		if checkErr := adp.IntegrityCheck(ctx); checkErr != nil {
			e.logger.Error("integrity check failed", slog.String("error", checkErr.Error()))
			_ = adp.Close()
			adp = nil
		}
	case errors.Is(err, core.ErrCorrupt):
		e.logger.Error("store file is damaged", slog.String("error", err.Error()))
	default:
		return err
	}

	if adp == nil {
		adp, err = e.recover(ctx)
		if err != nil {
			return err
		}
	}
	e.adp = adp
	_ = e.clearFlag()
	return e.initialize(ctx)
}

// initialize migrates the system tables, pins the connection and loads
// persisted state.
func (e *Engine) initialize(ctx context.Context) error {
	version, err := migrate(ctx, e.adp.Handle(), e.logger)
	if err != nil {
		_ = e.adp.Close()
		return &core.StorageError{Op: "migrate", Err: err}
	}
	e.migration = version

	if err := e.adp.Pin(ctx); err != nil {
		_ = e.adp.Close()
		return &core.StorageError{Op: "open", Err: err}
	}

	if err := e.writeMetadata(ctx); err != nil {
		e.logger.Warn("failed to record metadata", slog.String("error", err.Error()))
	}
	if err := e.loadCounters(ctx); err != nil {
		e.logger.Warn("failed to load statistics", slog.String("error", err.Error()))
	}
	return nil
}

// writeMetadata mirrors the control file into _gsql_metadata and saves it.
func (e *Engine) writeMetadata(ctx context.Context) error {
	pairs := [][2]string{
		{"store_id", e.meta.StoreID},
		{"version", Version},
		{"schema_version", fmt.Sprint(e.migration)},
		{"created_at", e.meta.CreatedAt.Format(time.RFC3339)},
	}
	for _, kv := range pairs {
		if _, err := e.exec(ctx, `INSERT INTO _gsql_metadata (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return e.saveMetadata()
}

func (e *Engine) saveMetadata() error {
	if e.layout.memory || e.fallback {
		return nil
	}
	return e.meta.save(e.fs, e.layout.metaFile())
}

// Execute runs a parsed statement.
func (e *Engine) Execute(ctx context.Context, stmt core.Statement) (*core.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, &core.StorageError{Op: "execute", Err: ErrClosed}
	}
	start := e.now()
	res, err := e.execute(ctx, stmt)
	e.record(stmt.Kind(), start, err)
	return res, err
}

// Tables lists user tables.
func (e *Engine) Tables(ctx context.Context) ([]core.TableInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, &core.StorageError{Op: "tables", Err: ErrClosed}
	}
	return e.tables(ctx)
}

// TableSchema returns the schema of table.
func (e *Engine) TableSchema(ctx context.Context, table string) (*core.TableSchema, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, &core.StorageError{Op: "schema", Err: ErrClosed}
	}
	s, err := e.tableSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &core.ExecutionError{Op: "schema", Message: "no such table: " + table}
	}
	return s, nil
}

// Transactions returns the transaction manager of this store. Every call
// takes the engine mutex, like Execute.
func (e *Engine) Transactions() core.TransactionManager {
	return lockedTxm{e: e}
}

// lockedTxm serializes direct transaction calls with statement execution.
type lockedTxm struct {
	e *Engine
}

func (l lockedTxm) lock(op string) (func(), error) {
	l.e.mu.Lock()
	if l.e.closed {
		l.e.mu.Unlock()
		return nil, &core.StorageError{Op: op, Err: ErrClosed}
	}
	return l.e.mu.Unlock, nil
}

func (l lockedTxm) Begin(ctx context.Context, isolation core.Isolation) (int64, error) {
	unlock, err := l.lock("begin")
	if err != nil {
		return 0, err
	}
	defer unlock()
	return l.e.txm.Begin(ctx, isolation)
}

func (l lockedTxm) Commit(ctx context.Context, tid int64) error {
	unlock, err := l.lock("commit")
	if err != nil {
		return err
	}
	defer unlock()
	return l.e.txm.Commit(ctx, tid)
}

func (l lockedTxm) Rollback(ctx context.Context, tid int64, toSavepoint string) error {
	unlock, err := l.lock("rollback")
	if err != nil {
		return err
	}
	defer unlock()
	return l.e.txm.Rollback(ctx, tid, toSavepoint)
}

func (l lockedTxm) Savepoint(ctx context.Context, tid int64, name string) error {
	unlock, err := l.lock("savepoint")
	if err != nil {
		return err
	}
	defer unlock()
	return l.e.txm.Savepoint(ctx, tid, name)
}

func (l lockedTxm) Release(ctx context.Context, tid int64, name string) error {
	unlock, err := l.lock("release")
	if err != nil {
		return err
	}
	defer unlock()
	return l.e.txm.Release(ctx, tid, name)
}

func (l lockedTxm) IsExpired(tid int64) bool {
	l.e.mu.Lock()
	defer l.e.mu.Unlock()
	return l.e.txm.IsExpired(tid)
}

func (l lockedTxm) Active() []core.TxInfo {
	l.e.mu.Lock()
	defer l.e.mu.Unlock()
	return l.e.txm.Active()
}

// BufferPool exposes the cache, mainly for statistics and tests.
func (e *Engine) BufferPool() *bufferpool.Pool {
	return e.pool
}

// Path returns the store file path, or ":memory:".
func (e *Engine) Path() string {
	return e.layout.store
}

// Close rolls back active transactions, flushes statistics and closes the
// backend connection. Closing twice is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	ctx := context.Background()

	var errs []error
	if active := e.txm.Active(); len(active) > 0 {
		e.logger.Warn("closing store with active transactions", slog.Int("count", len(active)))
		errs = append(errs, e.txm.RollbackAll(ctx))
	}
	if err := e.flushCounters(ctx); err != nil {
		e.logger.Warn("failed to flush statistics", slog.String("error", err.Error()))
	}
	if !e.layout.memory && !e.fallback {
		if err := e.adp.Checkpoint(ctx); err != nil {
			e.logger.Debug("checkpoint on close failed", slog.String("error", err.Error()))
		}
	}
	e.pool.InvalidateAll()
	errs = append(errs, e.adp.Close())

	e.logger.Info("store closed")
	if err := errors.Join(errs...); err != nil {
		return &core.StorageError{Op: "close", Err: err}
	}
	return nil
}

var _ core.Store = (*Engine)(nil)
