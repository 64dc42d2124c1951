// Package memstore is the volatile GSQL store: an ordered list of tables
// held in process memory. It shares the statement AST, the result
// envelope and the transaction manager with the durable page store.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/leapstack-labs/gsql/internal/config"
	"github.com/leapstack-labs/gsql/internal/metrics"
	"github.com/leapstack-labs/gsql/internal/txn"
	"github.com/leapstack-labs/gsql/pkg/core"
)

// Path is reported as the location of every in-memory store.
const Path = ":memory:"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store keeps tables in memory. All methods are safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time

	tables    map[string]*table
	indexes   map[string]string // index name -> table key
	snapshots []snapshot
	txm       *txn.Manager
	session   *txn.Session
	counters  map[string]int64
	closed    bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store. Only the transaction timeout of cfg applies.
func New(cfg config.EngineConfig, opts ...Option) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	s := &Store{
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		tables:   make(map[string]*table),
		indexes:  make(map[string]string),
		counters: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.txm = txn.NewManager(txBackend{s},
		txn.WithLogger(s.logger),
		txn.WithTimeout(cfg.TxTimeout),
		txn.WithClock(s.now),
	)
	s.session = txn.NewSession(s.txm)
	s.logger.Debug("memory store created")
	return s, nil
}

// Execute runs a parsed statement.
func (s *Store) Execute(ctx context.Context, stmt core.Statement) (*core.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &core.StorageError{Op: "execute", Err: ErrClosed}
	}
	start := s.now()
	res, err := s.execute(ctx, stmt)

	kind := string(stmt.Kind())
	metrics.StatementsTotal.WithLabelValues(kind, metrics.Status(err)).Inc()
	metrics.StatementDuration.WithLabelValues(kind).Observe(s.now().Sub(start).Seconds())
	s.counters["query_count_"+kind]++
	return res, err
}

func (s *Store) execute(ctx context.Context, stmt core.Statement) (*core.Result, error) {
	if txn.Handles(stmt) {
		return s.session.Execute(ctx, stmt)
	}

	kind := string(stmt.Kind())
	switch st := stmt.(type) {
	case *core.CreateTable:
		return s.createTable(st)
	case *core.CreateIndex:
		return s.createIndex(st)
	case *core.Insert:
		return s.insert(st)
	case *core.Select:
		return s.selectRows(st)
	case *core.Update:
		return s.update(st)
	case *core.Delete:
		return s.delete(st)
	case *core.DropTable:
		return s.dropTable(st)
	case *core.ShowTables:
		return core.TablesResult(s.list()), nil
	}
	return nil, &core.ExecutionError{Op: kind, Message: "statement is not supported by the store"}
}

// Tables lists tables by name.
func (s *Store) Tables(_ context.Context) ([]core.TableInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &core.StorageError{Op: "tables", Err: ErrClosed}
	}
	return s.list(), nil
}

func (s *Store) list() []core.TableInfo {
	out := make([]core.TableInfo, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TableSchema returns the schema of table.
func (s *Store) TableSchema(_ context.Context, name string) (*core.TableSchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &core.StorageError{Op: "schema", Err: ErrClosed}
	}
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	return t.snapshot(), nil
}

// Transactions returns the transaction manager of this store.
func (s *Store) Transactions() core.TransactionManager {
	return s.txm
}

// Stats reports store statistics.
func (s *Store) Stats(_ context.Context) (*core.StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &core.StorageError{Op: "stats", Err: ErrClosed}
	}
	return &core.StoreStats{
		Backend:    config.BackendMemory,
		Path:       Path,
		Tables:     len(s.tables),
		ActiveTx:   len(s.txm.Active()),
		StartedTx:  s.txm.Started(),
		Statistics: maps.Clone(s.counters),
	}, nil
}

// Close rolls back active transactions and drops every table.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	err := s.txm.RollbackAll(context.Background())
	s.tables = nil
	s.indexes = nil
	s.logger.Debug("memory store closed")
	return err
}

// table looks up a table. Must be called with s.mu held.
func (s *Store) table(name string) (*table, error) {
	t, ok := s.tables[key(name)]
	if !ok {
		return nil, &core.ExecutionError{Message: "no such table: " + name}
	}
	return t, nil
}

var _ core.Store = (*Store)(nil)
