// Package txn implements the transaction state machine that coordinates the
// native transaction primitives of a delegate backend.
//
// A transaction moves from ACTIVE to exactly one of COMMITTED, ROLLED_BACK
// or CORRUPTED. Terminal transactions leave the active set, and the pages
// they touched are dropped from the buffer pool.
package txn

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/gsql/internal/metrics"
	"github.com/leapstack-labs/gsql/pkg/core"
)

// DefaultTimeout bounds the lifetime of a transaction. It is checked at
// commit.
const DefaultTimeout = 30 * time.Second

// Invalidator drops cached pages. *bufferpool.Pool satisfies it.
type Invalidator interface {
	Invalidate(key string)
}

// FinishFunc observes every transaction that reaches a terminal state.
type FinishFunc func(ctx context.Context, info core.TxInfo)

// Transaction is the bookkeeping of one transaction.
type Transaction struct {
	ID         int64
	Isolation  core.Isolation
	State      core.TxState
	StartedAt  time.Time
	Savepoints []string

	used    map[string]bool
	touched map[string]struct{}
}

func (t *Transaction) info(now time.Time) core.TxInfo {
	return core.TxInfo{
		ID:         t.ID,
		Isolation:  t.Isolation,
		State:      t.State,
		StartedAt:  t.StartedAt,
		Age:        now.Sub(t.StartedAt),
		Savepoints: slices.Clone(t.Savepoints),
	}
}

// Manager tracks transactions on a single backend connection. It is safe
// for concurrent use, but the backend holds at most one open transaction.
type Manager struct {
	mu       sync.Mutex
	backend  core.TxBackend
	pool     Invalidator
	timeout  time.Duration
	logger   *slog.Logger
	onFinish FinishFunc
	now      func() time.Time

	lastID  int64
	started int64
	active  map[int64]*Transaction
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTimeout sets the transaction timeout. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithInvalidator sets the cache notified of touched pages.
func WithInvalidator(pool Invalidator) Option {
	return func(m *Manager) { m.pool = pool }
}

// WithFinishHook registers fn to run after each terminal transition.
func WithFinishHook(fn FinishFunc) Option {
	return func(m *Manager) { m.onFinish = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager over backend.
func NewManager(backend core.TxBackend, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
		active:  make(map[int64]*Transaction),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Timeout returns the configured transaction timeout.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Begin starts a transaction and returns its id. Only one transaction may
// be active at a time.
func (m *Manager) Begin(ctx context.Context, isolation core.Isolation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isolation == "" {
		isolation = core.IsolationDeferred
	}
	for id := range m.active {
		return 0, &core.TransactionError{Message: fmt.Sprintf("transaction %d is already active", id)}
	}

	if err := m.backend.BeginTx(ctx, isolation); err != nil {
		return 0, &core.TransactionError{Message: "failed to begin transaction", Err: err}
	}

	m.lastID++
	m.started++
	tx := &Transaction{
		ID:        m.lastID,
		Isolation: isolation,
		State:     core.TxActive,
		StartedAt: m.now(),
		used:      make(map[string]bool),
		touched:   make(map[string]struct{}),
	}
	m.active[tx.ID] = tx
	m.logger.Debug("transaction started", slog.Int64("tid", tx.ID), slog.String("isolation", string(isolation)))
	return tx.ID, nil
}

// Commit commits tid. A transaction older than the timeout is rolled back
// and reported as timed out.
func (m *Manager) Commit(ctx context.Context, tid int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, err := m.lookup(tid)
	if err != nil {
		return err
	}

	if m.expired(tx) {
		if rbErr := m.backend.RollbackTx(ctx); rbErr != nil {
			m.finish(ctx, tx, core.TxCorrupted)
			return &core.TransactionError{TID: tid, Message: "rollback after timeout failed", Corrupted: true, Err: rbErr}
		}
		m.finish(ctx, tx, core.TxRolledBack)
		return &core.TransactionError{TID: tid, Message: fmt.Sprintf("timed out after %s", m.timeout), Timeout: true}
	}

	if err := m.backend.CommitTx(ctx); err != nil {
		if rbErr := m.backend.RollbackTx(ctx); rbErr != nil {
			m.logger.Error("rollback after failed commit failed", slog.Int64("tid", tid), slog.String("error", rbErr.Error()))
			m.finish(ctx, tx, core.TxCorrupted)
			return &core.TransactionError{TID: tid, Message: "commit failed", Corrupted: true, Err: err}
		}
		m.finish(ctx, tx, core.TxRolledBack)
		return &core.TransactionError{TID: tid, Message: "commit failed", Err: err}
	}

	m.finish(ctx, tx, core.TxCommitted)
	return nil
}

// Rollback rolls tid back entirely, or to toSavepoint when it is set.
// Rolling back to a savepoint keeps the transaction active, keeps the
// savepoint and discards every savepoint created after it.
func (m *Manager) Rollback(ctx context.Context, tid int64, toSavepoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, err := m.lookup(tid)
	if err != nil {
		return err
	}

	if toSavepoint != "" {
		idx := savepointIndex(tx, toSavepoint)
		if idx < 0 {
			return &core.TransactionError{TID: tid, Message: fmt.Sprintf("savepoint %q not found", toSavepoint)}
		}
		if err := m.backend.RollbackToSavepoint(ctx, tx.Savepoints[idx]); err != nil {
			m.finish(ctx, tx, core.TxCorrupted)
			return &core.TransactionError{TID: tid, Message: "rollback failed", Corrupted: true, Err: err}
		}
		tx.Savepoints = tx.Savepoints[:idx+1]
		m.invalidateTouched(tx)
		m.logger.Debug("rolled back to savepoint", slog.Int64("tid", tid), slog.String("savepoint", toSavepoint))
		return nil
	}

	if err := m.backend.RollbackTx(ctx); err != nil {
		m.finish(ctx, tx, core.TxCorrupted)
		return &core.TransactionError{TID: tid, Message: "rollback failed", Corrupted: true, Err: err}
	}
	m.finish(ctx, tx, core.TxRolledBack)
	return nil
}

// Savepoint creates a named savepoint. Names are unique for the lifetime
// of the transaction, even after release.
func (m *Manager) Savepoint(ctx context.Context, tid int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, err := m.lookup(tid)
	if err != nil {
		return err
	}
	key := strings.ToLower(name)
	if tx.used[key] {
		return &core.TransactionError{TID: tid, Message: fmt.Sprintf("savepoint %q already exists", name)}
	}
	if err := m.backend.Savepoint(ctx, name); err != nil {
		return &core.TransactionError{TID: tid, Message: "savepoint failed", Err: err}
	}
	tx.used[key] = true
	tx.Savepoints = append(tx.Savepoints, name)
	return nil
}

// Release releases a savepoint and every savepoint created after it.
func (m *Manager) Release(ctx context.Context, tid int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, err := m.lookup(tid)
	if err != nil {
		return err
	}
	idx := savepointIndex(tx, name)
	if idx < 0 {
		return &core.TransactionError{TID: tid, Message: fmt.Sprintf("savepoint %q not found", name)}
	}
	if err := m.backend.ReleaseSavepoint(ctx, tx.Savepoints[idx]); err != nil {
		return &core.TransactionError{TID: tid, Message: "release failed", Err: err}
	}
	tx.Savepoints = tx.Savepoints[:idx]
	return nil
}

// IsExpired reports whether the active transaction tid outlived the
// timeout. Unknown ids are not expired.
func (m *Manager) IsExpired(tid int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.active[tid]
	return ok && m.expired(tx)
}

// Active lists the active transactions ordered by id.
func (m *Manager) Active() []core.TxInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	out := make([]core.TxInfo, 0, len(m.active))
	for _, tx := range m.active {
		out = append(out, tx.info(now))
	}
	slices.SortFunc(out, func(a, b core.TxInfo) int { return int(a.ID - b.ID) })
	return out
}

// Current returns the id of the active transaction, if any.
func (m *Manager) Current() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.active {
		return id, true
	}
	return 0, false
}

// Started returns how many transactions were ever begun.
func (m *Manager) Started() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Touch records cache keys written by tid. They are invalidated when the
// transaction ends or rolls back to a savepoint.
func (m *Manager) Touch(tid int64, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.active[tid]
	if !ok {
		return
	}
	for _, k := range keys {
		tx.touched[k] = struct{}{}
	}
}

// RollbackAll rolls back every active transaction. Used on close.
func (m *Manager) RollbackAll(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := m.Rollback(ctx, id, ""); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// lookup must be called with m.mu held.
func (m *Manager) lookup(tid int64) (*Transaction, error) {
	tx, ok := m.active[tid]
	if !ok {
		return nil, &core.TransactionError{TID: tid, Message: "not found or already finished"}
	}
	return tx, nil
}

func (m *Manager) expired(tx *Transaction) bool {
	return m.now().Sub(tx.StartedAt) > m.timeout
}

// finish must be called with m.mu held.
func (m *Manager) finish(ctx context.Context, tx *Transaction, state core.TxState) {
	tx.State = state
	delete(m.active, tx.ID)
	m.invalidateTouched(tx)

	outcome := strings.ToLower(string(state))
	metrics.TransactionsTotal.WithLabelValues(outcome).Inc()

	level := slog.LevelDebug
	if state == core.TxCorrupted {
		level = slog.LevelError
	}
	m.logger.Log(ctx, level, "transaction finished", slog.Int64("tid", tx.ID), slog.String("state", outcome))

	if m.onFinish != nil {
		m.onFinish(ctx, tx.info(m.now()))
	}
}

func (m *Manager) invalidateTouched(tx *Transaction) {
	if m.pool == nil {
		return
	}
	for k := range tx.touched {
		m.pool.Invalidate(k)
	}
}

func savepointIndex(tx *Transaction, name string) int {
	return slices.IndexFunc(tx.Savepoints, func(s string) bool { return strings.EqualFold(s, name) })
}

var _ core.TransactionManager = (*Manager)(nil)
