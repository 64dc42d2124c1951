package core

import (
	"context"
	"time"
)

// TxState is the lifecycle state of a transaction.
type TxState string

// Transaction states. Every state but ACTIVE is terminal.
const (
	TxActive     TxState = "ACTIVE"
	TxCommitted  TxState = "COMMITTED"
	TxRolledBack TxState = "ROLLED_BACK"
	TxCorrupted  TxState = "CORRUPTED"
)

// Terminal reports whether no further transition is possible.
func (s TxState) Terminal() bool { return s != TxActive }

// TxInfo is a snapshot of one transaction.
type TxInfo struct {
	ID         int64         `json:"tid"`
	Isolation  Isolation     `json:"isolation"`
	State      TxState       `json:"state"`
	StartedAt  time.Time     `json:"started_at"`
	Age        time.Duration `json:"age"`
	Savepoints []string      `json:"savepoints"`
}

// TxBackend is the native transaction surface of a delegate backend.
// The transaction manager coordinates it; durability stays in the backend.
type TxBackend interface {
	BeginTx(ctx context.Context, isolation Isolation) error
	CommitTx(ctx context.Context) error
	RollbackTx(ctx context.Context) error
	Savepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
}

// TransactionManager drives the transaction state machine.
type TransactionManager interface {
	Begin(ctx context.Context, isolation Isolation) (int64, error)
	Commit(ctx context.Context, tid int64) error
	Rollback(ctx context.Context, tid int64, toSavepoint string) error
	Savepoint(ctx context.Context, tid int64, name string) error
	Release(ctx context.Context, tid int64, name string) error
	IsExpired(tid int64) bool
	Active() []TxInfo
}

// BufferPoolStats reports buffer pool counters.
type BufferPoolStats struct {
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRatio  float64 `json:"hit_ratio"`
	Enabled   bool    `json:"enabled"`
}

// StoreStats is the engine statistics report.
type StoreStats struct {
	Backend    string           `json:"backend"`
	Path       string           `json:"path"`
	Tables     int              `json:"tables"`
	SizeBytes  int64            `json:"size_bytes"`
	BufferPool BufferPoolStats  `json:"buffer_pool"`
	ActiveTx   int              `json:"active_transactions"`
	StartedTx  int64            `json:"total_transactions"`
	Statistics map[string]int64 `json:"statistics,omitempty"`
	LastBackup *time.Time       `json:"last_backup,omitempty"`
	LastVacuum *time.Time       `json:"last_vacuum,omitempty"`
	StoreID    string           `json:"store_id,omitempty"`
	Recoveries int              `json:"recoveries"`
}

// Store is the storage interface the executor depends on. Both the durable
// page store and the in-memory store implement it.
type Store interface {
	// Execute runs a parsed statement and returns its envelope.
	Execute(ctx context.Context, stmt Statement) (*Result, error)

	// Tables lists user tables.
	Tables(ctx context.Context) ([]TableInfo, error)

	// TableSchema returns the schema of one table.
	TableSchema(ctx context.Context, table string) (*TableSchema, error)

	// Transactions exposes the transaction manager bound to this store.
	Transactions() TransactionManager

	// Stats reports engine statistics.
	Stats(ctx context.Context) (*StoreStats, error)

	// Close releases the connection, rolling back active transactions.
	Close() error
}
