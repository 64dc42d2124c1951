package txn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/gsql/internal/bufferpool"
	"github.com/leapstack-labs/gsql/pkg/adapter"
	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records primitive calls and fails the ones named in fail.
type fakeBackend struct {
	calls []string
	fail  map[string]error
}

func (f *fakeBackend) do(call string) error {
	f.calls = append(f.calls, call)
	return f.fail[call]
}

func (f *fakeBackend) BeginTx(_ context.Context, iso core.Isolation) error {
	return f.do("begin " + string(iso))
}
func (f *fakeBackend) CommitTx(context.Context) error   { return f.do("commit") }
func (f *fakeBackend) RollbackTx(context.Context) error { return f.do("rollback") }
func (f *fakeBackend) Savepoint(_ context.Context, name string) error {
	return f.do("savepoint " + name)
}
func (f *fakeBackend) RollbackToSavepoint(_ context.Context, name string) error {
	return f.do("rollback to " + name)
}
func (f *fakeBackend) ReleaseSavepoint(_ context.Context, name string) error {
	return f.do("release " + name)
}

func newFake() *fakeBackend {
	return &fakeBackend{fail: map[string]error{}}
}

func txErr(t *testing.T, err error) *core.TransactionError {
	t.Helper()
	var te *core.TransactionError
	require.True(t, errors.As(err, &te), "want TransactionError, got %v", err)
	return te
}

func TestManager_BeginCommit(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	m := NewManager(fb)

	tid, err := m.Begin(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tid)

	active := m.Active()
	require.Len(t, active, 1)
	assert.Equal(t, core.IsolationDeferred, active[0].Isolation)
	assert.Equal(t, core.TxActive, active[0].State)

	require.NoError(t, m.Commit(ctx, tid))
	assert.Empty(t, m.Active())
	assert.Equal(t, []string{"begin DEFERRED", "commit"}, fb.calls)

	err = m.Commit(ctx, tid)
	assert.Contains(t, txErr(t, err).Message, "not found")
}

func TestManager_IDsMonotonic(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	m := NewManager(fb)

	var prev int64
	for range 5 {
		tid, err := m.Begin(ctx, core.IsolationImmediate)
		require.NoError(t, err)
		assert.Greater(t, tid, prev)
		prev = tid
		require.NoError(t, m.Rollback(ctx, tid, ""))
	}

	fb.fail["begin EXCLUSIVE"] = errors.New("database is locked")
	_, err := m.Begin(ctx, core.IsolationExclusive)
	txErr(t, err)

	tid, err := m.Begin(ctx, core.IsolationDeferred)
	require.NoError(t, err)
	assert.Equal(t, prev+1, tid, "failed begin does not consume an id")
	assert.Equal(t, int64(6), m.Started())
}

func TestManager_OneActive(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFake())

	_, err := m.Begin(ctx, "")
	require.NoError(t, err)

	_, err = m.Begin(ctx, "")
	assert.Contains(t, txErr(t, err).Message, "already active")
	assert.Len(t, m.Active(), 1)
}

func TestManager_Savepoints(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	m := NewManager(fb)

	tid, err := m.Begin(ctx, "")
	require.NoError(t, err)

	require.NoError(t, m.Savepoint(ctx, tid, "a"))
	require.NoError(t, m.Savepoint(ctx, tid, "b"))
	require.NoError(t, m.Savepoint(ctx, tid, "c"))

	err = m.Savepoint(ctx, tid, "A")
	assert.Contains(t, txErr(t, err).Message, "already exists")

	require.NoError(t, m.Rollback(ctx, tid, "b"))
	assert.Equal(t, []string{"a", "b"}, m.Active()[0].Savepoints, "target kept, later ones dropped")

	err = m.Rollback(ctx, tid, "c")
	assert.Contains(t, txErr(t, err).Message, "not found")
	assert.Equal(t, core.TxActive, m.Active()[0].State, "failed lookup leaves state alone")

	require.NoError(t, m.Release(ctx, tid, "a"))
	assert.Empty(t, m.Active()[0].Savepoints)

	err = m.Savepoint(ctx, tid, "b")
	txErr(t, err)

	err = m.Release(ctx, tid, "zzz")
	txErr(t, err)

	require.NoError(t, m.Commit(ctx, tid))
	assert.Equal(t, []string{
		"begin DEFERRED",
		"savepoint a", "savepoint b", "savepoint c",
		"rollback to b",
		"release a",
		"commit",
	}, fb.calls)
}

func TestManager_UnknownTID(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFake())

	tests := []struct {
		name string
		call func() error
	}{
		{"commit", func() error { return m.Commit(ctx, 42) }},
		{"rollback", func() error { return m.Rollback(ctx, 42, "") }},
		{"rollback to", func() error { return m.Rollback(ctx, 42, "sp") }},
		{"savepoint", func() error { return m.Savepoint(ctx, 42, "sp") }},
		{"release", func() error { return m.Release(ctx, 42, "sp") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := txErr(t, tt.call())
			assert.Equal(t, int64(42), te.TID)
		})
	}
}

func TestManager_Timeout(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(fb, WithTimeout(time.Minute), WithClock(func() time.Time { return now }))

	tid, err := m.Begin(ctx, "")
	require.NoError(t, err)
	assert.False(t, m.IsExpired(tid))

	now = now.Add(2 * time.Minute)
	assert.True(t, m.IsExpired(tid))

	err = m.Commit(ctx, tid)
	te := txErr(t, err)
	assert.True(t, te.Timeout)
	assert.Empty(t, m.Active())
	assert.Equal(t, []string{"begin DEFERRED", "rollback"}, fb.calls, "timed out commit rolls back")
	assert.False(t, m.IsExpired(tid), "finished transactions are not expired")
}

func TestManager_Corrupted(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	fb.fail["rollback"] = errors.New("disk I/O error")

	var finished []core.TxInfo
	m := NewManager(fb, WithFinishHook(func(_ context.Context, info core.TxInfo) {
		finished = append(finished, info)
	}))

	tid, err := m.Begin(ctx, "")
	require.NoError(t, err)

	te := txErr(t, m.Rollback(ctx, tid, ""))
	assert.True(t, te.Corrupted)
	assert.Empty(t, m.Active(), "corrupted is terminal")

	require.Len(t, finished, 1)
	assert.Equal(t, core.TxCorrupted, finished[0].State)

	err = m.Rollback(ctx, tid, "")
	assert.False(t, txErr(t, err).Corrupted, "terminal transactions cannot transition again")
}

func TestManager_CommitFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	fb.fail["commit"] = errors.New("constraint failed")

	var states []core.TxState
	m := NewManager(fb, WithFinishHook(func(_ context.Context, info core.TxInfo) {
		states = append(states, info.State)
	}))

	tid, err := m.Begin(ctx, "")
	require.NoError(t, err)

	te := txErr(t, m.Commit(ctx, tid))
	assert.False(t, te.Corrupted)
	assert.Equal(t, []core.TxState{core.TxRolledBack}, states)
}

func TestManager_InvalidatesTouched(t *testing.T) {
	ctx := context.Background()
	pool, err := bufferpool.New(8)
	require.NoError(t, err)

	m := NewManager(newFake(), WithInvalidator(pool))
	pool.Put("schema:users", []byte("cached"), false)
	pool.Put("schema:other", []byte("cached"), false)

	tid, err := m.Begin(ctx, "")
	require.NoError(t, err)
	m.Touch(tid, "schema:users")
	require.NoError(t, m.Commit(ctx, tid))

	_, ok := pool.Get("schema:users")
	assert.False(t, ok, "touched key invalidated")
	_, ok = pool.Get("schema:other")
	assert.True(t, ok, "untouched key kept")
}

func TestManager_RollbackAll(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	m := NewManager(fb)

	_, err := m.Begin(ctx, "")
	require.NoError(t, err)
	require.NoError(t, m.RollbackAll(ctx))
	assert.Empty(t, m.Active())
	assert.NoError(t, m.RollbackAll(ctx), "nothing to roll back")
}

func TestManager_SQLSequence(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("BEGIN").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SAVEPOINT "before_load"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT "before_load"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	m := NewManager(&adapter.BaseSQLAdapter{DB: db})

	tid, err := m.Begin(ctx, core.IsolationDeferred)
	require.NoError(t, err)
	require.NoError(t, m.Savepoint(ctx, tid, "before_load"))
	require.NoError(t, m.Rollback(ctx, tid, "before_load"))
	require.NoError(t, m.Commit(ctx, tid))

	assert.NoError(t, mock.ExpectationsWereMet())
}
