package txn

import (
	"context"
	"testing"

	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandles(t *testing.T) {
	assert.True(t, Handles(&core.Begin{}))
	assert.True(t, Handles(&core.Release{Name: "x"}))
	assert.False(t, Handles(&core.ShowTables{}))
}

func TestSession_Lifecycle(t *testing.T) {
	ctx := context.Background()
	fb := newFake()
	s := NewSession(NewManager(fb))

	tests := []struct {
		stmt    core.Statement
		message string
		wantErr bool
	}{
		{stmt: &core.Commit{}, wantErr: true},
		{stmt: &core.Begin{Isolation: core.IsolationImmediate}, message: "Transaction 1 started (IMMEDIATE)"},
		{stmt: &core.Savepoint{Name: "sp1"}, message: "Savepoint sp1 created"},
		{stmt: &core.Savepoint{Name: "sp2"}, message: "Savepoint sp2 created"},
		{stmt: &core.Rollback{Savepoint: "sp1"}, message: "Rolled back to savepoint sp1"},
		{stmt: &core.Release{Name: "sp1"}, message: "Savepoint sp1 released"},
		{stmt: &core.Commit{}, message: "Transaction 1 committed"},
		{stmt: &core.Rollback{}, wantErr: true},
		{stmt: &core.Begin{}, message: "Transaction 2 started (DEFERRED)"},
		{stmt: &core.Rollback{}, message: "Transaction 2 rolled back"},
	}

	for _, tt := range tests {
		res, err := s.Execute(ctx, tt.stmt)
		if tt.wantErr {
			require.Error(t, err, "%T", tt.stmt)
			continue
		}
		require.NoError(t, err, "%T", tt.stmt)
		assert.True(t, res.Success)
		assert.Equal(t, tt.message, res.Message)
		assert.Equal(t, string(tt.stmt.Kind()), res.Type)
	}
	assert.False(t, s.InTransaction())
}

func TestSession_Touch(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFake())
	s := NewSession(m)

	s.Touch("ignored")

	_, err := s.Execute(ctx, &core.Begin{})
	require.NoError(t, err)
	assert.True(t, s.InTransaction())
	s.Touch("schema:t")
}
