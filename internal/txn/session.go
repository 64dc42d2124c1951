package txn

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/gsql/pkg/core"
)

// Session binds the transaction statements of one connection to the
// manager's current transaction.
type Session struct {
	m *Manager
}

// NewSession creates a session over m.
func NewSession(m *Manager) *Session {
	return &Session{m: m}
}

// Handles reports whether stmt is a transaction statement.
func Handles(stmt core.Statement) bool {
	switch stmt.(type) {
	case *core.Begin, *core.Commit, *core.Rollback, *core.Savepoint, *core.Release:
		return true
	}
	return false
}

// Execute runs a transaction statement and returns a message envelope.
func (s *Session) Execute(ctx context.Context, stmt core.Statement) (*core.Result, error) {
	kind := string(stmt.Kind())

	if b, ok := stmt.(*core.Begin); ok {
		tid, err := s.m.Begin(ctx, b.Isolation)
		if err != nil {
			return nil, err
		}
		iso := b.Isolation
		if iso == "" {
			iso = core.IsolationDeferred
		}
		return core.MessageResult(kind, fmt.Sprintf("Transaction %d started (%s)", tid, iso)), nil
	}

	tid, ok := s.m.Current()
	if !ok {
		return nil, &core.TransactionError{Message: "no active transaction"}
	}

	switch st := stmt.(type) {
	case *core.Commit:
		if err := s.m.Commit(ctx, tid); err != nil {
			return nil, err
		}
		return core.MessageResult(kind, fmt.Sprintf("Transaction %d committed", tid)), nil

	case *core.Rollback:
		if err := s.m.Rollback(ctx, tid, st.Savepoint); err != nil {
			return nil, err
		}
		if st.Savepoint != "" {
			return core.MessageResult(kind, fmt.Sprintf("Rolled back to savepoint %s", st.Savepoint)), nil
		}
		return core.MessageResult(kind, fmt.Sprintf("Transaction %d rolled back", tid)), nil

	case *core.Savepoint:
		if err := s.m.Savepoint(ctx, tid, st.Name); err != nil {
			return nil, err
		}
		return core.MessageResult(kind, fmt.Sprintf("Savepoint %s created", st.Name)), nil

	case *core.Release:
		if err := s.m.Release(ctx, tid, st.Name); err != nil {
			return nil, err
		}
		return core.MessageResult(kind, fmt.Sprintf("Savepoint %s released", st.Name)), nil
	}
	return nil, fmt.Errorf("not a transaction statement: %s", kind)
}

// Touch records keys against the current transaction, if any.
func (s *Session) Touch(keys ...string) {
	if tid, ok := s.m.Current(); ok {
		s.m.Touch(tid, keys...)
	}
}

// InTransaction reports whether a transaction is active.
func (s *Session) InTransaction() bool {
	_, ok := s.m.Current()
	return ok
}
