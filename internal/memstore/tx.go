package memstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/leapstack-labs/gsql/pkg/core"
)

// snapshot is the table state captured at BEGIN (name "") or at a
// savepoint.
type snapshot struct {
	name    string
	tables  map[string]*table
	indexes map[string]string
}

func (s *Store) capture(name string) snapshot {
	tables := make(map[string]*table, len(s.tables))
	for k, t := range s.tables {
		tables[k] = t.clone()
	}
	return snapshot{name: name, tables: tables, indexes: maps.Clone(s.indexes)}
}

func (s *Store) restore(snap snapshot) {
	s.tables = make(map[string]*table, len(snap.tables))
	for k, t := range snap.tables {
		s.tables[k] = t.clone()
	}
	s.indexes = maps.Clone(snap.indexes)
}

func (s *Store) savepointIndex(name string) int {
	for i := len(s.snapshots) - 1; i > 0; i-- {
		if strings.EqualFold(s.snapshots[i].name, name) {
			return i
		}
	}
	return -1
}

// txBackend implements core.TxBackend with deep snapshots. It runs with
// s.mu held by the caller.
type txBackend struct {
	s *Store
}

var errNoTransaction = errors.New("no transaction is active")

func (b txBackend) BeginTx(context.Context, core.Isolation) error {
	if len(b.s.snapshots) > 0 {
		return errors.New("cannot start a transaction within a transaction")
	}
	b.s.snapshots = []snapshot{b.s.capture("")}
	return nil
}

func (b txBackend) CommitTx(context.Context) error {
	if len(b.s.snapshots) == 0 {
		return errNoTransaction
	}
	b.s.snapshots = nil
	return nil
}

func (b txBackend) RollbackTx(context.Context) error {
	if len(b.s.snapshots) == 0 {
		return errNoTransaction
	}
	b.s.restore(b.s.snapshots[0])
	b.s.snapshots = nil
	return nil
}

func (b txBackend) Savepoint(_ context.Context, name string) error {
	if len(b.s.snapshots) == 0 {
		return errNoTransaction
	}
	b.s.snapshots = append(b.s.snapshots, b.s.capture(name))
	return nil
}

func (b txBackend) RollbackToSavepoint(_ context.Context, name string) error {
	idx := b.s.savepointIndex(name)
	if idx < 0 {
		return fmt.Errorf("no such savepoint: %s", name)
	}
	b.s.restore(b.s.snapshots[idx])
	b.s.snapshots = b.s.snapshots[:idx+1]
	return nil
}

func (b txBackend) ReleaseSavepoint(_ context.Context, name string) error {
	idx := b.s.savepointIndex(name)
	if idx < 0 {
		return fmt.Errorf("no such savepoint: %s", name)
	}
	b.s.snapshots = b.s.snapshots[:idx]
	return nil
}
