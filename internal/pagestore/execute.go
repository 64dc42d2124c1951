package pagestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/gsql/internal/bufferpool"
	"github.com/leapstack-labs/gsql/internal/metrics"
	"github.com/leapstack-labs/gsql/internal/txn"
	"github.com/leapstack-labs/gsql/pkg/core"
)

// execute dispatches stmt. Must be called with e.mu held.
func (e *Engine) execute(ctx context.Context, stmt core.Statement) (*core.Result, error) {
	if txn.Handles(stmt) {
		return e.session.Execute(ctx, stmt)
	}

	kind := string(stmt.Kind())
	if name := targetTable(stmt); isSystemTable(name) {
		return nil, &core.ExecutionError{Op: kind, Message: "table " + name + " is reserved for the engine"}
	}

	switch st := stmt.(type) {
	case *core.CreateTable:
		if _, err := e.exec(ctx, compileCreateTable(st)); err != nil {
			return nil, err
		}
		if err := e.registerSchema(ctx, st); err != nil {
			return nil, err
		}
		e.touch(st.Name)
		return core.AffectedResult(kind, 0), nil

	case *core.CreateIndex:
		if _, err := e.exec(ctx, compileCreateIndex(st)); err != nil {
			return nil, err
		}
		e.touch(st.Table)
		return core.AffectedResult(kind, 0), nil

	case *core.Insert:
		q := compileInsert(st)
		res, err := e.exec(ctx, q.sql, q.args...)
		if err != nil {
			return nil, err
		}
		e.touch(st.Table)
		return core.InsertResult(res.LastInsertID, res.RowsAffected), nil

	case *core.Select:
		return e.selectRows(ctx, st)

	case *core.Update:
		q := compileUpdate(st)
		res, err := e.exec(ctx, q.sql, q.args...)
		if err != nil {
			return nil, err
		}
		e.touch(st.Table)
		return core.AffectedResult(kind, res.RowsAffected), nil

	case *core.Delete:
		q := compileDelete(st)
		res, err := e.exec(ctx, q.sql, q.args...)
		if err != nil {
			return nil, err
		}
		e.touch(st.Table)
		return core.AffectedResult(kind, res.RowsAffected), nil

	case *core.DropTable:
		if _, err := e.exec(ctx, compileDropTable(st)); err != nil {
			return nil, err
		}
		if err := e.unregisterSchema(ctx, st.Name); err != nil {
			return nil, err
		}
		e.touch(st.Name)
		return core.AffectedResult(kind, 0), nil

	case *core.ShowTables:
		tables, err := e.tables(ctx)
		if err != nil {
			return nil, err
		}
		return core.TablesResult(tables), nil
	}

	return nil, &core.ExecutionError{
		Op:      kind,
		Message: "statement is not supported by the store",
	}
}

// systemPrefix marks the engine's own tables.
const systemPrefix = "_gsql_"

func isSystemTable(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), systemPrefix)
}

// targetTable returns the table a statement reads or writes, or "".
func targetTable(stmt core.Statement) string {
	switch st := stmt.(type) {
	case *core.CreateTable:
		return st.Name
	case *core.CreateIndex:
		return st.Table
	case *core.Insert:
		return st.Table
	case *core.Select:
		return st.Table
	case *core.Update:
		return st.Table
	case *core.Delete:
		return st.Table
	case *core.DropTable:
		return st.Name
	}
	return ""
}

func (e *Engine) selectRows(ctx context.Context, st *core.Select) (*core.Result, error) {
	q, err := compileSelect(st)
	if err != nil {
		return nil, err
	}
	columns, raw, err := e.query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, err
	}
	schema, err := e.tableSchema(ctx, st.Table)
	if err != nil {
		return nil, err
	}

	aliases := make(map[string]string)
	for _, item := range st.Items {
		if item.Kind == core.ItemColumn && item.Alias != "" {
			aliases[item.Alias] = item.Column
		}
	}
	return core.RowsResult(string(core.KindSelect), columns, decodeRows(columns, raw, schema, aliases)), nil
}

// touch drops the cached schema of table and ties the key to the current
// transaction, so a rollback drops it again.
func (e *Engine) touch(table string) {
	key := bufferpool.SchemaKey(table)
	e.pool.Invalidate(key)
	e.session.Touch(key)
}

// record updates statement metrics and the persisted counters.
func (e *Engine) record(kind core.StatementKind, start time.Time, err error) {
	k := string(kind)
	metrics.StatementsTotal.WithLabelValues(k, metrics.Status(err)).Inc()
	metrics.StatementDuration.WithLabelValues(k).Observe(e.now().Sub(start).Seconds())
	e.counters[counterKey(k)]++
}

func counterKey(kind string) string {
	return "query_count_" + strings.ToLower(kind)
}

// loadCounters reads persisted statement counters.
func (e *Engine) loadCounters(ctx context.Context) error {
	_, rows, err := e.query(ctx, "SELECT metric, value FROM _gsql_statistics")
	if err != nil {
		return err
	}
	for _, r := range rows {
		e.counters[asString(r[0])] += asInt(r[1])
	}
	return nil
}

// flushCounters writes the counters back to _gsql_statistics.
func (e *Engine) flushCounters(ctx context.Context) error {
	for metric, value := range e.counters {
		if _, err := e.exec(ctx, `INSERT INTO _gsql_statistics (metric, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(metric) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, metric, value); err != nil {
			return fmt.Errorf("failed to save statistic %s: %w", metric, err)
		}
	}
	return nil
}

// logTransaction appends a finished transaction to _gsql_transactions_log.
// Called by the transaction manager with e.mu held.
func (e *Engine) logTransaction(ctx context.Context, info core.TxInfo) {
	if info.State == core.TxCorrupted {
		return
	}
	_, err := e.exec(ctx, `INSERT INTO _gsql_transactions_log
(session_id, tid, isolation, state, savepoints, started_at, ended_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.sessionID, info.ID, string(info.Isolation), string(info.State), len(info.Savepoints),
		info.StartedAt.UTC().Format(time.RFC3339Nano), e.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		e.logger.Warn("failed to log transaction", "tid", info.ID, "error", err.Error())
	}
}
