package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/leapstack-labs/gsql/internal/config"
	"github.com/leapstack-labs/gsql/internal/testutil"
	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/leapstack-labs/gsql/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)
	s, err := New(config.Defaults(Path), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func run(t *testing.T, s *Store, sql string) *core.Result {
	t.Helper()
	res, err := runErr(t, s, sql)
	require.NoError(t, err, sql)
	return res
}

func runErr(t *testing.T, s *Store, sql string) (*core.Result, error) {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err, sql)
	return s.Execute(context.Background(), stmt)
}

func count(t *testing.T, s *Store, table string) int64 {
	t.Helper()
	res := run(t, s, "SELECT COUNT(*) FROM "+table)
	require.Len(t, res.Rows, 1)
	return res.Rows[0]["count"].(int64)
}

const usersDDL = "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT UNIQUE)"

func TestStore_Scenario(t *testing.T) {
	s := newStore(t)

	run(t, s, usersDDL)
	ins := run(t, s, "INSERT INTO users (name, email) VALUES ('Alice', 'alice@example.com')")
	assert.Equal(t, int64(1), ins.LastRowID)
	assert.Equal(t, int64(1), ins.RowsAffected)
	ins = run(t, s, "INSERT INTO users (name, email) VALUES ('Bob', 'bob@example.com')")
	assert.Equal(t, int64(2), ins.LastRowID)

	sel := run(t, s, "SELECT * FROM users")
	assert.Equal(t, []string{"id", "name", "email"}, sel.Columns)
	assert.Equal(t, 2, sel.Count)
	assert.Equal(t, core.Row{"id": int64(1), "name": "Alice", "email": "alice@example.com"}, sel.Rows[0])

	begin := run(t, s, "BEGIN")
	assert.Equal(t, "Transaction 1 started (DEFERRED)", begin.Message)
	run(t, s, "INSERT INTO users (name, email) VALUES ('Carol', 'carol@example.com')")
	assert.Equal(t, int64(3), count(t, s, "users"))
	run(t, s, "ROLLBACK")

	assert.Equal(t, int64(2), count(t, s, "users"))
}

func TestStore_Savepoints(t *testing.T) {
	s := newStore(t)
	run(t, s, usersDDL)

	run(t, s, "BEGIN")
	run(t, s, "INSERT INTO users (name) VALUES ('a')")
	run(t, s, "SAVEPOINT s1")
	run(t, s, "INSERT INTO users (name) VALUES ('b')")
	run(t, s, "CREATE TABLE scratch (x INTEGER)")
	run(t, s, "SAVEPOINT s2")
	run(t, s, "INSERT INTO users (name) VALUES ('c')")

	run(t, s, "ROLLBACK TO SAVEPOINT s1")
	assert.Equal(t, int64(1), count(t, s, "users"))
	_, err := runErr(t, s, "SELECT * FROM scratch")
	require.Error(t, err, "tables created after the savepoint are gone")

	run(t, s, "INSERT INTO users (name) VALUES ('d')")
	run(t, s, "ROLLBACK TO s1")
	assert.Equal(t, int64(1), count(t, s, "users"), "a savepoint can be rolled back to repeatedly")

	run(t, s, "RELEASE s1")
	run(t, s, "COMMIT")

	sel := run(t, s, "SELECT name FROM users")
	require.Equal(t, 1, sel.Count)
	assert.Equal(t, "a", sel.Rows[0]["name"])
}

func TestStore_TransactionTimeout(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newStore(t, WithClock(func() time.Time { return now }))
	run(t, s, usersDDL)

	run(t, s, "BEGIN")
	run(t, s, "INSERT INTO users (name) VALUES ('late')")
	now = now.Add(time.Hour)

	_, err := runErr(t, s, "COMMIT")
	var txErr *core.TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.True(t, txErr.Timeout)
	assert.Equal(t, int64(0), count(t, s, "users"))
}

func TestStore_Constraints(t *testing.T) {
	s := newStore(t)
	run(t, s, usersDDL)
	run(t, s, "CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER REFERENCES users(id), title TEXT)")
	run(t, s, "INSERT INTO users (name, email) VALUES ('a', 'a@x')")

	tests := []struct {
		name string
		sql  string
		kind core.ConstraintKind
	}{
		{"duplicate unique", "INSERT INTO users (name, email) VALUES ('b', 'a@x')", core.ViolationUnique},
		{"duplicate primary key", "INSERT INTO users (id, name) VALUES (1, 'c')", core.ViolationPrimaryKey},
		{"missing not null", "INSERT INTO users (email) VALUES ('d@x')", core.ViolationNotNull},
		{"duplicate within statement", "INSERT INTO users (name, email) VALUES ('e', 'e@x'), ('f', 'e@x')", core.ViolationUnique},
		{"update into duplicate", "UPDATE users SET email = 'a@x' WHERE id = 99", ""},
		{"dangling reference", "INSERT INTO posts (user_id, title) VALUES (42, 'x')", core.ViolationForeignKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runErr(t, s, tt.sql)
			if tt.kind == "" {
				require.NoError(t, err, "no row matched")
				return
			}
			var cv *core.ConstraintViolationError
			require.ErrorAs(t, err, &cv)
			assert.Equal(t, tt.kind, cv.Kind)
		})
	}
	assert.Equal(t, int64(1), count(t, s, "users"), "failed statements change nothing")

	run(t, s, "INSERT INTO posts (user_id, title) VALUES (1, 'hello'), (NULL, 'orphan')")
	run(t, s, "INSERT INTO users (name, email) VALUES ('b', 'b@x')")
	_, err := runErr(t, s, "UPDATE users SET email = 'a@x' WHERE name = 'b'")
	var cv *core.ConstraintViolationError
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "email", cv.Column)
}

func TestStore_UniqueIndex(t *testing.T) {
	s := newStore(t)
	run(t, s, "CREATE TABLE t (a INTEGER, b TEXT)")
	run(t, s, "INSERT INTO t VALUES (1, 'x'), (2, 'x')")

	_, err := runErr(t, s, "CREATE UNIQUE INDEX idx_b ON t (b)")
	var cv *core.ConstraintViolationError
	require.ErrorAs(t, err, &cv, "existing duplicates block a unique index")

	run(t, s, "CREATE UNIQUE INDEX idx_a ON t (a)")
	_, err = runErr(t, s, "INSERT INTO t VALUES (1, 'y')")
	require.ErrorAs(t, err, &cv)

	_, err = runErr(t, s, "CREATE INDEX idx_a ON t (b)")
	require.Error(t, err, "index names are unique")
	run(t, s, "CREATE INDEX IF NOT EXISTS idx_a ON t (b)")

	schema, err := s.TableSchema(context.Background(), "t")
	require.NoError(t, err)
	require.Len(t, schema.Indexes, 1)
	assert.Equal(t, core.Index{Name: "idx_a", Unique: true, Columns: []string{"a"}}, schema.Indexes[0])
}

func TestStore_Select(t *testing.T) {
	s := newStore(t)
	run(t, s, "CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT, qty INTEGER, price REAL, active BOOLEAN, added TIMESTAMP)")
	run(t, s, `INSERT INTO items (name, qty, price, active, added) VALUES
		('Apple', 3, 1, TRUE, '2024-01-02T03:04:05Z'),
		('pear', 0, 2.5, FALSE, NULL),
		('plum', 7, 0.75, TRUE, NULL),
		('kiwi', NULL, 3, TRUE, NULL)`)

	tests := []struct {
		name  string
		sql   string
		names []any
	}{
		{"order desc", "SELECT name FROM items ORDER BY qty DESC", []any{"plum", "Apple", "pear", "kiwi"}},
		{"null never compares", "SELECT name FROM items WHERE qty < 5", []any{"Apple", "pear"}},
		{"is null", "SELECT name FROM items WHERE qty IS NULL", []any{"kiwi"}},
		{"like ignores case", "SELECT name FROM items WHERE name LIKE 'a%'", []any{"Apple"}},
		{"like single char", "SELECT name FROM items WHERE name LIKE 'p_a%'", []any{"pear"}},
		{"not like", "SELECT name FROM items WHERE name NOT LIKE 'p%' ORDER BY name", []any{"Apple", "kiwi"}},
		{"boolean", "SELECT name FROM items WHERE active = FALSE", []any{"pear"}},
		{"limit offset", "SELECT name FROM items ORDER BY id LIMIT 2 OFFSET 1", []any{"pear", "plum"}},
		{"offset past end", "SELECT name FROM items LIMIT 5 OFFSET 10", nil},
		{"conjunction", "SELECT name FROM items WHERE active = TRUE AND price >= 1 ORDER BY price", []any{"Apple", "kiwi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, s, tt.sql)
			var got []any
			for _, row := range res.Rows {
				got = append(got, row["name"])
			}
			assert.Equal(t, tt.names, got)
		})
	}

	res := run(t, s, "SELECT name AS n, price, active, added FROM items WHERE id = 1")
	assert.Equal(t, []string{"n", "price", "active", "added"}, res.Columns)
	row := res.Rows[0]
	assert.Equal(t, "Apple", row["n"])
	assert.Equal(t, float64(1), row["price"], "REAL columns store floats")
	assert.Equal(t, true, row["active"])
	assert.IsType(t, time.Time{}, row["added"])

	res = run(t, s, "SELECT COUNT(*) AS total FROM items WHERE active = TRUE")
	assert.Equal(t, []core.Row{{"total": int64(3)}}, res.Rows)

	_, err := runErr(t, s, "SELECT nope FROM items")
	var execErr *core.ExecutionError
	require.ErrorAs(t, err, &execErr)
	_, err = runErr(t, s, "SELECT * FROM items WHERE nope = 1")
	require.ErrorAs(t, err, &execErr)
	_, err = runErr(t, s, "SELECT upper(name) FROM items")
	require.ErrorAs(t, err, &execErr)
}

func TestStore_UpdateDelete(t *testing.T) {
	s := newStore(t)
	run(t, s, usersDDL)
	run(t, s, "INSERT INTO users (name) VALUES ('a'), ('b'), ('c')")

	upd := run(t, s, "UPDATE users SET name = 'z' WHERE id >= 2")
	assert.Equal(t, "update", upd.Type)
	assert.Equal(t, int64(2), upd.RowsAffected)

	del := run(t, s, "DELETE FROM users WHERE name = 'z'")
	assert.Equal(t, int64(2), del.RowsAffected)

	ins := run(t, s, "INSERT INTO users (name) VALUES ('d')")
	assert.Equal(t, int64(4), ins.LastRowID, "row ids are not reused")

	del = run(t, s, "DELETE FROM users")
	assert.Equal(t, int64(2), del.RowsAffected)
}

func TestStore_DDL(t *testing.T) {
	s := newStore(t)
	run(t, s, usersDDL)

	_, err := runErr(t, s, usersDDL)
	require.Error(t, err)
	run(t, s, "CREATE TABLE IF NOT EXISTS users (id INTEGER)")

	run(t, s, "CREATE TABLE audit (at TIMESTAMP, note TEXT DEFAULT 'none')")
	run(t, s, "INSERT INTO audit (at) VALUES ('2024-01-01')")
	sel := run(t, s, "SELECT note FROM audit")
	assert.Equal(t, "none", sel.Rows[0]["note"], "defaults fill missing columns")

	tables, err := s.Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "audit", tables[0].Name)
	assert.Equal(t, int64(1), tables[0].RowCount)

	show := run(t, s, "SHOW TABLES")
	assert.Equal(t, 2, show.Count)

	run(t, s, "DROP TABLE users")
	_, err = runErr(t, s, "DROP TABLE users")
	require.Error(t, err)
	run(t, s, "DROP TABLE IF EXISTS users")

	_, err = s.TableSchema(context.Background(), "users")
	require.Error(t, err)
}

func TestStore_StatsAndClose(t *testing.T) {
	s := newStore(t)
	run(t, s, usersDDL)
	run(t, s, "INSERT INTO users (name) VALUES ('a')")
	run(t, s, "BEGIN")

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "memory", stats.Backend)
	assert.Equal(t, 1, stats.Tables)
	assert.Equal(t, 1, stats.ActiveTx)
	assert.Equal(t, int64(1), stats.Statistics["query_count_insert"])

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err = runErr(t, s, "SHOW TABLES")
	require.ErrorIs(t, err, ErrClosed)
}
