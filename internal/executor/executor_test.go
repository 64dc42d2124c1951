package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/gsql/internal/config"
	"github.com/leapstack-labs/gsql/internal/memstore"
	"github.com/leapstack-labs/gsql/internal/pagestore"
	"github.com/leapstack-labs/gsql/internal/testutil"
	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/gsql/pkg/adapters/sqlite"
)

// backends opens each store flavour.
var backends = []struct {
	name string
	open func(t *testing.T) core.Store
}{
	{
		name: "pagestore",
		open: func(t *testing.T) core.Store {
			e, err := pagestore.Open(testutil.Context(t), config.Defaults(testutil.DBPath(t, "exec")),
				pagestore.WithLogger(testutil.NewTestLogger(t)))
			require.NoError(t, err)
			return e
		},
	},
	{
		name: "memstore",
		open: func(t *testing.T) core.Store {
			s, err := memstore.New(config.Defaults(memstore.Path), memstore.WithLogger(testutil.NewTestLogger(t)))
			require.NoError(t, err)
			return s
		},
	},
}

func newExecutor(t *testing.T, store core.Store, tr Translator) *Executor {
	t.Helper()
	t.Cleanup(func() { _ = store.Close() })
	x, err := New(Options{Store: store, Translator: tr, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return x
}

func ok(t *testing.T, x *Executor, sql string) *core.Result {
	t.Helper()
	res := x.Execute(context.Background(), sql)
	require.True(t, res.Success, "%s: %s", sql, res.Error)
	return res
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestExecute_Scenario(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			x := newExecutor(t, b.open(t), nil)

			ok(t, x, "CREATE TABLE t (id INT, name TEXT)")
			res := ok(t, x, "INSERT INTO t VALUES (1, 'Ann')")
			assert.Equal(t, int64(1), res.RowsAffected)

			res = ok(t, x, "SELECT * FROM t WHERE id = 1")
			require.Len(t, res.Rows, 1)
			assert.Equal(t, core.Row{"id": int64(1), "name": "Ann"}, res.Rows[0])
			assert.Equal(t, "select", res.Type)
			assert.False(t, res.Timestamp.IsZero())

			ok(t, x, "BEGIN")
			ok(t, x, "INSERT INTO t VALUES (2, 'Bob')")
			ok(t, x, "ROLLBACK")

			res = ok(t, x, "SELECT COUNT(*) FROM t")
			assert.Equal(t, int64(1), res.Rows[0]["count"])
		})
	}
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		wantType string
		errMsg   string
	}{
		{name: "empty", sql: "   ", wantType: "error", errMsg: "empty statement"},
		{name: "syntax", sql: "SELECT FROM t", wantType: "error", errMsg: "syntax error"},
		{name: "missing table", sql: "SELECT * FROM nope", wantType: "select", errMsg: "nope"},
		{name: "duplicate key", sql: "INSERT INTO users VALUES (1, 'again')", wantType: "insert", errMsg: "duplicate entry"},
		{name: "unknown function", sql: "SELECT shout(name) FROM users", wantType: "select", errMsg: "unknown function"},
		{name: "unknown column", sql: "SELECT upper(nick) FROM users", wantType: "select", errMsg: "no such column: nick"},
		{name: "commit without transaction", sql: "COMMIT", wantType: "commit"},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			x := newExecutor(t, b.open(t), nil)
			ok(t, x, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
			ok(t, x, "INSERT INTO users VALUES (1, 'Ann')")

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					res := x.Execute(context.Background(), tt.sql)
					assert.False(t, res.Success)
					assert.Equal(t, tt.wantType, res.Type)
					assert.NotEmpty(t, res.Error)
					if tt.errMsg != "" {
						assert.Contains(t, res.Error, tt.errMsg)
					}
				})
			}
		})
	}
}

func TestExecute_FunctionProjection(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			x := newExecutor(t, b.open(t), nil)
			ok(t, x, "CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)")
			ok(t, x, "INSERT INTO people (id, name, age) VALUES (1, 'ann', 30), (2, 'bob', 40), (3, 'cy', NULL)")

			res := ok(t, x, "SELECT id, upper(name) AS shout FROM people WHERE id < 3 ORDER BY id")
			assert.Equal(t, []string{"id", "shout"}, res.Columns)
			assert.Equal(t, []core.Row{
				{"id": int64(1), "shout": "ANN"},
				{"id": int64(2), "shout": "BOB"},
			}, res.Rows)

			res = ok(t, x, "SELECT upper(name), lower(name) FROM people ORDER BY id DESC LIMIT 1")
			require.Len(t, res.Rows, 1)
			assert.Equal(t, "CY", res.Rows[0]["upper"])
			assert.Equal(t, "cy", res.Rows[0]["lower"])

			res = ok(t, x, "SELECT sum(age) AS total, count(age), COUNT(*) FROM people")
			require.Len(t, res.Rows, 1)
			assert.Equal(t, []string{"total", "count", "count_2"}, res.Columns)
			assert.Equal(t, int64(70), res.Rows[0]["total"])
			assert.Equal(t, int64(2), res.Rows[0]["count"])
			assert.Equal(t, int64(3), res.Rows[0]["count_2"])

			res = ok(t, x, "SELECT max(age) FROM people WHERE id > 10")
			require.Len(t, res.Rows, 1)
			assert.Nil(t, res.Rows[0]["max"], "aggregate over no rows is NULL")

			res = ok(t, x, "SELECT sum(age) FROM people LIMIT 1 OFFSET 1")
			assert.Empty(t, res.Rows)
		})
	}
}

func TestExecute_UserFunctions(t *testing.T) {
	x := newExecutor(t, backends[1].open(t), nil)
	ok(t, x, "CREATE TABLE t (id INTEGER, name TEXT)")
	ok(t, x, "INSERT INTO t VALUES (1, 'Ann')")

	res := ok(t, x, `CREATE FUNCTION greet(n) RETURNS TEXT AS '"hi " + n'`)
	assert.Equal(t, "create_function", res.Type)
	assert.Contains(t, res.Message, "greet(n)")

	res = ok(t, x, "SELECT greet(name) AS g FROM t")
	assert.Equal(t, "hi Ann", res.Rows[0]["g"])

	res = x.Execute(context.Background(), `CREATE FUNCTION greet(n) AS 'n'`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "already exists")

	res = ok(t, x, "SHOW FUNCTIONS")
	assert.Equal(t, FunctionColumns, res.Columns)
	var found bool
	for _, row := range res.Rows {
		if row["name"] == "greet" {
			found = true
			assert.Equal(t, "scalar", row["kind"])
		}
	}
	assert.True(t, found, "user function is listed")
}

func TestExecute_Repairs(t *testing.T) {
	x := newExecutor(t, backends[1].open(t), nil)
	ok(t, x, "CREATE TABLE t (id INTEGER, name TEXT)")
	ok(t, x, "INSRT INTO t VALUES (1, Ann)")

	res := ok(t, x, "SELECT name FROM t")
	assert.Equal(t, "Ann", res.Rows[0]["name"])
}

func TestExecute_Help(t *testing.T) {
	x := newExecutor(t, backends[1].open(t), nil)

	res := ok(t, x, "HELP")
	assert.Equal(t, "help", res.Type)
	assert.Contains(t, res.Message, "GSQL statements")

	res = ok(t, x, "HELP transactions")
	assert.Contains(t, res.Message, "SAVEPOINT")

	res = ok(t, x, "HELP nothing")
	assert.Contains(t, res.Message, "No help for 'nothing'")
}

type fakeTranslator struct {
	sql string
	err error
}

func (f fakeTranslator) Translate(context.Context, string) (string, error) {
	return f.sql, f.err
}

func TestExecute_NaturalLanguage(t *testing.T) {
	tests := []struct {
		name       string
		translator Translator
		input      string
		wantType   string
	}{
		{
			name:       "translated",
			translator: fakeTranslator{sql: "SELECT * FROM t"},
			input:      "list every row please",
			wantType:   "select",
		},
		{
			name:       "translator fails",
			translator: fakeTranslator{err: errors.New("no idea")},
			input:      "list every row please",
			wantType:   "help",
		},
		{
			name:     "no translator",
			input:    "list every row please",
			wantType: "help",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := newExecutor(t, backends[1].open(t), tt.translator)
			ok(t, x, "CREATE TABLE t (id INTEGER)")

			res := ok(t, x, tt.input)
			assert.Equal(t, tt.wantType, res.Type)
		})
	}

	t.Run("single word goes to the parser", func(t *testing.T) {
		x := newExecutor(t, backends[1].open(t), fakeTranslator{sql: "SELECT * FROM t"})
		res := x.Execute(context.Background(), "tables")
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "syntax error")
	})
}

func TestExecute_DotCommands(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			x := newExecutor(t, b.open(t), nil)
			ok(t, x, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, team INTEGER DEFAULT 1)")
			ok(t, x, "INSERT INTO users (id, name) VALUES (1, 'ann')")

			res := ok(t, x, ".tables")
			require.Len(t, res.Rows, 1)
			assert.Equal(t, "users", res.Rows[0]["table_name"])
			assert.Equal(t, int64(1), res.Rows[0]["row_count"])

			res = ok(t, x, ".schema users")
			assert.Equal(t, SchemaColumns, res.Columns)
			require.Len(t, res.Rows, 3)
			assert.Equal(t, "id", res.Rows[0]["column"])
			assert.Equal(t, true, res.Rows[0]["primary_key"])
			assert.Equal(t, false, res.Rows[1]["nullable"])
			assert.Equal(t, true, res.Rows[2]["nullable"])

			res = ok(t, x, ".DESCRIBE users")
			assert.Len(t, res.Rows, 3)

			res = ok(t, x, ".functions")
			assert.Len(t, res.Rows, len(x.Registry().List()))

			res = ok(t, x, ".stats")
			assert.Equal(t, StatsColumns, res.Columns)
			assert.Equal(t, "backend", res.Rows[0]["metric"])

			res = ok(t, x, ".help")
			assert.Contains(t, res.Message, ".tables")

			for _, bad := range []string{".schema", ".schema nope", ".bogus"} {
				res = x.Execute(context.Background(), bad)
				assert.False(t, res.Success, bad)
				assert.NotEmpty(t, res.Error, bad)
			}
		})
	}
}

// panicStore blows up on every statement.
type panicStore struct {
	core.Store
}

func (panicStore) Execute(context.Context, core.Statement) (*core.Result, error) {
	panic("boom")
}

func (panicStore) Close() error { return nil }

func TestExecute_RecoversPanics(t *testing.T) {
	x := newExecutor(t, panicStore{}, nil)

	res := x.Execute(context.Background(), "SELECT * FROM t")
	assert.False(t, res.Success)
	assert.Equal(t, "error", res.Type)
	assert.Contains(t, res.Error, "internal error: boom")
	assert.False(t, res.Timestamp.IsZero())
}
