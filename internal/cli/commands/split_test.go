package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "empty",
			script: "  \n ",
			want:   nil,
		},
		{
			name:   "single without semicolon",
			script: "SELECT * FROM t",
			want:   []string{"SELECT * FROM t"},
		},
		{
			name:   "several statements",
			script: "CREATE TABLE t (id INTEGER);\nINSERT INTO t VALUES (1);\n\nSELECT * FROM t;",
			want:   []string{"CREATE TABLE t (id INTEGER)", "INSERT INTO t VALUES (1)", "SELECT * FROM t"},
		},
		{
			name:   "semicolon inside quotes",
			script: `INSERT INTO t VALUES ('a;b'); INSERT INTO t VALUES ("c;d")`,
			want:   []string{`INSERT INTO t VALUES ('a;b')`, `INSERT INTO t VALUES ("c;d")`},
		},
		{
			name:   "line comments dropped",
			script: "-- setup\nSELECT 1; -- trailing\nSELECT 2",
			want:   []string{"SELECT 1", "SELECT 2"},
		},
		{
			name:   "dash inside quotes kept",
			script: "INSERT INTO t VALUES ('--x')",
			want:   []string{"INSERT INTO t VALUES ('--x')"},
		},
		{
			name:   "dot commands end at newline",
			script: ".tables\n.schema users\nSELECT * FROM users;",
			want:   []string{".tables", ".schema users", "SELECT * FROM users"},
		},
		{
			name:   "dot command after statement",
			script: "SELECT 1;\n.stats",
			want:   []string{"SELECT 1", ".stats"},
		},
		{
			name:   "dot command joined from arguments",
			script: ".tables;\nSELECT 1",
			want:   []string{".tables", "SELECT 1"},
		},
		{
			name:   "decimal is not a dot command",
			script: "INSERT INTO t VALUES (.5)",
			want:   []string{"INSERT INTO t VALUES (.5)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitStatements(tt.script))
		})
	}
}
