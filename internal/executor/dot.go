package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/gsql/pkg/core"
)

// Dot command envelope types.
const (
	kindDot    = "dot_command"
	kindSchema = "schema"
	kindStats  = "stats"
)

// SchemaColumns are the columns of a .schema listing.
var SchemaColumns = []string{"column", "type", "nullable", "default", "primary_key", "references"}

// StatsColumns are the columns of a .stats listing.
var StatsColumns = []string{"metric", "value"}

// dot serves the shell commands that start with a period.
func (x *Executor) dot(ctx context.Context, input string) *core.Result {
	fields := strings.Fields(input)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case ".tables":
		tables, err := x.store.Tables(ctx)
		if err != nil {
			return core.ErrorResult(kindDot, err)
		}
		return core.TablesResult(tables)
	case ".schema", ".describe":
		if len(args) != 1 {
			return core.ErrorResult(kindDot, fmt.Errorf("usage: %s <table>", cmd))
		}
		return x.describe(ctx, args[0])
	case ".functions":
		return x.showFunctions()
	case ".stats":
		return x.stats(ctx)
	case ".help":
		topic := ""
		if len(args) > 0 {
			topic = args[0]
		}
		return core.MessageResult(string(core.KindHelp), helpText(topic))
	default:
		return core.ErrorResult(kindDot, fmt.Errorf("unknown command %s; try .help", cmd))
	}
}

func (x *Executor) describe(ctx context.Context, table string) *core.Result {
	schema, err := x.store.TableSchema(ctx, table)
	if err != nil {
		return core.ErrorResult(kindSchema, err)
	}
	if schema == nil {
		return core.ErrorResult(kindSchema, errors.New("no such table: "+table))
	}

	pk := make(map[string]bool)
	for _, c := range schema.Columns {
		if c.Has(core.ConstraintPrimaryKey) {
			pk[strings.ToLower(c.Name)] = true
		}
	}

	rows := make([]core.Row, len(schema.Columns))
	for i, c := range schema.Columns {
		typ := c.DeclaredType
		if typ == "" {
			typ = c.Type
		}
		var ref any
		if c.References != nil {
			ref = fmt.Sprintf("%s(%s)", c.References.RefTable, c.References.RefColumn)
		}
		rows[i] = core.Row{
			"column":      c.Name,
			"type":        typ,
			"nullable":    !c.Has(core.ConstraintNotNull) && !pk[strings.ToLower(c.Name)],
			"default":     c.Default,
			"primary_key": pk[strings.ToLower(c.Name)],
			"references":  ref,
		}
	}
	return core.RowsResult(kindSchema, SchemaColumns, rows)
}

func (x *Executor) stats(ctx context.Context) *core.Result {
	st, err := x.store.Stats(ctx)
	if err != nil {
		return core.ErrorResult(kindStats, err)
	}

	rows := []core.Row{
		{"metric": "backend", "value": st.Backend},
		{"metric": "path", "value": st.Path},
		{"metric": "tables", "value": int64(st.Tables)},
		{"metric": "size_bytes", "value": st.SizeBytes},
		{"metric": "active_transactions", "value": int64(st.ActiveTx)},
		{"metric": "total_transactions", "value": st.StartedTx},
		{"metric": "buffer_pool_size", "value": int64(st.BufferPool.Size)},
		{"metric": "buffer_pool_hit_ratio", "value": st.BufferPool.HitRatio},
		{"metric": "recoveries", "value": int64(st.Recoveries)},
	}
	if st.LastBackup != nil {
		rows = append(rows, core.Row{"metric": "last_backup", "value": st.LastBackup.Format(time.RFC3339)})
	}
	if st.LastVacuum != nil {
		rows = append(rows, core.Row{"metric": "last_vacuum", "value": st.LastVacuum.Format(time.RFC3339)})
	}

	keys := make([]string, 0, len(st.Statistics))
	for k := range st.Statistics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, core.Row{"metric": k, "value": st.Statistics[k]})
	}
	return core.RowsResult(kindStats, StatsColumns, rows)
}
