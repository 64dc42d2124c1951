package pagestore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/gsql/pkg/core"
)

// exec runs a statement with lock retries. Must be called with e.mu held.
func (e *Engine) exec(ctx context.Context, q string, args ...any) (core.ExecResult, error) {
	var res core.ExecResult
	err := e.withRetry(ctx, func() error {
		var err error
		res, err = e.adp.Exec(ctx, q, args...)
		return err
	})
	return res, err
}

// query runs a statement with lock retries and materializes every row.
// Must be called with e.mu held.
func (e *Engine) query(ctx context.Context, q string, args ...any) ([]string, [][]any, error) {
	var (
		columns []string
		out     [][]any
	)
	err := e.withRetry(ctx, func() error {
		columns, out = nil, nil

		rows, err := e.adp.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		columns, err = rows.Columns()
		if err != nil {
			return err
		}
		for rows.Next() {
			vals := make([]any, len(columns))
			ptrs := make([]any, len(columns))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			out = append(out, vals)
		}
		return rows.Err()
	})
	return columns, out, err
}

// decodeRows converts raw driver values into typed rows using the column
// types of schema. Columns absent from the schema keep their raw value.
func decodeRows(columns []string, raw [][]any, schema *core.TableSchema, aliases map[string]string) []core.Row {
	types := make([]string, len(columns))
	if schema != nil {
		for i, name := range columns {
			source := name
			if orig, ok := aliases[name]; ok {
				source = orig
			}
			if col, ok := schema.Column(source); ok {
				types[i] = col.Type
			}
		}
	}

	out := make([]core.Row, len(raw))
	for r, vals := range raw {
		row := make(core.Row, len(columns))
		for i, name := range columns {
			row[name] = decodeValue(vals[i], types[i])
		}
		out[r] = row
	}
	return out
}

func decodeValue(v any, typ string) any {
	if b, ok := v.([]byte); ok && typ != core.TypeBlob {
		v = string(b)
	}
	if v == nil {
		return nil
	}
	switch typ {
	case core.TypeBoolean:
		switch val := v.(type) {
		case int64:
			return val != 0
		case string:
			if b, err := strconv.ParseBool(val); err == nil {
				return b
			}
		}
	case core.TypeTimestamp:
		if s, ok := v.(string); ok {
			if t, ok := core.ParseTimestamp(s); ok {
				return t
			}
		}
	case core.TypeJSON:
		if s, ok := v.(string); ok {
			return core.CoerceLiteral(core.LiteralString, s)
		}
	case core.TypeInteger:
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			return int64(f)
		}
	}
	return v
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return core.FormatValue(val)
	}
}

func asInt(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case float64:
		return int64(val)
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(strings.TrimSpace(string(val)), 10, 64)
		return n
	case bool:
		if val {
			return 1
		}
	}
	return 0
}

func asTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		return core.ParseTimestamp(val)
	case []byte:
		return core.ParseTimestamp(string(val))
	}
	return time.Time{}, false
}
