package memstore

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/gsql/pkg/core"
)

// match reports whether row satisfies every condition. A comparison with
// NULL is never true.
func match(row core.Row, conds []core.Condition) bool {
	for _, c := range conds {
		if !test(row[c.Column], c) {
			return false
		}
	}
	return true
}

func test(v any, c core.Condition) bool {
	switch c.Op {
	case core.OpIsNull:
		return v == nil
	case core.OpIsNotNull:
		return v != nil
	}
	if v == nil || c.Value == nil {
		return false
	}

	switch c.Op {
	case core.OpLike:
		return like(core.FormatValue(v), core.FormatValue(c.Value))
	case core.OpNotLike:
		return !like(core.FormatValue(v), core.FormatValue(c.Value))
	}

	cmp := core.Compare(v, c.Value)
	switch c.Op {
	case core.OpEq:
		return cmp == 0
	case core.OpNe:
		return cmp != 0
	case core.OpLt:
		return cmp < 0
	case core.OpLe:
		return cmp <= 0
	case core.OpGt:
		return cmp > 0
	case core.OpGe:
		return cmp >= 0
	}
	return false
}

// like matches s against a SQL LIKE pattern: % is any run, _ is one
// character. Matching ignores case.
func like(s, pattern string) bool {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// coerce converts v to the storage form of a column type. Values that do
// not convert cleanly are kept as given.
func coerce(v any, typ string) any {
	if v == nil {
		return nil
	}
	switch typ {
	case core.TypeInteger:
		switch val := v.(type) {
		case float64:
			if val == float64(int64(val)) {
				return int64(val)
			}
		case bool:
			if val {
				return int64(1)
			}
			return int64(0)
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
				return n
			}
		}
	case core.TypeReal:
		switch val := v.(type) {
		case int64:
			return float64(val)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				return f
			}
		}
	case core.TypeText:
		switch v.(type) {
		case int64, float64, bool, map[string]any, []any:
			return core.FormatValue(v)
		}
	case core.TypeBoolean:
		switch val := v.(type) {
		case int64:
			return val != 0
		case float64:
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
	case core.TypeBlob:
		if s, ok := v.(string); ok {
			return []byte(s)
		}
	}
	return v
}

// output copies a stored value for a result row.
func output(v any) any {
	if b, ok := v.([]byte); ok {
		return append([]byte(nil), b...)
	}
	return v
}
