package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LiteralKind classifies a lexical literal before coercion.
type LiteralKind int

// Literal kinds produced by the lexer.
const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBool
	LiteralNull
	LiteralBare // unquoted word that is not a keyword
)

// Canonical column types.
const (
	TypeInteger   = "INTEGER"
	TypeReal      = "REAL"
	TypeText      = "TEXT"
	TypeBoolean   = "BOOLEAN"
	TypeTimestamp = "TIMESTAMP"
	TypeJSON      = "JSON"
	TypeBlob      = "BLOB"
)

// TimestampLayouts are the layouts accepted when reading timestamps from text.
var TimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CoerceLiteral converts literal text into a typed value.
//
//	quoted          -> string (structured decode when it starts with { or [)
//	number with '.' -> float64
//	number          -> int64
//	TRUE / FALSE    -> bool
//	NULL            -> nil
func CoerceLiteral(kind LiteralKind, text string) any {
	switch kind {
	case LiteralNull:
		return nil
	case LiteralBool:
		return strings.EqualFold(text, "true")
	case LiteralNumber:
		return coerceNumber(text)
	case LiteralString:
		return decodeStructured(text)
	default:
		switch strings.ToUpper(text) {
		case "NULL":
			return nil
		case "TRUE":
			return true
		case "FALSE":
			return false
		}
		if looksNumeric(text) {
			return coerceNumber(text)
		}
		return decodeStructured(text)
	}
}

func coerceNumber(text string) any {
	if strings.ContainsAny(text, ".eE") {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
		return text
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i
	}
	// out of int64 range
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return text
}

// decodeStructured attempts a JSON decode of text starting with { or [,
// falling back to the raw text.
func decodeStructured(text string) any {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return text
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return text
	}
	return v
}

func looksNumeric(text string) bool {
	if text == "" {
		return false
	}
	_, err := strconv.ParseFloat(text, 64)
	return err == nil
}

// NormalizeType maps a declared column type to its canonical name.
// Length suffixes like VARCHAR(255) are ignored.
func NormalizeType(decl string) string {
	base := strings.ToUpper(strings.TrimSpace(decl))
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	switch base {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT":
		return TypeInteger
	case "FLOAT", "REAL", "DOUBLE", "NUMERIC", "DECIMAL":
		return TypeReal
	case "TEXT", "VARCHAR", "CHAR", "STRING", "CLOB":
		return TypeText
	case "BOOL", "BOOLEAN":
		return TypeBoolean
	case "DATE", "DATETIME", "TIMESTAMP":
		return TypeTimestamp
	case "JSON":
		return TypeJSON
	case "BLOB":
		return TypeBlob
	default:
		return TypeText
	}
}

// FormatValue renders a typed value as text.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

// ToFloat converts numeric values (and numeric text) to float64.
func ToFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	case float64:
		return val, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Compare orders two scalar values. Numbers compare numerically, times
// chronologically, everything else by its text form. nil sorts first.
func Compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	_, aStr := a.(string)
	_, bStr := b.(string)
	if !aStr || !bStr {
		fa, okA := ToFloat(a)
		fb, okB := ToFloat(b)
		if okA && okB {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(FormatValue(a), FormatValue(b))
}

// Equal reports whether two scalar values are equal under Compare.
func Equal(a, b any) bool {
	return Compare(a, b) == 0
}

// ParseTimestamp parses text using TimestampLayouts.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range TimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
