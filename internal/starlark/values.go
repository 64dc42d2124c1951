package starlark

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"go.starlark.net/starlark"
)

// FromRow converts a row value into a Starlark argument. Timestamps become
// RFC 3339 strings; structured JSON values become lists and dicts with
// sorted keys.
func FromRow(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case float64:
		return starlark.Float(val), nil
	case bool:
		return starlark.Bool(val), nil
	case time.Time:
		return starlark.String(val.UTC().Format(time.RFC3339)), nil
	case []byte:
		return starlark.Bytes(val), nil
	case []any:
		elems := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := FromRow(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = sv
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for _, k := range slices.Sorted(maps.Keys(val)) {
			sv, err := FromRow(val[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			_ = dict.SetKey(starlark.String(k), sv)
		}
		return dict, nil
	}
	return nil, fmt.Errorf("unsupported row value %T", v)
}

// ToRow converts a function result back into a row value.
func ToRow(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(val), nil
	case starlark.Bytes:
		return []byte(val), nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Float:
		return float64(val), nil
	case starlark.Int:
		if i, ok := val.Int64(); ok {
			return i, nil
		}
		f, _ := starlark.AsFloat(val)
		return f, nil
	case starlark.Indexable:
		out := make([]any, val.Len())
		for i := range val.Len() {
			gv, err := ToRow(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, kv := range val.Items() {
			k, ok := starlark.AsString(kv[0])
			if !ok {
				return nil, fmt.Errorf("dict key %s is not a string", kv[0].Type())
			}
			gv, err := ToRow(kv[1])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = gv
		}
		return out, nil
	}
	return nil, fmt.Errorf("a function cannot return %s", v.Type())
}
