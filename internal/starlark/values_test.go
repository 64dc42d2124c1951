package starlark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestFromRow(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    string
		wantErr bool
	}{
		{"null", nil, "None", false},
		{"text", "hello", `"hello"`, false},
		{"integer", int64(123456789), "123456789", false},
		{"int", 7, "7", false},
		{"real", 3.5, "3.5", false},
		{"boolean", true, "True", false},
		{"timestamp", time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600)), `"2024-03-01T11:00:00Z"`, false},
		{"blob", []byte("ab"), `b"ab"`, false},
		{"json list", []any{"x", int64(1), nil}, `["x", 1, None]`, false},
		{"json object sorted", map[string]any{"b": int64(2), "a": int64(1)}, `{"a": 1, "b": 2}`, false},
		{"unsupported", struct{}{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromRow(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestToRow(t *testing.T) {
	dict := starlark.NewDict(1)
	require.NoError(t, dict.SetKey(starlark.String("k"), starlark.MakeInt(1)))

	badDict := starlark.NewDict(1)
	require.NoError(t, badDict.SetKey(starlark.MakeInt(1), starlark.None))

	tests := []struct {
		name    string
		input   starlark.Value
		want    any
		wantErr bool
	}{
		{name: "none", input: starlark.None, want: nil},
		{name: "string", input: starlark.String("hi"), want: "hi"},
		{name: "bytes", input: starlark.Bytes("ab"), want: []byte("ab")},
		{name: "int", input: starlark.MakeInt(42), want: int64(42)},
		{name: "float", input: starlark.Float(2.5), want: 2.5},
		{name: "bool", input: starlark.False, want: false},
		{name: "tuple", input: starlark.Tuple{starlark.MakeInt(1), starlark.String("a")}, want: []any{int64(1), "a"}},
		{name: "list", input: starlark.NewList([]starlark.Value{starlark.True}), want: []any{true}},
		{name: "dict", input: dict, want: map[string]any{"k": int64(1)}},
		{name: "non-string key", input: badDict, wantErr: true},
		{name: "function", input: starlark.NewBuiltin("f", nil), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToRow(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
