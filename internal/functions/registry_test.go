package functions

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/gsql/internal/testutil"
	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CallErrors(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name    string
		fn      string
		args    []any
		message string
	}{
		{"unknown", "nope", nil, "unknown function"},
		{"too few", "upper", nil, "expects 1 arguments, got 0"},
		{"too many", "substring", []any{"a", int64(1), int64(1), int64(1)}, "expects 2 to 3 arguments, got 4"},
		{"callee fails", "sqrt", []any{int64(-4)}, "call failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Call(context.Background(), tt.fn, tt.args)
			require.Error(t, err)

			var fnErr *core.FunctionError
			require.True(t, errors.As(err, &fnErr), "expected *core.FunctionError, got %T", err)
			assert.Equal(t, tt.message, fnErr.Message)
		})
	}
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	double := NewScalar("Double", 1, 1, "twice", func(_ context.Context, args []any) (any, error) {
		return args[0].(int64) * 2, nil
	})
	require.NoError(t, reg.Register(double))

	got, err := reg.Call(context.Background(), "DOUBLE", []any{int64(4)})
	require.NoError(t, err)
	assert.Equal(t, int64(8), got, "lookups are case-insensitive")

	err = reg.Register(NewScalar("double", 1, 1, "", double.scalar))
	assert.Error(t, err, "duplicate name")

	err = reg.Register(NewScalar("upper", 1, 1, "", double.scalar))
	assert.Error(t, err, "built-in names are taken")

	err = reg.Register(NewScalar("9lives", 1, 1, "", double.scalar))
	assert.Error(t, err, "invalid name")
}

func TestRegistry_Define(t *testing.T) {
	reg := NewRegistry(WithLogger(testutil.NewTestLogger(t)))

	fn, err := reg.Define("tax", []string{"price", "rate"}, "REAL", "price * rate / 100")
	require.NoError(t, err)
	assert.Equal(t, "tax", fn.Name)
	assert.Equal(t, "REAL", fn.Returns)
	assert.False(t, fn.Builtin)
	assert.Equal(t, "tax(price, rate)", fn.Signature())

	got, err := reg.Call(context.Background(), "tax", []any{int64(200), int64(15)})
	require.NoError(t, err)
	assert.Equal(t, 30.0, got)

	_, err = reg.Call(context.Background(), "tax", []any{int64(1)})
	assert.Error(t, err, "positional arity is enforced")
}

func TestRegistry_DefineRejects(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Define("f", []string{"x"}, "", "x + 1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		fn     string
		params []string
		body   string
	}{
		{"duplicate", "F", []string{"x"}, "x"},
		{"builtin", "upper", []string{"x"}, "x"},
		{"bad name", "my-func", nil, "1"},
		{"bad param", "g", []string{"a b"}, "1"},
		{"repeated param", "g", []string{"a", "a"}, "a"},
		{"statement body", "g", []string{"x"}, "import os"},
		{"multi line", "g", []string{"x"}, "x\nx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Define(tt.fn, tt.params, "", tt.body)
			require.Error(t, err)

			var fnErr *core.FunctionError
			assert.True(t, errors.As(err, &fnErr), "expected *core.FunctionError, got %T", err)
		})
	}

	_, ok := reg.Lookup("g")
	assert.False(t, ok, "failed definitions must not register")
}

func TestRegistry_List(t *testing.T) {
	reg := NewRegistry()
	fns := reg.List()
	require.NotEmpty(t, fns)

	for i := 1; i < len(fns); i++ {
		assert.Less(t, fns[i-1].Name, fns[i].Name, "sorted by name")
	}
	assert.True(t, reg.IsAggregate("stddev"))
	assert.False(t, reg.IsAggregate("upper"))
	assert.Equal(t, "substring(2-3 args)", mustLookup(t, reg, "substring").Signature())
}

func mustLookup(t *testing.T, reg *Registry, name string) *Function {
	t.Helper()
	fn, ok := reg.Lookup(name)
	require.True(t, ok, "function %s not found", name)
	return fn
}
