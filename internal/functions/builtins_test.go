package functions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins_Scalar(t *testing.T) {
	ts := time.Date(2024, 2, 29, 13, 5, 9, 0, time.UTC)

	tests := []struct {
		name string
		fn   string
		args []any
		want any
	}{
		{"upper", "upper", []any{"straße"}, "STRASSE"},
		{"lower", "LOWER", []any{"ÀBC"}, "àbc"},
		{"upper null", "upper", []any{nil}, nil},
		{"length runes", "length", []any{"héllo"}, int64(5)},
		{"length number", "length", []any{int64(1234)}, int64(4)},
		{"substring", "substring", []any{"database", int64(5)}, "base"},
		{"substring len", "substring", []any{"database", int64(1), int64(4)}, "data"},
		{"substring past end", "substring", []any{"abc", int64(10)}, ""},
		{"concat", "concat", []any{"a", int64(1), nil, true}, "a1true"},
		{"trim", "trim", []any{"  padded \t"}, "padded"},
		{"abs int", "abs", []any{int64(-7)}, int64(7)},
		{"abs float", "abs", []any{-2.5}, 2.5},
		{"round default", "round", []any{2.5}, int64(3)},
		{"round negative", "round", []any{-2.5}, int64(-3)},
		{"round digits", "round", []any{2.675, int64(2)}, 2.68},
		{"round tens", "round", []any{int64(1250), int64(-2)}, int64(1300)},
		{"sqrt", "sqrt", []any{int64(9)}, 3.0},
		{"power", "power", []any{int64(2), int64(10)}, 1024.0},
		{"mod int", "mod", []any{int64(10), int64(3)}, int64(1)},
		{"mod float", "mod", []any{7.5, int64(2)}, 1.5},
		{"hash default", "hash", []any{"abc"}, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"hash md5", "hash", []any{"abc", "md5"}, "900150983cd24fb0d6963f7d28e17f72"},
		{"hash sha1", "hash", []any{"abc", "SHA1"}, "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"date_format time", "date_format", []any{ts, "%Y-%m-%d %H:%M:%S"}, "2024-02-29 13:05:09"},
		{"date_format text", "date_format", []any{"2024-02-29", "%d/%m/%Y 100%%"}, "29/02/2024 100%"},
		{"is_email", "is_email", []any{"ann@example.com"}, true},
		{"is_email no", "is_email", []any{"ann@example"}, false},
		{"is_number text", "is_number", []any{"3.5"}, true},
		{"is_number no", "is_number", []any{"abc"}, false},
		{"is_date", "is_date", []any{"2024-01-02 03:04:05"}, true},
		{"is_date no", "is_date", []any{"yesterday"}, false},
	}

	reg := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Call(context.Background(), tt.fn, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuiltins_Now(t *testing.T) {
	orig := now
	now = func() time.Time { return time.Date(2030, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600)) }
	defer func() { now = orig }()

	got, err := NewRegistry().Call(context.Background(), "now", nil)
	require.NoError(t, err)
	assert.Equal(t, "2030-01-02T02:04:05Z", got)
}

func TestBuiltins_Errors(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []any
	}{
		{"sqrt negative", "sqrt", []any{int64(-1)}},
		{"mod zero", "mod", []any{int64(1), int64(0)}},
		{"hash algo", "hash", []any{"x", "crc32"}},
		{"abs text", "abs", []any{"abc"}},
		{"round fractional digits", "round", []any{1.5, 0.5}},
		{"date_format bad", "date_format", []any{"not a date", "%Y"}},
	}

	reg := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Call(context.Background(), tt.fn, tt.args)
			assert.Error(t, err)
		})
	}
}

func TestAggregates(t *testing.T) {
	values := []any{int64(2), int64(4), int64(4), int64(4), int64(5), int64(5), int64(7), int64(9), nil}

	tests := []struct {
		fn   string
		want any
	}{
		{"count", int64(8)},
		{"sum", int64(40)},
		{"min", int64(2)},
		{"max", int64(9)},
		{"mean", 5.0},
		{"avg", 5.0},
		{"variance", 4.0},
		{"stddev", 2.0},
	}

	reg := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			got, err := reg.Aggregate(tt.fn, values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregates_Edges(t *testing.T) {
	reg := NewRegistry()

	got, err := reg.Aggregate("mean", []any{nil, nil})
	require.NoError(t, err)
	assert.Nil(t, got, "mean of no values is NULL")

	got, err = reg.Aggregate("count", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	got, err = reg.Aggregate("sum", []any{int64(1), 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1.5, got)

	got, err = reg.Aggregate("max", []any{"apple", "pear", "fig"})
	require.NoError(t, err)
	assert.Equal(t, "pear", got)

	_, err = reg.Aggregate("mean", []any{int64(1), "abc"})
	assert.Error(t, err)

	got, err = reg.Call(context.Background(), "mean", []any{int64(1), int64(2)})
	require.NoError(t, err)
	assert.Equal(t, 1.5, got, "aggregates fold their arguments when called directly")
}
