package adapter

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"sqlite"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "fake_db", "error should mention the unknown type")
	assert.Contains(t, msg, "gsql.yaml", "error should mention config file")
}

func TestRegister(t *testing.T) {
	Register("test_adapter_internal", func(_ *slog.Logger) Adapter { return nil })

	assert.True(t, IsRegistered("test_adapter_internal"), "registered after Register()")

	factory, ok := Get("test_adapter_internal")
	assert.True(t, ok)
	assert.NotNil(t, factory)
	assert.Contains(t, ListAdapters(), "test_adapter_internal")
	assert.True(t, IsRegistered("Test_Adapter_Internal"), "names are case-insensitive")
}

func TestRegister_NilFactoryPanics(t *testing.T) {
	assert.Panics(t, func() { Register("broken", nil) })
	assert.False(t, IsRegistered("broken"))
}

func TestNewAdapter_Unknown(t *testing.T) {
	_, err := NewAdapter(Config{Type: "nope"}, nil)
	require.Error(t, err)

	var unknown *UnknownAdapterError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nope", unknown.Type)
}

func TestNewAdapter_PassesLogger(t *testing.T) {
	var got *slog.Logger
	Register("test_logger_adapter", func(l *slog.Logger) Adapter {
		got = l
		return nil
	})

	_, err := NewAdapter(Config{Type: "test_logger_adapter"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, got, "nil logger becomes a discard logger")
}
