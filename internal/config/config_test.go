package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Defaults("data.db")

	assert.Equal(t, "data.db", c.Path)
	assert.Equal(t, BackendSQLite, c.Backend)
	assert.Equal(t, DefaultBufferPoolSize, c.BufferPoolSize)
	assert.Equal(t, 30*time.Second, c.TxTimeout)
	assert.Equal(t, 5, c.BackupRetention)
	assert.Equal(t, 3, c.ConnectRetries)
	assert.Equal(t, 3, c.LockRetries)
	assert.EqualValues(t, DefaultMaxFunctionSteps, c.MaxFunctionSteps)
	assert.False(t, c.IsMemoryPath())
	assert.True(t, Defaults(":memory:").IsMemoryPath())
}

func TestApplyDefaults_KeepsSetValues(t *testing.T) {
	c := EngineConfig{BufferPoolSize: 10, TxTimeout: time.Second, Backend: BackendMemory}
	c.ApplyDefaults()

	assert.Equal(t, 10, c.BufferPoolSize)
	assert.Equal(t, time.Second, c.TxTimeout)
	assert.Equal(t, BackendMemory, c.Backend)
	assert.Equal(t, DefaultBackupRetention, c.BackupRetention)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EngineConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*EngineConfig) {}},
		{name: "memory backend", mutate: func(c *EngineConfig) { c.Backend = "MEMORY" }},
		{name: "unknown backend", mutate: func(c *EngineConfig) { c.Backend = "oracle" }, wantErr: "unknown backend"},
		{name: "negative pool", mutate: func(c *EngineConfig) { c.BufferPoolSize = -1 }, wantErr: "buffer_pool_size"},
		{name: "negative retention", mutate: func(c *EngineConfig) { c.BackupRetention = -2 }, wantErr: "backup_retention"},
		{name: "negative timeout", mutate: func(c *EngineConfig) { c.TxTimeout = -time.Second }, wantErr: "tx_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults("x.db")
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAdapterConfig(t *testing.T) {
	c := Defaults("x.db")
	c.Pragmas = map[string]string{"temp_store": "memory"}
	c.Params = map[string]any{"max_open": 1}

	ac := c.AdapterConfig()
	assert.Equal(t, "sqlite", ac.Type)
	assert.Equal(t, "x.db", ac.Path)
	assert.Equal(t, 1, ac.Params["max_open"])
	assert.Equal(t, map[string]string{"temp_store": "memory"}, ac.Params["pragmas"])

	ac.Params["max_open"] = 2
	assert.Equal(t, 1, c.Params["max_open"], "params are copied")
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Empty(t, FindConfigFile(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, "gsql.yml"), []byte("backend: memory\n"), 0o600))
	assert.Equal(t, filepath.Join(root, "gsql.yml"), FindConfigFile(root))
	assert.Equal(t, root, FindProjectRoot(nested))

	require.NoError(t, os.WriteFile(filepath.Join(root, "gsql.yaml"), []byte("{}\n"), 0o600))
	assert.Equal(t, filepath.Join(root, "gsql.yaml"), FindConfigFile(root), "gsql.yaml wins over gsql.yml")
}
