package pagestore

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_RoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	m, err := loadMetadata(fsys, "/data/app.meta.yaml", now)
	require.NoError(t, err)
	_, err = uuid.Parse(m.StoreID)
	require.NoError(t, err, "fresh metadata gets a store id")
	assert.Equal(t, now, m.CreatedAt)

	m.recordRecovery("restore", now.Add(time.Hour))
	require.NoError(t, m.save(fsys, "/data/app.meta.yaml"))

	later := now.Add(24 * time.Hour)
	got, err := loadMetadata(fsys, "/data/app.meta.yaml", later)
	require.NoError(t, err)
	assert.Equal(t, m.StoreID, got.StoreID, "identity survives reopen")
	assert.Equal(t, now, got.CreatedAt)
	assert.Equal(t, later, got.OpenedAt)
	assert.Equal(t, 1, got.Recoveries)
	assert.Equal(t, "restore", got.RecoveryStage)
	require.NotNil(t, got.LastRecovery)

	exists, err := afero.Exists(fsys, "/data/app.meta.yaml.tmp")
	require.NoError(t, err)
	assert.False(t, exists, "temp file renamed away")
}

func TestMetadata_RepairsBadFields(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/m.yaml", []byte("store_id: not-a-uuid\nrecoveries: 2\n"), 0o644))

	got, err := loadMetadata(fsys, "/m.yaml", time.Now())
	require.NoError(t, err)
	_, err = uuid.Parse(got.StoreID)
	assert.NoError(t, err)
	assert.Equal(t, formatVersion, got.FormatVersion)
	assert.Equal(t, 2, got.Recoveries)
}

func TestMetadata_Malformed(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/m.yaml", []byte("store_id: [unclosed"), 0o644))

	_, err := loadMetadata(fsys, "/m.yaml", time.Now())
	assert.Error(t, err)
}

func TestLayout(t *testing.T) {
	l := newLayout("/var/lib/gsql/app.db")
	assert.False(t, l.memory)
	assert.Equal(t, "/var/lib/gsql/app.meta.yaml", l.metaFile())
	assert.Equal(t, "/var/lib/gsql/.app.recovery", l.flagFile())
	assert.Equal(t, "/var/lib/gsql/backups", l.backupDir())

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "/var/lib/gsql/app.corrupted_20240102_030405.db", l.corruptedPath(at))
	assert.Equal(t, "backup_20240102_030405.db", backupName(at))

	assert.True(t, newLayout("").memory)
	assert.True(t, newLayout(":memory:").memory)
}
