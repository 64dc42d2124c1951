package pagestore

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// formatVersion is bumped when the on-disk layout changes incompatibly.
const formatVersion = 1

// Metadata is the control file kept next to the store. It survives a
// store reset, so identity and recovery history are not lost with the
// data.
type Metadata struct {
	StoreID       string     `yaml:"store_id"`
	FormatVersion int        `yaml:"format_version"`
	CreatedAt     time.Time  `yaml:"created_at"`
	OpenedAt      time.Time  `yaml:"opened_at"`
	LastBackup    *time.Time `yaml:"last_backup,omitempty"`
	LastVacuum    *time.Time `yaml:"last_vacuum,omitempty"`
	LastRecovery  *time.Time `yaml:"last_recovery,omitempty"`
	RecoveryStage string     `yaml:"recovery_stage,omitempty"`
	Recoveries    int        `yaml:"recoveries"`
}

// newMetadata creates metadata for a fresh store.
func newMetadata(now time.Time) *Metadata {
	return &Metadata{
		StoreID:       uuid.NewString(),
		FormatVersion: formatVersion,
		CreatedAt:     now.UTC(),
		OpenedAt:      now.UTC(),
	}
}

// loadMetadata reads path, creating fresh metadata when it is missing.
func loadMetadata(fsys afero.Fs, path string, now time.Time) (*Metadata, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return newMetadata(now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var m Metadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	if _, err := uuid.Parse(m.StoreID); err != nil {
		m.StoreID = uuid.NewString()
	}
	if m.FormatVersion == 0 {
		m.FormatVersion = formatVersion
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now.UTC()
	}
	m.OpenedAt = now.UTC()
	return &m, nil
}

// save writes the metadata atomically.
func (m *Metadata) save(fsys afero.Fs, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fsys, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace metadata: %w", err)
	}
	return nil
}

// recordRecovery notes a completed recovery cascade.
func (m *Metadata) recordRecovery(stage string, at time.Time) {
	at = at.UTC()
	m.Recoveries++
	m.LastRecovery = &at
	m.RecoveryStage = stage
}
