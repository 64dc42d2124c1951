package pagestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/gsql/internal/metrics"
	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/spf13/afero"
)

// Backup writes a full copy of the store into the backups directory and
// returns its path. An empty name gets a timestamped one. Only the newest
// timestamped backups are kept.
func (e *Engine) Backup(ctx context.Context, name string) (path string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() { metrics.BackupsTotal.WithLabelValues(metrics.Status(err)).Inc() }()

	if e.closed {
		return "", &core.StorageError{Op: "backup", Err: ErrClosed}
	}
	if e.layout.memory || e.fallback {
		return "", &core.StorageError{Op: "backup", Err: errors.New("in-memory store cannot be backed up")}
	}

	now := e.now()
	if name == "" {
		name = backupName(now)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", &core.StorageError{Op: "backup", Err: fmt.Errorf("invalid backup name %q", name)}
	}
	if !strings.HasSuffix(name, backupExt) {
		name += backupExt
	}

	if err := e.fs.MkdirAll(e.layout.backupDir(), 0o755); err != nil {
		return "", &core.StorageError{Op: "backup", Err: err}
	}
	path = filepath.Join(e.layout.backupDir(), name)
	if exists, _ := afero.Exists(e.fs, path); exists {
		return "", &core.StorageError{Op: "backup", Err: fmt.Errorf("backup %s already exists", name)}
	}

	if err := e.withRetry(ctx, func() error { return e.adp.BackupTo(ctx, path) }); err != nil {
		return "", &core.StorageError{Op: "backup", Err: err}
	}

	at := now.UTC()
	e.meta.LastBackup = &at
	if err := e.saveMetadata(); err != nil {
		e.logger.Warn("failed to save metadata", slog.String("error", err.Error()))
	}
	e.pruneBackups()

	e.logger.Info("backup written", slog.String("path", path))
	return path, nil
}

// pruneBackups removes timestamped backups beyond the retention count.
func (e *Engine) pruneBackups() {
	backups, err := e.listBackups()
	if err != nil {
		e.logger.Warn("failed to list backups", slog.String("error", err.Error()))
		return
	}
	if len(backups) <= e.cfg.BackupRetention {
		return
	}
	for _, old := range backups[e.cfg.BackupRetention:] {
		if err := e.fs.Remove(old); err != nil {
			e.logger.Warn("failed to remove old backup", slog.String("path", old), slog.String("error", err.Error()))
			continue
		}
		e.logger.Debug("removed old backup", slog.String("path", old))
	}
}

// Vacuum checkpoints and rebuilds the store file, then empties the buffer
// pool.
func (e *Engine) Vacuum(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return &core.StorageError{Op: "vacuum", Err: ErrClosed}
	}
	if !e.layout.memory && !e.fallback {
		if err := e.withRetry(ctx, func() error { return e.adp.Checkpoint(ctx) }); err != nil {
			return &core.StorageError{Op: "vacuum", Err: err}
		}
	}
	if err := e.withRetry(ctx, func() error { return e.adp.Vacuum(ctx) }); err != nil {
		return &core.StorageError{Op: "vacuum", Err: err}
	}
	e.pool.InvalidateAll()

	at := e.now().UTC()
	e.meta.LastVacuum = &at
	if err := e.saveMetadata(); err != nil {
		e.logger.Warn("failed to save metadata", slog.String("error", err.Error()))
	}
	e.logger.Info("store vacuumed")
	return nil
}

// IntegrityCheck verifies the store file.
func (e *Engine) IntegrityCheck(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return &core.StorageError{Op: "integrity check", Err: ErrClosed}
	}
	return e.adp.IntegrityCheck(ctx)
}

// Stats reports engine statistics.
func (e *Engine) Stats(ctx context.Context) (*core.StoreStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, &core.StorageError{Op: "stats", Err: ErrClosed}
	}

	tables, err := e.tables(ctx)
	if err != nil {
		return nil, err
	}
	size, err := e.sizeBytes(ctx)
	if err != nil {
		return nil, err
	}

	return &core.StoreStats{
		Backend:    e.adp.Name(),
		Path:       e.layout.store,
		Tables:     len(tables),
		SizeBytes:  size,
		BufferPool: e.pool.Stats(),
		ActiveTx:   len(e.txm.Active()),
		StartedTx:  e.txm.Started(),
		Statistics: maps.Clone(e.counters),
		LastBackup: e.meta.LastBackup,
		LastVacuum: e.meta.LastVacuum,
		StoreID:    e.meta.StoreID,
		Recoveries: e.meta.Recoveries,
	}, nil
}

func (e *Engine) sizeBytes(ctx context.Context) (int64, error) {
	_, rows, err := e.query(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return asInt(rows[0][0]), nil
}
