package pagestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/gsql/internal/metrics"
	"github.com/leapstack-labs/gsql/pkg/adapter"
	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/spf13/afero"
)

// Recovery stages, tried in this order.
const (
	StageRestore = "restore"
	StageRepair  = "repair"
	StageReset   = "reset"
)

type recoveryStep struct {
	stage string
	run   func(context.Context) (adapter.Adapter, error)
}

// recover runs the recovery cascade on a damaged store. The reset stage
// always yields a usable connection, falling back to an in-memory store
// when the file cannot be recreated.
func (e *Engine) recover(ctx context.Context) (adapter.Adapter, error) {
	if err := e.setFlag(); err != nil {
		e.logger.Warn("failed to set recovery flag", slog.String("error", err.Error()))
	}

	steps := []recoveryStep{
		{StageRestore, e.restoreFromBackup},
		{StageRepair, e.repair},
		{StageReset, e.reset},
	}
	for _, step := range steps {
		e.logger.Info("attempting recovery", slog.String("stage", step.stage))
		adp, err := step.run(ctx)
		metrics.RecoveryAttemptsTotal.WithLabelValues(step.stage, metrics.Status(err)).Inc()
		if err != nil {
			e.logger.Error("recovery step failed",
				slog.String("stage", step.stage),
				slog.String("error", err.Error()))
			continue
		}
		e.meta.recordRecovery(step.stage, e.now())
		e.logger.Warn("store recovered", slog.String("stage", step.stage))
		return adp, nil
	}
	return nil, &core.StorageError{Op: "recover", Err: errors.New("every recovery step failed")}
}

// restoreFromBackup replaces the store with the newest backup that passes
// an integrity check.
func (e *Engine) restoreFromBackup(ctx context.Context) (adapter.Adapter, error) {
	backups, err := e.listBackups()
	if err != nil {
		return nil, err
	}
	if len(backups) == 0 {
		return nil, errors.New("no backups available")
	}

	for _, b := range backups {
		if err := e.verifyBackup(ctx, b); err != nil {
			e.logger.Warn("skipping unusable backup",
				slog.String("backup", b),
				slog.String("error", err.Error()))
			continue
		}
		if err := e.replaceStore(b); err != nil {
			e.logger.Warn("failed to restore backup",
				slog.String("backup", b),
				slog.String("error", err.Error()))
			continue
		}
		adp, err := e.connectChecked(ctx)
		if err != nil {
			e.logger.Warn("restored backup does not open",
				slog.String("backup", b),
				slog.String("error", err.Error()))
			continue
		}
		e.logger.Info("restored from backup", slog.String("backup", b))
		return adp, nil
	}
	return nil, errors.New("no valid backup found")
}

// verifyBackup opens a backup without converting its journal and runs an
// integrity check.
func (e *Engine) verifyBackup(ctx context.Context, path string) error {
	cfg := e.cfg.AdapterConfig()
	cfg.Path = path
	cfg.Params["journal_mode"] = "delete"

	adp, err := adapter.NewAdapter(cfg, e.logger)
	if err != nil {
		return err
	}
	if err := adp.Connect(ctx, cfg); err != nil {
		return err
	}
	defer func() { _ = adp.Close() }()
	return adp.IntegrityCheck(ctx)
}

// replaceStore copies src over the store file through a temp file.
func (e *Engine) replaceStore(src string) error {
	data, err := afero.ReadFile(e.fs, src)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	e.removeSidecars()

	tmp := e.layout.store + ".restore"
	if err := afero.WriteFile(e.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write restored store: %w", err)
	}
	if err := e.fs.Rename(tmp, e.layout.store); err != nil {
		_ = e.fs.Remove(tmp)
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}

// repair tries the backend's own maintenance on the damaged file.
func (e *Engine) repair(ctx context.Context) (adapter.Adapter, error) {
	adp, err := e.connectWithRetry(ctx, e.layout.store)
	if err != nil {
		return nil, err
	}
	if err := adp.Checkpoint(ctx); err != nil {
		e.logger.Debug("checkpoint during repair failed", slog.String("error", err.Error()))
	}
	if err := adp.IntegrityCheck(ctx); err != nil {
		_ = adp.Close()
		return nil, err
	}
	if err := adp.Vacuum(ctx); err != nil {
		_ = adp.Close()
		return nil, err
	}
	return adp, nil
}

// reset moves the damaged file aside and starts an empty store.
func (e *Engine) reset(ctx context.Context) (adapter.Adapter, error) {
	aside := e.layout.corruptedPath(e.now())
	if exists, _ := afero.Exists(e.fs, e.layout.store); exists {
		if err := e.fs.Rename(e.layout.store, aside); err != nil {
			e.logger.Error("failed to move damaged store aside", slog.String("error", err.Error()))
			_ = e.fs.Remove(e.layout.store)
		} else {
			e.logger.Warn("damaged store moved aside", slog.String("path", aside))
		}
	}
	e.removeSidecars()

	adp, err := e.connectChecked(ctx)
	if err == nil {
		return adp, nil
	}
	e.logger.Error("failed to create empty store, using memory",
		slog.String("error", err.Error()))

	adp, err = e.connectWithRetry(ctx, ":memory:")
	if err != nil {
		return nil, err
	}
	e.fallback = true
	return adp, nil
}

// connectChecked connects to the store and verifies its integrity.
func (e *Engine) connectChecked(ctx context.Context) (adapter.Adapter, error) {
	adp, err := e.connectWithRetry(ctx, e.layout.store)
	if err != nil {
		return nil, err
	}
	if err := adp.IntegrityCheck(ctx); err != nil {
		_ = adp.Close()
		return nil, err
	}
	return adp, nil
}

// listBackups returns backup files, newest first.
func (e *Engine) listBackups() ([]string, error) {
	entries, err := afero.ReadDir(e.fs, e.layout.backupDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupExt) {
			continue
		}
		out = append(out, filepath.Join(e.layout.backupDir(), name))
	}
	// Timestamps in the names sort lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

func (e *Engine) removeSidecars() {
	for _, p := range e.layout.sidecars() {
		if err := e.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			e.logger.Debug("failed to remove sidecar", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
}

func (e *Engine) setFlag() error {
	return afero.WriteFile(e.fs, e.layout.flagFile(), []byte(e.now().UTC().Format(stampLayout)+"\n"), 0o644)
}

func (e *Engine) clearFlag() error {
	err := e.fs.Remove(e.layout.flagFile())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
