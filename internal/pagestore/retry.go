package pagestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/gsql/internal/metrics"
	"github.com/leapstack-labs/gsql/pkg/adapter"
	"github.com/leapstack-labs/gsql/pkg/core"
)

// connectWithRetry opens a new adapter on path, backing off exponentially
// between attempts. Damaged files are not retried.
func (e *Engine) connectWithRetry(ctx context.Context, path string) (adapter.Adapter, error) {
	cfg := e.cfg.AdapterConfig()
	cfg.Path = path

	var lastErr error
	for attempt := range e.cfg.ConnectRetries {
		if attempt > 0 {
			if err := sleep(ctx, backoff(e.cfg.RetryBackoff, attempt-1)); err != nil {
				return nil, &core.StorageError{Op: "connect", Err: err}
			}
		}

		adp, err := adapter.NewAdapter(cfg, e.logger)
		if err != nil {
			return nil, &core.StorageError{Op: "connect", Err: err}
		}
		if err = adp.Connect(ctx, cfg); err == nil {
			return adp, nil
		}
		lastErr = err
		if errors.Is(err, core.ErrCorrupt) {
			break
		}
		e.logger.Warn("connect attempt failed",
			slog.Int("attempt", attempt+1),
			slog.Int("max", e.cfg.ConnectRetries),
			slog.String("error", err.Error()))
	}

	var storageErr *core.StorageError
	if errors.As(lastErr, &storageErr) {
		return nil, lastErr
	}
	return nil, &core.StorageError{Op: "connect", Err: lastErr}
}

// withRetry runs fn, retrying while the backend reports lock contention.
// The returned error is already classified.
func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = e.adp.Classify(fn())
		if err == nil {
			return nil
		}
		var execErr *core.ExecutionError
		if !errors.As(err, &execErr) || !execErr.Locked || attempt >= e.cfg.LockRetries {
			return err
		}
		metrics.LockRetriesTotal.Inc()
		e.logger.Debug("store is locked, retrying", slog.Int("attempt", attempt+1))
		if serr := sleep(ctx, backoff(e.cfg.RetryBackoff, attempt)); serr != nil {
			return fmt.Errorf("%w: %w", err, serr)
		}
	}
}

// retryBackend runs the adapter's transaction primitives through the
// engine's lock retry loop. Callers hold the engine mutex: statements via
// Execute, direct calls via the manager returned by Transactions.
type retryBackend struct {
	e *Engine
}

func (b retryBackend) BeginTx(ctx context.Context, iso core.Isolation) error {
	return b.e.withRetry(ctx, func() error { return b.e.adp.BeginTx(ctx, iso) })
}

func (b retryBackend) CommitTx(ctx context.Context) error {
	return b.e.withRetry(ctx, func() error { return b.e.adp.CommitTx(ctx) })
}

func (b retryBackend) RollbackTx(ctx context.Context) error {
	return b.e.withRetry(ctx, func() error { return b.e.adp.RollbackTx(ctx) })
}

func (b retryBackend) Savepoint(ctx context.Context, name string) error {
	return b.e.withRetry(ctx, func() error { return b.e.adp.Savepoint(ctx, name) })
}

func (b retryBackend) RollbackToSavepoint(ctx context.Context, name string) error {
	return b.e.withRetry(ctx, func() error { return b.e.adp.RollbackToSavepoint(ctx, name) })
}

func (b retryBackend) ReleaseSavepoint(ctx context.Context, name string) error {
	return b.e.withRetry(ctx, func() error { return b.e.adp.ReleaseSavepoint(ctx, name) })
}

func backoff(base time.Duration, attempt int) time.Duration {
	return base << attempt
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
