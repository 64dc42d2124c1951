package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/gsql/internal/cli/config"
	intconfig "github.com/leapstack-labs/gsql/internal/config"
	"github.com/leapstack-labs/gsql/internal/executor"
	"github.com/leapstack-labs/gsql/internal/functions"
	"github.com/leapstack-labs/gsql/internal/memstore"
	"github.com/leapstack-labs/gsql/internal/pagestore"
	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/spf13/cobra"

	// Register the delegate backend.
	_ "github.com/leapstack-labs/gsql/pkg/adapters/sqlite"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    core.Store
	Executor *executor.Executor
	Renderer *Renderer
}

// NewCommandContext opens the configured store and wraps it in an executor.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	store, err := OpenStore(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	ec := cfg.ToEngineConfig()
	registry := functions.NewRegistry(
		functions.WithLogger(logger),
		functions.WithMaxSteps(ec.MaxFunctionSteps),
	)
	x, err := executor.New(executor.Options{Store: store, Registry: registry, Logger: logger})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close store", slog.String("error", err.Error()))
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Store:    store,
		Executor: x,
		Renderer: NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.OutputFormat),
	}, cleanup, nil
}

// OpenStore opens the store selected by cfg.Backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (core.Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ec := cfg.ToEngineConfig()
	switch ec.Backend {
	case intconfig.BackendMemory:
		st, err := memstore.New(ec, memstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return st, nil
	case intconfig.BackendSQLite:
		eng, err := pagestore.Open(ctx, ec, pagestore.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", ec.Path, err)
		}
		return eng, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", ec.Backend)
	}
}

// getConfig returns the current configuration, or defaults when none was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Database:     config.DefaultDatabase,
		Backend:      config.DefaultBackend,
		OutputFormat: config.DefaultOutput,
	}
}
