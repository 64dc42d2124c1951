package commands

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/spf13/cobra"
)

// maintainer is implemented by stores that live in a file.
type maintainer interface {
	Backup(ctx context.Context, name string) (string, error)
	Vacuum(ctx context.Context) error
	IntegrityCheck(ctx context.Context) error
}

var errNoMaintenance = errors.New("maintenance needs the sqlite backend")

// NewBackupCommand creates the backup command.
func NewBackupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [name]",
		Short: "Write a backup of the database",
		Long: `Write a consistent copy of the database into the backups directory next
to it and print its path. Old backups beyond the retention count are pruned.`,
		Example: `  gsql backup
  gsql backup before-migration`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return withMaintainer(cmd, func(c *CommandContext, m maintainer) error {
				path, err := m.Backup(cmd.Context(), name)
				if err != nil {
					return err
				}
				if c.Renderer.IsJSON() {
					return c.Renderer.JSON(core.MessageResult("backup", path))
				}
				c.Renderer.Println(path)
				return nil
			})
		},
	}
}

// NewVacuumCommand creates the vacuum command.
func NewVacuumCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "vacuum",
		Short: "Rebuild the database file",
		Long:  `Checkpoint the write-ahead log and rebuild the database file, reclaiming free pages.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMaintainer(cmd, func(c *CommandContext, m maintainer) error {
				if check {
					if err := m.IntegrityCheck(cmd.Context()); err != nil {
						return err
					}
				}
				if err := m.Vacuum(cmd.Context()); err != nil {
					return err
				}
				if c.Renderer.IsJSON() {
					return c.Renderer.JSON(core.MessageResult("vacuum", "vacuum complete"))
				}
				c.Renderer.Println("Vacuum complete")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Run an integrity check first")
	return cmd
}

func withMaintainer(cmd *cobra.Command, fn func(*CommandContext, maintainer) error) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	m, ok := cmdCtx.Store.(maintainer)
	if !ok {
		return errNoMaintenance
	}
	return fn(cmdCtx, m)
}

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print engine statistics",
		Long:  `Print storage, buffer pool, transaction and statement statistics.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := cmdCtx.Store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if cmdCtx.Renderer.IsJSON() {
				return cmdCtx.Renderer.JSON(st)
			}
			renderStats(cmdCtx.Renderer, st)
			return nil
		},
	}
}

func renderStats(r *Renderer, st *core.StoreStats) {
	t := newTable(r.Writer())
	t.AppendHeader(table.Row{"Metric", "Value"})

	t.AppendRows([]table.Row{
		{"Backend", st.Backend},
		{"Path", st.Path},
		{"Store ID", st.StoreID},
		{"Tables", st.Tables},
		{"Size", humanize.Bytes(uint64(max(st.SizeBytes, 0)))},
		{"Active transactions", st.ActiveTx},
		{"Total transactions", humanize.Comma(st.StartedTx)},
		{"Buffer pool", fmt.Sprintf("%d / %d", st.BufferPool.Size, st.BufferPool.Capacity)},
		{"Buffer pool hit ratio", fmt.Sprintf("%.1f%%", st.BufferPool.HitRatio*100)},
		{"Recoveries", st.Recoveries},
		{"Last backup", when(st.LastBackup)},
		{"Last vacuum", when(st.LastVacuum)},
	})
	t.AppendSeparator()
	for _, k := range slices.Sorted(maps.Keys(st.Statistics)) {
		t.AppendRow(table.Row{k, humanize.Comma(st.Statistics[k])})
	}
	t.Render()
}

func when(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return humanize.Time(*t)
}
