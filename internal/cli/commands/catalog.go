package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List user tables",
		Long:  `List the user tables of the database with their row and column counts.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, ".tables")
		},
	}
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "schema <table>",
		Short:   "Show a table schema",
		Long:    `Show the columns of a table with their types, nullability, defaults and keys.`,
		Example: `  gsql schema users`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, ".schema "+args[0])
		},
	}
}

// runShell runs one shell command through the executor.
func runShell(cmd *cobra.Command, line string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res := cmdCtx.Executor.Execute(cmd.Context(), line)
	if err := cmdCtx.Renderer.Result(res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%s", res.Error)
	}
	return nil
}
