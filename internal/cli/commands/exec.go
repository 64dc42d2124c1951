package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	var (
		file      string
		keepGoing bool
	)

	cmd := &cobra.Command{
		Use:   "exec [SQL ...]",
		Short: "Execute GSQL statements",
		Long: `Execute one or more GSQL statements against the database.

Statements come from the arguments, from --file, or from stdin when neither
is given. They are split on semicolons; lines starting with a period are
shell commands such as .tables or .schema users.

Execution stops at the first failing statement unless --continue is set.`,
		Example: `  # Run statements given as arguments
  gsql exec "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)" "INSERT INTO t (name) VALUES ('Ann')"

  # Run a script
  gsql exec --file schema.sql

  # Pipe statements and get JSON envelopes
  echo "SELECT * FROM t" | gsql exec -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readScript(cmd, args, file)
			if err != nil {
				return err
			}
			return runExec(cmd, script, keepGoing)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read statements from a file ('-' for stdin)")
	cmd.Flags().BoolVar(&keepGoing, "continue", false, "Keep executing after a failed statement")

	return cmd
}

func readScript(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file == "-":
		return readAll(cmd.InOrStdin())
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(b), nil
	case len(args) > 0:
		return strings.Join(args, ";\n"), nil
	default:
		return readAll(cmd.InOrStdin())
	}
}

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(b), nil
}

func runExec(cmd *cobra.Command, script string, keepGoing bool) error {
	statements := SplitStatements(script)
	if len(statements) == 0 {
		return fmt.Errorf("no statements to execute")
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	failed := 0
	for i, stmt := range statements {
		res := cmdCtx.Executor.Execute(cmd.Context(), stmt)
		if err := cmdCtx.Renderer.Result(res); err != nil {
			return fmt.Errorf("failed to render result: %w", err)
		}
		if res.Success {
			continue
		}
		failed++
		cmdCtx.Logger.Debug("statement failed",
			slog.Int("index", i+1),
			slog.String("type", res.Type),
			slog.String("error", res.Error))
		if !keepGoing {
			return fmt.Errorf("statement %d failed: %s", i+1, res.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d statements failed", failed, len(statements))
	}
	return nil
}
