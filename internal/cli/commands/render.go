package commands

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/gsql/internal/cli/config"
	"github.com/leapstack-labs/gsql/pkg/core"
	"golang.org/x/term"
)

// Renderer writes results as tables or JSON envelopes.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	format string
	isTTY  bool
}

// NewRenderer creates a renderer. An empty format means table.
func NewRenderer(out, errOut io.Writer, format string) *Renderer {
	if format == "" {
		format = config.OutputTable
	}
	return &Renderer{out: out, errOut: errOut, format: format, isTTY: isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// IsJSON reports whether output is JSON.
func (r *Renderer) IsJSON() bool {
	return r.format == config.OutputJSON
}

// Writer returns the output writer.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// Println writes a line to the output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Result renders one result envelope. Failures go to the error writer in
// table mode and into the envelope in JSON mode.
func (r *Renderer) Result(res *core.Result) error {
	if r.IsJSON() {
		return r.JSON(res)
	}

	if !res.Success {
		_, _ = fmt.Fprintf(r.errOut, "Error: %s\n", res.Error)
		return nil
	}

	switch {
	case res.HasRows():
		r.table(res.Columns, res.Rows)
	case res.Message != "":
		r.Println(res.Message)
	case res.Type == string(core.KindInsert):
		r.Println(fmt.Sprintf("%s inserted (last row id %d)", plural(res.RowsAffected, "row"), res.LastRowID))
	case res.Type == string(core.KindUpdate) || res.Type == string(core.KindDelete):
		r.Println(fmt.Sprintf("%s affected", plural(res.RowsAffected, "row")))
	default:
		r.Println("OK")
	}
	if r.isTTY {
		_, _ = fmt.Fprintf(r.out, "Time: %s\n", time.Duration(res.ExecutionTime*float64(time.Second)).Round(time.Microsecond))
	}
	return nil
}

func (r *Renderer) table(cols []string, rows []core.Row) {
	if len(rows) == 0 {
		r.Println("(0 rows)")
		return
	}

	t := newTable(r.out)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, row := range rows {
		line := make(table.Row, len(cols))
		for i, col := range cols {
			line[i] = formatValue(row[col])
		}
		t.AppendRow(line)
	}

	t.Render()
	r.Println(fmt.Sprintf("(%s)", plural(int64(len(rows)), "row")))
}

// newTable returns a light-style table writer. Headers keep their case
// since column names are case-significant.
func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	return t
}

// formatValue renders a cell. Blobs print as hex literals.
func formatValue(v any) string {
	if b, ok := v.([]byte); ok {
		return `x'` + hex.EncodeToString(b) + `'`
	}
	return core.FormatValue(v)
}

func plural(n int64, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
