package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/gsql/internal/functions"
	"github.com/leapstack-labs/gsql/pkg/core"
)

// selectWithFunctions fetches the filtered rows from the store, then
// evaluates the projection here. Scalars run once per row. Any aggregate
// (or COUNT(*)) folds the result into a single row, in which plain columns
// and scalars take their value from the first row.
func (x *Executor) selectWithFunctions(ctx context.Context, s *core.Select) (*core.Result, error) {
	aggregate := false
	for _, item := range s.Items {
		switch item.Kind {
		case core.ItemCount:
			aggregate = true
		case core.ItemFunc:
			fn, ok := x.registry.Lookup(item.Func)
			if !ok {
				return nil, &core.FunctionError{Name: item.Func, Message: "unknown function"}
			}
			if fn.Kind == functions.Aggregate {
				aggregate = true
				if len(item.Args) != 1 {
					return nil, &core.FunctionError{Name: fn.Name, Message: "aggregate takes exactly one argument"}
				}
			}
		case core.ItemStar:
			return nil, &core.ExecutionError{Op: string(core.KindSelect), Message: "* cannot be combined with functions"}
		}
	}

	fetch := *s
	fetch.Items = []core.SelectItem{{Kind: core.ItemStar}}
	if aggregate {
		fetch.Limit, fetch.Offset = nil, 0
	}
	base, err := x.store.Execute(ctx, &fetch)
	if err != nil {
		return nil, err
	}

	items := make([]core.SelectItem, len(s.Items))
	for i, item := range s.Items {
		item.Args = append([]core.Arg(nil), item.Args...)
		items[i] = item
	}
	p := &projector{x: x, available: base.Columns, items: items}
	if err := p.resolve(); err != nil {
		return nil, err
	}

	var rows []core.Row
	if aggregate {
		row, err := p.fold(ctx, base.Rows)
		if err != nil {
			return nil, err
		}
		rows = window([]core.Row{row}, s.Limit, s.Offset)
	} else {
		rows = make([]core.Row, 0, len(base.Rows))
		for _, src := range base.Rows {
			row, err := p.row(ctx, src)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}
	return core.RowsResult(string(core.KindSelect), p.names, rows), nil
}

// projector evaluates select items against fetched rows.
type projector struct {
	x         *Executor
	available []string
	items     []core.SelectItem
	names     []string
}

// resolve checks column references and assigns unique output names.
func (p *projector) resolve() error {
	seen := make(map[string]int, len(p.items))
	p.names = make([]string, len(p.items))
	for i := range p.items {
		item := &p.items[i]
		if item.Kind == core.ItemColumn {
			col, err := p.column(item.Column)
			if err != nil {
				return err
			}
			item.Column = col
		}
		for j, arg := range item.Args {
			if !arg.IsColumn() {
				continue
			}
			col, err := p.column(arg.Column)
			if err != nil {
				return err
			}
			item.Args[j].Column = col
		}

		name := item.Name()
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		p.names[i] = name
	}
	return nil
}

func (p *projector) column(name string) (string, error) {
	for _, c := range p.available {
		if c == name {
			return c, nil
		}
	}
	for _, c := range p.available {
		if strings.EqualFold(c, name) {
			return c, nil
		}
	}
	return "", &core.ExecutionError{Op: string(core.KindSelect), Message: "no such column: " + name}
}

func (p *projector) row(ctx context.Context, src core.Row) (core.Row, error) {
	out := make(core.Row, len(p.items))
	for i, item := range p.items {
		v, err := p.scalar(ctx, item, src)
		if err != nil {
			return nil, err
		}
		out[p.names[i]] = v
	}
	return out, nil
}

// scalar evaluates a non-aggregate item on one row. A nil row yields NULL.
func (p *projector) scalar(ctx context.Context, item core.SelectItem, src core.Row) (any, error) {
	if src == nil {
		return nil, nil
	}
	switch item.Kind {
	case core.ItemColumn:
		return src[item.Column], nil
	case core.ItemFunc:
		return p.x.registry.Call(ctx, item.Func, args(item.Args, src))
	}
	return nil, fmt.Errorf("unexpected select item %q", item.Name())
}

func (p *projector) fold(ctx context.Context, rows []core.Row) (core.Row, error) {
	var first core.Row
	if len(rows) > 0 {
		first = rows[0]
	}

	out := make(core.Row, len(p.items))
	for i, item := range p.items {
		var (
			v   any
			err error
		)
		switch {
		case item.Kind == core.ItemCount:
			v = int64(len(rows))
		case item.Kind == core.ItemFunc && p.x.registry.IsAggregate(item.Func):
			values := make([]any, len(rows))
			for j, r := range rows {
				values[j] = args(item.Args, r)[0]
			}
			v, err = p.x.registry.Aggregate(item.Func, values)
		default:
			v, err = p.scalar(ctx, item, first)
		}
		if err != nil {
			return nil, err
		}
		out[p.names[i]] = v
	}
	return out, nil
}

// args binds call arguments against a row.
func args(in []core.Arg, src core.Row) []any {
	out := make([]any, len(in))
	for i, a := range in {
		if a.IsColumn() {
			out[i] = src[a.Column]
		} else {
			out[i] = a.Value
		}
	}
	return out
}

// window applies LIMIT and OFFSET.
func window(rows []core.Row, limit *int64, offset int64) []core.Row {
	if offset >= int64(len(rows)) {
		return []core.Row{}
	}
	rows = rows[offset:]
	if limit != nil && *limit < int64(len(rows)) {
		rows = rows[:*limit]
	}
	return rows
}
