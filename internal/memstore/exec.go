package memstore

import (
	"fmt"
	"log/slog"
	"maps"
	"sort"

	"github.com/leapstack-labs/gsql/pkg/core"
)

func (s *Store) createTable(st *core.CreateTable) (*core.Result, error) {
	kind := string(st.Kind())
	if _, exists := s.tables[key(st.Name)]; exists {
		if st.IfNotExists {
			return core.AffectedResult(kind, 0), nil
		}
		return nil, &core.ExecutionError{Message: fmt.Sprintf("table %s already exists", st.Name)}
	}
	if len(st.Columns) == 0 {
		return nil, &core.ExecutionError{Message: fmt.Sprintf("table %s has no columns", st.Name)}
	}

	t := newTable(st, s.now().UTC())
	for _, pk := range t.pk {
		if _, err := t.column(pk); err != nil {
			return nil, err
		}
	}
	s.tables[key(st.Name)] = t
	s.logger.Debug("table created", slog.String("table", st.Name))
	return core.AffectedResult(kind, 0), nil
}

func (s *Store) createIndex(st *core.CreateIndex) (*core.Result, error) {
	kind := string(st.Kind())
	if _, exists := s.indexes[key(st.Name)]; exists {
		if st.IfNotExists {
			return core.AffectedResult(kind, 0), nil
		}
		return nil, &core.ExecutionError{Message: fmt.Sprintf("index %s already exists", st.Name)}
	}
	t, err := s.table(st.Table)
	if err != nil {
		return nil, err
	}

	idx := core.Index{Name: st.Name, Unique: st.Unique}
	for _, name := range st.Columns {
		col, err := t.column(name)
		if err != nil {
			return nil, err
		}
		idx.Columns = append(idx.Columns, col.Name)
	}

	t.schema.Indexes = append(t.schema.Indexes, idx)
	if err := t.check(t.rows); err != nil {
		t.schema.Indexes = t.schema.Indexes[:len(t.schema.Indexes)-1]
		return nil, err
	}
	s.indexes[key(st.Name)] = key(st.Table)
	return core.AffectedResult(kind, 0), nil
}

func (s *Store) insert(st *core.Insert) (*core.Result, error) {
	t, err := s.table(st.Table)
	if err != nil {
		return nil, err
	}

	columns := st.Columns
	if len(columns) == 0 {
		columns = t.schema.ColumnNames()
	}
	targets := make([]core.Column, len(columns))
	for i, name := range columns {
		if targets[i], err = t.column(name); err != nil {
			return nil, err
		}
	}

	rows := make([]record, len(t.rows), len(t.rows)+len(st.Values))
	copy(rows, t.rows)
	lastID := t.lastID
	for _, tuple := range st.Values {
		if len(tuple) != len(targets) {
			return nil, &core.ExecutionError{Message: fmt.Sprintf("%d values for %d columns", len(tuple), len(targets))}
		}

		row := make(core.Row, len(t.schema.Columns))
		for _, c := range t.schema.Columns {
			row[c.Name] = coerce(c.Default, c.Type)
		}
		for i, c := range targets {
			row[c.Name] = coerce(tuple[i], c.Type)
		}

		id, err := t.assignID(row, lastID)
		if err != nil {
			return nil, err
		}
		lastID = max(lastID, id)
		rows = append(rows, record{id: id, row: row})
	}

	if err := s.checkWrite(t, rows); err != nil {
		return nil, err
	}
	t.rows, t.lastID = rows, lastID

	var lastRowID int64
	if len(st.Values) > 0 {
		lastRowID = rows[len(rows)-1].id
	}
	return core.InsertResult(lastRowID, int64(len(st.Values))), nil
}

// assignID picks the row id of a new row, filling an INTEGER PRIMARY KEY
// left NULL.
func (t *table) assignID(row core.Row, lastID int64) (int64, error) {
	col, ok := t.rowIDColumn()
	if !ok {
		return lastID + 1, nil
	}
	switch v := row[col.Name].(type) {
	case nil:
		row[col.Name] = lastID + 1
		return lastID + 1, nil
	case int64:
		return v, nil
	default:
		return 0, &core.ExecutionError{Message: "datatype mismatch"}
	}
}

func (s *Store) selectRows(st *core.Select) (*core.Result, error) {
	t, err := s.table(st.Table)
	if err != nil {
		return nil, err
	}
	if err := s.checkColumns(t, st.Where, st.OrderBy); err != nil {
		return nil, err
	}

	matched := make([]core.Row, 0, len(t.rows))
	for _, r := range t.rows {
		if match(r.row, st.Where) {
			matched = append(matched, r.row)
		}
	}
	if len(st.OrderBy) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range st.OrderBy {
				c := core.Compare(matched[i][o.Column], matched[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	columns, project, err := projection(t, st.Items)
	if err != nil {
		return nil, err
	}

	var out []core.Row
	if aggregate(st.Items) {
		var first core.Row
		if len(matched) > 0 {
			first = matched[0]
		}
		out = []core.Row{project(first, int64(len(matched)))}
	} else {
		out = make([]core.Row, len(matched))
		for i, row := range matched {
			out[i] = project(row, 0)
		}
	}
	return core.RowsResult(string(core.KindSelect), columns, window(out, st.Limit, st.Offset)), nil
}

// projection resolves the select list into output columns and a row
// builder.
func projection(t *table, items []core.SelectItem) ([]string, func(core.Row, int64) core.Row, error) {
	var columns []string
	var sources []string // "" marks COUNT(*)
	for _, item := range items {
		switch item.Kind {
		case core.ItemStar:
			for _, c := range t.schema.Columns {
				columns = append(columns, c.Name)
				sources = append(sources, c.Name)
			}
		case core.ItemColumn:
			col, err := t.column(item.Column)
			if err != nil {
				return nil, nil, err
			}
			name := item.Alias
			if name == "" {
				name = col.Name
			}
			columns = append(columns, name)
			sources = append(sources, col.Name)
		case core.ItemCount:
			columns = append(columns, item.Name())
			sources = append(sources, "")
		default:
			return nil, nil, &core.ExecutionError{
				Op:      "select",
				Message: fmt.Sprintf("function %s must be evaluated by the executor", item.Func),
			}
		}
	}

	project := func(row core.Row, count int64) core.Row {
		out := make(core.Row, len(columns))
		for i, name := range columns {
			if sources[i] == "" {
				out[name] = count
				continue
			}
			if row != nil {
				out[name] = output(row[sources[i]])
			} else {
				out[name] = nil
			}
		}
		return out
	}
	return columns, project, nil
}

func aggregate(items []core.SelectItem) bool {
	for _, item := range items {
		if item.Kind == core.ItemCount {
			return true
		}
	}
	return false
}

func window(rows []core.Row, limit *int64, offset int64) []core.Row {
	if offset > 0 {
		if offset >= int64(len(rows)) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit != nil && *limit >= 0 && *limit < int64(len(rows)) {
		rows = rows[:*limit]
	}
	return rows
}

func (s *Store) update(st *core.Update) (*core.Result, error) {
	t, err := s.table(st.Table)
	if err != nil {
		return nil, err
	}
	if err := s.checkColumns(t, st.Where, nil); err != nil {
		return nil, err
	}
	sets := make([]core.Column, len(st.Set))
	for i, a := range st.Set {
		if sets[i], err = t.column(a.Column); err != nil {
			return nil, err
		}
	}

	rows := make([]record, len(t.rows))
	var affected int64
	for i, r := range t.rows {
		rows[i] = r
		if !match(r.row, st.Where) {
			continue
		}
		row := maps.Clone(r.row)
		for j, a := range st.Set {
			row[sets[j].Name] = coerce(a.Value, sets[j].Type)
		}
		id := r.id
		if col, ok := t.rowIDColumn(); ok {
			v, isInt := row[col.Name].(int64)
			if !isInt {
				return nil, &core.ExecutionError{Message: "datatype mismatch"}
			}
			id = v
		}
		rows[i] = record{id: id, row: row}
		affected++
	}

	if err := s.checkWrite(t, rows); err != nil {
		return nil, err
	}
	t.rows = rows
	for _, r := range rows {
		t.lastID = max(t.lastID, r.id)
	}
	return core.AffectedResult(string(st.Kind()), affected), nil
}

func (s *Store) delete(st *core.Delete) (*core.Result, error) {
	t, err := s.table(st.Table)
	if err != nil {
		return nil, err
	}
	if err := s.checkColumns(t, st.Where, nil); err != nil {
		return nil, err
	}

	kept := make([]record, 0, len(t.rows))
	for _, r := range t.rows {
		if !match(r.row, st.Where) {
			kept = append(kept, r)
		}
	}
	affected := int64(len(t.rows) - len(kept))
	t.rows = kept
	return core.AffectedResult(string(st.Kind()), affected), nil
}

func (s *Store) dropTable(st *core.DropTable) (*core.Result, error) {
	kind := string(st.Kind())
	k := key(st.Name)
	if _, ok := s.tables[k]; !ok {
		if st.IfExists {
			return core.AffectedResult(kind, 0), nil
		}
		return nil, &core.ExecutionError{Message: "no such table: " + st.Name}
	}
	delete(s.tables, k)
	for name, owner := range s.indexes {
		if owner == k {
			delete(s.indexes, name)
		}
	}
	return core.AffectedResult(kind, 0), nil
}

// checkColumns verifies that WHERE and ORDER BY name existing columns.
func (s *Store) checkColumns(t *table, where []core.Condition, order []core.OrderItem) error {
	for _, c := range where {
		if _, err := t.column(c.Column); err != nil {
			return err
		}
	}
	for _, o := range order {
		if _, err := t.column(o.Column); err != nil {
			return err
		}
	}
	return nil
}

// checkWrite validates the new contents of t, including references to
// other tables.
func (s *Store) checkWrite(t *table, rows []record) error {
	if err := t.check(rows); err != nil {
		return err
	}
	for _, fk := range t.schema.ForeignKeys {
		for _, r := range rows {
			v := r.row[fk.Column]
			if v != nil && !s.referenced(t, fk, v, rows) {
				return &core.ConstraintViolationError{
					Kind:    core.ViolationForeignKey,
					Table:   t.schema.Name,
					Column:  fk.Column,
					Message: "FOREIGN KEY constraint failed",
				}
			}
		}
	}
	return nil
}

// referenced reports whether v exists in the target of fk. A reference to
// the table being written checks its new rows.
func (s *Store) referenced(t *table, fk core.ForeignKey, v any, pending []record) bool {
	target, ok := s.tables[key(fk.RefTable)]
	if !ok {
		return false
	}
	rows := target.rows
	if target == t {
		rows = pending
	}

	col := fk.RefColumn
	if col == "" {
		if len(target.pk) != 1 {
			return false
		}
		col = target.pk[0]
	}
	for _, r := range rows {
		if core.Equal(r.row[col], v) {
			return true
		}
	}
	return false
}
