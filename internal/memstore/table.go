package memstore

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/gsql/pkg/core"
)

// record is one stored row with its hidden row id.
type record struct {
	id  int64
	row core.Row
}

// table is the in-memory representation of one user table.
type table struct {
	schema core.TableSchema
	pk     []string // primary key columns, in key order
	rows   []record
	lastID int64
}

func newTable(st *core.CreateTable, createdAt time.Time) *table {
	t := &table{
		schema: core.TableSchema{
			Name:      st.Name,
			Columns:   make([]core.Column, len(st.Columns)),
			CreatedAt: createdAt,
		},
		pk: slices.Clone(st.PrimaryKey),
	}
	for i, c := range st.Columns {
		c.Position = i
		c.Constraints = slices.Clone(c.Constraints)
		t.schema.Columns[i] = c
		if len(st.PrimaryKey) == 0 && c.Has(core.ConstraintPrimaryKey) {
			t.pk = append(t.pk, c.Name)
		}
		if ref := c.References; ref != nil {
			t.schema.ForeignKeys = append(t.schema.ForeignKeys, core.ForeignKey{
				Column:    c.Name,
				RefTable:  ref.RefTable,
				RefColumn: ref.RefColumn,
			})
		}
	}
	return t
}

// key returns the lookup key of a table name.
func key(name string) string {
	return strings.ToLower(name)
}

// rowIDColumn returns the column aliasing the row id: a single INTEGER
// primary key.
func (t *table) rowIDColumn() (core.Column, bool) {
	if len(t.pk) != 1 {
		return core.Column{}, false
	}
	col, ok := t.schema.Column(t.pk[0])
	if !ok || col.Type != core.TypeInteger {
		return core.Column{}, false
	}
	return col, true
}

// column resolves name to its declared spelling.
func (t *table) column(name string) (core.Column, error) {
	col, ok := t.schema.Column(name)
	if !ok {
		return core.Column{}, &core.ExecutionError{Message: fmt.Sprintf("table %s has no column named %s", t.schema.Name, name)}
	}
	return col, nil
}

func (t *table) clone() *table {
	out := &table{
		schema: cloneSchema(t.schema),
		pk:     slices.Clone(t.pk),
		rows:   make([]record, len(t.rows)),
		lastID: t.lastID,
	}
	for i, r := range t.rows {
		out.rows[i] = record{id: r.id, row: maps.Clone(r.row)}
	}
	return out
}

// uniqueSets lists every column set whose values must be unique, with the
// violation kind it raises.
func (t *table) uniqueSets() []uniqueSet {
	var sets []uniqueSet
	if len(t.pk) > 0 {
		sets = append(sets, uniqueSet{columns: t.pk, kind: core.ViolationPrimaryKey})
	}
	for _, c := range t.schema.Columns {
		if c.Has(core.ConstraintUnique) {
			sets = append(sets, uniqueSet{columns: []string{c.Name}, kind: core.ViolationUnique})
		}
	}
	for _, idx := range t.schema.Indexes {
		if idx.Unique {
			sets = append(sets, uniqueSet{columns: idx.Columns, kind: core.ViolationUnique})
		}
	}
	return sets
}

type uniqueSet struct {
	columns []string
	kind    core.ConstraintKind
}

// tuple returns the values of the set in row, and false when any is NULL.
// NULLs never collide.
func (u uniqueSet) tuple(row core.Row) ([]any, bool) {
	vals := make([]any, len(u.columns))
	for i, c := range u.columns {
		v := row[c]
		if v == nil {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

// check validates rows as the complete new contents of t.
func (t *table) check(rows []record) error {
	for _, c := range t.schema.Columns {
		if !c.Has(core.ConstraintNotNull) && !slices.Contains(t.pk, c.Name) {
			continue
		}
		if _, ok := t.rowIDColumn(); ok && t.pk[0] == c.Name {
			continue
		}
		for _, r := range rows {
			if r.row[c.Name] == nil {
				return t.violation(core.ViolationNotNull, "NOT NULL", []string{c.Name})
			}
		}
	}

	for _, set := range t.uniqueSets() {
		seen := make([][]any, 0, len(rows))
		for _, r := range rows {
			vals, ok := set.tuple(r.row)
			if !ok {
				continue
			}
			for _, prev := range seen {
				if equalTuple(prev, vals) {
					return t.violation(set.kind, "UNIQUE", set.columns)
				}
			}
			seen = append(seen, vals)
		}
	}
	return nil
}

func (t *table) violation(kind core.ConstraintKind, label string, columns []string) error {
	qualified := make([]string, len(columns))
	for i, c := range columns {
		qualified[i] = t.schema.Name + "." + c
	}
	err := &core.ConstraintViolationError{
		Kind:    kind,
		Table:   t.schema.Name,
		Message: fmt.Sprintf("%s constraint failed: %s", label, strings.Join(qualified, ", ")),
	}
	if len(columns) == 1 {
		err.Column = columns[0]
	}
	return err
}

func equalTuple(a, b []any) bool {
	for i := range a {
		if !core.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// info summarizes t for listings.
func (t *table) info() core.TableInfo {
	return core.TableInfo{
		Name:     t.schema.Name,
		Type:     "table",
		RowCount: int64(len(t.rows)),
		Columns:  len(t.schema.Columns),
	}
}

// snapshot returns a copy of the schema with its current row count.
func (t *table) snapshot() *core.TableSchema {
	s := cloneSchema(t.schema)
	s.RowCount = int64(len(t.rows))
	return &s
}

func cloneSchema(s core.TableSchema) core.TableSchema {
	s.Columns = slices.Clone(s.Columns)
	for i := range s.Columns {
		s.Columns[i].Constraints = slices.Clone(s.Columns[i].Constraints)
	}
	s.Indexes = slices.Clone(s.Indexes)
	s.ForeignKeys = slices.Clone(s.ForeignKeys)
	return s
}
