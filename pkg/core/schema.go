package core

import (
	"strings"
	"time"
)

// Constraint is a column-level constraint keyword.
type Constraint string

// Column constraints understood by CREATE TABLE.
const (
	ConstraintPrimaryKey Constraint = "PRIMARY_KEY"
	ConstraintNotNull    Constraint = "NOT_NULL"
	ConstraintUnique     Constraint = "UNIQUE"
)

// Column describes one column of a table schema.
type Column struct {
	Name          string       `json:"name"`
	Type          string       `json:"type"`
	DeclaredType  string       `json:"declared_type,omitempty"`
	Constraints   []Constraint `json:"constraints,omitempty"`
	Default       any          `json:"default,omitempty"`
	AutoIncrement bool         `json:"autoincrement,omitempty"`
	References    *ForeignKey  `json:"references,omitempty"`
	Position      int          `json:"position"`
}

// Has reports whether the column carries the constraint.
func (c Column) Has(constraint Constraint) bool {
	for _, existing := range c.Constraints {
		if existing == constraint {
			return true
		}
	}
	return false
}

// ForeignKey is a REFERENCES target.
type ForeignKey struct {
	Column    string `json:"column,omitempty"`
	RefTable  string `json:"table"`
	RefColumn string `json:"ref_column"`
}

// Index describes a secondary index.
type Index struct {
	Name    string   `json:"name"`
	Unique  bool     `json:"unique"`
	Columns []string `json:"columns,omitempty"`
}

// TableSchema is the registry entry for a table.
type TableSchema struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	Indexes     []Index      `json:"indexes,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
	RowCount    int64        `json:"row_count"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Column returns the named column (case-insensitive).
func (s *TableSchema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in declared order.
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// TableInfo is one entry of a table listing.
type TableInfo struct {
	Name     string `json:"table_name"`
	Type     string `json:"type"`
	RowCount int64  `json:"row_count"`
	Columns  int    `json:"columns"`
	SQL      string `json:"sql,omitempty"`
}
