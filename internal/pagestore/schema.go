package pagestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/gsql/internal/bufferpool"
	"github.com/leapstack-labs/gsql/pkg/core"
)

const userTablesSQL = `SELECT name, COALESCE(sql, '') FROM sqlite_master
WHERE type = 'table'
  AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
  AND name NOT LIKE '\_gsql\_%' ESCAPE '\'
  AND name <> 'goose_db_version'
ORDER BY name`

// tableSchema returns the schema of table from the buffer pool, or
// introspects and caches it. Returns nil when the table does not exist.
// Must be called with e.mu held.
func (e *Engine) tableSchema(ctx context.Context, table string) (*core.TableSchema, error) {
	key := bufferpool.SchemaKey(table)
	if data, ok := e.pool.Get(key); ok {
		var s core.TableSchema
		if err := json.Unmarshal(data, &s); err == nil {
			return &s, nil
		}
		e.pool.Invalidate(key)
	}

	s, err := e.introspect(ctx, table)
	if err != nil || s == nil {
		return s, err
	}
	if data, err := json.Marshal(s); err == nil {
		e.pool.Put(key, data, true)
	}
	return s, nil
}

// introspect reads a table schema from the backend catalog.
func (e *Engine) introspect(ctx context.Context, table string) (*core.TableSchema, error) {
	_, rows, err := e.query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quote(table)))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	s := &core.TableSchema{Name: table}
	// cid, name, type, notnull, dflt_value, pk
	for _, r := range rows {
		decl := strings.ToUpper(asString(r[2]))
		col := core.Column{
			Name:         asString(r[1]),
			Type:         core.NormalizeType(decl),
			DeclaredType: decl,
			Position:     int(asInt(r[0])),
		}
		if asInt(r[5]) > 0 {
			col.Constraints = append(col.Constraints, core.ConstraintPrimaryKey)
		}
		if asInt(r[3]) == 1 {
			col.Constraints = append(col.Constraints, core.ConstraintNotNull)
		}
		if r[4] != nil {
			col.Default = parseDefault(asString(r[4]))
		}
		s.Columns = append(s.Columns, col)
	}

	if err := e.introspectIndexes(ctx, s); err != nil {
		return nil, err
	}
	if err := e.introspectForeignKeys(ctx, s); err != nil {
		return nil, err
	}
	if err := e.applyRegistry(ctx, s); err != nil {
		return nil, err
	}

	count, err := e.rowCount(ctx, table)
	if err != nil {
		return nil, err
	}
	s.RowCount = count
	return s, nil
}

func (e *Engine) introspectIndexes(ctx context.Context, s *core.TableSchema) error {
	// seq, name, unique, origin, partial
	_, rows, err := e.query(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quote(s.Name)))
	if err != nil {
		return err
	}
	for _, r := range rows {
		name := asString(r[1])
		unique := asInt(r[2]) == 1
		origin := asString(r[3])

		_, cols, err := e.query(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quote(name)))
		if err != nil {
			return err
		}
		idx := core.Index{Name: name, Unique: unique}
		for _, c := range cols {
			idx.Columns = append(idx.Columns, asString(c[2]))
		}

		switch origin {
		case "u":
			// UNIQUE column constraint
			if len(idx.Columns) == 1 {
				for i := range s.Columns {
					if strings.EqualFold(s.Columns[i].Name, idx.Columns[0]) && !s.Columns[i].Has(core.ConstraintUnique) {
						s.Columns[i].Constraints = append(s.Columns[i].Constraints, core.ConstraintUnique)
					}
				}
			}
		case "pk":
		default:
			s.Indexes = append(s.Indexes, idx)
		}
	}
	return nil
}

func (e *Engine) introspectForeignKeys(ctx context.Context, s *core.TableSchema) error {
	// id, seq, table, from, to, on_update, on_delete, match
	_, rows, err := e.query(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quote(s.Name)))
	if err != nil {
		return err
	}
	for _, r := range rows {
		fk := core.ForeignKey{
			Column:    asString(r[3]),
			RefTable:  asString(r[2]),
			RefColumn: asString(r[4]),
		}
		s.ForeignKeys = append(s.ForeignKeys, fk)
		for i := range s.Columns {
			if strings.EqualFold(s.Columns[i].Name, fk.Column) {
				ref := fk
				s.Columns[i].References = &ref
			}
		}
	}
	return nil
}

// applyRegistry merges what the catalog cannot tell: creation time and
// AUTOINCREMENT.
func (e *Engine) applyRegistry(ctx context.Context, s *core.TableSchema) error {
	_, rows, err := e.query(ctx,
		`SELECT schema_json, created_at FROM _gsql_schemas WHERE table_name = ? COLLATE NOCASE`, s.Name)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	var registered []core.Column
	if err := json.Unmarshal([]byte(asString(rows[0][0])), &registered); err == nil {
		for _, rc := range registered {
			for i := range s.Columns {
				if strings.EqualFold(s.Columns[i].Name, rc.Name) {
					s.Columns[i].AutoIncrement = rc.AutoIncrement
				}
			}
		}
	}
	if t, ok := asTime(rows[0][1]); ok {
		s.CreatedAt = t
	}
	return nil
}

func (e *Engine) rowCount(ctx context.Context, table string) (int64, error) {
	_, rows, err := e.query(ctx, "SELECT COUNT(*) FROM "+quote(table))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return asInt(rows[0][0]), nil
}

// registerSchema records a created table in _gsql_schemas.
func (e *Engine) registerSchema(ctx context.Context, st *core.CreateTable) error {
	data, err := json.Marshal(st.Columns)
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	_, err = e.exec(ctx, `INSERT INTO _gsql_schemas (table_name, schema_json, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(table_name) DO NOTHING`,
		st.Name, string(data), e.now().UTC().Format(time.RFC3339Nano), e.now().UTC().Format(time.RFC3339Nano))
	return err
}

func (e *Engine) unregisterSchema(ctx context.Context, table string) error {
	_, err := e.exec(ctx, `DELETE FROM _gsql_schemas WHERE table_name = ? COLLATE NOCASE`, table)
	return err
}

// tables lists user tables. Must be called with e.mu held.
func (e *Engine) tables(ctx context.Context) ([]core.TableInfo, error) {
	_, rows, err := e.query(ctx, userTablesSQL)
	if err != nil {
		return nil, err
	}
	out := make([]core.TableInfo, 0, len(rows))
	for _, r := range rows {
		name := asString(r[0])
		s, err := e.tableSchema(ctx, name)
		if err != nil {
			return nil, err
		}
		info := core.TableInfo{Name: name, Type: "table", SQL: asString(r[1])}
		if s != nil {
			info.RowCount = s.RowCount
			info.Columns = len(s.Columns)
		}
		out = append(out, info)
	}
	return out, nil
}

// parseDefault turns the catalog's default expression text into a value.
func parseDefault(text string) any {
	text = strings.TrimSpace(text)
	if len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\'' {
		return core.CoerceLiteral(core.LiteralString, strings.ReplaceAll(text[1:len(text)-1], "''", "'"))
	}
	return core.CoerceLiteral(core.LiteralBare, text)
}
