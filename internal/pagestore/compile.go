package pagestore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/gsql/pkg/adapter"
	"github.com/leapstack-labs/gsql/pkg/core"
)

// query is a compiled statement with its bind arguments.
type query struct {
	sql  string
	args []any
}

var quote = adapter.QuoteIdent

func compileCreateTable(st *core.CreateTable) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if st.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(quote(st.Name))
	b.WriteString(" (")

	inlinePK := len(st.PrimaryKey) == 0
	for i, col := range st.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(columnSQL(col, inlinePK))
	}
	if !inlinePK {
		b.WriteString(", PRIMARY KEY (")
		b.WriteString(identList(st.PrimaryKey))
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String()
}

func columnSQL(c core.Column, inlinePK bool) string {
	typ := c.DeclaredType
	if typ == "" {
		typ = c.Type
	}
	parts := []string{quote(c.Name), typ}
	if inlinePK && c.Has(core.ConstraintPrimaryKey) {
		parts = append(parts, "PRIMARY KEY")
		if c.AutoIncrement {
			parts = append(parts, "AUTOINCREMENT")
		}
	}
	if c.Has(core.ConstraintNotNull) {
		parts = append(parts, "NOT NULL")
	}
	if c.Has(core.ConstraintUnique) {
		parts = append(parts, "UNIQUE")
	}
	if c.Default != nil {
		parts = append(parts, "DEFAULT "+literalSQL(c.Default))
	}
	if ref := c.References; ref != nil {
		target := quote(ref.RefTable)
		if ref.RefColumn != "" {
			target += "(" + quote(ref.RefColumn) + ")"
		}
		parts = append(parts, "REFERENCES "+target)
	}
	return strings.Join(parts, " ")
}

func compileCreateIndex(st *core.CreateIndex) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if st.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	if st.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	fmt.Fprintf(&b, "%s ON %s (%s)", quote(st.Name), quote(st.Table), identList(st.Columns))
	return b.String()
}

func compileDropTable(st *core.DropTable) string {
	if st.IfExists {
		return "DROP TABLE IF EXISTS " + quote(st.Name)
	}
	return "DROP TABLE " + quote(st.Name)
}

func compileInsert(st *core.Insert) query {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quote(st.Table))
	if len(st.Columns) > 0 {
		b.WriteString(" (")
		b.WriteString(identList(st.Columns))
		b.WriteString(")")
	}
	b.WriteString(" VALUES ")

	var args []any
	for i, tuple := range st.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		b.WriteString(placeholders(len(tuple)))
		b.WriteString(")")
		for _, v := range tuple {
			args = append(args, bindValue(v))
		}
	}
	return query{sql: b.String(), args: args}
}

func compileSelect(st *core.Select) (query, error) {
	items := make([]string, 0, len(st.Items))
	for _, item := range st.Items {
		switch item.Kind {
		case core.ItemStar:
			items = append(items, "*")
		case core.ItemColumn:
			s := quote(item.Column)
			if item.Alias != "" {
				s += " AS " + quote(item.Alias)
			}
			items = append(items, s)
		case core.ItemCount:
			items = append(items, "COUNT(*) AS "+quote(item.Name()))
		default:
			return query{}, &core.ExecutionError{
				Op:      "select",
				Message: fmt.Sprintf("function %s must be evaluated by the executor", item.Func),
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(items, ", "), quote(st.Table))

	where, args := compileWhere(st.Where)
	b.WriteString(where)

	if len(st.OrderBy) > 0 {
		keys := make([]string, len(st.OrderBy))
		for i, o := range st.OrderBy {
			keys[i] = quote(o.Column)
			if o.Desc {
				keys[i] += " DESC"
			}
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(keys, ", "))
	}

	switch {
	case st.Limit != nil:
		b.WriteString(" LIMIT ?")
		args = append(args, *st.Limit)
		if st.Offset > 0 {
			b.WriteString(" OFFSET ?")
			args = append(args, st.Offset)
		}
	case st.Offset > 0:
		b.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, st.Offset)
	}
	return query{sql: b.String(), args: args}, nil
}

func compileUpdate(st *core.Update) query {
	sets := make([]string, len(st.Set))
	args := make([]any, 0, len(st.Set))
	for i, a := range st.Set {
		sets[i] = quote(a.Column) + " = ?"
		args = append(args, bindValue(a.Value))
	}
	where, whereArgs := compileWhere(st.Where)
	return query{
		sql:  fmt.Sprintf("UPDATE %s SET %s%s", quote(st.Table), strings.Join(sets, ", "), where),
		args: append(args, whereArgs...),
	}
}

func compileDelete(st *core.Delete) query {
	where, args := compileWhere(st.Where)
	return query{sql: "DELETE FROM " + quote(st.Table) + where, args: args}
}

// compileWhere renders " WHERE a AND b" or "" for no conditions.
func compileWhere(conds []core.Condition) (string, []any) {
	if len(conds) == 0 {
		return "", nil
	}
	parts := make([]string, len(conds))
	var args []any
	for i, c := range conds {
		if c.Op.Unary() {
			parts[i] = quote(c.Column) + " " + string(c.Op)
			continue
		}
		parts[i] = quote(c.Column) + " " + string(c.Op) + " ?"
		args = append(args, bindValue(c.Value))
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// bindValue converts a typed value into something the driver accepts.
func bindValue(v any) any {
	switch val := v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return core.FormatValue(val)
		}
		return string(b)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

// literalSQL renders a value as an inline SQL literal.
func literalSQL(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		s, _ := bindValue(v).(string)
		if s == "" {
			s = core.FormatValue(v)
		}
		return adapter.QuoteLiteral(s)
	}
}

func identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote(n)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
