package core

import "strings"

// StatementKind identifies a statement variant. It doubles as the envelope type.
type StatementKind string

// Statement kinds of the GSQL dialect.
const (
	KindCreateTable    StatementKind = "create_table"
	KindCreateIndex    StatementKind = "create_index"
	KindCreateFunction StatementKind = "create_function"
	KindInsert         StatementKind = "insert"
	KindSelect         StatementKind = "select"
	KindUpdate         StatementKind = "update"
	KindDelete         StatementKind = "delete"
	KindDropTable      StatementKind = "drop_table"
	KindShowTables     StatementKind = "show_tables"
	KindShowFunctions  StatementKind = "show_functions"
	KindHelp           StatementKind = "help"
	KindBegin          StatementKind = "begin"
	KindCommit         StatementKind = "commit"
	KindRollback       StatementKind = "rollback"
	KindSavepoint      StatementKind = "savepoint"
	KindRelease        StatementKind = "release"
)

// IsTransactionControl reports whether the kind is a transaction keyword.
func (k StatementKind) IsTransactionControl() bool {
	switch k {
	case KindBegin, KindCommit, KindRollback, KindSavepoint, KindRelease:
		return true
	}
	return false
}

// Statement is a parsed GSQL statement. Execution branches switch on the
// concrete type.
type Statement interface {
	Kind() StatementKind
	stmtNode()
}

// Isolation is the locking mode of a transaction.
type Isolation string

// Isolation levels map onto the backend's BEGIN modes.
const (
	IsolationDeferred  Isolation = "DEFERRED"
	IsolationImmediate Isolation = "IMMEDIATE"
	IsolationExclusive Isolation = "EXCLUSIVE"
)

// ParseIsolation parses an isolation keyword; empty means DEFERRED.
func ParseIsolation(s string) (Isolation, bool) {
	switch Isolation(strings.ToUpper(strings.TrimSpace(s))) {
	case "", IsolationDeferred:
		return IsolationDeferred, true
	case IsolationImmediate:
		return IsolationImmediate, true
	case IsolationExclusive:
		return IsolationExclusive, true
	}
	return "", false
}

// Operator is a WHERE comparison operator.
type Operator string

// Supported comparison operators.
const (
	OpEq        Operator = "="
	OpNe        Operator = "!="
	OpLt        Operator = "<"
	OpLe        Operator = "<="
	OpGt        Operator = ">"
	OpGe        Operator = ">="
	OpLike      Operator = "LIKE"
	OpNotLike   Operator = "NOT LIKE"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
)

// Unary reports whether the operator takes no right-hand value.
func (o Operator) Unary() bool {
	return o == OpIsNull || o == OpIsNotNull
}

// Condition is one conjunct of a WHERE clause.
type Condition struct {
	Column string
	Op     Operator
	Value  any
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Column string
	Desc   bool
}

// Assignment is one SET pair of an UPDATE.
type Assignment struct {
	Column string
	Value  any
}

// ItemKind classifies a SELECT projection item.
type ItemKind int

// Projection item kinds.
const (
	ItemStar ItemKind = iota
	ItemColumn
	ItemCount
	ItemFunc
)

// Arg is a function call argument: a column reference or a literal.
type Arg struct {
	Column string
	Value  any
}

// IsColumn reports whether the argument references a column.
func (a Arg) IsColumn() bool { return a.Column != "" }

// SelectItem is one projection of a SELECT.
type SelectItem struct {
	Kind   ItemKind
	Column string
	Func   string
	Args   []Arg
	Alias  string
}

// Name returns the output column name of the item.
func (i SelectItem) Name() string {
	if i.Alias != "" {
		return i.Alias
	}
	switch i.Kind {
	case ItemColumn:
		return i.Column
	case ItemCount:
		return "count"
	case ItemFunc:
		return strings.ToLower(i.Func)
	default:
		return "*"
	}
}

// CreateTable is CREATE TABLE.
type CreateTable struct {
	Name        string
	IfNotExists bool
	Columns     []Column
	PrimaryKey  []string // table-level PRIMARY KEY (a, b)
}

// CreateIndex is CREATE [UNIQUE] INDEX.
type CreateIndex struct {
	Name        string
	Table       string
	Columns     []string
	Unique      bool
	IfNotExists bool
}

// CreateFunction is CREATE FUNCTION name(params) AS 'body'.
type CreateFunction struct {
	Name    string
	Params  []string
	Returns string
	Body    string
}

// Insert is INSERT INTO. Columns is empty when the statement lists none.
type Insert struct {
	Table   string
	Columns []string
	Values  [][]any
}

// Select is SELECT ... FROM. A nil Limit means unbounded.
type Select struct {
	Table   string
	Items   []SelectItem
	Where   []Condition
	OrderBy []OrderItem
	Limit   *int64
	Offset  int64
}

// IsStar reports whether the projection is exactly *.
func (s *Select) IsStar() bool {
	return len(s.Items) == 1 && s.Items[0].Kind == ItemStar
}

// HasFunctions reports whether any projection calls a registry function.
func (s *Select) HasFunctions() bool {
	for _, item := range s.Items {
		if item.Kind == ItemFunc {
			return true
		}
	}
	return false
}

// Update is UPDATE ... SET.
type Update struct {
	Table string
	Set   []Assignment
	Where []Condition
}

// Delete is DELETE FROM.
type Delete struct {
	Table string
	Where []Condition
}

// DropTable is DROP TABLE.
type DropTable struct {
	Name     string
	IfExists bool
}

// ShowTables is SHOW TABLES.
type ShowTables struct{}

// ShowFunctions is SHOW FUNCTIONS.
type ShowFunctions struct{}

// Help is HELP [topic].
type Help struct {
	Topic string
}

// Begin is BEGIN [mode] [TRANSACTION].
type Begin struct {
	Isolation Isolation
}

// Commit is COMMIT / END.
type Commit struct{}

// Rollback is ROLLBACK [TO [SAVEPOINT] name].
type Rollback struct {
	Savepoint string
}

// Savepoint is SAVEPOINT name.
type Savepoint struct {
	Name string
}

// Release is RELEASE [SAVEPOINT] name.
type Release struct {
	Name string
}

func (*CreateTable) Kind() StatementKind    { return KindCreateTable }
func (*CreateIndex) Kind() StatementKind    { return KindCreateIndex }
func (*CreateFunction) Kind() StatementKind { return KindCreateFunction }
func (*Insert) Kind() StatementKind         { return KindInsert }
func (*Select) Kind() StatementKind         { return KindSelect }
func (*Update) Kind() StatementKind         { return KindUpdate }
func (*Delete) Kind() StatementKind         { return KindDelete }
func (*DropTable) Kind() StatementKind      { return KindDropTable }
func (*ShowTables) Kind() StatementKind     { return KindShowTables }
func (*ShowFunctions) Kind() StatementKind  { return KindShowFunctions }
func (*Help) Kind() StatementKind           { return KindHelp }
func (*Begin) Kind() StatementKind          { return KindBegin }
func (*Commit) Kind() StatementKind         { return KindCommit }
func (*Rollback) Kind() StatementKind       { return KindRollback }
func (*Savepoint) Kind() StatementKind      { return KindSavepoint }
func (*Release) Kind() StatementKind        { return KindRelease }

func (*CreateTable) stmtNode()    {}
func (*CreateIndex) stmtNode()    {}
func (*CreateFunction) stmtNode() {}
func (*Insert) stmtNode()         {}
func (*Select) stmtNode()         {}
func (*Update) stmtNode()         {}
func (*Delete) stmtNode()         {}
func (*DropTable) stmtNode()      {}
func (*ShowTables) stmtNode()     {}
func (*ShowFunctions) stmtNode()  {}
func (*Help) stmtNode()           {}
func (*Begin) stmtNode()          {}
func (*Commit) stmtNode()         {}
func (*Rollback) stmtNode()       {}
func (*Savepoint) stmtNode()      {}
func (*Release) stmtNode()        {}

// TableOf returns the table a statement touches, or "".
func TableOf(stmt Statement) string {
	switch s := stmt.(type) {
	case *CreateTable:
		return s.Name
	case *CreateIndex:
		return s.Table
	case *Insert:
		return s.Table
	case *Select:
		return s.Table
	case *Update:
		return s.Table
	case *Delete:
		return s.Table
	case *DropTable:
		return s.Name
	}
	return ""
}
