// Package executor is the front door of GSQL: it takes raw user input and
// always answers with a result envelope.
//
// The pipeline is:
//
//	raw → dot command?  → served from the store catalog
//	    → natural text? → Translator → SQL (help on failure)
//	    → Repair        → parser.Parse
//	    → route         → function registry | store
//
// Errors never cross Execute; they become envelopes with success=false.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/leapstack-labs/gsql/internal/functions"
	"github.com/leapstack-labs/gsql/pkg/core"
	"github.com/leapstack-labs/gsql/pkg/parser"
)

// Translator turns a natural-language request into SQL.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Options holds the executor's collaborators.
type Options struct {
	Store      core.Store
	Registry   *functions.Registry // defaults to the built-in functions
	Translator Translator          // optional
	Logger     *slog.Logger
}

// Executor runs GSQL input against a store.
type Executor struct {
	store      core.Store
	registry   *functions.Registry
	translator Translator
	logger     *slog.Logger
}

// New creates an executor.
func New(opts Options) (*Executor, error) {
	if opts.Store == nil {
		return nil, errors.New("executor requires a store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	registry := opts.Registry
	if registry == nil {
		registry = functions.NewRegistry(functions.WithLogger(logger))
	}
	return &Executor{
		store:      opts.Store,
		registry:   registry,
		translator: opts.Translator,
		logger:     logger,
	}, nil
}

// Registry returns the function registry.
func (x *Executor) Registry() *functions.Registry {
	return x.registry
}

// Store returns the store the executor writes to.
func (x *Executor) Store() core.Store {
	return x.store
}

// Execute runs one statement or dot command.
func (x *Executor) Execute(ctx context.Context, raw string) (res *core.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("panic during execution",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			res = core.ErrorResult("error", fmt.Errorf("internal error: %v", r))
		}
		res.Stamp(start)
	}()

	input := strings.TrimSpace(raw)
	if input == "" {
		return core.ErrorResult("error", errors.New("empty statement"))
	}

	if strings.HasPrefix(input, ".") {
		return x.dot(ctx, input)
	}

	if !looksLikeSQL(input) && len(strings.Fields(input)) > 1 {
		sql, ok := x.translate(ctx, input)
		if !ok {
			return core.MessageResult(string(core.KindHelp),
				"Could not interpret the input as SQL.\n\n"+helpText(""))
		}
		input = sql
	}

	sql := Repair(input)
	if sql != input {
		x.logger.Debug("statement repaired", slog.String("from", input), slog.String("to", sql))
	}

	stmt, err := parser.Parse(sql)
	if err != nil {
		return core.ErrorResult("error", err)
	}
	return x.run(ctx, stmt)
}

// translate asks the translator for SQL. It reports false when there is no
// translator or it could not help.
func (x *Executor) translate(ctx context.Context, text string) (string, bool) {
	if x.translator == nil {
		return "", false
	}
	sql, err := x.translator.Translate(ctx, text)
	if err != nil {
		x.logger.Debug("translation failed", slog.String("input", text), slog.String("error", err.Error()))
		return "", false
	}
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return "", false
	}
	x.logger.Debug("translated input", slog.String("input", text), slog.String("sql", sql))
	return sql, true
}

// run routes a parsed statement.
func (x *Executor) run(ctx context.Context, stmt core.Statement) *core.Result {
	kind := string(stmt.Kind())

	var (
		res *core.Result
		err error
	)
	switch s := stmt.(type) {
	case *core.CreateFunction:
		res, err = x.createFunction(s)
	case *core.ShowFunctions:
		res = x.showFunctions()
	case *core.Help:
		res = core.MessageResult(kind, helpText(s.Topic))
	case *core.Select:
		if s.HasFunctions() {
			res, err = x.selectWithFunctions(ctx, s)
		} else {
			res, err = x.store.Execute(ctx, s)
		}
	default:
		res, err = x.store.Execute(ctx, stmt)
	}
	if err != nil {
		x.logger.Debug("statement failed", slog.String("kind", kind), slog.String("error", err.Error()))
		return core.ErrorResult(kind, err)
	}
	return res
}

func (x *Executor) createFunction(s *core.CreateFunction) (*core.Result, error) {
	fn, err := x.registry.Define(s.Name, s.Params, s.Returns, s.Body)
	if err != nil {
		return nil, err
	}
	return core.MessageResult(string(core.KindCreateFunction),
		fmt.Sprintf("Function '%s' created", fn.Signature())), nil
}

// FunctionColumns are the columns of a function listing.
var FunctionColumns = []string{"name", "kind", "signature", "description"}

func (x *Executor) showFunctions() *core.Result {
	fns := x.registry.List()
	rows := make([]core.Row, len(fns))
	for i, fn := range fns {
		rows[i] = core.Row{
			"name":        fn.Name,
			"kind":        fn.Kind.String(),
			"signature":   fn.Signature(),
			"description": fn.Description,
		}
	}
	return core.RowsResult(string(core.KindShowFunctions), FunctionColumns, rows)
}

// sqlKeywords are the words a statement may start with, typos included.
var sqlKeywords = map[string]bool{
	"CREATE": true, "INSERT": true, "SELECT": true, "UPDATE": true,
	"DELETE": true, "DROP": true, "SHOW": true, "HELP": true,
	"BEGIN": true, "COMMIT": true, "END": true, "ROLLBACK": true,
	"SAVEPOINT": true, "RELEASE": true,
	"INSRT": true, "INSET": true, "INSERTT": true,
}

// looksLikeSQL reports whether the input starts with a statement keyword.
func looksLikeSQL(input string) bool {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimRight(fields[0], ";"))
	return sqlKeywords[first]
}
