// Package functions provides the SQL function registry: built-in scalar and
// aggregate functions plus user functions defined with CREATE FUNCTION.
package functions

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/gsql/internal/starlark"
	"github.com/leapstack-labs/gsql/pkg/core"
)

// Kind tells scalar functions (evaluated per row) from aggregates
// (evaluated over a whole column).
type Kind int

// Function kinds.
const (
	Scalar Kind = iota
	Aggregate
)

func (k Kind) String() string {
	if k == Aggregate {
		return "aggregate"
	}
	return "scalar"
}

// Variadic marks a function without an upper arity bound.
const Variadic = -1

// ScalarFunc evaluates one call.
type ScalarFunc func(ctx context.Context, args []any) (any, error)

// AggregateFunc folds the values of one column.
type AggregateFunc func(values []any) (any, error)

// Function describes a registered function.
type Function struct {
	Name        string
	Kind        Kind
	MinArgs     int
	MaxArgs     int // Variadic for no limit
	Description string
	Builtin     bool

	// Set for user functions.
	Params  []string
	Returns string
	Body    string

	scalar    ScalarFunc
	aggregate AggregateFunc
}

// Signature renders the call shape, e.g. "substring(s, start[, len])".
func (f *Function) Signature() string {
	if len(f.Params) > 0 || !f.Builtin {
		return fmt.Sprintf("%s(%s)", f.Name, strings.Join(f.Params, ", "))
	}
	switch {
	case f.MaxArgs == Variadic:
		return fmt.Sprintf("%s(%d+ args)", f.Name, f.MinArgs)
	case f.MinArgs == f.MaxArgs:
		return fmt.Sprintf("%s(%d args)", f.Name, f.MinArgs)
	default:
		return fmt.Sprintf("%s(%d-%d args)", f.Name, f.MinArgs, f.MaxArgs)
	}
}

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Registry maps lowercase function names to functions. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	fns      map[string]*Function
	maxSteps uint64
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMaxSteps bounds the Starlark steps of a user function call.
func WithMaxSteps(n uint64) Option {
	return func(r *Registry) { r.maxSteps = n }
}

// NewRegistry returns a registry preloaded with the built-in functions.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		fns:    make(map[string]*Function),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, fn := range builtins() {
		fn.Builtin = true
		r.fns[fn.Name] = fn
	}
	return r
}

// Register adds fn. It fails if the name is taken or invalid.
func (r *Registry) Register(fn *Function) error {
	if fn == nil || (fn.scalar == nil && fn.aggregate == nil) {
		return &core.FunctionError{Name: nameOf(fn), Message: "function has no implementation"}
	}
	if !nameRe.MatchString(fn.Name) {
		return &core.FunctionError{Name: fn.Name, Message: "invalid function name"}
	}
	key := strings.ToLower(fn.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.fns[key]; exists {
		return &core.FunctionError{Name: fn.Name, Message: "function already exists"}
	}
	fn.Name = key
	r.fns[key] = fn
	return nil
}

// NewScalar builds a scalar function for Register.
func NewScalar(name string, minArgs, maxArgs int, description string, f ScalarFunc) *Function {
	return &Function{Name: name, Kind: Scalar, MinArgs: minArgs, MaxArgs: maxArgs, Description: description, scalar: f}
}

// NewAggregate builds an aggregate function for Register.
func NewAggregate(name, description string, f AggregateFunc) *Function {
	return &Function{Name: name, Kind: Aggregate, MinArgs: 1, MaxArgs: Variadic, Description: description, aggregate: f}
}

// Define compiles body as a sandboxed single-expression function and
// registers it under name.
func (r *Registry) Define(name string, params []string, returns, body string) (*Function, error) {
	if !nameRe.MatchString(name) {
		return nil, &core.FunctionError{Name: name, Message: "invalid function name"}
	}
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if !nameRe.MatchString(p) {
			return nil, &core.FunctionError{Name: name, Message: fmt.Sprintf("invalid parameter name %q", p)}
		}
		if seen[p] {
			return nil, &core.FunctionError{Name: name, Message: fmt.Sprintf("duplicate parameter %q", p)}
		}
		seen[p] = true
	}
	if _, exists := r.Lookup(name); exists {
		return nil, &core.FunctionError{Name: name, Message: "function already exists"}
	}

	compiled, err := starlark.Compile(strings.ToLower(name), params, body, r.maxSteps)
	if err != nil {
		return nil, &core.FunctionError{Name: name, Message: "invalid function body", Err: err}
	}

	fn := &Function{
		Name:        name,
		Kind:        Scalar,
		MinArgs:     len(params),
		MaxArgs:     len(params),
		Description: body,
		Params:      compiled.Params,
		Returns:     returns,
		Body:        body,
		scalar: func(ctx context.Context, args []any) (any, error) {
			return compiled.Call(ctx, args)
		},
	}
	if err := r.Register(fn); err != nil {
		return nil, err
	}
	r.logger.Debug("function defined", slog.String("name", fn.Name), slog.Int("params", len(params)))
	return fn, nil
}

// Lookup finds a function by case-insensitive name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.fns[strings.ToLower(name)]
	return fn, ok
}

// IsAggregate reports whether name is a registered aggregate.
func (r *Registry) IsAggregate(name string) bool {
	fn, ok := r.Lookup(name)
	return ok && fn.Kind == Aggregate
}

// Call invokes a function. Aggregates called this way fold their arguments.
func (r *Registry) Call(ctx context.Context, name string, args []any) (any, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, &core.FunctionError{Name: name, Message: "unknown function"}
	}
	if fn.Kind == Aggregate {
		return r.fold(fn, args)
	}
	if len(args) < fn.MinArgs || (fn.MaxArgs != Variadic && len(args) > fn.MaxArgs) {
		return nil, &core.FunctionError{Name: fn.Name, Message: arityMessage(fn, len(args))}
	}

	out, err := fn.scalar(ctx, args)
	if err != nil {
		return nil, &core.FunctionError{Name: fn.Name, Message: "call failed", Err: err}
	}
	return out, nil
}

// Aggregate folds a column of values with the named aggregate.
func (r *Registry) Aggregate(name string, values []any) (any, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, &core.FunctionError{Name: name, Message: "unknown function"}
	}
	if fn.Kind != Aggregate {
		return nil, &core.FunctionError{Name: fn.Name, Message: "not an aggregate function"}
	}
	return r.fold(fn, values)
}

func (r *Registry) fold(fn *Function, values []any) (any, error) {
	out, err := fn.aggregate(values)
	if err != nil {
		return nil, &core.FunctionError{Name: fn.Name, Message: "aggregate failed", Err: err}
	}
	return out, nil
}

// List returns all functions sorted by name.
func (r *Registry) List() []*Function {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Function, 0, len(r.fns))
	for _, fn := range r.fns {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func arityMessage(fn *Function, got int) string {
	switch {
	case fn.MaxArgs == Variadic:
		return fmt.Sprintf("expects at least %d arguments, got %d", fn.MinArgs, got)
	case fn.MinArgs == fn.MaxArgs:
		return fmt.Sprintf("expects %d arguments, got %d", fn.MinArgs, got)
	default:
		return fmt.Sprintf("expects %d to %d arguments, got %d", fn.MinArgs, fn.MaxArgs, got)
	}
}

func nameOf(fn *Function) string {
	if fn == nil {
		return ""
	}
	return fn.Name
}
