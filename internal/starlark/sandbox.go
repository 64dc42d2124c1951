package starlark

import (
	"context"
	"fmt"
	"strings"

	starlarkmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// predeclared is the whole environment visible to function bodies.
var predeclared = starlark.StringDict{
	"math": starlarkmath.Module,
}

// Function is a user function compiled from a single expression.
// It is safe for concurrent use; each call runs on its own thread.
type Function struct {
	Name   string
	Params []string
	Body   string

	fn       *starlark.Function
	maxSteps uint64
}

// SandboxError reports a compile or evaluation failure inside the sandbox.
type SandboxError struct {
	Message string
	Err     error
}

func (e *SandboxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SandboxError) Unwrap() error {
	return e.Err
}

// Compile validates body as one Starlark expression and binds it to params.
// maxSteps of 0 selects DefaultMaxSteps.
func Compile(name string, params []string, body string, maxSteps uint64) (*Function, error) {
	if strings.ContainsAny(body, "\r\n") {
		return nil, &SandboxError{Message: "function body must be a single expression"}
	}
	if strings.TrimSpace(body) == "" {
		return nil, &SandboxError{Message: "function body is empty"}
	}

	opts := &syntax.FileOptions{}
	if _, err := opts.ParseExpr(name, body, 0); err != nil {
		return nil, &SandboxError{Message: "invalid expression", Err: err}
	}

	src := fmt.Sprintf("def %s(%s):\n    return (%s)\n", name, strings.Join(params, ", "), body)
	thread := NewThread("compile "+name, maxSteps)
	globals, err := starlark.ExecFileOptions(opts, thread, name, src, predeclared)
	if err != nil {
		return nil, &SandboxError{Message: "failed to compile function", Err: err}
	}

	fn, ok := globals[name].(*starlark.Function)
	if !ok {
		return nil, &SandboxError{Message: fmt.Sprintf("function %s was not defined", name)}
	}

	return &Function{
		Name:     name,
		Params:   append([]string(nil), params...),
		Body:     body,
		fn:       fn,
		maxSteps: maxSteps,
	}, nil
}

// Call invokes the function with positional arguments.
func (f *Function) Call(ctx context.Context, args []any) (any, error) {
	if len(args) != len(f.Params) {
		return nil, &SandboxError{Message: fmt.Sprintf("%s takes %d arguments, got %d", f.Name, len(f.Params), len(args))}
	}

	sargs := make(starlark.Tuple, len(args))
	for i, arg := range args {
		v, err := FromRow(arg)
		if err != nil {
			return nil, &SandboxError{Message: fmt.Sprintf("argument %d", i+1), Err: err}
		}
		sargs[i] = v
	}

	thread := NewThread(f.Name, f.maxSteps)
	stop := watch(ctx, thread)
	defer stop()

	result, err := starlark.Call(thread, f.fn, sargs, nil)
	if err != nil {
		return nil, &SandboxError{Message: "evaluation failed", Err: err}
	}

	out, err := ToRow(result)
	if err != nil {
		return nil, &SandboxError{Message: "bad result", Err: err}
	}
	return out, nil
}
