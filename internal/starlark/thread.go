package starlark

import (
	"context"

	"go.starlark.net/starlark"
)

// DefaultMaxSteps bounds the work a single function call may do.
const DefaultMaxSteps = 100_000

// NewThread creates a sandboxed thread: load is disabled, print output is
// discarded and execution stops after maxSteps.
func NewThread(name string, maxSteps uint64) *starlark.Thread {
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, _ string) {
			// No-op: functions have no output channel
		},
		Load: func(_ *starlark.Thread, module string) (starlark.StringDict, error) {
			return nil, &SandboxError{Message: "load(" + module + ") is not allowed"}
		},
	}
	thread.SetMaxExecutionSteps(maxSteps)
	return thread
}

// watch cancels thread when ctx is done. The returned stop func must be
// called once the evaluation finishes.
func watch(ctx context.Context, thread *starlark.Thread) (stop func()) {
	if ctx.Done() == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()
	return func() { close(done) }
}
