// Package shelltest provides a recording shell.Runner for tests.
package shelltest

import (
	"context"
	"strings"
	"sync"

	"github.com/windowsadmins/winsetup/pkg/shell"
)

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Recorder records every command and answers with Handler, or with an empty
// successful Result when Handler is nil.
type Recorder struct {
	Handler func(name string, args []string) (shell.Result, error)

	mu    sync.Mutex
	calls []Call
}

// Run implements shell.Runner.
func (r *Recorder) Run(ctx context.Context, name string, args ...string) (shell.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Name: name, Args: append([]string(nil), args...)})
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return shell.Result{ExitCode: -1}, err
	}
	if r.Handler == nil {
		return shell.Result{}, nil
	}
	return r.Handler(name, args)
}

// Calls returns a copy of the recorded invocations.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Lines returns the recorded invocations as command lines.
func (r *Recorder) Lines() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Fail builds a Handler result for a process that exited with code.
func Fail(name string, code int) (shell.Result, error) {
	return shell.Result{ExitCode: code}, &shell.ExitError{Name: name, ExitCode: code}
}
