package starlark

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/leapsmt/pkg/env"
	"github.com/leapstack-labs/leapsmt/pkg/formula"
)

// Interpreter runs Starlark code against one Environment. Globals defined
// by one call are visible to the next, which is what the REPL relies on.
// An Interpreter is not safe for concurrent use; run one per Environment.
type Interpreter struct {
	env     *env.Environment
	out     io.Writer
	logger  *slog.Logger
	options *syntax.FileOptions

	mu      sync.Mutex
	globals starlark.StringDict
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput sets where print() writes. The default discards output.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// New creates an interpreter over e.
func New(e *env.Environment, opts ...Option) *Interpreter {
	in := &Interpreter{
		env:    e,
		out:    io.Discard,
		logger: e.Logger(),
		options: &syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
			GlobalReassign:  true,
		},
	}
	for _, opt := range opts {
		opt(in)
	}
	in.globals = in.Builtins()
	return in
}

// Environment returns the environment scripts build formulas in.
func (in *Interpreter) Environment() *env.Environment { return in.env }

// Globals returns a copy of the current globals.
func (in *Interpreter) Globals() starlark.StringDict {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make(starlark.StringDict, len(in.globals))
	for k, v := range in.globals {
		out[k] = v
	}
	return out
}

// UserGlobals returns the globals defined by executed code, without the
// builtins.
func (in *Interpreter) UserGlobals() starlark.StringDict {
	builtins := in.Builtins()
	out := make(starlark.StringDict)
	for k, v := range in.Globals() {
		if _, ok := builtins[k]; !ok {
			out[k] = v
		}
	}
	return out
}

func (in *Interpreter) newThread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(in.out, msg)
		},
	}
}

// ExecFile executes a script. src may be nil, in which case the file is
// read from disk. New globals are merged into the interpreter.
func (in *Interpreter) ExecFile(filename string, src any) (starlark.StringDict, error) {
	in.logger.Debug("executing script", "file", filename)
	thread := in.newThread(filename)
	globals, err := starlark.ExecFileOptions(in.options, thread, filename, src, in.Globals())
	if err != nil {
		return nil, &ScriptError{File: filename, Err: err}
	}
	in.merge(globals)
	return globals, nil
}

// Eval evaluates one REPL input: an expression yields its value, a
// statement yields None after updating the globals.
func (in *Interpreter) Eval(input string) (starlark.Value, error) {
	thread := in.newThread("<repl>")
	expr, err := in.options.ParseExpr("<repl>", input, 0)
	if err == nil {
		v, err := starlark.EvalExprOptions(in.options, thread, expr, in.Globals())
		if err != nil {
			return nil, &ScriptError{File: "<repl>", Err: err}
		}
		return v, nil
	}
	globals, err := starlark.ExecFileOptions(in.options, thread, "<repl>", input, in.Globals())
	if err != nil {
		return nil, &ScriptError{File: "<repl>", Err: err}
	}
	in.merge(globals)
	return starlark.None, nil
}

func (in *Interpreter) merge(globals starlark.StringDict) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for k, v := range globals {
		in.globals[k] = v
	}
}

func (in *Interpreter) wrap(n *formula.Node) *Formula {
	return &Formula{node: n, in: in}
}

// ScriptError is a failed script or REPL input.
type ScriptError struct {
	File string
	Err  error
}

func (e *ScriptError) Error() string {
	var evalErr *starlark.EvalError
	if errors.As(e.Err, &evalErr) {
		return evalErr.Backtrace()
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

// Unwrap exposes the underlying error so callers can test for
// core.ErrType and friends.
func (e *ScriptError) Unwrap() error { return e.Err }
