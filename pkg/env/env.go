// Package env scopes a sort registry, an operator registry, a walker table
// and a node pool together. Nodes and sorts are only meaningful inside the
// Environment that created them; mixing environments is a value error.
package env

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/leapstack-labs/leapsmt/pkg/formula"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
	"github.com/leapstack-labs/leapsmt/pkg/printer"
	"github.com/leapstack-labs/leapsmt/pkg/simplify"
	"github.com/leapstack-labs/leapsmt/pkg/sorts"
	"github.com/leapstack-labs/leapsmt/pkg/substitute"
	"github.com/leapstack-labs/leapsmt/pkg/typecheck"
	"github.com/leapstack-labs/leapsmt/pkg/walker"
)

// Environment owns the registries and the node pool.
type Environment struct {
	id      uuid.UUID
	sorts   *sorts.Registry
	ops     *operator.Registry
	walkers *walker.Table
	mgr     *formula.Manager
	checker *typecheck.Checker
	logger  *slog.Logger
}

type options struct {
	id            uuid.UUID
	logger        *slog.Logger
	freshTemplate string
}

// Option configures an Environment.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFreshTemplate sets the printf template of fresh symbol names.
func WithFreshTemplate(tmpl string) Option {
	return func(o *options) { o.freshTemplate = tmpl }
}

// WithID fixes the environment id instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(o *options) { o.id = id }
}

// New creates an environment with the built-in passes installed.
func New(opts ...Option) *Environment {
	o := options{freshTemplate: formula.DefaultFreshTemplate}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == uuid.Nil {
		o.id = uuid.New()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	e := &Environment{
		id:     o.id,
		sorts:  sorts.NewRegistry(),
		ops:    operator.NewRegistry(),
		logger: o.logger.With("env", o.id.String()),
	}
	e.walkers = walker.NewTable(e.ops.Name)
	e.checker = typecheck.New(e.walkers, e.sorts)
	printer.NewHR(e.walkers)
	printer.NewSMTLIB(e.walkers)
	simplify.InstallDefaults(e.walkers)
	substitute.InstallDefaults(e.walkers)

	e.mgr = formula.NewManager(e.sorts, e.ops,
		formula.WithOwner(o.id.String()),
		formula.WithSortOracle(e.checker.Oracle()),
		formula.WithRenderer(e.render),
		formula.WithFreshTemplate(o.freshTemplate),
		formula.WithLogger(e.logger),
	)
	e.logger.Debug("environment created", "fresh_template", o.freshTemplate)
	return e
}

// ID returns the environment id.
func (e *Environment) ID() uuid.UUID { return e.id }

// Sorts returns the sort registry.
func (e *Environment) Sorts() *sorts.Registry { return e.sorts }

// Operators returns the operator registry.
func (e *Environment) Operators() *operator.Registry { return e.ops }

// Walkers returns the dispatch table.
func (e *Environment) Walkers() *walker.Table { return e.walkers }

// Manager returns the formula manager.
func (e *Environment) Manager() *formula.Manager { return e.mgr }

// Logger returns the environment logger.
func (e *Environment) Logger() *slog.Logger { return e.logger }

// ---------- Sorts ----------

// DeclareSort declares (or looks up) a sort constructor.
func (e *Environment) DeclareSort(name string, arity int) (*sorts.Constructor, error) {
	c, err := e.sorts.Declare(name, arity)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("sort declared", "name", name, "arity", arity)
	return c, nil
}

// DefineSort registers a partial sort template.
func (e *Environment) DefineSort(name string, arity int, expand sorts.ExpandFunc) (*sorts.Template, error) {
	t, err := e.sorts.Define(name, arity, expand)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("sort template defined", "name", name, "arity", arity)
	return t, nil
}

// ---------- Operators and walkers ----------

// NewNodeType allocates a custom operator id.
func (e *Environment) NewNodeType(name string) operator.Type {
	t := e.ops.New(name)
	e.logger.Debug("custom operator allocated", "name", e.ops.Name(t), "id", int32(t))
	return t
}

// NewNodeTypeWithID allocates a specific custom operator id.
func (e *Environment) NewNodeTypeWithID(id operator.Type, name string) (operator.Type, error) {
	t, err := e.ops.NewWithID(id, name)
	if err != nil {
		return 0, err
	}
	e.logger.Debug("custom operator allocated", "name", e.ops.Name(t), "id", int32(t))
	return t, nil
}

// CustomNodeTypes returns the custom operators allocated so far.
func (e *Environment) CustomNodeTypes() map[operator.Type]string {
	return e.ops.Custom()
}

// AddDynamicWalkerFunction installs h for (op, class), replacing any
// previous registration. The operator must be registered.
func (e *Environment) AddDynamicWalkerFunction(op operator.Type, class walker.PassClass, h walker.Handler) error {
	if !e.ops.IsRegistered(op) {
		return core.NewValueError("env.AddDynamicWalkerFunction", "operator %s is not registered", op)
	}
	if h == nil {
		return core.NewValueError("env.AddDynamicWalkerFunction", "nil handler for %s", e.ops.Name(op))
	}
	e.walkers.Register(op, class, h)
	e.logger.Debug("walker function registered", "operator", e.ops.Name(op), "class", string(class))
	return nil
}

// ---------- Passes ----------

// Dispatch runs pass p on n through the environment table.
func (e *Environment) Dispatch(p walker.Pass, n *formula.Node) (any, error) {
	if err := e.owns(n); err != nil {
		return nil, err
	}
	return e.walkers.Dispatch(p, n)
}

// TypeOf returns the sort of n.
func (e *Environment) TypeOf(n *formula.Node) (*sorts.Sort, error) {
	if err := e.owns(n); err != nil {
		return nil, err
	}
	return e.checker.SortOf(n)
}

// Serialize renders n with the human-readable printer.
func (e *Environment) Serialize(n *formula.Node) (string, error) {
	if err := e.owns(n); err != nil {
		return "", err
	}
	return printer.NewHR(e.walkers).Print(n)
}

// SMTLIB renders n as an SMT-LIB term.
func (e *Environment) SMTLIB(n *formula.Node) (string, error) {
	if err := e.owns(n); err != nil {
		return "", err
	}
	return printer.NewSMTLIB(e.walkers).Print(n)
}

// Simplify returns the simplified form of n.
func (e *Environment) Simplify(n *formula.Node) (*formula.Node, error) {
	if err := e.owns(n); err != nil {
		return nil, err
	}
	return simplify.New(e.walkers, e.mgr).Simplify(n)
}

// Substitute replaces nodes in n according to subst.
func (e *Environment) Substitute(n *formula.Node, subst map[*formula.Node]*formula.Node) (*formula.Node, error) {
	if err := e.owns(n); err != nil {
		return nil, err
	}
	return substitute.New(e.walkers, e.mgr).Substitute(n, subst)
}

func (e *Environment) owns(n *formula.Node) error {
	if n == nil {
		return core.NewValueError("env", "nil node")
	}
	if n.Owner() != e.mgr {
		return core.NewValueError("env", "node #%d belongs to another environment", n.ID())
	}
	return nil
}

// render backs Node.String. Nodes without a printer rule render as
// "<OP #id>".
func (e *Environment) render(n *formula.Node) string {
	s, err := printer.NewHR(e.walkers).Print(n)
	if err != nil {
		return fmt.Sprintf("<%s #%d>", e.ops.Name(n.Op()), n.ID())
	}
	return s
}
