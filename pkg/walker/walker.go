// Package walker implements the dispatch engine shared by all passes.
//
// A Table maps (pass class, operator) to a Handler. Passes embed Base and
// call Walk to dispatch a node; handlers recurse into children themselves,
// so a handler may visit arguments in any order or short-circuit.
//
// Lookup order for a node is: explicit registration for the pair, then the
// default installed by the pass for its class, then a
// *core.NotImplementedError. Explicit registrations replace each other
// (last write wins) and always take precedence over defaults.
package walker

import (
	"sort"
	"sync"

	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/leapstack-labs/leapsmt/pkg/formula"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
)

// PassClass names a family of passes sharing one set of handlers.
type PassClass string

// Pass is a pass instance. Every instance of a class dispatches through the
// handlers registered for that class.
type Pass interface {
	Class() PassClass
}

// Handler computes the result of pass p for node n.
type Handler func(p Pass, n *formula.Node) (any, error)

type key struct {
	class PassClass
	op    operator.Type
}

// Table is the (pass class, operator) -> handler table of an environment.
type Table struct {
	mu        sync.RWMutex
	explicit  map[key]Handler
	defaults  map[key]Handler
	installed map[PassClass]bool
	names     func(operator.Type) string
}

// NewTable creates an empty table. names resolves operator names for
// error messages and may be nil.
func NewTable(names func(operator.Type) string) *Table {
	if names == nil {
		names = operator.Type.String
	}
	return &Table{
		explicit:  make(map[key]Handler),
		defaults:  make(map[key]Handler),
		installed: make(map[PassClass]bool),
		names:     names,
	}
}

// Register installs h for (op, class), replacing any previous registration.
func (t *Table) Register(op operator.Type, class PassClass, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.explicit[key{class, op}] = h
}

// Unregister removes an explicit registration. Defaults are kept.
func (t *Table) Unregister(op operator.Type, class PassClass) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.explicit, key{class, op})
}

// InstallDefaults installs the built-in behavior of a pass class. It is a
// no-op if the class already has defaults, so passes may call it from
// their constructors.
func (t *Table) InstallDefaults(class PassClass, handlers map[operator.Type]Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.installed[class] {
		return
	}
	for op, h := range handlers {
		t.defaults[key{class, op}] = h
	}
	t.installed[class] = true
}

// HasDefaults reports whether defaults were installed for class.
func (t *Table) HasDefaults(class PassClass) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.installed[class]
}

// Lookup returns the handler that Dispatch would use for (class, op).
func (t *Table) Lookup(class PassClass, op operator.Type) (Handler, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	k := key{class, op}
	if h, ok := t.explicit[k]; ok {
		return h, true
	}
	h, ok := t.defaults[k]
	return h, ok
}

// Has reports whether (class, op) has a handler.
func (t *Table) Has(class PassClass, op operator.Type) bool {
	_, ok := t.Lookup(class, op)
	return ok
}

// Dispatch runs the handler for (p.Class(), n.Op()).
func (t *Table) Dispatch(p Pass, n *formula.Node) (any, error) {
	h, ok := t.Lookup(p.Class(), n.Op())
	if !ok {
		return nil, &core.NotImplementedError{Pass: string(p.Class()), Operator: t.names(n.Op())}
	}
	return h(p, n)
}

// Classes returns the pass classes known to the table, sorted.
func (t *Table) Classes() []PassClass {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[PassClass]bool)
	for k := range t.explicit {
		seen[k.class] = true
	}
	for c := range t.installed {
		seen[c] = true
	}
	out := make([]PassClass, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Base is embedded by pass implementations.
type Base struct {
	table *Table
	self  Pass
}

// Init binds the embedding pass to a table. self must be the pass value
// handlers will receive.
func (b *Base) Init(t *Table, self Pass) {
	b.table = t
	b.self = self
}

// Table returns the table the pass dispatches through.
func (b *Base) Table() *Table { return b.table }

// Walk dispatches n through the table with the embedding pass.
func (b *Base) Walk(n *formula.Node) (any, error) {
	return b.table.Dispatch(b.self, n)
}
