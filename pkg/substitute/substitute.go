// Package substitute is the substituter pass. It replaces nodes according
// to a mapping and rebuilds every ancestor through the manager, so results
// are canonical and re-type-checked.
package substitute

import (
	"fmt"

	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/leapstack-labs/leapsmt/pkg/formula"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
	"github.com/leapstack-labs/leapsmt/pkg/walker"
)

// Class is the pass class of the substituter.
const Class walker.PassClass = "substituter"

// Substituter applies a node mapping. It is not safe for concurrent use.
type Substituter struct {
	walker.Base
	m     *formula.Manager
	subst map[*formula.Node]*formula.Node
	memo  map[*formula.Node]*formula.Node
}

// New creates a substituter building nodes in m.
func New(t *walker.Table, m *formula.Manager) *Substituter {
	s := &Substituter{m: m}
	s.Init(t, s)
	InstallDefaults(t)
	return s
}

// InstallDefaults registers Rebuild for every built-in operator in t.
func InstallDefaults(t *walker.Table) {
	handlers := make(map[operator.Type]walker.Handler)
	for _, op := range operator.Builtins() {
		handlers[op] = Rebuild
	}
	t.InstallDefaults(Class, handlers)
}

// Class implements walker.Pass.
func (*Substituter) Class() walker.PassClass { return Class }

// Substitute replaces every occurrence of a key of subst in n by its value.
// Keys and values must be nodes of the same manager and sort.
func (s *Substituter) Substitute(n *formula.Node, subst map[*formula.Node]*formula.Node) (*formula.Node, error) {
	for from, to := range subst {
		if from == nil || to == nil {
			return nil, core.NewValueError("substitute", "nil node in substitution")
		}
		if from.Owner() != s.m || to.Owner() != s.m {
			return nil, core.NewValueError("substitute", "substitution mixes environments")
		}
		if from.Sort() != to.Sort() {
			return nil, core.NewTypeError("substitute",
				"cannot replace a term of sort %s by one of sort %s", from.Sort(), to.Sort())
		}
	}
	s.subst = subst
	s.memo = make(map[*formula.Node]*formula.Node)
	return s.Apply(n)
}

// Apply returns the substituted form of n within the current run.
func (s *Substituter) Apply(n *formula.Node) (*formula.Node, error) {
	if to, ok := s.subst[n]; ok {
		return to, nil
	}
	if r, ok := s.memo[n]; ok {
		return r, nil
	}
	out, err := s.Walk(n)
	if err != nil {
		return nil, err
	}
	r, ok := out.(*formula.Node)
	if !ok || r == nil {
		return nil, fmt.Errorf("substituter handler for %s returned %T", n.Op(), out)
	}
	s.memo[n] = r
	return r, nil
}

// Rebuild substitutes inside the arguments of n and recreates it with the
// same operator and payload. Custom operators register it to opt in.
func Rebuild(p walker.Pass, n *formula.Node) (any, error) {
	s, ok := p.(*Substituter)
	if !ok {
		return nil, fmt.Errorf("substitute.Rebuild invoked by pass %s", p.Class())
	}
	if n.NumArgs() == 0 {
		return n, nil
	}
	args := make([]*formula.Node, n.NumArgs())
	changed := false
	for i, a := range n.Args() {
		r, err := s.Apply(a)
		if err != nil {
			return nil, err
		}
		args[i] = r
		changed = changed || r != a
	}
	if !changed {
		return n, nil
	}
	return s.m.CreateNode(n.Op(), args, n.Payload())
}
