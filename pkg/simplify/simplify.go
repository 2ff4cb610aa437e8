// Package simplify is the simplifier pass: constant folding, unit and
// absorbing elements, and a few structural rewrites. Results are memoized
// per run. A custom operator needs a registered handler, otherwise
// Simplify fails with core.ErrNotImplemented.
package simplify

import (
	"fmt"
	"math/big"

	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/leapstack-labs/leapsmt/pkg/formula"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
	"github.com/leapstack-labs/leapsmt/pkg/walker"
)

// Class is the pass class of the simplifier.
const Class walker.PassClass = "simplifier"

// Simplifier rewrites formulas into simpler equivalent ones.
// It is not safe for concurrent use.
type Simplifier struct {
	walker.Base
	m    *formula.Manager
	memo map[*formula.Node]*formula.Node
}

// New creates a simplifier building nodes in m.
func New(t *walker.Table, m *formula.Manager) *Simplifier {
	s := &Simplifier{m: m}
	s.Init(t, s)
	InstallDefaults(t)
	return s
}

// InstallDefaults installs the built-in rules into t.
func InstallDefaults(t *walker.Table) {
	t.InstallDefaults(Class, defaults())
}

// Class implements walker.Pass.
func (*Simplifier) Class() walker.PassClass { return Class }

// Manager returns the manager results are built in.
func (s *Simplifier) Manager() *formula.Manager { return s.m }

// Simplify returns the simplified form of n.
func (s *Simplifier) Simplify(n *formula.Node) (*formula.Node, error) {
	s.memo = make(map[*formula.Node]*formula.Node)
	return s.Simp(n)
}

// Simp simplifies n within the current run. Handlers call it on children.
func (s *Simplifier) Simp(n *formula.Node) (*formula.Node, error) {
	if s.memo == nil {
		s.memo = make(map[*formula.Node]*formula.Node)
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
		return nil, fmt.Errorf("simplifier handler for %s returned %T", n.Op(), out)
	}
	s.memo[n] = r
	return r, nil
}

// SimpArgs simplifies every argument of n.
func (s *Simplifier) SimpArgs(n *formula.Node) ([]*formula.Node, error) {
	out := make([]*formula.Node, n.NumArgs())
	for i, a := range n.Args() {
		r, err := s.Simp(a)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func defaults() map[operator.Type]walker.Handler {
	return map[operator.Type]walker.Handler{
		operator.SYMBOL:        Identity,
		operator.BOOL_CONSTANT: Identity,
		operator.INT_CONSTANT:  Identity,
		operator.REAL_CONSTANT: Identity,
		operator.AND:           simpAnd,
		operator.OR:            simpOr,
		operator.NOT:           simpNot,
		operator.IMPLIES:       simpImplies,
		operator.IFF:           simpIff,
		operator.EQUALS:        simpEquals,
		operator.LE:            simpRelation,
		operator.LT:            simpRelation,
		operator.PLUS:          simpPlus,
		operator.MINUS:         simpMinus,
		operator.TIMES:         simpTimes,
		operator.ITE:           simpIte,
		operator.SELECT:        simpSelect,
		operator.STORE:         Rebuild,
	}
}

// Identity returns the node unchanged.
func Identity(_ walker.Pass, n *formula.Node) (any, error) {
	return n, nil
}

func simplifierOf(p walker.Pass, n *formula.Node) (*Simplifier, error) {
	s, ok := p.(*Simplifier)
	if !ok {
		return nil, core.NewTypeError(n.Op().String(), "simplifier rule invoked by pass %s", p.Class())
	}
	return s, nil
}

// Rebuild simplifies the arguments and recreates the node with the same
// operator and payload. Custom operators may register it to opt in.
func Rebuild(p walker.Pass, n *formula.Node) (any, error) {
	s, err := simplifierOf(p, n)
	if err != nil {
		return nil, err
	}
	args, err := s.SimpArgs(n)
	if err != nil {
		return nil, err
	}
	return s.rebuild(n, args)
}

func (s *Simplifier) rebuild(n *formula.Node, args []*formula.Node) (*formula.Node, error) {
	if sameArgs(n, args) {
		return n, nil
	}
	return s.m.CreateNode(n.Op(), args, n.Payload())
}

func sameArgs(n *formula.Node, args []*formula.Node) bool {
	if n.NumArgs() != len(args) {
		return false
	}
	for i, a := range args {
		if n.Arg(i) != a {
			return false
		}
	}
	return true
}

// ---------- Boolean connectives ----------

// connective folds And (absorbing False) or Or (absorbing True).
func (s *Simplifier) connective(n *formula.Node, absorbing bool) (*formula.Node, error) {
	args, err := s.SimpArgs(n)
	if err != nil {
		return nil, err
	}
	seen := make(map[*formula.Node]bool, len(args))
	kept := make([]*formula.Node, 0, len(args))
	for _, a := range args {
		if v, ok := a.BoolValue(); ok {
			if v == absorbing {
				return s.m.Bool(absorbing)
			}
			continue
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		kept = append(kept, a)
	}
	switch len(kept) {
	case 0:
		return s.m.Bool(!absorbing)
	case 1:
		return kept[0], nil
	}
	return s.rebuild(n, kept)
}

func simpAnd(p walker.Pass, n *formula.Node) (any, error) {
	s, err := simplifierOf(p, n)
	if err != nil {
		return nil, err
	}
	return s.connective(n, false)
}

func simpOr(p walker.Pass, n *formula.Node) (any, error) {
	s, err := simplifierOf(p, n)
	if err != nil {
		return nil, err
	}
	return s.connective(n, true)
}

func simpNot(p walker.Pass, n *formula.Node) (any, error) {
	s, err := simplifierOf(p, n)
	if err != nil {
		return nil, err
	}
	a, err := s.Simp(n.Arg(0))
	if err != nil {
		return nil, err
	}
	if v, ok := a.BoolValue(); ok {
		return s.m.Bool(!v)
	}
	if a.Op() == operator.NOT {
		return a.Arg(0), nil
	}
	if a == n.Arg(0) {
		return n, nil
	}
	return s.m.Not(a)
}

func simpImplies(p walker.Pass, n *formula.Node) (any, error) {
	s, err := simplifierOf(p, n)
	if err != nil {
		return nil, err
	}
	args, err := s.SimpArgs(n)
	if err != nil {
		return nil, err
	}
	l, r := args[0], args[1]
	switch {
	case l.IsFalse(), r.IsTrue(), l == r:
		return s.m.True()
	case l.IsTrue():
		return r, nil
	case r.IsFalse():
		return s.m.Not(l)
	}
	return s.rebuild(n, args)
}

func simpIff(p walker.Pass, n *formula.Node) (any, error) {
	s, err := simplifierOf(p, n)
	if err != nil {
		return nil, err
	}
	args, err := s.SimpArgs(n)
	if err != nil {
		return nil, err
	}
	l, r := args[0], args[1]
	switch {
	case l == r:
		return s.m.True()
	case l.IsTrue():
		return r, nil
	case r.IsTrue():
		return l, nil
	case l.IsFalse():
		return s.negate(r)
	case r.IsFalse():
		return s.negate(l)
	}
	return s.rebuild(n, args)
}

func (s *Simplifier) negate(a *formula.Node) (*formula.Node, error) {
	if a.Op() == operator.NOT {
		return a.Arg(0), nil
	}
	return s.m.Not(a)
}

func simpIte(p walker.Pass, n *formula.Node) (any, error) {
	s, err := simplifierOf(p, n)
	if err != nil {
		return nil, err
	}
	args, err := s.SimpArgs(n)
	if err != nil {
		return nil, err
	}
	switch {
	case args[0].IsTrue():
		return args[1], nil
	case args[0].IsFalse():
		return args[2], nil
	case args[1] == args[2]:
		return args[1], nil
	}
	return s.rebuild(n, args)
}

// ---------- Theory ----------

// numeric returns the value of an Int or Real constant as a rational.
func numeric(n *formula.Node) (*big.Rat, bool) {
	if v, ok := n.IntValue(); ok {
		return new(big.Rat).SetInt(v), true
	}
	return n.RealValue()
}

// constant builds a constant of sort like from v.
func (s *Simplifier) constant(like *formula.Node, v *big.Rat) (*formula.Node, error) {
	if like.Sort().IsInt() {
		return s.m.IntBig(new(big.Int).Set(v.Num()))
	}
	return s.m.RealRat(v)
}

func simpEquals(p walker.Pass, n *formula.Node) (any, error) {
	s, err := simplifierOf(p, n)
	if err != nil {
		return nil, err
	}
	args, err := s.SimpArgs(n)
	if err != nil {
		return nil, err
	}
	l, r := args[0], args[1]
	if l == r {
		return s.m.True()
	}
	if l.IsConstant() && r.IsConstant() {
		// Constants are canonical, so distinct nodes hold distinct values.
		return s.m.False()
	}
	return s.rebuild(n, args)
}

func simpRelation(p walker.Pass, n *formula.Node) (any, error) {
	s, err := simplifierOf(p, n)
	if err != nil {
		return nil, err
	}
	args, err := s.SimpArgs(n)
	if err != nil {
		return nil, err
	}
	strict := n.Op() == operator.LT
	l, r := args[0], args[1]
	if l == r {
		return s.m.Bool(!strict)
	}
	lv, lok := numeric(l)
	rv, rok := numeric(r)
	if lok && rok {
		c := lv.Cmp(rv)
		if strict {
			return s.m.Bool(c < 0)
		}
		return s.m.Bool(c <= 0)
	}
	return s.rebuild(n, args)
}

// fold combines the constant arguments of a sum or product with op and
// keeps the rest. unit is dropped; absorbing, if non-nil, wins.
func (s *Simplifier) fold(n *formula.Node, unit int64, absorbing *big.Rat,
	op func(acc, v *big.Rat) *big.Rat,
) (*formula.Node, error) {
	args, err := s.SimpArgs(n)
	if err != nil {
		return nil, err
	}
	acc := big.NewRat(unit, 1)
	kept := make([]*formula.Node, 0, len(args))
	folded := false
	for _, a := range args {
		if v, ok := numeric(a); ok {
			acc = op(acc, v)
			folded = true
			continue
		}
		kept = append(kept, a)
	}
	if absorbing != nil && folded && acc.Cmp(absorbing) == 0 {
		return s.constant(n, acc)
	}
	if len(kept) == 0 {
		return s.constant(n, acc)
	}
	if acc.Cmp(big.NewRat(unit, 1)) != 0 {
		c, err := s.constant(n, acc)
		if err != nil {
			return nil, err
		}
		kept = append(kept, c)
	}
	if len(kept) == 1 {
		return kept[0], nil
	}
	return s.rebuild(n, kept)
}

func simpPlus(p walker.Pass, n *formula.Node) (any, error) {
	s, err := simplifierOf(p, n)
	if err != nil {
		return nil, err
	}
	return s.fold(n, 0, nil, func(acc, v *big.Rat) *big.Rat {
		return new(big.Rat).Add(acc, v)
	})
}

func simpTimes(p walker.Pass, n *formula.Node) (any, error) {
	s, err := simplifierOf(p, n)
	if err != nil {
		return nil, err
	}
	return s.fold(n, 1, new(big.Rat), func(acc, v *big.Rat) *big.Rat {
		return new(big.Rat).Mul(acc, v)
	})
}

func simpMinus(p walker.Pass, n *formula.Node) (any, error) {
	s, err := simplifierOf(p, n)
	if err != nil {
		return nil, err
	}
	args, err := s.SimpArgs(n)
	if err != nil {
		return nil, err
	}
	l, r := args[0], args[1]
	if l == r {
		return s.constant(n, new(big.Rat))
	}
	lv, lok := numeric(l)
	rv, rok := numeric(r)
	switch {
	case lok && rok:
		return s.constant(n, new(big.Rat).Sub(lv, rv))
	case rok && rv.Sign() == 0:
		return l, nil
	}
	return s.rebuild(n, args)
}

// ---------- Arrays ----------

func simpSelect(p walker.Pass, n *formula.Node) (any, error) {
	s, err := simplifierOf(p, n)
	if err != nil {
		return nil, err
	}
	args, err := s.SimpArgs(n)
	if err != nil {
		return nil, err
	}
	arr, idx := args[0], args[1]
	if arr.Op() == operator.STORE && arr.Arg(1) == idx {
		return arr.Arg(2), nil
	}
	return s.rebuild(n, args)
}
