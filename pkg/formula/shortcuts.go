package formula

import (
	"math/big"

	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
)

// Must panics if err is non-nil and returns n otherwise. Intended for tests
// and fixed formulas.
func Must(n *Node, err error) *Node {
	if err != nil {
		panic(err)
	}
	return n
}

// Bool returns the Boolean constant v.
func (m *Manager) Bool(v bool) (*Node, error) {
	return m.CreateNode(operator.BOOL_CONSTANT, nil, v)
}

// True returns the constant True.
func (m *Manager) True() (*Node, error) { return m.Bool(true) }

// False returns the constant False.
func (m *Manager) False() (*Node, error) { return m.Bool(false) }

// Int returns the integer constant v.
func (m *Manager) Int(v int64) (*Node, error) {
	return m.CreateNode(operator.INT_CONSTANT, nil, big.NewInt(v))
}

// IntBig returns the integer constant v.
func (m *Manager) IntBig(v *big.Int) (*Node, error) {
	if v == nil {
		return nil, core.NewValueError("formula.Int", "nil value")
	}
	return m.CreateNode(operator.INT_CONSTANT, nil, v)
}

// Real returns the real constant num/den.
func (m *Manager) Real(num, den int64) (*Node, error) {
	if den == 0 {
		return nil, core.NewValueError("formula.Real", "zero denominator")
	}
	return m.CreateNode(operator.REAL_CONSTANT, nil, big.NewRat(num, den))
}

// RealRat returns the real constant v.
func (m *Manager) RealRat(v *big.Rat) (*Node, error) {
	if v == nil {
		return nil, core.NewValueError("formula.Real", "nil value")
	}
	return m.CreateNode(operator.REAL_CONSTANT, nil, v)
}

// And returns the conjunction of args. No argument yields True and a single
// argument is returned unchanged.
func (m *Manager) And(args ...*Node) (*Node, error) {
	switch len(args) {
	case 0:
		return m.True()
	case 1:
		return m.unary(operator.AND, args[0])
	}
	return m.CreateNode(operator.AND, args, nil)
}

// Or returns the disjunction of args. No argument yields False and a single
// argument is returned unchanged.
func (m *Manager) Or(args ...*Node) (*Node, error) {
	switch len(args) {
	case 0:
		return m.False()
	case 1:
		return m.unary(operator.OR, args[0])
	}
	return m.CreateNode(operator.OR, args, nil)
}

// unary returns a single And/Or argument after checking it is a Boolean
// node of this manager.
func (m *Manager) unary(op operator.Type, a *Node) (*Node, error) {
	if a == nil {
		return nil, core.NewValueError("formula.CreateNode", "argument 0 of %s is nil", op)
	}
	if a.owner != m {
		return nil, core.NewValueError("formula.CreateNode", "argument 0 of %s belongs to another environment", op)
	}
	if !a.sort.IsBool() {
		return nil, core.NewTypeError(op.String(), "argument 0 has sort %s, expected Bool", a.sort)
	}
	return a, nil
}

// Not returns the negation of a.
func (m *Manager) Not(a *Node) (*Node, error) {
	return m.CreateNode(operator.NOT, []*Node{a}, nil)
}

// Implies returns a -> b.
func (m *Manager) Implies(a, b *Node) (*Node, error) {
	return m.CreateNode(operator.IMPLIES, []*Node{a, b}, nil)
}

// Iff returns a <-> b.
func (m *Manager) Iff(a, b *Node) (*Node, error) {
	return m.CreateNode(operator.IFF, []*Node{a, b}, nil)
}

// Equals returns a = b for non-Boolean terms of the same sort.
func (m *Manager) Equals(a, b *Node) (*Node, error) {
	return m.CreateNode(operator.EQUALS, []*Node{a, b}, nil)
}

// EqualsOrIff builds Iff for Boolean arguments and Equals otherwise.
func (m *Manager) EqualsOrIff(a, b *Node) (*Node, error) {
	if a != nil && a.sort != nil && a.sort.IsBool() {
		return m.Iff(a, b)
	}
	return m.Equals(a, b)
}

// Ite returns if c then a else b.
func (m *Manager) Ite(c, a, b *Node) (*Node, error) {
	return m.CreateNode(operator.ITE, []*Node{c, a, b}, nil)
}

// LE returns a <= b.
func (m *Manager) LE(a, b *Node) (*Node, error) {
	return m.CreateNode(operator.LE, []*Node{a, b}, nil)
}

// LT returns a < b.
func (m *Manager) LT(a, b *Node) (*Node, error) {
	return m.CreateNode(operator.LT, []*Node{a, b}, nil)
}

// GE returns a >= b, built as b <= a.
func (m *Manager) GE(a, b *Node) (*Node, error) { return m.LE(b, a) }

// GT returns a > b, built as b < a.
func (m *Manager) GT(a, b *Node) (*Node, error) { return m.LT(b, a) }

// Plus returns the sum of args.
func (m *Manager) Plus(args ...*Node) (*Node, error) {
	return m.CreateNode(operator.PLUS, args, nil)
}

// Minus returns a - b.
func (m *Manager) Minus(a, b *Node) (*Node, error) {
	return m.CreateNode(operator.MINUS, []*Node{a, b}, nil)
}

// Times returns the product of args.
func (m *Manager) Times(args ...*Node) (*Node, error) {
	return m.CreateNode(operator.TIMES, args, nil)
}

// Select returns a[i].
func (m *Manager) Select(a, i *Node) (*Node, error) {
	return m.CreateNode(operator.SELECT, []*Node{a, i}, nil)
}

// Store returns a[i := v].
func (m *Manager) Store(a, i, v *Node) (*Node, error) {
	return m.CreateNode(operator.STORE, []*Node{a, i, v}, nil)
}
