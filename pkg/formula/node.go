// Package formula builds and owns formula nodes.
//
// A Manager hash-conses nodes: there is at most one node per structural
// shape (operator, argument identities, payload), so node equality is
// pointer equality. Nodes are immutable once returned.
package formula

import (
	"fmt"
	"math/big"

	"github.com/leapstack-labs/leapsmt/pkg/operator"
	"github.com/leapstack-labs/leapsmt/pkg/sorts"
)

// NodeID is the handle of a node inside its Manager. Zero is never a valid id.
type NodeID uint32

// NoNodeID is the zero sentinel.
const NoNodeID NodeID = 0

// IsValid returns true if the id is non-zero.
func (id NodeID) IsValid() bool { return id != NoNodeID }

// Symbol is the payload of a SYMBOL node.
type Symbol struct {
	Name string
	Sort *sorts.Sort
}

// Node is a canonical formula node.
type Node struct {
	id      NodeID
	op      operator.Type
	args    []*Node
	payload any
	sort    *sorts.Sort
	owner   *Manager
}

// ID returns the node handle.
func (n *Node) ID() NodeID { return n.id }

// Op returns the operator of the node.
func (n *Node) Op() operator.Type { return n.op }

// Args returns a copy of the argument nodes.
func (n *Node) Args() []*Node {
	out := make([]*Node, len(n.args))
	copy(out, n.args)
	return out
}

// Arg returns the i-th argument.
func (n *Node) Arg(i int) *Node { return n.args[i] }

// NumArgs returns the number of arguments.
func (n *Node) NumArgs() int { return len(n.args) }

// Payload returns the node payload (Symbol, bool, *big.Int, *big.Rat or a
// caller-defined value). The returned value must not be modified.
func (n *Node) Payload() any { return n.payload }

// Sort returns the sort computed when the node was created. It is nil only
// while the node is being type checked.
func (n *Node) Sort() *sorts.Sort { return n.sort }

// Owner returns the manager that interned the node.
func (n *Node) Owner() *Manager { return n.owner }

// IsSymbol reports whether n is a SYMBOL node.
func (n *Node) IsSymbol() bool { return n.op == operator.SYMBOL }

// SymbolName returns the name of a symbol node, or "".
func (n *Node) SymbolName() string {
	if s, ok := n.payload.(Symbol); ok {
		return s.Name
	}
	return ""
}

// IsConstant reports whether n is a Boolean, integer or real constant.
func (n *Node) IsConstant() bool {
	switch n.op {
	case operator.BOOL_CONSTANT, operator.INT_CONSTANT, operator.REAL_CONSTANT:
		return true
	}
	return false
}

// ConstantValue returns the value of a constant node (bool, *big.Int copy
// or *big.Rat copy) and false for any other node.
func (n *Node) ConstantValue() (any, bool) {
	switch n.op {
	case operator.BOOL_CONSTANT:
		return n.BoolValue()
	case operator.INT_CONSTANT:
		return n.IntValue()
	case operator.REAL_CONSTANT:
		return n.RealValue()
	}
	return nil, false
}

// IsTrue reports whether n is the constant True.
func (n *Node) IsTrue() bool {
	b, ok := n.payload.(bool)
	return ok && n.op == operator.BOOL_CONSTANT && b
}

// IsFalse reports whether n is the constant False.
func (n *Node) IsFalse() bool {
	b, ok := n.payload.(bool)
	return ok && n.op == operator.BOOL_CONSTANT && !b
}

// BoolValue returns the value of a Boolean constant.
func (n *Node) BoolValue() (bool, bool) {
	if n.op != operator.BOOL_CONSTANT {
		return false, false
	}
	b, ok := n.payload.(bool)
	return b, ok
}

// IntValue returns a copy of the value of an integer constant.
func (n *Node) IntValue() (*big.Int, bool) {
	if n.op != operator.INT_CONSTANT {
		return nil, false
	}
	v, ok := n.payload.(*big.Int)
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(v), true
}

// RealValue returns a copy of the value of a real constant.
func (n *Node) RealValue() (*big.Rat, bool) {
	if n.op != operator.REAL_CONSTANT {
		return nil, false
	}
	v, ok := n.payload.(*big.Rat)
	if !ok {
		return nil, false
	}
	return new(big.Rat).Set(v), true
}

// String renders the node through the printer installed on its manager.
func (n *Node) String() string {
	if n.owner != nil && n.owner.renderer != nil {
		return n.owner.renderer(n)
	}
	return fmt.Sprintf("<%s #%d>", n.op, n.id)
}
