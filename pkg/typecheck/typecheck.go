// Package typecheck is the type-checker pass. It computes the sort of a
// node from the already computed sorts of its arguments; the formula
// Manager calls it once per canonical node, so results are memoized on the
// node itself.
package typecheck

import (
	"math/big"

	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/leapstack-labs/leapsmt/pkg/formula"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
	"github.com/leapstack-labs/leapsmt/pkg/sorts"
	"github.com/leapstack-labs/leapsmt/pkg/walker"
)

// Class is the pass class of the type checker.
const Class walker.PassClass = "type-checker"

// Checker computes node sorts.
type Checker struct {
	walker.Base
	sorts *sorts.Registry
}

// New creates a checker over table t, installing the built-in rules on
// first use of the table.
func New(t *walker.Table, sr *sorts.Registry) *Checker {
	c := &Checker{sorts: sr}
	c.Init(t, c)
	t.InstallDefaults(Class, Defaults())
	return c
}

// Class implements walker.Pass.
func (*Checker) Class() walker.PassClass { return Class }

// Sorts returns the sort registry results are built in.
func (c *Checker) Sorts() *sorts.Registry { return c.sorts }

// Compute runs the rule for n regardless of any cached sort.
func (c *Checker) Compute(n *formula.Node) (*sorts.Sort, error) {
	out, err := c.Walk(n)
	if err != nil {
		return nil, err
	}
	s, ok := out.(*sorts.Sort)
	if !ok || s == nil {
		return nil, core.NewTypeError(n.Op().String(), "type rule returned %T, not a sort", out)
	}
	return s, nil
}

// SortOf returns the sort of n, computing it if n is still being built.
func (c *Checker) SortOf(n *formula.Node) (*sorts.Sort, error) {
	if s := n.Sort(); s != nil {
		return s, nil
	}
	return c.Compute(n)
}

// Oracle adapts the checker to formula.WithSortOracle.
func (c *Checker) Oracle() formula.SortOracle {
	return c.Compute
}

// Defaults returns the built-in rules keyed by operator.
func Defaults() map[operator.Type]walker.Handler {
	return map[operator.Type]walker.Handler{
		operator.SYMBOL:        Symbol,
		operator.BOOL_CONSTANT: Constant,
		operator.INT_CONSTANT:  Constant,
		operator.REAL_CONSTANT: Constant,
		operator.AND:           BoolToBool,
		operator.OR:            BoolToBool,
		operator.NOT:           BoolToBool,
		operator.IMPLIES:       BoolToBool,
		operator.IFF:           BoolToBool,
		operator.EQUALS:        Equality,
		operator.LE:            MathRelation,
		operator.LT:            MathRelation,
		operator.PLUS:          Arithmetic,
		operator.MINUS:         Arithmetic,
		operator.TIMES:         Arithmetic,
		operator.ITE:           Ite,
		operator.SELECT:        Select,
		operator.STORE:         Store,
	}
}

// arity gives the fixed operand count of built-ins; missing entries are
// variadic with at least one operand.
var arity = map[operator.Type]int{
	operator.NOT:     1,
	operator.IMPLIES: 2,
	operator.IFF:     2,
	operator.EQUALS:  2,
	operator.LE:      2,
	operator.LT:      2,
	operator.MINUS:   2,
	operator.ITE:     3,
	operator.SELECT:  2,
	operator.STORE:   3,
}

// variadic marks a rule that accepts any positive number of operands.
const variadic = 0

// argSorts checks the operand count of n and returns the argument sorts.
// want is the count the rule itself needs; a built-in operator may narrow
// a variadic rule through the arity table.
func argSorts(p walker.Pass, n *formula.Node, want int) (*Checker, []*sorts.Sort, error) {
	c, ok := p.(*Checker)
	if !ok {
		return nil, nil, core.NewTypeError(n.Op().String(), "type rule invoked by pass %s", p.Class())
	}
	name := c.opName(n)
	if want == variadic {
		if fixed, ok := arity[n.Op()]; ok {
			want = fixed
		}
	}
	if want != variadic && n.NumArgs() != want {
		return nil, nil, core.NewValueError(name, "expected %d arguments, got %d", want, n.NumArgs())
	}
	if n.NumArgs() == 0 {
		return nil, nil, core.NewValueError(name, "expected at least one argument")
	}
	out := make([]*sorts.Sort, n.NumArgs())
	for i, a := range n.Args() {
		s, err := c.SortOf(a)
		if err != nil {
			return nil, nil, err
		}
		out[i] = s
	}
	return c, out, nil
}

func (c *Checker) opName(n *formula.Node) string {
	if m := n.Owner(); m != nil {
		return m.Operators().Name(n.Op())
	}
	return n.Op().String()
}

// Symbol returns the declared sort of a symbol.
func Symbol(_ walker.Pass, n *formula.Node) (any, error) {
	sym, ok := n.Payload().(formula.Symbol)
	if !ok || sym.Sort == nil {
		return nil, core.NewTypeError("SYMBOL", "symbol without a sort")
	}
	return sym.Sort, nil
}

// Constant returns Bool, Int or Real for the three constant operators.
func Constant(p walker.Pass, n *formula.Node) (any, error) {
	c, ok := p.(*Checker)
	if !ok {
		return nil, core.NewTypeError(n.Op().String(), "type rule invoked by pass %s", p.Class())
	}
	switch n.Payload().(type) {
	case bool:
		return c.sorts.Bool(), nil
	case *big.Int:
		return c.sorts.Int(), nil
	case *big.Rat:
		return c.sorts.Real(), nil
	}
	return nil, core.NewTypeError(c.opName(n), "unsupported constant payload %T", n.Payload())
}

// BoolToBool requires Boolean arguments and yields Bool. It serves every
// Boolean connective and any custom operator registered with it.
func BoolToBool(p walker.Pass, n *formula.Node) (any, error) {
	c, args, err := argSorts(p, n, variadic)
	if err != nil {
		return nil, err
	}
	for i, s := range args {
		if !s.IsBool() {
			return nil, core.NewTypeError(c.opName(n), "argument %d has sort %s, expected Bool", i, s)
		}
	}
	return c.sorts.Bool(), nil
}

// MathRelation requires two Int or two Real arguments and yields Bool.
func MathRelation(p walker.Pass, n *formula.Node) (any, error) {
	c, args, err := argSorts(p, n, 2)
	if err != nil {
		return nil, err
	}
	if err := c.sameNumeric(n, args); err != nil {
		return nil, err
	}
	return c.sorts.Bool(), nil
}

// Arithmetic requires all arguments Int or all Real and yields that sort.
func Arithmetic(p walker.Pass, n *formula.Node) (any, error) {
	c, args, err := argSorts(p, n, variadic)
	if err != nil {
		return nil, err
	}
	if err := c.sameNumeric(n, args); err != nil {
		return nil, err
	}
	return args[0], nil
}

func (c *Checker) sameNumeric(n *formula.Node, args []*sorts.Sort) error {
	if !args[0].IsNumeric() {
		return core.NewTypeError(c.opName(n), "argument 0 has sort %s, expected Int or Real", args[0])
	}
	for i, s := range args[1:] {
		if s != args[0] {
			return core.NewTypeError(c.opName(n), "argument %d has sort %s, expected %s", i+1, s, args[0])
		}
	}
	return nil
}

// Equality requires two arguments of the same non-Bool sort and yields
// Bool. Boolean terms are compared with Iff.
func Equality(p walker.Pass, n *formula.Node) (any, error) {
	c, args, err := argSorts(p, n, 2)
	if err != nil {
		return nil, err
	}
	if args[0].IsBool() {
		return nil, core.NewTypeError(c.opName(n), "equality is not defined on Bool terms, use Iff")
	}
	if args[0] != args[1] {
		return nil, core.NewTypeError(c.opName(n), "cannot equate %s and %s", args[0], args[1])
	}
	return c.sorts.Bool(), nil
}

// Ite requires a Bool condition and branches of one sort.
func Ite(p walker.Pass, n *formula.Node) (any, error) {
	c, args, err := argSorts(p, n, 3)
	if err != nil {
		return nil, err
	}
	if !args[0].IsBool() {
		return nil, core.NewTypeError(c.opName(n), "condition has sort %s, expected Bool", args[0])
	}
	if args[1] != args[2] {
		return nil, core.NewTypeError(c.opName(n), "branches have sorts %s and %s", args[1], args[2])
	}
	return args[1], nil
}

// Select requires an array and an index of its index sort; it yields the
// element sort.
func Select(p walker.Pass, n *formula.Node) (any, error) {
	c, args, err := argSorts(p, n, 2)
	if err != nil {
		return nil, err
	}
	if !args[0].IsArray() {
		return nil, core.NewTypeError(c.opName(n), "argument 0 has sort %s, expected an array", args[0])
	}
	if args[1] != args[0].Arg(0) {
		return nil, core.NewTypeError(c.opName(n), "index has sort %s, expected %s", args[1], args[0].Arg(0))
	}
	return args[0].Arg(1), nil
}

// Store requires an array, an index and a value matching its sorts; it
// yields the array sort.
func Store(p walker.Pass, n *formula.Node) (any, error) {
	c, args, err := argSorts(p, n, 3)
	if err != nil {
		return nil, err
	}
	if !args[0].IsArray() {
		return nil, core.NewTypeError(c.opName(n), "argument 0 has sort %s, expected an array", args[0])
	}
	if args[1] != args[0].Arg(0) {
		return nil, core.NewTypeError(c.opName(n), "index has sort %s, expected %s", args[1], args[0].Arg(0))
	}
	if args[2] != args[0].Arg(1) {
		return nil, core.NewTypeError(c.opName(n), "value has sort %s, expected %s", args[2], args[0].Arg(1))
	}
	return args[0], nil
}
