package printer

import (
	"bytes"
	"math/big"

	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/leapstack-labs/leapsmt/pkg/formula"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
	"github.com/leapstack-labs/leapsmt/pkg/walker"
)

// HRClass is the pass class of the human-readable printer.
const HRClass walker.PassClass = "hr-printer"

// HRPrinter renders formulas in infix notation, e.g. "(a & (! b))".
// A printer is not safe for concurrent use; create one per goroutine.
type HRPrinter struct {
	writer
}

// NewHR creates a printer over t, installing the built-in notation on
// first use of the table.
func NewHR(t *walker.Table) *HRPrinter {
	p := &HRPrinter{writer: writer{output: &bytes.Buffer{}}}
	p.Init(t, p)
	t.InstallDefaults(HRClass, hrDefaults())
	return p
}

// Class implements walker.Pass.
func (*HRPrinter) Class() walker.PassClass { return HRClass }

// Print renders n.
func (p *HRPrinter) Print(n *formula.Node) (string, error) {
	return p.print(n)
}

func hrDefaults() map[operator.Type]walker.Handler {
	return map[operator.Type]walker.Handler{
		operator.SYMBOL:        hrSymbol,
		operator.BOOL_CONSTANT: hrBool,
		operator.INT_CONSTANT:  hrInt,
		operator.REAL_CONSTANT: hrReal,
		operator.AND:           Infix("&"),
		operator.OR:            Infix("|"),
		operator.NOT:           Prefix("!"),
		operator.IMPLIES:       Infix("->"),
		operator.IFF:           Infix("<->"),
		operator.EQUALS:        Infix("="),
		operator.LE:            Infix("<="),
		operator.LT:            Infix("<"),
		operator.PLUS:          Infix("+"),
		operator.MINUS:         Infix("-"),
		operator.TIMES:         Infix("*"),
		operator.ITE:           hrIte,
		operator.SELECT:        hrSelect,
		operator.STORE:         hrStore,
	}
}

// Infix returns a handler printing "(a sym b sym c)".
func Infix(sym string) walker.Handler {
	return func(p walker.Pass, n *formula.Node) (any, error) {
		w, err := printerOf(p)
		if err != nil {
			return nil, err
		}
		w.Write("(")
		if err := w.WalkList(n.Args(), " "+sym+" "); err != nil {
			return nil, err
		}
		w.Write(")")
		return nil, nil
	}
}

// Prefix returns a handler printing "(sym a)" for unary operators.
func Prefix(sym string) walker.Handler {
	return func(p walker.Pass, n *formula.Node) (any, error) {
		w, err := printerOf(p)
		if err != nil {
			return nil, err
		}
		w.Write("(" + sym + " ")
		if err := w.WalkList(n.Args(), " "); err != nil {
			return nil, err
		}
		w.Write(")")
		return nil, nil
	}
}

func hrSymbol(p walker.Pass, n *formula.Node) (any, error) {
	w, err := printerOf(p)
	if err != nil {
		return nil, err
	}
	w.Write(n.SymbolName())
	return nil, nil
}

func hrBool(p walker.Pass, n *formula.Node) (any, error) {
	w, err := printerOf(p)
	if err != nil {
		return nil, err
	}
	if n.IsTrue() {
		w.Write("True")
	} else {
		w.Write("False")
	}
	return nil, nil
}

func hrInt(p walker.Pass, n *formula.Node) (any, error) {
	w, err := printerOf(p)
	if err != nil {
		return nil, err
	}
	v, ok := n.IntValue()
	if !ok {
		return nil, core.NewValueError("printer", "integer constant without a value")
	}
	w.Write(v.String())
	return nil, nil
}

func hrReal(p walker.Pass, n *formula.Node) (any, error) {
	w, err := printerOf(p)
	if err != nil {
		return nil, err
	}
	v, ok := n.RealValue()
	if !ok {
		return nil, core.NewValueError("printer", "real constant without a value")
	}
	w.Write(realText(v))
	return nil, nil
}

// realText prints integral reals as "3.0" and others as "n/d".
func realText(v *big.Rat) string {
	if v.IsInt() {
		return v.Num().String() + ".0"
	}
	return v.RatString()
}

func hrIte(p walker.Pass, n *formula.Node) (any, error) {
	w, err := printerOf(p)
	if err != nil {
		return nil, err
	}
	w.Write("(")
	if _, err := w.Walk(n.Arg(0)); err != nil {
		return nil, err
	}
	w.Write(" ? ")
	if _, err := w.Walk(n.Arg(1)); err != nil {
		return nil, err
	}
	w.Write(" : ")
	if _, err := w.Walk(n.Arg(2)); err != nil {
		return nil, err
	}
	w.Write(")")
	return nil, nil
}

func hrSelect(p walker.Pass, n *formula.Node) (any, error) {
	w, err := printerOf(p)
	if err != nil {
		return nil, err
	}
	if _, err := w.Walk(n.Arg(0)); err != nil {
		return nil, err
	}
	w.Write("[")
	if _, err := w.Walk(n.Arg(1)); err != nil {
		return nil, err
	}
	w.Write("]")
	return nil, nil
}

func hrStore(p walker.Pass, n *formula.Node) (any, error) {
	w, err := printerOf(p)
	if err != nil {
		return nil, err
	}
	if _, err := w.Walk(n.Arg(0)); err != nil {
		return nil, err
	}
	w.Write("[")
	if _, err := w.Walk(n.Arg(1)); err != nil {
		return nil, err
	}
	w.Write(" := ")
	if _, err := w.Walk(n.Arg(2)); err != nil {
		return nil, err
	}
	w.Write("]")
	return nil, nil
}
