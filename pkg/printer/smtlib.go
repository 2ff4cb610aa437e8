package printer

import (
	"bytes"
	"math/big"
	"strings"

	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/leapstack-labs/leapsmt/pkg/formula"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
	"github.com/leapstack-labs/leapsmt/pkg/walker"
)

// SMTLIBClass is the pass class of the SMT-LIB printer.
const SMTLIBClass walker.PassClass = "smtlib-printer"

// SMTLIBPrinter renders formulas as SMT-LIB v2 terms, e.g. "(and a (not b))".
type SMTLIBPrinter struct {
	writer
}

// NewSMTLIB creates a printer over t, installing the built-in notation on
// first use of the table.
func NewSMTLIB(t *walker.Table) *SMTLIBPrinter {
	p := &SMTLIBPrinter{writer: writer{output: &bytes.Buffer{}}}
	p.Init(t, p)
	t.InstallDefaults(SMTLIBClass, smtlibDefaults())
	return p
}

// Class implements walker.Pass.
func (*SMTLIBPrinter) Class() walker.PassClass { return SMTLIBClass }

// Print renders n.
func (p *SMTLIBPrinter) Print(n *formula.Node) (string, error) {
	return p.print(n)
}

func smtlibDefaults() map[operator.Type]walker.Handler {
	return map[operator.Type]walker.Handler{
		operator.SYMBOL:        smtSymbol,
		operator.BOOL_CONSTANT: smtBool,
		operator.INT_CONSTANT:  smtInt,
		operator.REAL_CONSTANT: smtReal,
		operator.AND:           Apply("and"),
		operator.OR:            Apply("or"),
		operator.NOT:           Apply("not"),
		operator.IMPLIES:       Apply("=>"),
		operator.IFF:           Apply("="),
		operator.EQUALS:        Apply("="),
		operator.LE:            Apply("<="),
		operator.LT:            Apply("<"),
		operator.PLUS:          Apply("+"),
		operator.MINUS:         Apply("-"),
		operator.TIMES:         Apply("*"),
		operator.ITE:           Apply("ite"),
		operator.SELECT:        Apply("select"),
		operator.STORE:         Apply("store"),
	}
}

// Apply returns a handler printing "(name a b ...)".
func Apply(name string) walker.Handler {
	return func(p walker.Pass, n *formula.Node) (any, error) {
		w, err := printerOf(p)
		if err != nil {
			return nil, err
		}
		w.Write("(" + name + " ")
		if err := w.WalkList(n.Args(), " "); err != nil {
			return nil, err
		}
		w.Write(")")
		return nil, nil
	}
}

func smtSymbol(p walker.Pass, n *formula.Node) (any, error) {
	w, err := printerOf(p)
	if err != nil {
		return nil, err
	}
	w.Write(QuoteSymbol(n.SymbolName()))
	return nil, nil
}

func smtBool(p walker.Pass, n *formula.Node) (any, error) {
	w, err := printerOf(p)
	if err != nil {
		return nil, err
	}
	if n.IsTrue() {
		w.Write("true")
	} else {
		w.Write("false")
	}
	return nil, nil
}

func smtInt(p walker.Pass, n *formula.Node) (any, error) {
	w, err := printerOf(p)
	if err != nil {
		return nil, err
	}
	v, ok := n.IntValue()
	if !ok {
		return nil, core.NewValueError("printer", "integer constant without a value")
	}
	if v.Sign() < 0 {
		w.Writef("(- %s)", new(big.Int).Neg(v))
		return nil, nil
	}
	w.Write(v.String())
	return nil, nil
}

func smtReal(p walker.Pass, n *formula.Node) (any, error) {
	w, err := printerOf(p)
	if err != nil {
		return nil, err
	}
	v, ok := n.RealValue()
	if !ok {
		return nil, core.NewValueError("printer", "real constant without a value")
	}
	neg := v.Sign() < 0
	abs := new(big.Rat).Abs(v)
	text := abs.Num().String() + ".0"
	if !abs.IsInt() {
		text = "(/ " + abs.Num().String() + " " + abs.Denom().String() + ")"
	}
	if neg {
		text = "(- " + text + ")"
	}
	w.Write(text)
	return nil, nil
}

// QuoteSymbol returns name as an SMT-LIB symbol, wrapping it in bars when
// it is not a simple symbol.
func QuoteSymbol(name string) string {
	if name == "" {
		return "||"
	}
	simple := !strings.ContainsAny(name[:1], "0123456789")
	for _, r := range name {
		if !isSimpleSymbolRune(r) {
			simple = false
			break
		}
	}
	if simple {
		return name
	}
	return "|" + name + "|"
}

func isSimpleSymbolRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("~!@$%^&*_-+=<>.?/", r)
}
