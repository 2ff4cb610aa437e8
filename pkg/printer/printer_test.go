package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/leapstack-labs/leapsmt/pkg/formula"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
	"github.com/leapstack-labs/leapsmt/pkg/sorts"
	"github.com/leapstack-labs/leapsmt/pkg/typecheck"
	"github.com/leapstack-labs/leapsmt/pkg/walker"
)

type fixture struct {
	sr    *sorts.Registry
	ops   *operator.Registry
	table *walker.Table
	m     *formula.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sr := sorts.NewRegistry()
	ops := operator.NewRegistry()
	table := walker.NewTable(ops.Name)
	tc := typecheck.New(table, sr)
	return &fixture{
		sr:    sr,
		ops:   ops,
		table: table,
		m:     formula.NewManager(sr, ops, formula.WithSortOracle(tc.Oracle())),
	}
}

func TestPrinters(t *testing.T) {
	f := newFixture(t)
	m := f.m
	arrSort, err := f.sr.ArrayOf(f.sr.Int(), f.sr.Int())
	require.NoError(t, err)

	a := formula.Must(m.Symbol("a", f.sr.Bool()))
	b := formula.Must(m.Symbol("b", f.sr.Bool()))
	x := formula.Must(m.Symbol("x", f.sr.Int()))
	y := formula.Must(m.Symbol("y", f.sr.Int()))
	r := formula.Must(m.Symbol("r", f.sr.Real()))
	arr := formula.Must(m.Symbol("arr", arrSort))

	tests := []struct {
		name   string
		node   *formula.Node
		hr     string
		smtlib string
	}{
		{"true", formula.Must(m.True()), "True", "true"},
		{"false", formula.Must(m.False()), "False", "false"},
		{"int", formula.Must(m.Int(42)), "42", "42"},
		{"negative int", formula.Must(m.Int(-5)), "-5", "(- 5)"},
		{"real", formula.Must(m.Real(1, 2)), "1/2", "(/ 1 2)"},
		{"integral real", formula.Must(m.Real(3, 1)), "3.0", "3.0"},
		{"negative real", formula.Must(m.Real(-1, 2)), "-1/2", "(- (/ 1 2))"},
		{"and", formula.Must(m.And(a, b)), "(a & b)", "(and a b)"},
		{"or", formula.Must(m.Or(a, b, a)), "(a | b | a)", "(or a b a)"},
		{"not", formula.Must(m.Not(a)), "(! a)", "(not a)"},
		{"implies", formula.Must(m.Implies(a, b)), "(a -> b)", "(=> a b)"},
		{"iff", formula.Must(m.Iff(a, b)), "(a <-> b)", "(= a b)"},
		{"equals", formula.Must(m.Equals(x, y)), "(x = y)", "(= x y)"},
		{"le", formula.Must(m.LE(x, y)), "(x <= y)", "(<= x y)"},
		{"lt", formula.Must(m.LT(x, y)), "(x < y)", "(< x y)"},
		{"gt", formula.Must(m.GT(x, y)), "(y < x)", "(< y x)"},
		{"plus", formula.Must(m.Plus(x, y)), "(x + y)", "(+ x y)"},
		{"minus", formula.Must(m.Minus(x, y)), "(x - y)", "(- x y)"},
		{"times", formula.Must(m.Times(r, r)), "(r * r)", "(* r r)"},
		{"ite", formula.Must(m.Ite(a, x, y)), "(a ? x : y)", "(ite a x y)"},
		{"select", formula.Must(m.Select(arr, x)), "arr[x]", "(select arr x)"},
		{"store", formula.Must(m.Store(arr, x, y)), "arr[x := y]", "(store arr x y)"},
		{"nested", formula.Must(m.And(a, formula.Must(m.Not(b)))), "(a & (! b))", "(and a (not b))"},
	}

	hr := NewHR(f.table)
	smt := NewSMTLIB(f.table)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hr.Print(tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.hr, got)

			got, err = smt.Print(tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.smtlib, got)
		})
	}
}

func TestCustomNotation(t *testing.T) {
	f := newFixture(t)
	x := formula.Must(f.m.Symbol("x", f.sr.Bool()))
	xor := f.ops.New("XOR")
	f.table.Register(xor, typecheck.Class, typecheck.BoolToBool)
	node := formula.Must(f.m.CreateNode(xor, []*formula.Node{x, x}, nil))

	hr := NewHR(f.table)
	_, err := hr.Print(node)
	require.ErrorIs(t, err, core.ErrNotImplemented)

	f.table.Register(xor, HRClass, func(p walker.Pass, n *formula.Node) (any, error) {
		pr := p.(*HRPrinter)
		pr.Write("(")
		if _, err := pr.Walk(n.Arg(0)); err != nil {
			return nil, err
		}
		pr.Write(" *+* ")
		if _, err := pr.Walk(n.Arg(1)); err != nil {
			return nil, err
		}
		pr.Write(")")
		return nil, nil
	})
	got, err := hr.Print(node)
	require.NoError(t, err)
	assert.Equal(t, "(x *+* x)", got)

	smt := NewSMTLIB(f.table)
	_, err = smt.Print(node)
	require.ErrorIs(t, err, core.ErrNotImplemented)

	f.table.Register(xor, SMTLIBClass, Apply("xor"))
	got, err = smt.Print(node)
	require.NoError(t, err)
	assert.Equal(t, "(xor x x)", got)
}

func TestQuoteSymbol(t *testing.T) {
	tests := map[string]string{
		"x":       "x",
		"FV1":     "FV1",
		"a-b":     "a-b",
		"1x":      "|1x|",
		"has sp":  "|has sp|",
		"":        "||",
		"x.y@z_1": "x.y@z_1",
	}
	for in, want := range tests {
		assert.Equal(t, want, QuoteSymbol(in), in)
	}
}

func TestHandlerRejectsForeignPass(t *testing.T) {
	f := newFixture(t)
	x := formula.Must(f.m.Symbol("x", f.sr.Bool()))
	_, err := hrSymbol(typecheck.New(f.table, f.sr), x)
	assert.Error(t, err)
}
