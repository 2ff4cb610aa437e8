package typecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/leapstack-labs/leapsmt/pkg/formula"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
	"github.com/leapstack-labs/leapsmt/pkg/sorts"
	"github.com/leapstack-labs/leapsmt/pkg/walker"
)

type fixture struct {
	sr    *sorts.Registry
	ops   *operator.Registry
	table *walker.Table
	c     *Checker
	m     *formula.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sr := sorts.NewRegistry()
	ops := operator.NewRegistry()
	table := walker.NewTable(ops.Name)
	c := New(table, sr)
	m := formula.NewManager(sr, ops, formula.WithSortOracle(c.Oracle()))
	return &fixture{sr: sr, ops: ops, table: table, c: c, m: m}
}

func (f *fixture) sym(t *testing.T, name string, s *sorts.Sort) *formula.Node {
	t.Helper()
	n, err := f.m.Symbol(name, s)
	require.NoError(t, err)
	return n
}

func TestWellSorted(t *testing.T) {
	f := newFixture(t)
	arr := formula.Must(f.m.Symbol("arr", mustSort(f.sr.ArrayOf(f.sr.Int(), f.sr.Bool()))))
	p := f.sym(t, "p", f.sr.Bool())
	i := f.sym(t, "i", f.sr.Int())
	j := f.sym(t, "j", f.sr.Int())
	r := f.sym(t, "r", f.sr.Real())

	tests := []struct {
		name  string
		build func() (*formula.Node, error)
		want  *sorts.Sort
	}{
		{"and", func() (*formula.Node, error) { return f.m.And(p, p) }, f.sr.Bool()},
		{"implies", func() (*formula.Node, error) { return f.m.Implies(p, p) }, f.sr.Bool()},
		{"le int", func() (*formula.Node, error) { return f.m.LE(i, j) }, f.sr.Bool()},
		{"lt real", func() (*formula.Node, error) { return f.m.LT(r, formula.Must(f.m.Real(1, 2))) }, f.sr.Bool()},
		{"plus int", func() (*formula.Node, error) { return f.m.Plus(i, j, formula.Must(f.m.Int(3))) }, f.sr.Int()},
		{"times real", func() (*formula.Node, error) { return f.m.Times(r, r) }, f.sr.Real()},
		{"equals", func() (*formula.Node, error) { return f.m.Equals(i, j) }, f.sr.Bool()},
		{"ite", func() (*formula.Node, error) { return f.m.Ite(p, i, j) }, f.sr.Int()},
		{"select", func() (*formula.Node, error) { return f.m.Select(arr, i) }, f.sr.Bool()},
		{"store", func() (*formula.Node, error) { return f.m.Store(arr, i, p) }, arr.Sort()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := tt.build()
			require.NoError(t, err)
			assert.Same(t, tt.want, n.Sort())

			s, err := f.c.SortOf(n)
			require.NoError(t, err)
			assert.Same(t, tt.want, s)
		})
	}
}

func TestIllSorted(t *testing.T) {
	f := newFixture(t)
	arr := formula.Must(f.m.Symbol("arr", mustSort(f.sr.ArrayOf(f.sr.Int(), f.sr.Bool()))))
	p := f.sym(t, "p", f.sr.Bool())
	i := f.sym(t, "i", f.sr.Int())
	r := f.sym(t, "r", f.sr.Real())

	tests := []struct {
		name  string
		build func() (*formula.Node, error)
		want  error
	}{
		{"and over int", func() (*formula.Node, error) { return f.m.And(p, i) }, core.ErrType},
		{"mixed relation", func() (*formula.Node, error) { return f.m.LE(i, r) }, core.ErrType},
		{"bool relation", func() (*formula.Node, error) { return f.m.LT(p, p) }, core.ErrType},
		{"mixed arithmetic", func() (*formula.Node, error) { return f.m.Plus(i, r) }, core.ErrType},
		{"bool equality", func() (*formula.Node, error) { return f.m.Equals(p, p) }, core.ErrType},
		{"equality across sorts", func() (*formula.Node, error) { return f.m.Equals(i, r) }, core.ErrType},
		{"ite condition", func() (*formula.Node, error) { return f.m.Ite(i, p, p) }, core.ErrType},
		{"ite branches", func() (*formula.Node, error) { return f.m.Ite(p, i, r) }, core.ErrType},
		{"select non array", func() (*formula.Node, error) { return f.m.Select(i, i) }, core.ErrType},
		{"select index", func() (*formula.Node, error) { return f.m.Select(arr, r) }, core.ErrType},
		{"store value", func() (*formula.Node, error) { return f.m.Store(arr, i, i) }, core.ErrType},
		{"not arity", func() (*formula.Node, error) { return f.m.CreateNode(operator.NOT, []*formula.Node{p, p}, nil) }, core.ErrValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.m.Size()
			_, err := tt.build()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, f.m.Size())
		})
	}
}

func TestUninterpretedSorts(t *testing.T) {
	f := newFixture(t)
	a, err := f.sr.Declare("A", 0)
	require.NoError(t, err)
	b, err := f.sr.Declare("B", 0)
	require.NoError(t, err)
	c, err := f.sr.Declare("C", 1)
	require.NoError(t, err)

	c1 := formula.Must(f.m.FreshSymbol(a))
	c2 := formula.Must(f.m.FreshSymbol(a))
	c4 := formula.Must(f.m.FreshSymbol(b))

	_, err = f.m.EqualsOrIff(c1, c2)
	assert.NoError(t, err)
	_, err = f.m.EqualsOrIff(c1, c4)
	assert.ErrorIs(t, err, core.ErrType)

	ca := mustSort(c.Apply(mustSort(a.Apply())))
	cb := mustSort(c.Apply(mustSort(b.Apply())))
	c5 := formula.Must(f.m.FreshSymbol(ca))
	c6 := formula.Must(f.m.FreshSymbol(cb))
	_, err = f.m.EqualsOrIff(c5, c6)
	assert.ErrorIs(t, err, core.ErrType)
}

func TestCustomOperatorReusesCategory(t *testing.T) {
	f := newFixture(t)
	p := f.sym(t, "p", f.sr.Bool())
	i := f.sym(t, "i", f.sr.Int())
	xor := f.ops.New("XOR")

	_, err := f.m.CreateNode(xor, []*formula.Node{p, p}, nil)
	require.ErrorIs(t, err, core.ErrType)

	f.table.Register(xor, Class, BoolToBool)
	n, err := f.m.CreateNode(xor, []*formula.Node{p, p}, nil)
	require.NoError(t, err)
	assert.Same(t, f.sr.Bool(), n.Sort())

	_, err = f.m.CreateNode(xor, []*formula.Node{p, i}, nil)
	var te *core.TypeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "XOR", te.Op)
}

func TestCustomOperatorOperandCount(t *testing.T) {
	f := newFixture(t)
	i := f.sym(t, "i", f.sr.Int())
	p := f.sym(t, "p", f.sr.Bool())
	arr := f.sym(t, "a", mustSort(f.sr.ArrayOf(f.sr.Int(), f.sr.Int())))

	tests := []struct {
		name string
		rule walker.Handler
		args []*formula.Node
	}{
		{name: "equality with one operand", rule: Equality, args: []*formula.Node{i}},
		{name: "equality with three operands", rule: Equality, args: []*formula.Node{i, i, i}},
		{name: "relation with one operand", rule: MathRelation, args: []*formula.Node{i}},
		{name: "ite with two operands", rule: Ite, args: []*formula.Node{p, i}},
		{name: "ite with one operand", rule: Ite, args: []*formula.Node{p}},
		{name: "select with one operand", rule: Select, args: []*formula.Node{arr}},
		{name: "store with two operands", rule: Store, args: []*formula.Node{arr, i}},
		{name: "boolean rule with no operands", rule: BoolToBool, args: nil},
		{name: "arithmetic with no operands", rule: Arithmetic, args: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := f.ops.New("OP_" + tt.name)
			f.table.Register(op, Class, tt.rule)
			var n *formula.Node
			var err error
			require.NotPanics(t, func() {
				n, err = f.m.CreateNode(op, tt.args, nil)
			})
			assert.Nil(t, n)
			assert.ErrorIs(t, err, core.ErrValue)
		})
	}
}

func TestRuleInvokedByOtherPass(t *testing.T) {
	f := newFixture(t)
	p := f.sym(t, "p", f.sr.Bool())
	_, err := BoolToBool(otherPass{}, formula.Must(f.m.Not(p)))
	assert.ErrorIs(t, err, core.ErrType)
}

type otherPass struct{}

func (otherPass) Class() walker.PassClass { return "other" }

func mustSort(s *sorts.Sort, err error) *sorts.Sort {
	if err != nil {
		panic(err)
	}
	return s
}
