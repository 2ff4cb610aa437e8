package env

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsmt/internal/testutil"
	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/leapstack-labs/leapsmt/pkg/formula"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
	"github.com/leapstack-labs/leapsmt/pkg/printer"
	"github.com/leapstack-labs/leapsmt/pkg/sorts"
	"github.com/leapstack-labs/leapsmt/pkg/typecheck"
	"github.com/leapstack-labs/leapsmt/pkg/walker"
)

func newTestEnv(t *testing.T) *Environment {
	t.Helper()
	return New(WithLogger(testutil.NewTestLogger(t)))
}

func TestNewNodeType(t *testing.T) {
	e := newTestEnv(t)
	assert.Empty(t, e.CustomNodeTypes(), "no custom operators at start")

	idx := e.NewNodeType("")
	assert.False(t, idx.IsReserved())

	_, err := e.NewNodeTypeWithID(idx, "")
	assert.ErrorIs(t, err, core.ErrValue)

	n, err := e.NewNodeTypeWithID(idx+100, "")
	require.NoError(t, err)
	assert.Equal(t, idx+100, n)
	assert.Len(t, e.CustomNodeTypes(), 2)
}

func TestDynamicWalkerFunction(t *testing.T) {
	e := newTestEnv(t)
	m := e.Manager()

	xor := e.NewNodeType("XOR")
	require.NoError(t, e.AddDynamicWalkerFunction(xor, typecheck.Class, typecheck.BoolToBool))
	require.NoError(t, e.AddDynamicWalkerFunction(xor, printer.HRClass, func(p walker.Pass, n *formula.Node) (any, error) {
		pr := p.(*printer.HRPrinter)
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
	}))

	x, err := m.Symbol("x", e.Sorts().Bool())
	require.NoError(t, err)
	f1, err := m.CreateNode(xor, []*formula.Node{x, x}, nil)
	require.NoError(t, err)
	require.NotNil(t, f1)

	assert.Equal(t, "(x *+* x)", f1.String())
	s, err := e.Serialize(f1)
	require.NoError(t, err)
	assert.Equal(t, "(x *+* x)", s)

	_, err = e.Simplify(f1)
	assert.ErrorIs(t, err, core.ErrNotImplemented)

	_, err = e.SMTLIB(f1)
	assert.ErrorIs(t, err, core.ErrNotImplemented)
}

func TestAddDynamicWalkerFunctionErrors(t *testing.T) {
	e := newTestEnv(t)
	err := e.AddDynamicWalkerFunction(operator.Type(4242), typecheck.Class, typecheck.BoolToBool)
	assert.ErrorIs(t, err, core.ErrValue)

	xor := e.NewNodeType("XOR")
	err = e.AddDynamicWalkerFunction(xor, typecheck.Class, nil)
	assert.ErrorIs(t, err, core.ErrValue)
}

func TestCustomOperatorWithoutTypeRule(t *testing.T) {
	e := newTestEnv(t)
	x := formula.Must(e.Manager().Symbol("x", e.Sorts().Bool()))
	op := e.NewNodeType("MAJ")

	_, err := e.Manager().CreateNode(op, []*formula.Node{x, x, x}, nil)
	assert.ErrorIs(t, err, core.ErrType)
	assert.Equal(t, 1, e.Manager().Size())
}

func TestFakeArrays(t *testing.T) {
	e := newTestEnv(t)
	m := e.Manager()

	fake, err := e.DeclareSort("FakeArray", 2)
	require.NoError(t, err)
	_, err = m.FreshSymbol(fake)
	assert.ErrorIs(t, err, core.ErrValue)

	fii, err := fake.Apply(e.Sorts().Int(), e.Sorts().Int())
	require.NoError(t, err)
	assert.Equal(t, "FakeArray(Int, Int)", fii.String())
	assert.Equal(t, "(FakeArray Int Int)", fii.SMTLIB())

	s, err := m.FreshSymbol(fii)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestSimpleSorts(t *testing.T) {
	e := newTestEnv(t)
	m := e.Manager()
	sr := e.Sorts()

	set, err := e.DefineSort("Set", 1, func(args ...*sorts.Sort) (*sorts.Sort, error) {
		return sr.ArrayOf(args[0], sr.Bool())
	})
	require.NoError(t, err)

	setI, err := set.Instantiate(sr.Int())
	require.NoError(t, err)
	arrIB, err := sr.ArrayOf(sr.Int(), sr.Bool())
	require.NoError(t, err)
	assert.Same(t, arrIB, setI)

	s1 := formula.Must(m.FreshSymbol(setI))
	a := formula.Must(m.FreshSymbol(sr.Int()))
	b := formula.Must(m.FreshSymbol(sr.Int()))

	f1, err := m.EqualsOrIff(formula.Must(m.Select(s1, a)), formula.Must(m.True()))
	require.NoError(t, err)
	f2, err := m.EqualsOrIff(formula.Must(m.Select(s1, b)), formula.Must(m.False()))
	require.NoError(t, err)
	assert.Equal(t, "(FV1[FV2] <-> True)", f1.String())
	assert.NotNil(t, f2)

	_, err = m.FreshSymbol(set)
	assert.ErrorIs(t, err, core.ErrValue)

	sortA, err := e.DeclareSort("A", 0)
	require.NoError(t, err)
	sortB, err := e.DeclareSort("B", 0)
	require.NoError(t, err)
	sortA2, err := e.DeclareSort("A", 0)
	require.NoError(t, err)

	c1 := formula.Must(m.FreshSymbol(sortA))
	c2 := formula.Must(m.FreshSymbol(sortA))
	c3 := formula.Must(m.FreshSymbol(sortA2))
	c4 := formula.Must(m.FreshSymbol(sortB))
	_, err = m.EqualsOrIff(c1, c2)
	assert.NoError(t, err)
	_, err = m.EqualsOrIff(c2, c3)
	assert.NoError(t, err)
	_, err = m.EqualsOrIff(c1, c4)
	assert.ErrorIs(t, err, core.ErrType)

	_, err = e.DeclareSort("A", 1)
	assert.ErrorIs(t, err, core.ErrValue)

	c, err := e.DeclareSort("C", 1)
	require.NoError(t, err)
	ca := mustSort(t)(c.Apply(mustSort(t)(sortA.Apply())))
	cb := mustSort(t)(c.Apply(mustSort(t)(sortB.Apply())))
	c5 := formula.Must(m.FreshSymbol(ca))
	c6 := formula.Must(m.FreshSymbol(cb))
	_, err = m.EqualsOrIff(c5, c6)
	assert.ErrorIs(t, err, core.ErrType)

	ty := mustSort(t)(sortA.Apply())
	for i := 0; i < 5; i++ {
		ty = mustSort(t)(c.Apply(ty))
	}
	_, err = m.FreshSymbol(ty)
	require.NoError(t, err)

	pty, err := e.DefineSort("pty", 1, func(args ...*sorts.Sort) (*sorts.Sort, error) {
		s := args[0]
		for i := 0; i < 5; i++ {
			var err error
			if s, err = c.Apply(s); err != nil {
				return nil, err
			}
		}
		return s, nil
	})
	require.NoError(t, err)
	got, err := pty.Instantiate(mustSort(t)(sortA.Apply()))
	require.NoError(t, err)
	assert.Same(t, ty, got)
}

func TestCrossEnvironment(t *testing.T) {
	e1 := newTestEnv(t)
	e2 := newTestEnv(t)
	assert.NotEqual(t, e1.ID(), e2.ID())

	x := formula.Must(e1.Manager().Symbol("x", e1.Sorts().Bool()))
	y := formula.Must(e2.Manager().Symbol("y", e2.Sorts().Bool()))

	_, err := e1.Manager().And(x, y)
	assert.ErrorIs(t, err, core.ErrValue)

	_, err = e2.Manager().Symbol("z", e1.Sorts().Int())
	assert.ErrorIs(t, err, core.ErrValue)

	_, err = e2.Serialize(x)
	assert.ErrorIs(t, err, core.ErrValue)
	_, err = e2.TypeOf(x)
	assert.ErrorIs(t, err, core.ErrValue)
}

func TestPasses(t *testing.T) {
	e := newTestEnv(t)
	m := e.Manager()
	sr := e.Sorts()

	x := formula.Must(m.Symbol("x", sr.Int()))
	y := formula.Must(m.Symbol("y", sr.Int()))
	f := formula.Must(m.LE(formula.Must(m.Plus(x, formula.Must(m.Int(0)))), y))

	s, err := e.TypeOf(f)
	require.NoError(t, err)
	assert.Same(t, sr.Bool(), s)

	txt, err := e.SMTLIB(f)
	require.NoError(t, err)
	assert.Equal(t, "(<= (+ x 0) y)", txt)

	simp, err := e.Simplify(f)
	require.NoError(t, err)
	assert.Equal(t, "(x <= y)", simp.String())

	sub, err := e.Substitute(f, map[*formula.Node]*formula.Node{y: x})
	require.NoError(t, err)
	assert.Equal(t, "((x + 0) <= x)", sub.String())
}

func TestDebugLogging(t *testing.T) {
	logger, capture := testutil.NewCaptureLogger()
	id := uuid.MustParse("6f1c1a4e-8d0b-4c3e-9a57-0d6f3b1e2a90")
	e := New(WithLogger(logger), WithID(id))
	assert.Equal(t, id, e.ID())

	xor := e.NewNodeType("XOR")
	require.NoError(t, e.AddDynamicWalkerFunction(xor, typecheck.Class, typecheck.BoolToBool))
	x := formula.Must(e.Manager().Symbol("x", e.Sorts().Bool()))
	_, err := e.Manager().CreateNode(xor, []*formula.Node{x, x}, nil)
	require.NoError(t, err)

	out := capture.String()
	assert.Contains(t, out, `"msg":"custom operator allocated"`)
	assert.Contains(t, out, `"msg":"walker function registered"`)
	assert.Contains(t, out, `"msg":"interned custom node"`)
	assert.Contains(t, out, id.String())
}

func TestFreshTemplateOption(t *testing.T) {
	e := New(WithFreshTemplate("tmp%d"))
	n := formula.Must(e.Manager().FreshSymbol(e.Sorts().Bool()))
	assert.Equal(t, "tmp1", n.SymbolName())
}

func TestConcurrentConstruction(t *testing.T) {
	e := newTestEnv(t)
	m := e.Manager()
	sr := e.Sorts()

	var wg sync.WaitGroup
	results := make([]*formula.Node, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x := formula.Must(m.Symbol("x", sr.Int()))
			results[i] = formula.Must(m.LT(x, formula.Must(m.Int(10))))
			_ = results[i].String()
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func mustSort(t *testing.T) func(*sorts.Sort, error) *sorts.Sort {
	return func(s *sorts.Sort, err error) *sorts.Sort {
		t.Helper()
		require.NoError(t, err)
		return s
	}
}
