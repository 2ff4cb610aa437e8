package substitute

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

func setup(t *testing.T) (*formula.Manager, *walker.Table, *Substituter) {
	t.Helper()
	sr := sorts.NewRegistry()
	ops := operator.NewRegistry()
	table := walker.NewTable(ops.Name)
	tc := typecheck.New(table, sr)
	m := formula.NewManager(sr, ops, formula.WithSortOracle(tc.Oracle()))
	return m, table, New(table, m)
}

func TestSubstitute(t *testing.T) {
	m, _, s := setup(t)
	sr := m.Sorts()
	must := formula.Must

	x := must(m.Symbol("x", sr.Int()))
	y := must(m.Symbol("y", sr.Int()))
	p := must(m.Symbol("p", sr.Bool()))
	sum := must(m.Plus(x, must(m.Int(1))))
	f := must(m.And(p, must(m.LE(sum, y))))

	got, err := s.Substitute(f, map[*formula.Node]*formula.Node{x: y})
	require.NoError(t, err)
	want := must(m.And(p, must(m.LE(must(m.Plus(y, must(m.Int(1)))), y))))
	assert.Same(t, want, got)

	got, err = s.Substitute(f, map[*formula.Node]*formula.Node{sum: y})
	require.NoError(t, err)
	assert.Same(t, must(m.And(p, must(m.LE(y, y)))), got)

	got, err = s.Substitute(f, nil)
	require.NoError(t, err)
	assert.Same(t, f, got)
}

func TestSubstituteErrors(t *testing.T) {
	m, _, s := setup(t)
	sr := m.Sorts()
	x := formula.Must(m.Symbol("x", sr.Int()))
	p := formula.Must(m.Symbol("p", sr.Bool()))

	_, err := s.Substitute(x, map[*formula.Node]*formula.Node{x: p})
	assert.ErrorIs(t, err, core.ErrType)

	other, _, _ := setup(t)
	z := formula.Must(other.Symbol("z", other.Sorts().Int()))
	_, err = s.Substitute(x, map[*formula.Node]*formula.Node{x: z})
	assert.ErrorIs(t, err, core.ErrValue)
}

func TestSubstituteCustomOperator(t *testing.T) {
	m, table, s := setup(t)
	sr := m.Sorts()
	a := formula.Must(m.Symbol("a", sr.Bool()))
	b := formula.Must(m.Symbol("b", sr.Bool()))
	xor := m.Operators().New("XOR")
	table.Register(xor, typecheck.Class, typecheck.BoolToBool)
	node := formula.Must(m.CreateNode(xor, []*formula.Node{a, a}, nil))

	_, err := s.Substitute(node, map[*formula.Node]*formula.Node{a: b})
	require.ErrorIs(t, err, core.ErrNotImplemented)

	table.Register(xor, Class, Rebuild)
	got, err := s.Substitute(node, map[*formula.Node]*formula.Node{a: b})
	require.NoError(t, err)
	assert.Same(t, formula.Must(m.CreateNode(xor, []*formula.Node{b, b}, nil)), got)
}
