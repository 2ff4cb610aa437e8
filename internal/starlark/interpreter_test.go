package starlark

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/leapsmt/internal/testutil"
	"github.com/leapstack-labs/leapsmt/pkg/core"
	"github.com/leapstack-labs/leapsmt/pkg/env"
)

func newInterpreter(t *testing.T, opts ...Option) *Interpreter {
	t.Helper()
	e := env.New(env.WithLogger(testutil.NewTestLogger(t)))
	return New(e, opts...)
}

func exec(t *testing.T, in *Interpreter, src string) starlark.StringDict {
	t.Helper()
	globals, err := in.ExecFile("test.star", src)
	require.NoError(t, err)
	return globals
}

func str(t *testing.T, v starlark.Value) string {
	t.Helper()
	s, ok := starlark.AsString(v)
	require.True(t, ok, "expected string, got %s", v.Type())
	return s
}

func TestFormulaBuiltins(t *testing.T) {
	in := newInterpreter(t)
	g := exec(t, in, `
a = Symbol("a")
b = Symbol("b")
x = Symbol("x", INT)
y = Symbol("y", INT)
conj = a & b
disj = Or([a, b, a])
neg = ~a
rel = LE(x + Int(1), y)
gt = GT(x, y)
arith = Times(x, y) - Int(3)
cond = Ite(a, x, y)
real = Real(1, 2)
whole = Real(3)
empty_and = And()
empty_or = Or()
same = (a & b) == conj
`)
	tests := map[string]string{
		"conj":      "(a & b)",
		"disj":      "(a | b | a)",
		"neg":       "(! a)",
		"rel":       "((x + 1) <= y)",
		"gt":        "(y < x)",
		"arith":     "((x * y) - 3)",
		"cond":      "(a ? x : y)",
		"real":      "1/2",
		"whole":     "3.0",
		"empty_and": "True",
		"empty_or":  "False",
	}
	for name, want := range tests {
		assert.Equal(t, want, g[name].String(), name)
	}
	assert.Equal(t, starlark.True, g["same"])
}

func TestFormulaAttributes(t *testing.T) {
	in := newInterpreter(t)
	g := exec(t, in, `
x = Symbol("x", INT)
f = x + Int(2)
op = f.op
n = len(f.args)
first = f.args[0] == x
name = x.name
anon = f.name
sort = f.sort.name
is_sym = x.is_symbol
`)
	assert.Equal(t, "PLUS", str(t, g["op"]))
	assert.Equal(t, "2", g["n"].String())
	assert.Equal(t, starlark.True, g["first"])
	assert.Equal(t, "x", str(t, g["name"]))
	assert.Equal(t, starlark.None, g["anon"])
	assert.Equal(t, "Int", str(t, g["sort"]))
	assert.Equal(t, starlark.True, g["is_sym"])
}

func TestSortsInScripts(t *testing.T) {
	in := newInterpreter(t)
	g := exec(t, in, `
Set = PartialType("Set", lambda t: ArrayType(t, BOOL))
same = Set(INT) == ArrayType(INT, BOOL)

s1 = FreshSymbol(Set(INT))
a = FreshSymbol(INT)
f1 = EqualsOrIff(Select(s1, a), TRUE())

A = Type("A")
B = Type("B")
A2 = Type("A")
ok = EqualsOrIff(FreshSymbol(A), FreshSymbol(A2))

C = Type("C", 1)
def pty(s):
    for _ in range(5):
        s = C(s)
    return s
Pty = PartialType("pty", pty)
nested = Pty(A) == C(C(C(C(C(A)))))
smt = C(A).smtlib
`)
	assert.Equal(t, starlark.True, g["same"])
	assert.Equal(t, "(FV1[FV2] <-> True)", g["f1"].String())
	assert.Equal(t, starlark.True, g["nested"])
	assert.Equal(t, "(C A)", str(t, g["smt"]))
}

func TestCustomOperatorInScripts(t *testing.T) {
	in := newInterpreter(t)
	g := exec(t, in, `
XOR = new_node_type("XOR")
register_type_rule(XOR, "bool_to_bool")
register_notation(XOR, infix="*+*", smtlib="xor")
register_rebuild(XOR)

x = Symbol("x")
y = Symbol("y")
f = create_node(XOR, [x, And(y, TRUE())])
hr = serialize(f)
smt = smtlib(f)
simp = serialize(simplify(f))
sub = serialize(substitute(f, {y: x}))
ty = get_type(f).name
`)
	assert.Equal(t, "(x *+* (y & True))", str(t, g["hr"]))
	assert.Equal(t, "(xor x (and y true))", str(t, g["smt"]))
	assert.Equal(t, "(x *+* y)", str(t, g["simp"]))
	assert.Equal(t, "(x *+* (x & True))", str(t, g["sub"]))
	assert.Equal(t, "Bool", str(t, g["ty"]))
}

func TestScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"ill sorted", `And(Symbol("x", INT), Symbol("b"))`, core.ErrType},
		{"distinct sorts", `EqualsOrIff(FreshSymbol(Type("A")), FreshSymbol(Type("B")))`, core.ErrType},
		{"constructor as sort", `FreshSymbol(Type("FakeArray", 2))`, core.ErrValue},
		{"template as sort", `FreshSymbol(PartialType("Set", lambda t: ArrayType(t, BOOL)))`, core.ErrValue},
		{"arity conflict", "Type(\"A\")\nType(\"A\", 1)", core.ErrValue},
		{"missing type rule", `create_node(new_node_type("MAJ"), [TRUE()])`, core.ErrType},
		{"missing printer", "op = new_node_type()\nregister_type_rule(op, \"bool_to_bool\")\nsmtlib(create_node(op, [TRUE()]))", core.ErrNotImplemented},
		{"taken operator id", "op = new_node_type()\nnew_node_type(id = op)", core.ErrValue},
		{"reserved operator id", `new_node_type(id = 3)`, core.ErrValue},
		{"equality rule with one operand", "EQ = new_node_type(\"EQ\")\nregister_type_rule(EQ, \"equality\")\ncreate_node(EQ, [Symbol(\"x\", INT)])", core.ErrValue},
		{"ite rule with two operands", "SEL = new_node_type(\"SEL\")\nregister_type_rule(SEL, \"ite\")\ncreate_node(SEL, [TRUE(), Symbol(\"x\", INT)])", core.ErrValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newInterpreter(t)
			_, err := in.ExecFile("bad.star", tt.src)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var se *ScriptError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "bad.star", se.File)
		})
	}
}

func TestUnknownTypeRule(t *testing.T) {
	in := newInterpreter(t)
	_, err := in.ExecFile("bad.star", `register_type_rule(new_node_type(), "no_such_rule")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown rule")
}

func TestEvalKeepsGlobals(t *testing.T) {
	var out bytes.Buffer
	in := newInterpreter(t, WithOutput(&out))

	v, err := in.Eval(`x = Symbol("x", INT)`)
	require.NoError(t, err)
	assert.Equal(t, starlark.None, v)

	v, err = in.Eval(`x + x`)
	require.NoError(t, err)
	assert.Equal(t, "(x + x)", v.String())

	_, err = in.Eval(`print(smtlib(x + Int(-1)))`)
	require.NoError(t, err)
	assert.Equal(t, "(+ x (- 1))\n", out.String())

	user := in.UserGlobals()
	assert.Contains(t, user, "x")
	assert.NotContains(t, user, "Symbol")

	_, err = in.Eval(`undefined_name`)
	assert.Error(t, err)
}

func TestGlobalsToGo(t *testing.T) {
	in := newInterpreter(t)
	g := exec(t, in, `
x = Symbol("x", INT)
f = LT(x, Int(10))
n = 3
names = ["a", "b"]
meta = {"sort": INT, "ok": True}
r = range(3)
def helper():
    pass
`)
	got, err := GlobalsToGo(g)
	require.NoError(t, err)
	assert.Equal(t, "(x < 10)", got["f"])
	assert.Equal(t, int64(3), got["n"])
	assert.Equal(t, []any{"a", "b"}, got["names"])
	assert.Equal(t, map[string]any{"sort": "Int", "ok": true}, got["meta"])
	assert.Equal(t, "range(3)", got["r"], "other values fall back to their text form")
	assert.NotContains(t, got, "helper")
}
