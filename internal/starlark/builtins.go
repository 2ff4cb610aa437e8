package starlark

import (
	"fmt"
	"math/big"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/leapstack-labs/leapsmt/pkg/formula"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
	"github.com/leapstack-labs/leapsmt/pkg/printer"
	"github.com/leapstack-labs/leapsmt/pkg/simplify"
	"github.com/leapstack-labs/leapsmt/pkg/sorts"
	"github.com/leapstack-labs/leapsmt/pkg/substitute"
	"github.com/leapstack-labs/leapsmt/pkg/typecheck"
	"github.com/leapstack-labs/leapsmt/pkg/walker"
)

// typeRules names the type-checker categories a custom operator may reuse.
var typeRules = map[string]walker.Handler{
	"bool_to_bool":  typecheck.BoolToBool,
	"math_relation": typecheck.MathRelation,
	"arithmetic":    typecheck.Arithmetic,
	"equality":      typecheck.Equality,
	"ite":           typecheck.Ite,
}

// Builtins returns the predeclared globals of a script.
func (in *Interpreter) Builtins() starlark.StringDict {
	sr := in.env.Sorts()
	b := func(name string, fn func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)) *starlark.Builtin {
		return starlark.NewBuiltin(name, fn)
	}
	return starlark.StringDict{
		// Sorts
		"BOOL":        &Sort{sort: sr.Bool()},
		"INT":         &Sort{sort: sr.Int()},
		"REAL":        &Sort{sort: sr.Real()},
		"Type":        b("Type", in.typeBuiltin),
		"PartialType": b("PartialType", in.partialType),
		"ArrayType":   b("ArrayType", in.arrayType),

		// Leaves
		"Symbol":      b("Symbol", in.symbol),
		"FreshSymbol": b("FreshSymbol", in.freshSymbol),
		"Bool":        b("Bool", in.boolConst),
		"TRUE":        b("TRUE", in.constant(true)),
		"FALSE":       b("FALSE", in.constant(false)),
		"Int":         b("Int", in.intConst),
		"Real":        b("Real", in.realConst),

		// Connectives and theory
		"And":         b("And", in.nary((*formula.Manager).And)),
		"Or":          b("Or", in.nary((*formula.Manager).Or)),
		"Plus":        b("Plus", in.nary((*formula.Manager).Plus)),
		"Times":       b("Times", in.nary((*formula.Manager).Times)),
		"Not":         b("Not", in.unary((*formula.Manager).Not)),
		"Implies":     b("Implies", in.binary((*formula.Manager).Implies)),
		"Iff":         b("Iff", in.binary((*formula.Manager).Iff)),
		"Equals":      b("Equals", in.binary((*formula.Manager).Equals)),
		"EqualsOrIff": b("EqualsOrIff", in.binary((*formula.Manager).EqualsOrIff)),
		"LE":          b("LE", in.binary((*formula.Manager).LE)),
		"LT":          b("LT", in.binary((*formula.Manager).LT)),
		"GE":          b("GE", in.binary((*formula.Manager).GE)),
		"GT":          b("GT", in.binary((*formula.Manager).GT)),
		"Minus":       b("Minus", in.binary((*formula.Manager).Minus)),
		"Select":      b("Select", in.binary((*formula.Manager).Select)),
		"Ite":         b("Ite", in.ternary((*formula.Manager).Ite)),
		"Store":       b("Store", in.ternary((*formula.Manager).Store)),

		// Custom operators
		"new_node_type":      b("new_node_type", in.newNodeType),
		"create_node":        b("create_node", in.createNode),
		"register_type_rule": b("register_type_rule", in.registerTypeRule),
		"register_notation":  b("register_notation", in.registerNotation),
		"register_rebuild":   b("register_rebuild", in.registerRebuild),

		// Passes
		"get_type":   b("get_type", in.getType),
		"serialize":  b("serialize", in.serialize),
		"smtlib":     b("smtlib", in.smtlib),
		"simplify":   b("simplify", in.simplify),
		"substitute": b("substitute", in.substitute),

		"env": starlarkstruct.FromStringDict(starlark.String("env"), starlark.StringDict{
			"id": starlark.String(in.env.ID().String()),
		}),
	}
}

// ---------- Sorts ----------

func (in *Interpreter) typeBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name  string
		arity = 0
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "arity?", &arity); err != nil {
		return nil, err
	}
	c, err := in.env.DeclareSort(name, arity)
	if err != nil {
		return nil, err
	}
	if arity == 0 {
		s, err := c.Apply()
		if err != nil {
			return nil, err
		}
		return &Sort{sort: s}, nil
	}
	return &SortConstructor{ctor: c}, nil
}

func (in *Interpreter) partialType(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name   string
		expand starlark.Callable
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "definition", &expand); err != nil {
		return nil, err
	}
	arity, err := callableArity(expand)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	tmpl, err := in.env.DefineSort(name, arity, func(sargs ...*sorts.Sort) (*sorts.Sort, error) {
		thread := in.newThread("template " + name)
		callArgs := make(starlark.Tuple, len(sargs))
		for i, s := range sargs {
			callArgs[i] = &Sort{sort: s}
		}
		v, err := starlark.Call(thread, expand, callArgs, nil)
		if err != nil {
			return nil, err
		}
		t, err := sortType(v)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		return sorts.Concrete(t)
	})
	if err != nil {
		return nil, err
	}
	return &SortTemplate{tmpl: tmpl}, nil
}

func callableArity(c starlark.Callable) (int, error) {
	f, ok := c.(*starlark.Function)
	if !ok {
		return 0, fmt.Errorf("definition must be a def or lambda, got %s", c.Type())
	}
	if f.HasVarargs() || f.HasKwargs() {
		return 0, fmt.Errorf("definition %s must take a fixed number of sorts", f.Name())
	}
	return f.NumParams(), nil
}

func (in *Interpreter) arrayType(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var idx, elem starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &idx, &elem); err != nil {
		return nil, err
	}
	in2, err := sortArgs(fn.Name(), starlark.Tuple{idx, elem})
	if err != nil {
		return nil, err
	}
	s, err := in.env.Sorts().ArrayOf(in2[0], in2[1])
	if err != nil {
		return nil, err
	}
	return &Sort{sort: s}, nil
}

// ---------- Leaves ----------

func (in *Interpreter) symbol(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name string
		st   starlark.Value = &Sort{sort: in.env.Sorts().Bool()}
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "sort?", &st); err != nil {
		return nil, err
	}
	t, err := sortType(st)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	n, err := in.env.Manager().Symbol(name, t)
	if err != nil {
		return nil, err
	}
	return in.wrap(n), nil
}

func (in *Interpreter) freshSymbol(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var st starlark.Value = &Sort{sort: in.env.Sorts().Bool()}
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "sort?", &st); err != nil {
		return nil, err
	}
	t, err := sortType(st)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	n, err := in.env.Manager().FreshSymbol(t)
	if err != nil {
		return nil, err
	}
	return in.wrap(n), nil
}

func (in *Interpreter) boolConst(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v bool
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	return in.result(in.env.Manager().Bool(v))
}

func (in *Interpreter) constant(v bool) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		return in.result(in.env.Manager().Bool(v))
	}
}

func (in *Interpreter) intConst(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v starlark.Int
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	return in.result(in.env.Manager().IntBig(v.BigInt()))
}

func (in *Interpreter) realConst(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var num starlark.Int
	den := starlark.MakeInt(1)
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &num, &den); err != nil {
		return nil, err
	}
	if den.Sign() == 0 {
		return nil, fmt.Errorf("%s: zero denominator", fn.Name())
	}
	return in.result(in.env.Manager().RealRat(new(big.Rat).SetFrac(num.BigInt(), den.BigInt())))
}

// ---------- Connectives ----------

func (in *Interpreter) nary(build func(*formula.Manager, ...*formula.Node) (*formula.Node, error)) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", fn.Name())
		}
		// A single list or tuple argument is spread, as in And([a, b]).
		if len(args) == 1 {
			if seq, ok := args[0].(starlark.Indexable); ok {
				if _, isFormula := args[0].(*Formula); !isFormula {
					spread := make(starlark.Tuple, seq.Len())
					for i := range spread {
						spread[i] = seq.Index(i)
					}
					args = spread
				}
			}
		}
		nodes, err := formulas(fn.Name(), args)
		if err != nil {
			return nil, err
		}
		return in.result(build(in.env.Manager(), nodes...))
	}
}

func (in *Interpreter) unary(build func(*formula.Manager, *formula.Node) (*formula.Node, error)) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var a *Formula
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &a); err != nil {
			return nil, err
		}
		return in.result(build(in.env.Manager(), a.node))
	}
}

func (in *Interpreter) binary(build func(*formula.Manager, *formula.Node, *formula.Node) (*formula.Node, error)) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var a, b *Formula
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &a, &b); err != nil {
			return nil, err
		}
		return in.result(build(in.env.Manager(), a.node, b.node))
	}
}

func (in *Interpreter) ternary(build func(*formula.Manager, *formula.Node, *formula.Node, *formula.Node) (*formula.Node, error)) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var a, b, c *Formula
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 3, &a, &b, &c); err != nil {
			return nil, err
		}
		return in.result(build(in.env.Manager(), a.node, b.node, c.node))
	}
}

func formulas(name string, args starlark.Tuple) ([]*formula.Node, error) {
	out := make([]*formula.Node, len(args))
	for i, a := range args {
		f, ok := a.(*Formula)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d is %s, not a formula", name, i, a.Type())
		}
		out[i] = f.node
	}
	return out, nil
}

func (in *Interpreter) result(n *formula.Node, err error) (starlark.Value, error) {
	if err != nil {
		return nil, err
	}
	return in.wrap(n), nil
}

// ---------- Custom operators ----------

func (in *Interpreter) newNodeType(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name string
		id   starlark.Value = starlark.None
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name?", &name, "id?", &id); err != nil {
		return nil, err
	}
	if id == starlark.None {
		return starlark.MakeInt(int(in.env.NewNodeType(name))), nil
	}
	v, err := starlark.AsInt32(id)
	if err != nil {
		return nil, fmt.Errorf("%s: id: %w", fn.Name(), err)
	}
	t, err := in.env.NewNodeTypeWithID(operator.Type(v), name)
	if err != nil {
		return nil, err
	}
	return starlark.MakeInt(int(t)), nil
}

func (in *Interpreter) createNode(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		op      int
		nodes   starlark.Indexable
		payload starlark.Value = starlark.None
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "node_type", &op, "args", &nodes, "payload?", &payload); err != nil {
		return nil, err
	}
	items := make(starlark.Tuple, nodes.Len())
	for i := range items {
		items[i] = nodes.Index(i)
	}
	ns, err := formulas(fn.Name(), items)
	if err != nil {
		return nil, err
	}
	var p any
	if payload != starlark.None {
		if p, err = ToGo(payload); err != nil {
			return nil, err
		}
	}
	return in.result(in.env.Manager().CreateNode(operator.Type(op), ns, p))
}

func (in *Interpreter) registerTypeRule(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		op   int
		rule string
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "node_type", &op, "rule", &rule); err != nil {
		return nil, err
	}
	h, ok := typeRules[rule]
	if !ok {
		return nil, fmt.Errorf("%s: unknown rule %q", fn.Name(), rule)
	}
	return starlark.None, in.env.AddDynamicWalkerFunction(operator.Type(op), typecheck.Class, h)
}

func (in *Interpreter) registerNotation(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		op           int
		infix, prefx string
		smt          string
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"node_type", &op, "infix?", &infix, "prefix?", &prefx, "smtlib?", &smt); err != nil {
		return nil, err
	}
	t := operator.Type(op)
	switch {
	case infix != "" && prefx != "":
		return nil, fmt.Errorf("%s: infix and prefix are exclusive", fn.Name())
	case infix != "":
		if err := in.env.AddDynamicWalkerFunction(t, printer.HRClass, printer.Infix(infix)); err != nil {
			return nil, err
		}
	case prefx != "":
		if err := in.env.AddDynamicWalkerFunction(t, printer.HRClass, printer.Prefix(prefx)); err != nil {
			return nil, err
		}
	}
	if smt != "" {
		if err := in.env.AddDynamicWalkerFunction(t, printer.SMTLIBClass, printer.Apply(smt)); err != nil {
			return nil, err
		}
	}
	return starlark.None, nil
}

func (in *Interpreter) registerRebuild(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var op int
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &op); err != nil {
		return nil, err
	}
	t := operator.Type(op)
	if err := in.env.AddDynamicWalkerFunction(t, simplify.Class, simplify.Rebuild); err != nil {
		return nil, err
	}
	return starlark.None, in.env.AddDynamicWalkerFunction(t, substitute.Class, substitute.Rebuild)
}

// ---------- Passes ----------

func (in *Interpreter) getType(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var f *Formula
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &f); err != nil {
		return nil, err
	}
	s, err := in.env.TypeOf(f.node)
	if err != nil {
		return nil, err
	}
	return &Sort{sort: s}, nil
}

func (in *Interpreter) serialize(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var f *Formula
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &f); err != nil {
		return nil, err
	}
	s, err := in.env.Serialize(f.node)
	if err != nil {
		return nil, err
	}
	return starlark.String(s), nil
}

func (in *Interpreter) smtlib(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var f *Formula
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &f); err != nil {
		return nil, err
	}
	s, err := in.env.SMTLIB(f.node)
	if err != nil {
		return nil, err
	}
	return starlark.String(s), nil
}

func (in *Interpreter) simplify(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var f *Formula
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &f); err != nil {
		return nil, err
	}
	return in.result(in.env.Simplify(f.node))
}

func (in *Interpreter) substitute(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		f     *Formula
		subst *starlark.Dict
	)
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &f, &subst); err != nil {
		return nil, err
	}
	m := make(map[*formula.Node]*formula.Node, subst.Len())
	for _, item := range subst.Items() {
		pair, err := formulas(fn.Name(), starlark.Tuple{item[0], item[1]})
		if err != nil {
			return nil, err
		}
		m[pair[0]] = pair[1]
	}
	return in.result(in.env.Substitute(f.node, m))
}
