// Package starlark exposes an Environment to Starlark scripts: formulas and
// sorts are Starlark values, and builtins such as Symbol, And, Type and
// PartialType build them.
package starlark

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/leapsmt/pkg/formula"
	"github.com/leapstack-labs/leapsmt/pkg/sorts"
)

// ---------- Formula ----------

// Formula is a formula node seen from Starlark. Equality is node identity.
type Formula struct {
	node *formula.Node
	in   *Interpreter
}

var (
	_ starlark.Value      = (*Formula)(nil)
	_ starlark.HasAttrs   = (*Formula)(nil)
	_ starlark.HasBinary  = (*Formula)(nil)
	_ starlark.HasUnary   = (*Formula)(nil)
	_ starlark.Comparable = (*Formula)(nil)
)

// Node returns the wrapped node.
func (f *Formula) Node() *formula.Node { return f.node }

func (f *Formula) String() string        { return f.node.String() }
func (f *Formula) Type() string          { return "formula" }
func (f *Formula) Freeze()               {}
func (f *Formula) Truth() starlark.Bool  { return starlark.True }
func (f *Formula) Hash() (uint32, error) { return uint32(f.node.ID()), nil }

// CompareSameType supports == and != by node identity.
func (f *Formula) CompareSameType(op syntax.Token, y starlark.Value, _ int) (bool, error) {
	other := y.(*Formula)
	switch op {
	case syntax.EQL:
		return f.node == other.node, nil
	case syntax.NEQ:
		return f.node != other.node, nil
	}
	return false, fmt.Errorf("formulas support only == and !=")
}

func (f *Formula) Attr(name string) (starlark.Value, error) {
	n := f.node
	switch name {
	case "id":
		return starlark.MakeUint(uint(n.ID())), nil
	case "op":
		return starlark.String(n.Owner().Operators().Name(n.Op())), nil
	case "args":
		args := n.Args()
		out := make([]starlark.Value, len(args))
		for i, a := range args {
			out[i] = f.in.wrap(a)
		}
		return starlark.Tuple(out), nil
	case "sort":
		return &Sort{sort: n.Sort()}, nil
	case "is_symbol":
		return starlark.Bool(n.IsSymbol()), nil
	case "name":
		if !n.IsSymbol() {
			return starlark.None, nil
		}
		return starlark.String(n.SymbolName()), nil
	}
	return nil, nil
}

func (f *Formula) AttrNames() []string {
	return []string{"args", "id", "is_symbol", "name", "op", "sort"}
}

// Binary maps & | + - * onto And, Or, Plus, Minus and Times.
func (f *Formula) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	other, ok := y.(*Formula)
	if !ok {
		return nil, nil
	}
	l, r := f.node, other.node
	if side == starlark.Right {
		l, r = r, l
	}
	m := f.in.env.Manager()
	var (
		n   *formula.Node
		err error
	)
	switch op {
	case syntax.AMP:
		n, err = m.And(l, r)
	case syntax.PIPE:
		n, err = m.Or(l, r)
	case syntax.PLUS:
		n, err = m.Plus(l, r)
	case syntax.MINUS:
		n, err = m.Minus(l, r)
	case syntax.STAR:
		n, err = m.Times(l, r)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f.in.wrap(n), nil
}

// Unary maps ~ onto Not.
func (f *Formula) Unary(op syntax.Token) (starlark.Value, error) {
	if op != syntax.TILDE {
		return nil, nil
	}
	n, err := f.in.env.Manager().Not(f.node)
	if err != nil {
		return nil, err
	}
	return f.in.wrap(n), nil
}

// ---------- Sorts ----------

// Sort is a concrete sort seen from Starlark.
type Sort struct {
	sort *sorts.Sort
}

var (
	_ starlark.HasAttrs   = (*Sort)(nil)
	_ starlark.Comparable = (*Sort)(nil)
)

// Sort returns the wrapped sort.
func (s *Sort) Sort() *sorts.Sort { return s.sort }

func (s *Sort) String() string        { return s.sort.String() }
func (s *Sort) Type() string          { return "sort" }
func (s *Sort) Freeze()               {}
func (s *Sort) Truth() starlark.Bool  { return starlark.True }
func (s *Sort) Hash() (uint32, error) { return uint32(s.sort.ID()), nil }

func (s *Sort) CompareSameType(op syntax.Token, y starlark.Value, _ int) (bool, error) {
	other := y.(*Sort)
	switch op {
	case syntax.EQL:
		return s.sort == other.sort, nil
	case syntax.NEQ:
		return s.sort != other.sort, nil
	}
	return false, fmt.Errorf("sorts support only == and !=")
}

func (s *Sort) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(s.sort.Name()), nil
	case "args":
		args := s.sort.Args()
		out := make([]starlark.Value, len(args))
		for i, a := range args {
			out[i] = &Sort{sort: a}
		}
		return starlark.Tuple(out), nil
	case "smtlib":
		return starlark.String(s.sort.SMTLIB()), nil
	}
	return nil, nil
}

func (s *Sort) AttrNames() []string { return []string{"args", "name", "smtlib"} }

// SortConstructor is a sort constructor with arity > 0. Calling it applies
// it to sort arguments.
type SortConstructor struct {
	ctor *sorts.Constructor
}

var _ starlark.Callable = (*SortConstructor)(nil)

func (c *SortConstructor) Name() string          { return c.ctor.Name() }
func (c *SortConstructor) String() string        { return fmt.Sprintf("<sort constructor %s/%d>", c.ctor.Name(), c.ctor.Arity()) }
func (c *SortConstructor) Type() string          { return "sort_constructor" }
func (c *SortConstructor) Freeze()               {}
func (c *SortConstructor) Truth() starlark.Bool  { return starlark.True }
func (c *SortConstructor) Hash() (uint32, error) { return starlark.String(c.ctor.Name()).Hash() }

func (c *SortConstructor) CallInternal(_ *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", c.ctor.Name())
	}
	in, err := sortArgs(c.ctor.Name(), args)
	if err != nil {
		return nil, err
	}
	s, err := c.ctor.Apply(in...)
	if err != nil {
		return nil, err
	}
	return &Sort{sort: s}, nil
}

// SortTemplate is a partial sort template. Calling it instantiates it.
type SortTemplate struct {
	tmpl *sorts.Template
}

var _ starlark.Callable = (*SortTemplate)(nil)

func (t *SortTemplate) Name() string          { return t.tmpl.Name() }
func (t *SortTemplate) String() string        { return fmt.Sprintf("<sort template %s/%d>", t.tmpl.Name(), t.tmpl.Arity()) }
func (t *SortTemplate) Type() string          { return "sort_template" }
func (t *SortTemplate) Freeze()               {}
func (t *SortTemplate) Truth() starlark.Bool  { return starlark.True }
func (t *SortTemplate) Hash() (uint32, error) { return starlark.String(t.tmpl.Name()).Hash() }

func (t *SortTemplate) CallInternal(_ *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", t.tmpl.Name())
	}
	in, err := sortArgs(t.tmpl.Name(), args)
	if err != nil {
		return nil, err
	}
	s, err := t.tmpl.Instantiate(in...)
	if err != nil {
		return nil, err
	}
	return &Sort{sort: s}, nil
}

// sortType resolves a Starlark value to a sorts.Type, keeping templates and
// constructors so that the caller reports the proper value error.
func sortType(v starlark.Value) (sorts.Type, error) {
	switch s := v.(type) {
	case *Sort:
		return s.sort, nil
	case *SortConstructor:
		return s.ctor, nil
	case *SortTemplate:
		return s.tmpl, nil
	}
	return nil, fmt.Errorf("expected a sort, got %s", v.Type())
}

func sortArgs(name string, args starlark.Tuple) ([]*sorts.Sort, error) {
	out := make([]*sorts.Sort, len(args))
	for i, a := range args {
		t, err := sortType(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", name, i, err)
		}
		s, err := sorts.Concrete(t)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// ---------- Conversion ----------

// ToGo converts a Starlark value back to a Go value for machine output.
// Formulas and sorts become their text form.
func ToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(val), nil
	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			return v.String(), nil
		}
		return i64, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.Bool:
		return bool(val), nil
	case *Formula, *Sort, *SortConstructor, *SortTemplate:
		return v.String(), nil
	case *starlark.List:
		return indexableToGo(val)
	case starlark.Tuple:
		return indexableToGo(val)
	case *starlark.Dict:
		result := make(map[string]any)
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %T", item[0])
			}
			gv, err := ToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			result[string(key)] = gv
		}
		return result, nil
	case *starlarkstruct.Struct:
		d := make(starlark.StringDict)
		val.ToStringDict(d)
		return GlobalsToGo(d)
	}
	return v.String(), nil
}

func indexableToGo(v starlark.Indexable) ([]any, error) {
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		gv, err := ToGo(v.Index(i))
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = gv
	}
	return out, nil
}

// GlobalsToGo converts the globals of an executed script, skipping
// functions and builtins.
func GlobalsToGo(globals starlark.StringDict) (map[string]any, error) {
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]any, len(names))
	for _, name := range names {
		v := globals[name]
		switch v.(type) {
		case *starlark.Function, *starlark.Builtin:
			continue
		}
		gv, err := ToGo(v)
		if err != nil {
			return nil, fmt.Errorf("global %q: %w", name, err)
		}
		out[name] = gv
	}
	return out, nil
}
