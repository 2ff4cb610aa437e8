// Package sorts provides the sort (type) system for formulas: base sorts,
// sort constructors with a fixed arity, canonical applied sorts and partial
// sort templates.
//
// Sorts are canonical inside a Registry: two sorts built from the same
// constructor and the same argument sorts are the same *Sort, so sort
// equality is pointer equality.
package sorts

import "strings"

// Type is anything a caller may hand over where a sort is expected:
// a concrete *Sort, a *Constructor or a *Template. Only a *Sort (or an
// arity-0 constructor) is usable as the sort of a term; see Concrete.
type Type interface {
	String() string
	isType()
}

// Sort is a canonical sort. Base sorts have no arguments.
type Sort struct {
	id   int
	ctor *Constructor
	args []*Sort
}

func (*Sort) isType() {}

// ID returns the registry-unique id of the sort.
func (s *Sort) ID() int { return s.id }

// Name returns the constructor name.
func (s *Sort) Name() string { return s.ctor.name }

// Constructor returns the constructor the sort was built from.
func (s *Sort) Constructor() *Constructor { return s.ctor }

// Arity returns the number of argument sorts.
func (s *Sort) Arity() int { return len(s.args) }

// Args returns a copy of the argument sorts.
func (s *Sort) Args() []*Sort {
	out := make([]*Sort, len(s.args))
	copy(out, s.args)
	return out
}

// Arg returns the i-th argument sort.
func (s *Sort) Arg(i int) *Sort { return s.args[i] }

// Registry returns the registry owning the sort.
func (s *Sort) Registry() *Registry { return s.ctor.reg }

// IsBool reports whether s is the registry's Bool sort.
func (s *Sort) IsBool() bool { return s == s.ctor.reg.boolSort }

// IsInt reports whether s is the registry's Int sort.
func (s *Sort) IsInt() bool { return s == s.ctor.reg.intSort }

// IsReal reports whether s is the registry's Real sort.
func (s *Sort) IsReal() bool { return s == s.ctor.reg.realSort }

// IsArray reports whether s was built from the Array constructor.
func (s *Sort) IsArray() bool { return s.ctor == s.ctor.reg.array }

// IsNumeric reports whether s is Int or Real.
func (s *Sort) IsNumeric() bool { return s.IsInt() || s.IsReal() }

// String renders the sort as Name or Name(A, B).
func (s *Sort) String() string {
	if len(s.args) == 0 {
		return s.ctor.name
	}
	var sb strings.Builder
	s.write(&sb)
	return sb.String()
}

func (s *Sort) write(sb *strings.Builder) {
	sb.WriteString(s.ctor.name)
	if len(s.args) == 0 {
		return
	}
	sb.WriteByte('(')
	for i, a := range s.args {
		if i > 0 {
			sb.WriteString(", ")
		}
		a.write(sb)
	}
	sb.WriteByte(')')
}

// SMTLIB renders the sort in SMT-LIB notation: Name or (Name A B).
func (s *Sort) SMTLIB() string {
	var sb strings.Builder
	s.writeSMTLIB(&sb)
	return sb.String()
}

func (s *Sort) writeSMTLIB(sb *strings.Builder) {
	if len(s.args) == 0 {
		sb.WriteString(s.ctor.name)
		return
	}
	sb.WriteByte('(')
	sb.WriteString(s.ctor.name)
	for _, a := range s.args {
		sb.WriteByte(' ')
		a.writeSMTLIB(sb)
	}
	sb.WriteByte(')')
}

// Constructor is a named sort constructor with a fixed arity.
// An arity-0 constructor doubles as a base sort.
type Constructor struct {
	name  string
	arity int
	reg   *Registry
}

func (*Constructor) isType() {}

// Name returns the constructor name.
func (c *Constructor) Name() string { return c.name }

// Arity returns the number of sort arguments the constructor takes.
func (c *Constructor) Arity() int { return c.arity }

// Apply applies the constructor to args. See Registry.Apply.
func (c *Constructor) Apply(args ...*Sort) (*Sort, error) {
	return c.reg.Apply(c, args...)
}

func (c *Constructor) String() string { return c.name }

// Concrete resolves t to a sort usable as the sort of a term.
// Templates and constructors that still expect arguments are rejected.
func Concrete(t Type) (*Sort, error) {
	switch v := t.(type) {
	case *Sort:
		if v == nil {
			return nil, valueErr("sorts.Concrete", "nil sort")
		}
		return v, nil
	case *Constructor:
		if v == nil {
			return nil, valueErr("sorts.Concrete", "nil constructor")
		}
		if v.arity != 0 {
			return nil, valueErr("sorts.Concrete",
				"constructor %s expects %d sort arguments and cannot be used as a sort", v.name, v.arity)
		}
		return v.reg.Apply(v)
	case *Template:
		if v == nil {
			return nil, valueErr("sorts.Concrete", "nil template")
		}
		return nil, valueErr("sorts.Concrete",
			"template %s must be instantiated with %d sorts before use", v.name, v.arity)
	default:
		return nil, valueErr("sorts.Concrete", "unsupported sort value %v", t)
	}
}
