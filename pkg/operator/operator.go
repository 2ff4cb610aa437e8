// Package operator defines the node types (operators) of formulas.
//
// Built-in operators are constants (ids 0-999) so passes can switch on
// them. Custom operators are allocated at run time through a Registry and
// live above maxBuiltin.
package operator

import "fmt"

// Type identifies the kind of a formula node.
type Type int32

//nolint:revive // ALL_CAPS names follow the operator naming used in solver APIs
const (
	// Leaves
	SYMBOL Type = iota
	BOOL_CONSTANT
	INT_CONSTANT
	REAL_CONSTANT

	// Boolean connectives
	AND
	OR
	NOT
	IMPLIES
	IFF

	// Theory relations and terms
	EQUALS
	ITE
	LE
	LT
	PLUS
	MINUS
	TIMES

	// Arrays
	SELECT
	STORE

	// Sentinel - custom operators start after this
	maxBuiltin Type = 999
)

// Category groups built-in operators that share a sort signature.
type Category int

// Operator categories.
const (
	CategoryCustom Category = iota
	CategorySymbol
	CategoryConstant
	CategoryBoolean
	CategoryRelation
	CategoryArithmetic
	CategoryArray
)

func (c Category) String() string {
	switch c {
	case CategorySymbol:
		return "symbol"
	case CategoryConstant:
		return "constant"
	case CategoryBoolean:
		return "boolean"
	case CategoryRelation:
		return "relation"
	case CategoryArithmetic:
		return "arithmetic"
	case CategoryArray:
		return "array"
	default:
		return "custom"
	}
}

type builtinInfo struct {
	name     string
	category Category
}

var builtins = map[Type]builtinInfo{
	SYMBOL:        {"SYMBOL", CategorySymbol},
	BOOL_CONSTANT: {"BOOL_CONSTANT", CategoryConstant},
	INT_CONSTANT:  {"INT_CONSTANT", CategoryConstant},
	REAL_CONSTANT: {"REAL_CONSTANT", CategoryConstant},
	AND:           {"AND", CategoryBoolean},
	OR:            {"OR", CategoryBoolean},
	NOT:           {"NOT", CategoryBoolean},
	IMPLIES:       {"IMPLIES", CategoryBoolean},
	IFF:           {"IFF", CategoryBoolean},
	EQUALS:        {"EQUALS", CategoryRelation},
	ITE:           {"ITE", CategoryRelation},
	LE:            {"LE", CategoryRelation},
	LT:            {"LT", CategoryRelation},
	PLUS:          {"PLUS", CategoryArithmetic},
	MINUS:         {"MINUS", CategoryArithmetic},
	TIMES:         {"TIMES", CategoryArithmetic},
	SELECT:        {"SELECT", CategoryArray},
	STORE:         {"STORE", CategoryArray},
}

// String returns the built-in name, or OP(n) for custom operators.
// Use Registry.Name for the registered name of a custom operator.
func (t Type) String() string {
	if info, ok := builtins[t]; ok {
		return info.name
	}
	return fmt.Sprintf("OP(%d)", t)
}

// IsBuiltin reports whether t is one of the built-in operators.
func (t Type) IsBuiltin() bool {
	_, ok := builtins[t]
	return ok
}

// IsReserved reports whether t falls in the id range reserved for built-ins.
func (t Type) IsReserved() bool {
	return t >= 0 && t <= maxBuiltin
}

// IsLeaf reports whether t is a symbol or constant operator.
func (t Type) IsLeaf() bool {
	c := t.Category()
	return c == CategorySymbol || c == CategoryConstant
}

// Category returns the built-in category, or CategoryCustom.
func (t Type) Category() Category {
	if info, ok := builtins[t]; ok {
		return info.category
	}
	return CategoryCustom
}

// Builtins returns all built-in operators in id order.
func Builtins() []Type {
	out := make([]Type, 0, len(builtins))
	for t := SYMBOL; t <= STORE; t++ {
		if _, ok := builtins[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
