package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three failure kinds. Concrete errors match them
// through errors.Is.
var (
	// ErrValue marks a malformed construction request.
	ErrValue = errors.New("value error")
	// ErrType marks a sort mismatch.
	ErrType = errors.New("type error")
	// ErrNotImplemented marks a pass that has no handler for an operator.
	ErrNotImplemented = errors.New("not implemented")
)

// ValueError reports a malformed construction request: wrong arity, a
// template used as a sort, a conflicting declaration, a duplicate operator id.
type ValueError struct {
	Op      string // operation that rejected the request, e.g. "sorts.Apply"
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("value error in %s: %s", e.Op, e.Message)
}

// Is reports whether target is ErrValue.
func (e *ValueError) Is(target error) bool {
	return target == ErrValue
}

// NewValueError builds a ValueError with a formatted message.
func NewValueError(op, format string, args ...any) *ValueError {
	return &ValueError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// TypeError reports a sort mismatch when combining nodes, or an operator
// whose sort cannot be computed.
type TypeError struct {
	Op      string // operator or operation being type checked
	Message string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error in %s: %s", e.Op, e.Message)
}

// Is reports whether target is ErrType.
func (e *TypeError) Is(target error) bool {
	return target == ErrType
}

// NewTypeError builds a TypeError with a formatted message.
func NewTypeError(op, format string, args ...any) *TypeError {
	return &TypeError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotImplementedError is returned when a pass is asked to handle an
// operator it has no handler for. Callers probe for it with
// errors.Is(err, ErrNotImplemented) to tell "no rule" apart from bad input.
type NotImplementedError struct {
	Pass     string // pass class
	Operator string // operator name
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s: no handler registered for operator %s", e.Pass, e.Operator)
}

// Is reports whether target is ErrNotImplemented.
func (e *NotImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}
