// Package core defines the error taxonomy shared by every leapsmt package.
//
// Three failure kinds exist:
//   - ValueError: a malformed request (wrong arity, template used as a sort,
//     conflicting declaration, taken operator id, foreign node)
//   - TypeError: a sort mismatch or an operator with no type rule
//   - NotImplementedError: a pass with no handler for an operator
//
// Each concrete error matches its sentinel (ErrValue, ErrType,
// ErrNotImplemented) through errors.Is, also when wrapped.
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
