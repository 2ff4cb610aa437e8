// Package printer renders formulas as text. Two passes are provided: the
// human-readable infix printer (class "hr-printer") used by Node.String,
// and an SMT-LIB printer (class "smtlib-printer").
//
// Handlers write into the printer buffer and recurse with Walk. Custom
// operators get a notation by registering a handler for their operator,
// either one of the exported builders (Infix, Prefix, Apply) or a function
// calling Write directly.
package printer

import (
	"bytes"
	"fmt"

	"github.com/leapstack-labs/leapsmt/pkg/formula"
	"github.com/leapstack-labs/leapsmt/pkg/walker"
)

// writer is the buffer shared by both printers.
type writer struct {
	walker.Base
	output *bytes.Buffer
}

// Write appends s to the output.
func (w *writer) Write(s string) {
	w.output.WriteString(s)
}

// Writef appends a formatted string to the output.
func (w *writer) Writef(format string, args ...any) {
	fmt.Fprintf(w.output, format, args...)
}

// WalkList prints args separated by sep.
func (w *writer) WalkList(args []*formula.Node, sep string) error {
	for i, a := range args {
		if i > 0 {
			w.Write(sep)
		}
		if _, err := w.Walk(a); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) print(n *formula.Node) (string, error) {
	w.output.Reset()
	if _, err := w.Walk(n); err != nil {
		return "", err
	}
	return w.output.String(), nil
}

// printerOf extracts the writer of either printer from a pass.
func printerOf(p walker.Pass) (*writer, error) {
	switch v := p.(type) {
	case *HRPrinter:
		return &v.writer, nil
	case *SMTLIBPrinter:
		return &v.writer, nil
	}
	return nil, fmt.Errorf("printer handler invoked by pass %s", p.Class())
}
