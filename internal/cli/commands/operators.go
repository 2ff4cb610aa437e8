package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapsmt/pkg/env"
	"github.com/leapstack-labs/leapsmt/pkg/operator"
)

// OperatorInfo describes one operator for listing.
type OperatorInfo struct {
	ID       int      `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Category string   `json:"category" yaml:"category"`
	Passes   []string `json:"passes" yaml:"passes"`
}

// NewOperatorsCommand creates the operators command.
func NewOperatorsCommand() *cobra.Command {
	var preload string
	var customOnly bool

	cmd := &cobra.Command{
		Use:   "operators",
		Short: "List operators and the passes that handle them",
		Long: `List the built-in operators, plus any custom operators created by a
preloaded script, with the pass classes that have a handler for each.`,
		Example: `  # List built-in operators
  leapsmt operators

  # Include the custom operators a script declares
  leapsmt operators --load xor.star --custom

  # Machine-readable output
  leapsmt operators -o yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			e, err := cc.NewEnvironment(preload)
			if err != nil {
				return err
			}
			ops := collectOperators(e, customOnly)

			r := cc.Renderer
			if r.Structured() {
				return r.Encode(ops)
			}
			titleCaser := cases.Title(language.English)
			rows := make([][]any, 0, len(ops))
			for _, op := range ops {
				rows = append(rows, []any{op.ID, op.Name, titleCaser.String(op.Category), strings.Join(op.Passes, ", ")})
			}
			r.Header("Operators")
			r.Table([]string{"ID", "Name", "Category", "Passes"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&preload, "load", "", "Starlark script to run before listing")
	cmd.Flags().BoolVar(&customOnly, "custom", false, "List only custom operators")
	return cmd
}

func collectOperators(e *env.Environment, customOnly bool) []OperatorInfo {
	var types []operator.Type
	if !customOnly {
		types = append(types, operator.Builtins()...)
	}
	types = append(types, e.Operators().CustomTypes()...)

	classes := e.Walkers().Classes()
	out := make([]OperatorInfo, 0, len(types))
	for _, t := range types {
		info := OperatorInfo{
			ID:       int(t),
			Name:     e.Operators().Name(t),
			Category: t.Category().String(),
			Passes:   []string{},
		}
		for _, class := range classes {
			if e.Walkers().Has(class, t) {
				info.Passes = append(info.Passes, string(class))
			}
		}
		out = append(out, info)
	}
	return out
}
