package commands

import (
	"github.com/spf13/cobra"
)

// SortInfo describes one sort constructor for listing.
type SortInfo struct {
	Name  string `json:"name" yaml:"name"`
	Arity int    `json:"arity" yaml:"arity"`
}

// NewSortsCommand creates the sorts command.
func NewSortsCommand() *cobra.Command {
	var preload string

	cmd := &cobra.Command{
		Use:   "sorts",
		Short: "List declared sort constructors",
		Long: `List the sort constructors of a fresh environment: the built-in Bool, Int,
Real and Array, the sorts predeclared in leapsmt.yaml, and those declared by
a preloaded script.`,
		Example: `  leapsmt sorts
  leapsmt sorts --load sets.star -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			e, err := cc.NewEnvironment(preload)
			if err != nil {
				return err
			}

			ctors := e.Sorts().Constructors()
			infos := make([]SortInfo, len(ctors))
			for i, c := range ctors {
				infos[i] = SortInfo{Name: c.Name(), Arity: c.Arity()}
			}

			r := cc.Renderer
			if r.Structured() {
				return r.Encode(infos)
			}
			rows := make([][]any, len(infos))
			for i, s := range infos {
				rows[i] = []any{s.Name, s.Arity}
			}
			r.Header("Sorts")
			r.Table([]string{"Name", "Arity"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&preload, "load", "", "Starlark script to run before listing")
	return cmd
}
