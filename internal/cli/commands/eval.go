package commands

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	script "github.com/leapstack-labs/leapsmt/internal/starlark"
)

// ScriptResult is the outcome of one evaluated script.
type ScriptResult struct {
	File    string         `json:"file" yaml:"file"`
	Output  string         `json:"output,omitempty" yaml:"output,omitempty"`
	Globals map[string]any `json:"globals,omitempty" yaml:"globals,omitempty"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand() *cobra.Command {
	var showGlobals bool

	cmd := &cobra.Command{
		Use:   "eval <file.star>...",
		Short: "Run Starlark scripts that build formulas",
		Long: `Run one or more Starlark scripts. Each script gets its own environment, so
sorts and operators declared by one script are invisible to the others.
Scripts run concurrently, at most script_workers at a time.`,
		Example: `  # Run a script and show what it prints
  leapsmt eval sets.star

  # Run several scripts and dump their globals as JSON
  leapsmt eval a.star b.star -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args, showGlobals)
		},
	}

	cmd.Flags().BoolVar(&showGlobals, "globals", false, "Show the globals each script defines")
	return cmd
}

func runEval(cmd *cobra.Command, files []string, showGlobals bool) error {
	cc := NewCommandContext(cmd)
	results := make([]ScriptResult, len(files))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(cc.Cfg.ScriptWorkers)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := evalScript(cc, file)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r := cc.Renderer
	if r.Structured() {
		return r.Encode(results)
	}
	for _, res := range results {
		if len(files) > 1 {
			r.Header("== " + res.File)
		}
		r.Printf("%s", res.Output)
		if showGlobals && len(res.Globals) > 0 {
			names := make([]string, 0, len(res.Globals))
			for name := range res.Globals {
				names = append(names, name)
			}
			sort.Strings(names)
			rows := make([][]any, len(names))
			for j, name := range names {
				rows[j] = []any{name, fmt.Sprint(res.Globals[name])}
			}
			r.Table([]string{"Name", "Value"}, rows)
		}
	}
	return nil
}

func evalScript(cc *CommandContext, file string) (ScriptResult, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return ScriptResult{}, fmt.Errorf("failed to read %s: %w", file, err)
	}
	logger := cc.Logger.With("script", file)
	e, err := cc.Cfg.NewEnvironment(logger)
	if err != nil {
		return ScriptResult{}, err
	}

	var out bytes.Buffer
	in := script.New(e, script.WithOutput(&out), script.WithLogger(logger))
	globals, err := in.ExecFile(file, src)
	if err != nil {
		return ScriptResult{}, err
	}
	values, err := script.GlobalsToGo(globals)
	if err != nil {
		return ScriptResult{}, fmt.Errorf("%s: %w", file, err)
	}
	return ScriptResult{File: file, Output: out.String(), Globals: values}, nil
}
