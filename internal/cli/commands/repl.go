package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/leapsmt/internal/cli/output"
	script "github.com/leapstack-labs/leapsmt/internal/starlark"
)

const (
	replPrompt         = "leapsmt> "
	replContinuePrompt = "     ... "
)

// lineReader is the part of readline the REPL loop uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var preload, historyFile string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive Starlark session",
		Long: `Start an interactive Starlark session over one environment. Expressions
print their value; definitions persist across inputs. A line ending in ':'
opens a block that an empty line closes.`,
		Example: `  leapsmt repl
  leapsmt repl --load sets.star --history ~/.leapsmt_history`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			e, err := cc.Cfg.NewEnvironment(cc.Logger)
			if err != nil {
				return err
			}
			in := script.New(e, script.WithOutput(cmd.OutOrStdout()), script.WithLogger(cc.Logger))
			if preload != "" {
				if _, err := in.ExecFile(preload, nil); err != nil {
					return err
				}
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          cc.Renderer.Styles().Prompt.Render(replPrompt),
				HistoryFile:     historyFile,
				AutoComplete:    newBuiltinCompleter(in),
				InterruptPrompt: "^C",
				EOFPrompt:       ".quit",
				Stdin:           io.NopCloser(cmd.InOrStdin()),
				Stdout:          cmd.OutOrStdout(),
				Stderr:          cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize REPL: %w", err)
			}
			defer func() { _ = rl.Close() }()

			cc.Renderer.Printf("leapsmt REPL (environment %s)\n", e.ID())
			cc.Renderer.Println("Type .help for commands, .quit to exit")
			return runREPL(cc.Renderer, in, rl)
		},
	}

	cmd.Flags().StringVar(&preload, "load", "", "Starlark script to run before the first prompt")
	cmd.Flags().StringVar(&historyFile, "history", "", "File to keep input history in")
	return cmd
}

// runREPL reads inputs until EOF or .quit.
func runREPL(r *output.Renderer, in *script.Interpreter, rl lineReader) error {
	prompt := r.Styles().Prompt.Render(replPrompt)
	var block strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			block.Reset()
			rl.SetPrompt(prompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if block.Len() > 0 {
			if strings.TrimSpace(line) != "" {
				block.WriteString(line + "\n")
				continue
			}
			src := block.String()
			block.Reset()
			rl.SetPrompt(prompt)
			evalInput(r, in, src)
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case trimmed == ".quit" || trimmed == ".exit":
			return nil
		case strings.HasPrefix(trimmed, "."):
			handleREPLCommand(r, in, trimmed)
			continue
		case strings.HasSuffix(trimmed, ":"):
			block.WriteString(line + "\n")
			rl.SetPrompt(r.Styles().Prompt.Render(replContinuePrompt))
			continue
		}
		evalInput(r, in, line)
	}
}

func evalInput(r *output.Renderer, in *script.Interpreter, src string) {
	v, err := in.Eval(src)
	if err != nil {
		r.Error(err)
		return
	}
	if v != nil && v != starlark.None {
		r.Println(v.String())
	}
}

func handleREPLCommand(r *output.Renderer, in *script.Interpreter, line string) {
	switch strings.Fields(line)[0] {
	case ".help":
		printREPLHelp(r)
	case ".globals":
		globals := in.UserGlobals()
		names := make([]string, 0, len(globals))
		for name := range globals {
			names = append(names, name)
		}
		sort.Strings(names)
		rows := make([][]any, len(names))
		for i, name := range names {
			v := globals[name]
			rows[i] = []any{name, v.Type(), v.String()}
		}
		r.Table([]string{"Name", "Type", "Value"}, rows)
	case ".env":
		e := in.Environment()
		r.Printf("environment %s: %d nodes, %d sorts, %d custom operators\n",
			e.ID(), e.Manager().Size(), e.Sorts().Size(), e.Operators().CustomCount())
	default:
		r.Error(fmt.Errorf("unknown command %s (type .help for commands)", line))
	}
}

func printREPLHelp(r *output.Renderer) {
	r.Println(`
Commands:
  .help      Show this help message
  .globals   List the names defined so far
  .env       Show environment statistics
  .quit      Exit the REPL

Builtins:
  Symbol(name, sort=BOOL)  FreshSymbol(sort=BOOL)  TRUE()  FALSE()  Int(n)  Real(n, d=1)
  And Or Not Implies Iff Equals EqualsOrIff Ite LE LT GE GT Plus Minus Times Select Store
  Type(name, arity=0)  PartialType(name, fn)  ArrayType(idx, elem)  BOOL INT REAL
  new_node_type register_type_rule register_notation register_rebuild create_node
  get_type serialize smtlib simplify substitute`)
}

// newBuiltinCompleter completes builtin names and dot-commands.
func newBuiltinCompleter(in *script.Interpreter) *readline.PrefixCompleter {
	builtins := in.Builtins()
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]readline.PrefixCompleterInterface, 0, len(names)+4)
	for _, name := range names {
		items = append(items, readline.PcItem(name))
	}
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".globals"),
		readline.PcItem(".env"),
		readline.PcItem(".quit"),
	)
	return readline.NewPrefixCompleter(items...)
}
