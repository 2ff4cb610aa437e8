package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsmt/internal/cli/output"
	"github.com/leapstack-labs/leapsmt/internal/config"
	script "github.com/leapstack-labs/leapsmt/internal/starlark"
	"github.com/leapstack-labs/leapsmt/pkg/env"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the config and logger stored by the root
// command and builds a renderer for the configured output format.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Output),
	}
}

// NewEnvironment creates a configured environment and, when preload is
// set, runs that script in it first so its sorts and operators exist.
func (cc *CommandContext) NewEnvironment(preload string) (*env.Environment, error) {
	e, err := cc.Cfg.NewEnvironment(cc.Logger)
	if err != nil {
		return nil, err
	}
	if preload == "" {
		return e, nil
	}
	src, err := os.ReadFile(preload)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", preload, err)
	}
	in := script.New(e, script.WithLogger(cc.Logger))
	if _, err := in.ExecFile(preload, src); err != nil {
		return nil, err
	}
	return e, nil
}
