// Package config loads leapsmt settings from defaults, leapsmt.yaml,
// LEAPSMT_ environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"log/slog"

	"github.com/leapstack-labs/leapsmt/pkg/env"
)

// Config holds all CLI configuration options.
type Config struct {
	FreshTemplate string       `koanf:"fresh_template"`
	LogLevel      string       `koanf:"log_level"`
	LogFormat     string       `koanf:"log_format"`
	ScriptWorkers int          `koanf:"script_workers"`
	Output        string       `koanf:"output"`
	Sorts         []SortConfig `koanf:"sorts"`
}

// SortConfig predeclares an uninterpreted sort constructor in every
// environment the CLI creates.
type SortConfig struct {
	Name  string `koanf:"name"`
	Arity int    `koanf:"arity"`
}

// Default configuration values.
const (
	DefaultFreshTemplate = "FV%d"
	DefaultLogLevel      = "warn"
	DefaultLogFormat     = "text"
	DefaultScriptWorkers = 4
	DefaultOutput        = "table"
)

// Output formats understood by listing commands.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Defaults returns a Config with every default applied.
func Defaults() *Config {
	return &Config{
		FreshTemplate: DefaultFreshTemplate,
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
		ScriptWorkers: DefaultScriptWorkers,
		Output:        DefaultOutput,
	}
}

// EnvOptions turns the configuration into environment options.
func (c *Config) EnvOptions(logger *slog.Logger) []env.Option {
	opts := []env.Option{env.WithFreshTemplate(c.FreshTemplate)}
	if logger != nil {
		opts = append(opts, env.WithLogger(logger))
	}
	return opts
}

// NewEnvironment creates an environment configured by c, with the
// configured sorts declared.
func (c *Config) NewEnvironment(logger *slog.Logger) (*env.Environment, error) {
	e := env.New(c.EnvOptions(logger)...)
	for _, s := range c.Sorts {
		if _, err := e.DeclareSort(s.Name, s.Arity); err != nil {
			return nil, err
		}
	}
	return e, nil
}
