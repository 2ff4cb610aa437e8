package config

import (
	"fmt"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if strings.Count(c.FreshTemplate, "%d") != 1 || strings.Count(c.FreshTemplate, "%") != 1 {
		return fmt.Errorf("fresh_template must contain exactly one %%d verb, got %q", c.FreshTemplate)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.ScriptWorkers < 1 {
		return fmt.Errorf("script_workers must be at least 1, got %d", c.ScriptWorkers)
	}
	switch c.Output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("output must be one of table, json, yaml; got %q", c.Output)
	}
	for i, s := range c.Sorts {
		if s.Name == "" {
			return fmt.Errorf("sorts[%d]: name is required", i)
		}
		if s.Arity < 0 {
			return fmt.Errorf("sorts[%d]: arity of %s is negative", i, s.Name)
		}
	}
	return nil
}
