// Package output renders command results either as styled text and tables
// for terminals or as JSON/YAML documents for scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapsmt/internal/config"
)

// Styles holds the lipgloss styles used by the CLI.
type Styles struct {
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Prompt  lipgloss.Style
}

// DefaultStyles returns the standard CLI styles.
func DefaultStyles() *Styles {
	return &Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Prompt:  lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

// Renderer writes command output in the configured format.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	format string
	styles *Styles
}

// NewRenderer creates a renderer. An empty format means table output.
func NewRenderer(out, errOut io.Writer, format string) *Renderer {
	if format == "" {
		format = config.OutputTable
	}
	return &Renderer{out: out, errOut: errOut, format: format, styles: DefaultStyles()}
}

// Format returns the output format.
func (r *Renderer) Format() string { return r.format }

// Structured reports whether output is a machine-readable document.
func (r *Renderer) Structured() bool {
	return r.format == config.OutputJSON || r.format == config.OutputYAML
}

// Styles returns the renderer styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Out returns the primary writer.
func (r *Renderer) Out() io.Writer { return r.out }

// Println writes a line to the primary writer.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to the primary writer.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a styled section title.
func (r *Renderer) Header(title string) {
	r.Println(r.styles.Header.Render(title))
}

// Error writes err to the error writer.
func (r *Renderer) Error(err error) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("Error:"), err)
}

// Table renders rows under header as a light box table.
func (r *Renderer) Table(header []string, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}
	t.Render()
}

// Encode writes v as a JSON or YAML document.
func (r *Renderer) Encode(v any) error {
	switch r.format {
	case config.OutputJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("output format %q is not a document format", r.format)
}
