package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"
)

// OutputFormat selects how results are printed.
type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

const descriptionWidth = 60

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table, json or yaml)", s)
	}
}

// Printer writes tool listings and results.
type Printer struct {
	w      io.Writer
	format OutputFormat
}

// NewPrinter creates a Printer. Colors are disabled when color is false.
func NewPrinter(w io.Writer, format OutputFormat, color bool) *Printer {
	if !color {
		text.DisableColors()
	}
	return &Printer{w: w, format: format}
}

type toolRow struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Required    []string `json:"required,omitempty" yaml:"required,omitempty"`
}

// PrintTools prints the tools exposed by a server.
func (p *Printer) PrintTools(tools []mcp.Tool) error {
	rows := make([]toolRow, 0, len(tools))
	for _, t := range tools {
		rows = append(rows, toolRow{Name: t.Name, Description: t.Description, Required: t.InputSchema.Required})
	}

	switch p.format {
	case OutputFormatJSON:
		return p.writeJSON(rows)
	case OutputFormatYAML:
		return p.writeYAML(rows)
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(p.w, text.FgYellow.Sprint("No tools found"))
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Name", "Description", "Required"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			text.FgHiWhite.Sprint(r.Name),
			truncate(firstLine(r.Description), descriptionWidth),
			formatRequired(r.Required),
		})
	}
	t.AppendFooter(table.Row{"Total", len(rows), ""})
	t.Render()
	return nil
}

// PrintResult prints the text content of a tool result. JSON text is
// re-encoded in the selected format; other text is printed as is.
func (p *Printer) PrintResult(result *mcp.CallToolResult) error {
	out := ResultText(result)
	if result.IsError {
		return fmt.Errorf("%s", out)
	}

	var data any
	if p.format == OutputFormatTable || json.Unmarshal([]byte(out), &data) != nil {
		_, err := fmt.Fprintln(p.w, out)
		return err
	}
	if p.format == OutputFormatYAML {
		return p.writeYAML(data)
	}
	return p.writeJSON(data)
}

func (p *Printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) writeYAML(v any) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

func formatRequired(required []string) string {
	if len(required) == 0 {
		return text.FgHiBlack.Sprint("-")
	}
	return text.FgCyan.Sprint(strings.Join(required, ", "))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, width int) string {
	if text.RuneWidthWithoutEscSequences(s) <= width {
		return s
	}
	return text.Trim(s, width-3) + "..."
}
