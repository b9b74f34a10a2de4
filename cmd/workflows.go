package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"xcmcp/internal/color"
	"xcmcp/internal/registry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

const descriptionWidth = 60

type workflowsOptions struct {
	json  bool
	tools bool
	debug bool
}

func newWorkflowsCmd() *cobra.Command {
	opts := &workflowsOptions{}
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "List the workflows and the tools they expose",
		Long: `Lists every workflow in the catalog, including definitions from
definitionsDir, and marks the ones serve would enable at startup with the
current configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := loadServices(cmd.Context(), cmd.ErrOrStderr(), opts.debug)
			if err != nil {
				return err
			}
			statuses := services.Registry.Workflows()
			if opts.json {
				return writeWorkflowsJSON(cmd.OutOrStdout(), services.Registry.Mode(), statuses)
			}
			return writeWorkflowsTable(cmd.OutOrStdout(), color.NewStyles(cmd.OutOrStdout()), services.Registry.Mode(), statuses, opts.tools)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&opts.tools, "tools", false, "Also list the tools of each workflow")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	return cmd
}

func writeWorkflowsJSON(w io.Writer, mode registry.Mode, statuses []registry.WorkflowStatus) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Mode      registry.Mode             `json:"mode"`
		Workflows []registry.WorkflowStatus `json:"workflows"`
	}{mode, statuses})
}

func writeWorkflowsTable(w io.Writer, styles color.Styles, mode registry.Mode, statuses []registry.WorkflowStatus, withTools bool) error {
	if _, err := fmt.Fprintf(w, "%s %s\n", styles.Label.Render("Mode:"), mode); err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"", "Workflow", "Name", "Tools", "Platforms", "Description"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, Align: text.AlignRight}})

	for _, s := range statuses {
		t.AppendRow(table.Row{
			styles.Status(s.Enabled),
			s.ID,
			s.Name,
			len(s.Tools),
			joinOrDash(s.Platforms),
			styles.Muted.Render(runewidth.Truncate(firstLine(s.Description), descriptionWidth, "...")),
		})
		if !withTools {
			continue
		}
		for _, tool := range s.Tools {
			name := "  " + tool.Name
			if tool.Reexported {
				name += styles.Muted.Render(" (from " + tool.Owner + ")")
			}
			t.AppendRow(table.Row{"", name})
		}
	}
	t.Render()
	return nil
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
