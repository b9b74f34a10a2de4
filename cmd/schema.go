package cmd

import (
	"fmt"

	"xcmcp/internal/catalog"

	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of tool definition files",
		Long: `Prints the JSON schema describing workflow and tool definition files.
Point your editor's YAML language server at it to validate files placed in
definitionsDir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := catalog.DefinitionsSchema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
