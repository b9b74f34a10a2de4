package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of xcmcp",
		Long:  `Prints the xcmcp release this binary was built from ("dev" for local builds).`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xcmcp version %s\n", rootCmd.Version)
		},
	}
}
