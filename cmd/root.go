package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// configPath is the explicit configuration file shared by all commands.
var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xcmcp",
	Short: "MCP server for Xcode and the Apple developer toolchain",
	Long: `xcmcp exposes xcodebuild, simctl, devicectl and Swift Package Manager
operations as MCP tools, grouped into workflows such as simulator, device
and macos. Workflows are either all enabled at startup (static mode) or
enabled on demand from a task description (dynamic mode).`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid configuration, failed probes)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "xcmcp version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file layered over ~/.config/xcmcp/config.yaml and .xcmcp/config.yaml")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newWorkflowsCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newCallCmd())
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
