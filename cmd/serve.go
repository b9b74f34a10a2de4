package cmd

import (
	"context"
	"fmt"

	"xcmcp/internal/app"

	"github.com/spf13/cobra"
)

type serveOptions struct {
	debug     bool
	dynamic   bool
	transport string
	port      int
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Starts the xcmcp MCP server.

In static mode (default) every workflow, or the enabledWorkflows subset from
the configuration, is registered at startup.

In dynamic mode (--dynamic or XCMCP_DYNAMIC_TOOLS=true) the server starts
with only the discover_tools, activate_workflows, list_workflows and doctor
tools. discover_tools asks the client's own model, through MCP sampling, which
workflows fit a task description and enables them.

Logs are written to stderr; with the stdio transport stdout carries protocol
messages only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&opts.dynamic, "dynamic", false, "Start in dynamic mode")
	cmd.Flags().StringVar(&opts.transport, "transport", "", "Transport: stdio, sse or streamable-http")
	cmd.Flags().IntVar(&opts.port, "port", 0, "Port for HTTP transports")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg := app.NewConfig(configPath, opts.debug, rootCmd.Version)
	cfg.Transport = opts.transport
	cfg.Port = opts.port
	if opts.dynamic {
		cfg.Mode = "dynamic"
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}
