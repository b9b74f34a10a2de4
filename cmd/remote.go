package cmd

import (
	"context"
	"fmt"
	"io"

	"xcmcp/internal/app"
	"xcmcp/internal/cli"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

// remoteOptions select the server a client command talks to.
type remoteOptions struct {
	endpoint  string
	transport string
	output    string
}

func (o *remoteOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.endpoint, "endpoint", "", "Server URL (default: derived from the server configuration)")
	cmd.Flags().StringVar(&o.transport, "transport", "", "Transport of the running server: streamable-http or sse (default: from configuration)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "table", "Output format: table, json or yaml")
}

// connect resolves the endpoint and opens a session with a running server.
func (o *remoteOptions) connect(ctx context.Context, out io.Writer) (*cli.Client, *cli.Printer, error) {
	format, err := cli.ParseOutputFormat(o.output)
	if err != nil {
		return nil, nil, err
	}

	transport, endpoint := o.transport, o.endpoint
	if transport == "" || endpoint == "" {
		xcfg, err := app.NewConfig(configPath, false, rootCmd.Version).LoadConfig()
		if err != nil {
			return nil, nil, err
		}
		if transport == "" {
			transport = xcfg.Server.Transport
		}
		// A stdio server has no address; assume the HTTP default.
		if transport == "stdio" {
			transport = cli.TransportStreamableHTTP
		}
		if endpoint == "" {
			endpoint, err = cli.Endpoint(transport, xcfg.Server.Host, xcfg.Server.Port)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	client := cli.NewClient(endpoint, transport)
	if err := client.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("cannot reach xcmcp at %s (is `xcmcp serve --transport %s` running?): %w", endpoint, transport, err)
	}
	return client, cli.NewPrinter(out, format, !termenv.EnvNoColor()), nil
}

func newToolsCmd() *cobra.Command {
	opts := &remoteOptions{}
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools a running server currently exposes",
		Long: `Connects to a running xcmcp server over HTTP and lists the tools it
currently exposes. In dynamic mode the list grows as workflows are enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, printer, err := opts.connect(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer client.Close()

			tools, err := client.ListTools(cmd.Context())
			if err != nil {
				return err
			}
			return printer.PrintTools(tools)
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func newCallCmd() *cobra.Command {
	opts := &remoteOptions{}
	var (
		pairs   []string
		rawJSON string
	)
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Call a tool on a running server",
		Long: `Calls a tool on a running xcmcp server. Arguments are given as key=value
pairs; values that parse as JSON keep their type.

  xcmcp call activate_workflows --json '{"workflows":["simulator"]}'
  xcmcp call build_sim --arg scheme=App --arg useLatestOS=true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := cli.ParseArgs(pairs, rawJSON)
			if err != nil {
				return err
			}
			client, printer, err := opts.connect(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.CallTool(cmd.Context(), args[0], toolArgs)
			if err != nil {
				return err
			}
			return printer.PrintResult(result)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringArrayVar(&pairs, "arg", nil, "Tool argument as key=value (repeatable)")
	cmd.Flags().StringVar(&rawJSON, "json", "", "Tool arguments as a JSON object")
	return cmd
}
