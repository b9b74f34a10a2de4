package discovery

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolName is the name of the discovery tool.
const ToolName = "discover_tools"

// Tool returns the discover_tools server tool bound to d.
func (d *Discoverer) Tool() server.ServerTool {
	tool := mcp.NewTool(ToolName,
		mcp.WithDescription("Describe the development task you want to perform and the matching Xcode "+
			"workflow tools will be enabled. Use this before looking for build, test, simulator or device tools."),
		mcp.WithString("task_description",
			mcp.Required(),
			mcp.Description("What you want to do, e.g. 'build my iOS app and run it in the simulator'"),
		),
	)
	return server.ServerTool{Tool: tool, Handler: d.handle}
}

func (d *Discoverer) handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	outcome := d.Discover(ctx, req.GetString("task_description", ""))
	if outcome.IsError {
		return mcp.NewToolResultError(outcome.Message), nil
	}
	return mcp.NewToolResultText(outcome.Message), nil
}
