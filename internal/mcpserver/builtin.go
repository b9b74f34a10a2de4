package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"xcmcp/internal/color"
	"xcmcp/internal/discovery"
	"xcmcp/internal/doctor"
	"xcmcp/internal/registry"
	"xcmcp/pkg/logging"

	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Built-in tool names. Catalog tools may not reuse them.
const (
	ToolActivateWorkflows = "activate_workflows"
	ToolListWorkflows     = "list_workflows"
	ToolDoctor            = "doctor"
)

// ReservedToolNames lists every name registered by RegisterBuiltins.
var ReservedToolNames = []string{
	discovery.ToolName,
	ToolActivateWorkflows,
	ToolListWorkflows,
	ToolDoctor,
}

// Builtins are the collaborators of the built-in tools.
type Builtins struct {
	Registry   *registry.Registry
	Doctor     *doctor.Doctor
	Discoverer *discovery.Discoverer // nil disables discover_tools
}

type activateParams struct {
	Workflows []string `json:"workflows" jsonschema:"required,minItems=1,description=Workflow ids to enable; see list_workflows"`
}

type emptyParams struct{}

// RegisterBuiltins adds the built-in tools. discover_tools and
// activate_workflows are only exposed in dynamic mode.
func (s *Server) RegisterBuiltins(ctx context.Context, b Builtins) error {
	tools := []server.ServerTool{
		{
			Tool: mcp.NewToolWithRawSchema(ToolListWorkflows,
				"List every workflow with its description, its tools and whether it is enabled.",
				paramsSchema(&emptyParams{})),
			Handler: listWorkflowsHandler(b.Registry),
		},
		{
			Tool: mcp.NewToolWithRawSchema(ToolDoctor,
				"Report the Xcode toolchain status, the server mode and the enabled workflows.",
				paramsSchema(&emptyParams{})),
			Handler: s.doctorHandler(b),
		},
	}

	if b.Registry.Mode() == registry.ModeDynamic {
		tools = append(tools, server.ServerTool{
			Tool: mcp.NewToolWithRawSchema(ToolActivateWorkflows,
				"Enable one or more workflows by id and expose their tools.",
				paramsSchema(&activateParams{})),
			Handler: activateHandler(b.Registry),
		})
		if b.Discoverer != nil {
			tools = append(tools, b.Discoverer.Tool())
		}
	}

	if err := s.AddTools(ctx, tools...); err != nil {
		return fmt.Errorf("failed to register built-in tools: %w", err)
	}
	logging.Info("Server", "Registered %d built-in tools", len(tools))
	return nil
}

func activateHandler(reg *registry.Registry) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params activateParams
		if err := decodeArgs(req.GetArguments(), &params); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(params.Workflows) == 0 {
			return mcp.NewToolResultError("workflows must list at least one workflow id"), nil
		}

		var unknown []string
		for _, slug := range params.Workflows {
			if !reg.Catalog().HasWorkflow(slug) {
				unknown = append(unknown, slug)
			}
		}

		result, err := reg.Activate(ctx, params.Workflows)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to enable workflows: %v", err)), nil
		}

		var b strings.Builder
		if len(result.Activated) > 0 {
			fmt.Fprintf(&b, "Enabled workflows: %s (%d new tools).", strings.Join(result.Activated, ", "), result.NewlyRegistered)
		} else {
			b.WriteString("No new workflows were enabled.")
		}
		if len(unknown) > 0 {
			fmt.Fprintf(&b, " Unknown workflows ignored: %s.", strings.Join(unknown, ", "))
		}
		fmt.Fprintf(&b, " Currently enabled: %s.", strings.Join(result.Enabled, ", "))
		return mcp.NewToolResultText(b.String()), nil
	}
}

func listWorkflowsHandler(reg *registry.Registry) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		listing := struct {
			Mode      registry.Mode             `json:"mode"`
			Workflows []registry.WorkflowStatus `json:"workflows"`
		}{reg.Mode(), reg.Workflows()}

		data, err := json.MarshalIndent(listing, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to encode workflows: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func (s *Server) doctorHandler(b Builtins) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report := b.Doctor.Run(ctx, b.Registry, s.SamplingStatus(ctx))
		var out strings.Builder
		if err := report.Render(&out, color.Plain()); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to render report: %v", err)), nil
		}
		return mcp.NewToolResultText(out.String()), nil
	}
}

// decodeArgs decodes tool call arguments into a params struct by JSON tag,
// rejecting unknown keys.
func decodeArgs(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// paramsSchema reflects the input schema of a params struct.
func paramsSchema(v any) json.RawMessage {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(v)
	schema.Version = ""
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("params schema: %v", err))
	}
	return data
}
