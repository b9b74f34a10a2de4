package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"xcmcp/internal/catalog"
	"xcmcp/internal/discovery"
	"xcmcp/internal/doctor"
	"xcmcp/internal/registry"
	"xcmcp/internal/toolexec"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockExecutor struct{}

func (mockExecutor) Execute(ctx context.Context, cmd toolexec.Command) (toolexec.CommandResult, error) {
	return toolexec.CommandResult{Stdout: cmd.Program + " 1.0"}, nil
}

func testRegistry(t *testing.T, s *Server, mode registry.Mode) *registry.Registry {
	t.Helper()
	handlers := catalog.HandlerFactoryFunc(func(def catalog.ToolDefinition, _ *jsonschema.Schema) (server.ToolHandlerFunc, error) {
		return noopHandler, nil
	})
	cat, err := catalog.Load(catalog.Definitions{
		Workflows: []catalog.WorkflowDefinition{
			{ID: "simulator", Name: "iOS Simulator", Description: "Build and run on the simulator"},
			{ID: "macos", Name: "macOS", Description: "Build and run Mac apps"},
		},
		Tools: []catalog.ToolDefinition{
			{Name: "build_sim", Workflow: "simulator"},
			{Name: "build_macos", Workflow: "macos"},
		},
	}, handlers)
	require.NoError(t, err)
	return registry.New(cat, s, mode)
}

func callTool(t *testing.T, handler server.ToolHandlerFunc, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return res, text.Text
}

func TestRegisterBuiltins_PerMode(t *testing.T) {
	tests := []struct {
		name       string
		mode       registry.Mode
		discoverer bool
		want       []string
	}{
		{"static", registry.ModeStatic, true, []string{ToolDoctor, ToolListWorkflows}},
		{"dynamic", registry.ModeDynamic, true, []string{ToolActivateWorkflows, discovery.ToolName, ToolDoctor, ToolListWorkflows}},
		{"dynamic without discovery", registry.ModeDynamic, false, []string{ToolActivateWorkflows, ToolDoctor, ToolListWorkflows}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{})
			reg := testRegistry(t, s, tt.mode)
			b := Builtins{Registry: reg, Doctor: doctor.New(mockExecutor{}, "test", nil)}
			if tt.discoverer {
				b.Discoverer = discovery.New(reg.Catalog(), reg, s, 0)
			}
			require.NoError(t, s.RegisterBuiltins(context.Background(), b))
			assert.Equal(t, tt.want, s.ToolNames())
		})
	}
}

func TestActivateHandler(t *testing.T) {
	s := New(Config{})
	reg := testRegistry(t, s, registry.ModeDynamic)
	handler := activateHandler(reg)

	res, text := callTool(t, handler, map[string]any{"workflows": []any{"simulator", "android"}})
	assert.False(t, res.IsError)
	assert.Contains(t, text, "Enabled workflows: simulator (1 new tools)")
	assert.Contains(t, text, "Unknown workflows ignored: android")
	assert.Equal(t, []string{"build_sim"}, s.ToolNames())

	res, text = callTool(t, handler, map[string]any{"workflows": []any{"simulator"}})
	assert.False(t, res.IsError)
	assert.Contains(t, text, "No new workflows were enabled")

	res, _ = callTool(t, handler, map[string]any{"workflows": []any{}})
	assert.True(t, res.IsError)

	res, text = callTool(t, handler, map[string]any{"workflows": []any{"macos"}, "extra": true})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "invalid arguments")
}

func TestActivateHandler_RegistrationFailure(t *testing.T) {
	s := New(Config{})
	reg := testRegistry(t, s, registry.ModeDynamic)
	// Occupy the name so the batch is rejected.
	require.NoError(t, s.AddTools(context.Background(), tool("build_macos")))

	res, text := callTool(t, activateHandler(reg), map[string]any{"workflows": []any{"macos"}})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "already registered")
	assert.False(t, reg.IsEnabled("macos"))
}

func TestListWorkflowsHandler(t *testing.T) {
	s := New(Config{})
	reg := testRegistry(t, s, registry.ModeDynamic)
	_, err := reg.Activate(context.Background(), []string{"macos"})
	require.NoError(t, err)

	_, text := callTool(t, listWorkflowsHandler(reg), nil)

	var listing struct {
		Mode      string                    `json:"mode"`
		Workflows []registry.WorkflowStatus `json:"workflows"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &listing))
	assert.Equal(t, "dynamic", listing.Mode)
	require.Len(t, listing.Workflows, 2)
	assert.Equal(t, "iOS Simulator", listing.Workflows[0].Name)
	assert.False(t, listing.Workflows[0].Enabled)
	assert.True(t, listing.Workflows[1].Enabled)
}

func TestDoctorHandler(t *testing.T) {
	s := New(Config{})
	reg := testRegistry(t, s, registry.ModeStatic)
	b := Builtins{Registry: reg, Doctor: doctor.New(mockExecutor{}, "1.0.0", nil)}

	_, text := callTool(t, s.doctorHandler(b), nil)
	assert.Contains(t, text, "Version:  1.0.0")
	assert.Contains(t, text, "Mode:     static")
	assert.Contains(t, text, "xcodebuild 1.0")
	assert.NotContains(t, text, "\x1b[")
}

func TestParamsSchema(t *testing.T) {
	var schema map[string]any
	require.NoError(t, json.Unmarshal(paramsSchema(&activateParams{}), &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"workflows"}, schema["required"])
	assert.NotContains(t, schema, "$schema")
	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "workflows")
}
