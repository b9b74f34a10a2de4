package cli

import (
	"context"
	"testing"

	"xcmcp/internal/app"
	"xcmcp/internal/config"
	"xcmcp/internal/discovery"
	"xcmcp/internal/mcpserver"
	"xcmcp/internal/toolexec"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockExecutor struct{}

func (mockExecutor) Execute(ctx context.Context, cmd toolexec.Command) (toolexec.CommandResult, error) {
	return toolexec.CommandResult{Stdout: "ok"}, nil
}

// fixedSampler answers every sampling request with the same text.
type fixedSampler struct {
	reply    string
	requests int
}

func (f *fixedSampler) CreateMessage(ctx context.Context, req mcp.CreateMessageRequest) (*mcp.CreateMessageResult, error) {
	f.requests++
	return &mcp.CreateMessageResult{
		SamplingMessage: mcp.SamplingMessage{
			Role:    mcp.RoleAssistant,
			Content: mcp.TextContent{Type: "text", Text: f.reply},
		},
		Model: "test-model",
	}, nil
}

// dynamicServer wires a dynamic-mode server with the built-in catalog.
func dynamicServer(t *testing.T) *app.Services {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Mode = config.ModeDynamic
	services, err := app.InitializeServices(cfg, "test", mockExecutor{})
	require.NoError(t, err)
	require.NoError(t, services.Server.RegisterBuiltins(context.Background(), mcpserver.Builtins{
		Registry:   services.Registry,
		Doctor:     services.Doctor,
		Discoverer: services.Discoverer,
	}))
	_, err = services.Registry.Start(context.Background(), nil)
	require.NoError(t, err)
	return services
}

func toolNames(tools []mcp.Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	return names
}

func TestClient_ActivateWorkflowsInProcess(t *testing.T) {
	services := dynamicServer(t)
	ctx := context.Background()

	c := NewClient("", "")
	require.NoError(t, c.ConnectInProcess(ctx, services.Server.MCPServer(), nil))
	defer c.Close()

	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		discovery.ToolName,
		mcpserver.ToolActivateWorkflows,
		mcpserver.ToolListWorkflows,
		mcpserver.ToolDoctor,
	}, toolNames(tools))

	text, err := c.CallToolText(ctx, mcpserver.ToolActivateWorkflows, map[string]any{"workflows": []any{"swift-package"}})
	require.NoError(t, err)
	assert.Contains(t, text, "Enabled workflows: swift-package")

	tools, err = c.ListTools(ctx)
	require.NoError(t, err)
	assert.Contains(t, toolNames(tools), "swift_package_build")

	// Without sampling the discovery tool explains the alternatives.
	_, err = c.CallToolText(ctx, discovery.ToolName, map[string]any{"task_description": "run my tests"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), mcpserver.ToolActivateWorkflows)
}

func TestClient_DiscoverToolsWithSampling(t *testing.T) {
	services := dynamicServer(t)
	ctx := context.Background()
	sampler := &fixedSampler{reply: `["MACOS"]`}

	c := NewClient("", "")
	require.NoError(t, c.ConnectInProcess(ctx, services.Server.MCPServer(), sampler))
	defer c.Close()

	text, err := c.CallToolText(ctx, discovery.ToolName, map[string]any{"task_description": "build my Mac app"})
	require.NoError(t, err)
	assert.Contains(t, text, "workflows: macos")
	assert.Equal(t, 1, sampler.requests)
	assert.True(t, services.Registry.IsEnabled("macos"))

	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	assert.Contains(t, toolNames(tools), "build_macos")
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient("http://localhost:1/mcp", TransportStreamableHTTP)
	_, err := c.ListTools(context.Background())
	assert.ErrorContains(t, err, "not connected")
	_, err = c.CallTool(context.Background(), "doctor", nil)
	assert.ErrorContains(t, err, "not connected")
	assert.NoError(t, c.Close())
}

func TestClient_UnsupportedTransport(t *testing.T) {
	c := NewClient("http://localhost:1", "carrier-pigeon")
	assert.ErrorContains(t, c.Connect(context.Background()), "unsupported transport")
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		transport string
		want      string
		wantErr   bool
	}{
		{TransportStreamableHTTP, "http://localhost:8090/mcp", false},
		{TransportSSE, "http://localhost:8090/sse", false},
		{"stdio", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.transport, func(t *testing.T) {
			got, err := Endpoint(tt.transport, "localhost", 8090)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs([]string{"scheme=App", "useLatestOS=true", "count=2"}, `{"projectPath":"App.xcodeproj","scheme":"Old"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"projectPath": "App.xcodeproj",
		"scheme":      "App",
		"useLatestOS": true,
		"count":       float64(2),
	}, args)

	_, err = ParseArgs([]string{"novalue"}, "")
	assert.ErrorContains(t, err, "expected key=value")

	_, err = ParseArgs(nil, "[1,2]")
	assert.ErrorContains(t, err, "invalid --json")
}

func TestResultText(t *testing.T) {
	result := &mcp.CallToolResult{Content: []mcp.Content{
		mcp.TextContent{Type: "text", Text: "a"},
		mcp.ImageContent{Type: "image", Data: "...", MIMEType: "image/png"},
		mcp.TextContent{Type: "text", Text: "b"},
	}}
	assert.Equal(t, "a\nb", ResultText(result))
}
