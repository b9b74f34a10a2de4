package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"xcmcp/internal/catalog"
	"xcmcp/internal/registry"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSampler returns a canned response and records prompts.
type mockSampler struct {
	supports bool
	response Response
	err      error
	panics   bool

	supportChecks int
	prompts       []string
	maxTokens     []int
}

func (m *mockSampler) SupportsSampling(ctx context.Context) bool {
	m.supportChecks++
	return m.supports
}

func (m *mockSampler) CreateMessage(ctx context.Context, prompt string, maxTokens int) (Response, error) {
	if m.panics {
		panic("transport exploded")
	}
	m.prompts = append(m.prompts, prompt)
	m.maxTokens = append(m.maxTokens, maxTokens)
	return m.response, m.err
}

func textResponse(text string) Response {
	return SingleItem(ContentItem{Type: "text", Text: text})
}

// mockActivator records calls and can fail.
type mockActivator struct {
	calls [][]string
	err   error
}

func (m *mockActivator) Activate(ctx context.Context, slugs []string) (registry.ActivationResult, error) {
	m.calls = append(m.calls, slugs)
	if m.err != nil {
		return registry.ActivationResult{}, m.err
	}
	return registry.ActivationResult{Activated: slugs}, nil
}

// memoryTable is a minimal registry.ToolTable.
type memoryTable struct {
	tools map[string]server.ServerTool
}

func (m *memoryTable) AddTools(ctx context.Context, tools ...server.ServerTool) error {
	for _, t := range tools {
		m.tools[t.Tool.Name] = t
	}
	return nil
}

func (m *memoryTable) DeleteTools(ctx context.Context, names ...string) {
	for _, n := range names {
		delete(m.tools, n)
	}
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	handlers := catalog.HandlerFactoryFunc(func(def catalog.ToolDefinition, _ *jsonschema.Schema) (server.ToolHandlerFunc, error) {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText(def.Name), nil
		}, nil
	})
	c, err := catalog.Load(catalog.Definitions{
		Workflows: []catalog.WorkflowDefinition{
			{ID: "sim", Name: "iOS Simulator", Description: "iOS Simulator workflow"},
			{ID: "mac", Name: "macOS", Description: "macOS workflow"},
		},
		Tools: []catalog.ToolDefinition{
			{Name: "build_sim", Workflow: "sim"},
			{Name: "test_sim", Workflow: "sim"},
			{Name: "build_mac", Workflow: "mac"},
		},
	}, handlers)
	require.NoError(t, err)
	return c
}

func TestDiscover_EndToEnd(t *testing.T) {
	cat := testCatalog(t)
	table := &memoryTable{tools: make(map[string]server.ServerTool)}
	reg := registry.New(cat, table, registry.ModeDynamic)
	sampler := &mockSampler{supports: true, response: textResponse(`["sim"]`)}

	d := New(cat, reg, sampler, 0)
	outcome := d.Discover(context.Background(), "run my iPhone app")

	require.False(t, outcome.IsError, outcome.Message)
	assert.Contains(t, outcome.Message, "2")
	assert.Contains(t, outcome.Message, "sim")
	assert.Equal(t, []string{"sim"}, outcome.Activated)

	require.Len(t, sampler.prompts, 1, "exactly one round-trip")
	prompt := sampler.prompts[0]
	assert.Contains(t, prompt, "SIM: iOS Simulator workflow")
	assert.Contains(t, prompt, "MAC: macOS workflow")
	assert.Contains(t, prompt, "run my iPhone app")
	assert.Contains(t, prompt, "JSON array")
	assert.Equal(t, []int{DefaultMaxTokens}, sampler.maxTokens)

	assert.Len(t, table.tools, 2)
	assert.Equal(t, []string{"build_sim", "test_sim"}, reg.RegisteredTools())
}

func TestDiscover_Outcomes(t *testing.T) {
	tests := []struct {
		name          string
		response      Response
		samplerErr    error
		activateErr   error
		wantError     bool
		wantContains  []string
		wantActivated [][]string
	}{
		{
			name:          "invalid slugs are filtered",
			response:      textResponse(`["sim", "not-a-real-workflow"]`),
			wantContains:  []string{"sim"},
			wantActivated: [][]string{{"sim"}},
		},
		{
			name:          "duplicates and case are normalized",
			response:      textResponse(`["SIM", "sim", "mac"]`),
			wantContains:  []string{"3 tools", "sim, mac"},
			wantActivated: [][]string{{"sim", "mac"}},
		},
		{
			name:          "fenced answer is accepted",
			response:      textResponse("```json\n[\"mac\"]\n```"),
			wantContains:  []string{"1 tools", "mac"},
			wantActivated: [][]string{{"mac"}},
		},
		{
			name:         "empty array asks for more detail",
			response:     textResponse(`[]`),
			wantContains: []string{"more detail"},
		},
		{
			name:         "only unknown slugs asks for more detail",
			response:     textResponse(`["android", 42]`),
			wantContains: []string{"more detail"},
		},
		{
			name:         "malformed JSON echoes the text",
			response:     textResponse("not json"),
			wantError:    true,
			wantContains: []string{"not json"},
		},
		{
			name:         "object instead of array",
			response:     textResponse(`{"workflow": "sim"}`),
			wantError:    true,
			wantContains: []string{`{"workflow": "sim"}`},
		},
		{
			name:          "list response uses first text item",
			response:      ItemList([]ContentItem{{Type: "image"}, {Type: "text", Text: `["mac"]`}}),
			wantContains:  []string{"mac"},
			wantActivated: [][]string{{"mac"}},
		},
		{
			name:         "no text content",
			response:     SingleItem(ContentItem{Type: "image"}),
			wantError:    true,
			wantContains: []string{"unusable"},
		},
		{
			name:         "empty list",
			response:     ItemList(nil),
			wantError:    true,
			wantContains: []string{"unusable"},
		},
		{
			name:         "transport failure",
			samplerErr:   errors.New("connection reset"),
			wantError:    true,
			wantContains: []string{"connection reset"},
		},
		{
			name:          "activation failure is wrapped",
			response:      textResponse(`["sim"]`),
			activateErr:   errors.New("tool table rejected build_sim"),
			wantError:     true,
			wantContains:  []string{"tool table rejected build_sim"},
			wantActivated: [][]string{{"sim"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activator := &mockActivator{err: tt.activateErr}
			sampler := &mockSampler{supports: true, response: tt.response, err: tt.samplerErr}
			d := New(testCatalog(t), activator, sampler, 50)

			outcome := d.Discover(context.Background(), "do something")

			assert.Equal(t, tt.wantError, outcome.IsError, outcome.Message)
			for _, s := range tt.wantContains {
				assert.Contains(t, outcome.Message, s)
			}
			assert.Equal(t, tt.wantActivated, activator.calls)
			assert.Equal(t, []int{50}, sampler.maxTokens)
		})
	}
}

func TestDiscover_CapabilityGate(t *testing.T) {
	activator := &mockActivator{}
	sampler := &mockSampler{supports: false}
	d := New(testCatalog(t), activator, sampler, 0)

	outcome := d.Discover(context.Background(), "build for the simulator")

	assert.True(t, outcome.IsError)
	assert.Contains(t, outcome.Message, "activate_workflows")
	assert.Equal(t, 1, sampler.supportChecks)
	assert.Empty(t, sampler.prompts, "transport must not be called")
	assert.Empty(t, activator.calls)
}

func TestDiscover_EmptyTask(t *testing.T) {
	sampler := &mockSampler{supports: true}
	outcome := New(testCatalog(t), &mockActivator{}, sampler, 0).Discover(context.Background(), "   ")
	assert.True(t, outcome.IsError)
	assert.Zero(t, sampler.supportChecks)
}

func TestDiscover_RecoversFromPanic(t *testing.T) {
	sampler := &mockSampler{supports: true, panics: true}
	outcome := New(testCatalog(t), &mockActivator{}, sampler, 0).Discover(context.Background(), "anything")
	assert.True(t, outcome.IsError)
	assert.Contains(t, outcome.Message, "transport exploded")
}

func TestDiscover_EchoIsBounded(t *testing.T) {
	long := strings.Repeat("x", 5000)
	sampler := &mockSampler{supports: true, response: textResponse(long)}
	outcome := New(testCatalog(t), &mockActivator{}, sampler, 0).Discover(context.Background(), "anything")
	assert.True(t, outcome.IsError)
	assert.Less(t, len(outcome.Message), 1000)
	assert.True(t, strings.HasSuffix(outcome.Message, "..."))
}

func TestDecodeContent(t *testing.T) {
	resp, err := DecodeContent(json.RawMessage(`{"type":"text","text":"[\"sim\"]"}`))
	require.NoError(t, err)
	text, ok := resp.FirstText()
	assert.True(t, ok)
	assert.Equal(t, `["sim"]`, text)

	resp, err = DecodeContent(json.RawMessage(`[{"type":"image"},{"type":"text","text":"a"},{"type":"text","text":"b"}]`))
	require.NoError(t, err)
	text, ok = resp.FirstText()
	assert.True(t, ok)
	assert.Equal(t, "a", text)

	_, err = DecodeContent(json.RawMessage(`"bare string"`))
	assert.Error(t, err)
}

func TestTool_HandlerMapsOutcome(t *testing.T) {
	sampler := &mockSampler{supports: false}
	tool := New(testCatalog(t), &mockActivator{}, sampler, 0).Tool()
	assert.Equal(t, ToolName, tool.Tool.Name)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"task_description": "build"}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
