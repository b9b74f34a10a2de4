package catalog

import (
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Definitions is the on-disk shape of a definitions file. Files are merged
// before the Catalog is built.
type Definitions struct {
	Workflows []WorkflowDefinition `yaml:"workflows,omitempty" json:"workflows,omitempty" jsonschema:"description=Workflows declared by this file"`
	Tools     []ToolDefinition     `yaml:"tools,omitempty" json:"tools,omitempty" jsonschema:"description=Tools declared by this file"`
}

// WorkflowDefinition declares one workflow.
type WorkflowDefinition struct {
	ID           string   `yaml:"id" json:"id" jsonschema:"required,pattern=^[a-z0-9][a-z0-9-]*$,description=Stable slug used by callers"`
	Name         string   `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"description=Human display name"`
	Description  string   `yaml:"description" json:"description" jsonschema:"required,description=Shown in listings and in the discovery prompt"`
	Platforms    []string `yaml:"platforms,omitempty" json:"platforms,omitempty"`
	Capabilities []string `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
}

// ToolDefinition declares one tool, its owning workflow and re-exports.
type ToolDefinition struct {
	Name         string         `yaml:"name" json:"name" jsonschema:"required,pattern=^[a-z0-9_]+$"`
	Workflow     string         `yaml:"workflow" json:"workflow" jsonschema:"required,description=Owning workflow id"`
	ReexportedBy []string       `yaml:"reexportedBy,omitempty" json:"reexportedBy,omitempty" jsonschema:"description=Other workflows that expose this tool"`
	Description  string         `yaml:"description" json:"description" jsonschema:"required"`
	InputSchema  map[string]any `yaml:"inputSchema,omitempty" json:"inputSchema,omitempty" jsonschema:"description=JSON schema of the tool arguments"`
	Command      *CommandSpec   `yaml:"command,omitempty" json:"command,omitempty"`
}

// CommandSpec describes the toolchain invocation backing a tool.
type CommandSpec struct {
	Program string            `yaml:"program" json:"program" jsonschema:"required"`
	Args    []ArgGroup        `yaml:"args,omitempty" json:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty" jsonschema:"description=Extra environment variables; values are templates like args"`
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"type=string,description=Overrides toolchain.timeout for this tool"`
}

// ArgGroup is a run of argv entries emitted together. Values are text/template
// strings rendered against the call arguments; If is an expr-lang predicate
// over the same arguments.
type ArgGroup struct {
	If     string   `yaml:"if,omitempty" json:"if,omitempty"`
	Values []string `yaml:"values" json:"values" jsonschema:"required"`
}

// WorkflowDescriptor is the immutable, loaded form of a workflow.
type WorkflowDescriptor struct {
	ID           string
	Name         string
	Description  string
	Platforms    []string
	Capabilities []string
}

// ToolDescriptor is the immutable, loaded form of a tool. A tool has one
// implementation and one owner but may be reachable from several workflows.
type ToolDescriptor struct {
	Name         string
	Description  string
	InputSchema  json.RawMessage
	Handler      server.ToolHandlerFunc
	Owner        string
	ReexportedBy []string
}

// MCPTool returns the protocol-level tool definition.
func (t ToolDescriptor) MCPTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(t.Name, t.Description, t.InputSchema)
}

// ServerTool pairs the tool definition with its handler for registration.
func (t ToolDescriptor) ServerTool() server.ServerTool {
	return server.ServerTool{
		Tool:    t.MCPTool(),
		Handler: t.Handler,
	}
}

// IsReexportedBy reports whether workflow re-exports this tool.
func (t ToolDescriptor) IsReexportedBy(workflow string) bool {
	for _, w := range t.ReexportedBy {
		if w == workflow {
			return true
		}
	}
	return false
}
