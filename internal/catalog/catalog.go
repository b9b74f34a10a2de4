package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"xcmcp/pkg/logging"

	"github.com/mark3labs/mcp-go/server"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalidDefinition marks configuration faults found while building the
// Catalog. They are fatal at startup.
var ErrInvalidDefinition = errors.New("invalid tool definitions")

// HandlerFactory binds a tool definition to its implementation. schema is the
// compiled input schema of the tool.
type HandlerFactory interface {
	NewHandler(def ToolDefinition, schema *jsonschema.Schema) (server.ToolHandlerFunc, error)
}

// HandlerFactoryFunc adapts a function to HandlerFactory.
type HandlerFactoryFunc func(def ToolDefinition, schema *jsonschema.Schema) (server.ToolHandlerFunc, error)

// NewHandler calls f.
func (f HandlerFactoryFunc) NewHandler(def ToolDefinition, schema *jsonschema.Schema) (server.ToolHandlerFunc, error) {
	return f(def, schema)
}

// workflowIDPattern matches workflow slugs. Discovery lowercases model
// answers, so ids must already be lowercase to be selectable.
var workflowIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

var emptyObjectSchema = map[string]any{"type": "object", "properties": map[string]any{}}

type workflowEntry struct {
	descriptor WorkflowDescriptor
	tools      []string // owned tools in definition order, then re-exports
}

// Catalog is the immutable index of workflows and tools. It is safe for
// concurrent reads.
type Catalog struct {
	workflows map[string]*workflowEntry
	order     []string // workflow ids sorted by display name
	tools     map[string]ToolDescriptor
}

// Load validates defs and builds a Catalog. Every fault found is reported in
// the returned error, which wraps ErrInvalidDefinition.
func Load(defs Definitions, handlers HandlerFactory) (*Catalog, error) {
	c := &Catalog{
		workflows: make(map[string]*workflowEntry, len(defs.Workflows)),
		tools:     make(map[string]ToolDescriptor, len(defs.Tools)),
	}
	var errs []error

	for _, wf := range defs.Workflows {
		if wf.ID == "" {
			errs = append(errs, fmt.Errorf("workflow %q: id is required", wf.Name))
			continue
		}
		if !workflowIDPattern.MatchString(wf.ID) {
			errs = append(errs, fmt.Errorf("workflow %q: id must be a lowercase slug matching %s", wf.ID, workflowIDPattern))
			continue
		}
		if _, exists := c.workflows[wf.ID]; exists {
			errs = append(errs, fmt.Errorf("workflow %q: defined twice", wf.ID))
			continue
		}
		name := wf.Name
		if name == "" {
			name = wf.ID
		}
		c.workflows[wf.ID] = &workflowEntry{
			descriptor: WorkflowDescriptor{
				ID:           wf.ID,
				Name:         name,
				Description:  wf.Description,
				Platforms:    append([]string(nil), wf.Platforms...),
				Capabilities: append([]string(nil), wf.Capabilities...),
			},
		}
	}

	// Caller-visible names per workflow; owned tools are indexed before
	// re-exports so ToolsOf lists a workflow's own tools first.
	visible := make(map[string]map[string]bool, len(c.workflows))
	claim := func(workflow, tool string) error {
		names := visible[workflow]
		if names == nil {
			names = make(map[string]bool)
			visible[workflow] = names
		}
		if names[tool] {
			return fmt.Errorf("tool %q: name collides with another tool in workflow %q", tool, workflow)
		}
		names[tool] = true
		return nil
	}

	var accepted []ToolDefinition
	for _, def := range defs.Tools {
		if def.Name == "" {
			errs = append(errs, fmt.Errorf("tool in workflow %q: name is required", def.Workflow))
			continue
		}
		if _, ok := c.workflows[def.Workflow]; !ok {
			errs = append(errs, fmt.Errorf("tool %q: owning workflow %q does not exist", def.Name, def.Workflow))
			continue
		}
		if err := claim(def.Workflow, def.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, exists := c.tools[def.Name]; exists {
			errs = append(errs, fmt.Errorf("tool %q: defined twice", def.Name))
			continue
		}

		descriptor, err := buildTool(def, handlers)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.tools[def.Name] = descriptor
		c.workflows[def.Workflow].tools = append(c.workflows[def.Workflow].tools, def.Name)
		accepted = append(accepted, def)
	}

	for _, def := range accepted {
		seen := make(map[string]bool, len(def.ReexportedBy))
		for _, wf := range def.ReexportedBy {
			switch {
			case wf == def.Workflow:
				errs = append(errs, fmt.Errorf("tool %q: workflow %q cannot re-export its own tool", def.Name, wf))
				continue
			case seen[wf]:
				errs = append(errs, fmt.Errorf("tool %q: re-exported by %q more than once", def.Name, wf))
				continue
			}
			seen[wf] = true
			entry, ok := c.workflows[wf]
			if !ok {
				errs = append(errs, fmt.Errorf("tool %q: re-exporting workflow %q does not exist", def.Name, wf))
				continue
			}
			if err := claim(wf, def.Name); err != nil {
				errs = append(errs, err)
				continue
			}
			entry.tools = append(entry.tools, def.Name)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, errors.Join(errs...))
	}

	c.order = make([]string, 0, len(c.workflows))
	for id := range c.workflows {
		c.order = append(c.order, id)
	}
	sort.Slice(c.order, func(i, j int) bool {
		a, b := c.workflows[c.order[i]].descriptor, c.workflows[c.order[j]].descriptor
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	logging.Debug("Catalog", "Loaded %d workflows and %d tools", len(c.workflows), len(c.tools))
	return c, nil
}

func buildTool(def ToolDefinition, handlers HandlerFactory) (ToolDescriptor, error) {
	schemaDoc := def.InputSchema
	if schemaDoc == nil {
		schemaDoc = emptyObjectSchema
	}
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return ToolDescriptor{}, fmt.Errorf("tool %q: input schema is not JSON-serializable: %w", def.Name, err)
	}
	schema, err := compileSchema(def.Name, raw)
	if err != nil {
		return ToolDescriptor{}, fmt.Errorf("tool %q: %w", def.Name, err)
	}

	handler, err := handlers.NewHandler(def, schema)
	if err != nil {
		return ToolDescriptor{}, fmt.Errorf("tool %q: %w", def.Name, err)
	}
	if handler == nil {
		return ToolDescriptor{}, fmt.Errorf("tool %q: no handler", def.Name)
	}

	return ToolDescriptor{
		Name:         def.Name,
		Description:  def.Description,
		InputSchema:  raw,
		Handler:      handler,
		Owner:        def.Workflow,
		ReexportedBy: append([]string(nil), def.ReexportedBy...),
	}, nil
}

// compileSchema compiles a tool input schema.
func compileSchema(name string, raw []byte) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	url := "mem://tools/" + name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Lookup returns the workflow with the given slug.
func (c *Catalog) Lookup(slug string) (WorkflowDescriptor, bool) {
	entry, ok := c.workflows[slug]
	if !ok {
		return WorkflowDescriptor{}, false
	}
	return entry.descriptor, true
}

// HasWorkflow reports whether slug names a known workflow.
func (c *Catalog) HasWorkflow(slug string) bool {
	_, ok := c.workflows[slug]
	return ok
}

// ToolsOf returns the tools reachable from a workflow: owned tools in
// definition order followed by re-exports. Unknown slugs yield nil.
func (c *Catalog) ToolsOf(slug string) []ToolDescriptor {
	entry, ok := c.workflows[slug]
	if !ok {
		return nil
	}
	out := make([]ToolDescriptor, 0, len(entry.tools))
	for _, name := range entry.tools {
		out = append(out, c.tools[name])
	}
	return out
}

// Tool returns a tool by name.
func (c *Catalog) Tool(name string) (ToolDescriptor, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// AllWorkflows returns every workflow ordered by display name.
func (c *Catalog) AllWorkflows() []WorkflowDescriptor {
	out := make([]WorkflowDescriptor, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.workflows[id].descriptor)
	}
	return out
}

// WorkflowIDs returns every workflow slug in AllWorkflows order.
func (c *Catalog) WorkflowIDs() []string {
	return append([]string(nil), c.order...)
}

// ToolCount returns the number of distinct tools.
func (c *Catalog) ToolCount() int {
	return len(c.tools)
}
