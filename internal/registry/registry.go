package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"xcmcp/internal/catalog"
	"xcmcp/pkg/logging"

	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("xcmcp/internal/registry")

// Registry records which workflows and tools are exposed to callers. Activate
// is its only writer; activations are serialized.
type Registry struct {
	catalog *catalog.Catalog
	table   ToolTable
	mode    Mode

	// activateMu serializes Activate so two callers cannot both treat the
	// same tool as newly required.
	activateMu sync.Mutex

	mu         sync.RWMutex
	enabled    map[string]bool
	registered map[string]bool
}

// New creates an empty registry bound to the catalog and the live tool table.
func New(cat *catalog.Catalog, table ToolTable, mode Mode) *Registry {
	return &Registry{
		catalog:    cat,
		table:      table,
		mode:       mode,
		enabled:    make(map[string]bool),
		registered: make(map[string]bool),
	}
}

// Start performs the startup activation. In static mode every workflow is
// enabled unless initial narrows the set; in dynamic mode only initial is
// enabled, which may be nothing.
func (r *Registry) Start(ctx context.Context, initial []string) (ActivationResult, error) {
	slugs := initial
	if r.mode == ModeStatic && len(slugs) == 0 {
		slugs = r.catalog.WorkflowIDs()
	}
	if len(slugs) == 0 {
		logging.Info("Registry", "Started in %s mode with no workflows enabled", r.mode)
		return ActivationResult{Enabled: r.EnabledWorkflows()}, nil
	}

	result, err := r.Activate(ctx, slugs)
	if err != nil {
		return result, fmt.Errorf("startup activation failed: %w", err)
	}
	logging.Info("Registry", "Started in %s mode with %d workflows and %d tools enabled",
		r.mode, len(result.Enabled), result.NewlyRegistered)
	return result, nil
}

// Activate enables the given workflows and registers the tools they need.
// Unknown and already enabled slugs are skipped. The call is all-or-nothing:
// when registration fails the registry and tool table keep their previous
// contents.
func (r *Registry) Activate(ctx context.Context, slugs []string) (ActivationResult, error) {
	ctx, span := tracer.Start(ctx, "registry.Activate",
		trace.WithAttributes(attribute.StringSlice("xcmcp.workflows.requested", slugs)))
	defer span.End()

	r.activateMu.Lock()
	defer r.activateMu.Unlock()

	toEnable, batch, names := r.plan(slugs)
	if len(toEnable) == 0 {
		logging.Debug("Registry", "Nothing to activate for %v", slugs)
		return ActivationResult{Enabled: r.EnabledWorkflows()}, nil
	}

	if len(batch) > 0 {
		logging.Debug("Registry", "Registering %d tools in batch", len(batch))
		if err := r.table.AddTools(ctx, batch...); err != nil {
			r.table.DeleteTools(ctx, names...)
			span.RecordError(err)
			span.SetStatus(codes.Error, "registration failed")
			logging.Error("Registry", err, "Activation of %v rolled back", toEnable)
			return ActivationResult{Enabled: r.EnabledWorkflows()}, fmt.Errorf("%w: %w", ErrRegistration, err)
		}
	}

	r.mu.Lock()
	for _, slug := range toEnable {
		r.enabled[slug] = true
	}
	for _, name := range names {
		r.registered[name] = true
	}
	r.mu.Unlock()

	span.SetAttributes(
		attribute.StringSlice("xcmcp.workflows.activated", toEnable),
		attribute.Int("xcmcp.tools.registered", len(names)),
	)
	logging.Info("Registry", "Activated workflows %v (%d new tools)", toEnable, len(names))

	return ActivationResult{
		Activated:       toEnable,
		NewlyRegistered: len(names),
		Enabled:         r.EnabledWorkflows(),
	}, nil
}

// plan computes the workflows to enable and the tools to register, without
// mutating anything.
func (r *Registry) plan(slugs []string) (toEnable []string, batch []server.ServerTool, names []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requested := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		if !r.catalog.HasWorkflow(slug) {
			logging.Debug("Registry", "Ignoring unknown workflow %q", slug)
			continue
		}
		if r.enabled[slug] || requested[slug] {
			continue
		}
		requested[slug] = true
		toEnable = append(toEnable, slug)
	}

	pending := make(map[string]bool)
	for _, slug := range toEnable {
		for _, tool := range r.catalog.ToolsOf(slug) {
			// A re-exported tool is the same registration as its owner's.
			if r.registered[tool.Name] || pending[tool.Name] {
				continue
			}
			pending[tool.Name] = true
			batch = append(batch, tool.ServerTool())
			names = append(names, tool.Name)
		}
	}
	return toEnable, batch, names
}

// Mode returns the operating mode.
func (r *Registry) Mode() Mode {
	return r.mode
}

// Catalog returns the catalog the registry was built from.
func (r *Registry) Catalog() *catalog.Catalog {
	return r.catalog
}

// IsEnabled reports whether a workflow is enabled.
func (r *Registry) IsEnabled(slug string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[slug]
}

// EnabledWorkflows returns the enabled workflow slugs, sorted.
func (r *Registry) EnabledWorkflows() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.enabled)
}

// RegisteredTools returns the registered tool names, sorted.
func (r *Registry) RegisteredTools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.registered)
}

// Workflows returns every catalog workflow with its enabled status, in
// catalog order.
func (r *Registry) Workflows() []WorkflowStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.catalog.AllWorkflows()
	out := make([]WorkflowStatus, 0, len(all))
	for _, wf := range all {
		status := WorkflowStatus{
			ID:           wf.ID,
			Name:         wf.Name,
			Description:  wf.Description,
			Platforms:    wf.Platforms,
			Capabilities: wf.Capabilities,
			Enabled:      r.enabled[wf.ID],
		}
		for _, tool := range r.catalog.ToolsOf(wf.ID) {
			status.Tools = append(status.Tools, ToolStatus{
				Name:       tool.Name,
				Owner:      tool.Owner,
				Reexported: tool.Owner != wf.ID,
				Registered: r.registered[tool.Name],
			})
		}
		out = append(out, status)
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
