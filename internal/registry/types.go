package registry

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"
)

// Mode is the registry operating mode.
type Mode string

const (
	// ModeStatic enables workflows once at startup.
	ModeStatic Mode = "static"
	// ModeDynamic starts empty; workflows are activated on request.
	ModeDynamic Mode = "dynamic"
)

// ErrRegistration wraps failures reported by the tool table.
var ErrRegistration = errors.New("tool registration failed")

// ToolTable is the live tool table of the protocol server.
type ToolTable interface {
	// AddTools registers a batch of tools and notifies connected clients that
	// the tool list changed, once per call. On error no tool of the batch may
	// remain registered.
	AddTools(ctx context.Context, tools ...server.ServerTool) error

	// DeleteTools removes tools by name. Unknown names are ignored.
	DeleteTools(ctx context.Context, names ...string)
}

// ActivationResult describes the effect of one Activate call.
type ActivationResult struct {
	// Activated lists the workflows enabled by this call, in request order.
	Activated []string
	// NewlyRegistered counts tools added to the tool table by this call.
	NewlyRegistered int
	// Enabled lists every enabled workflow after the call, sorted.
	Enabled []string
}

// WorkflowStatus is the read-only view of a workflow used by listings and
// diagnostics.
type WorkflowStatus struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Platforms    []string     `json:"platforms,omitempty"`
	Capabilities []string     `json:"capabilities,omitempty"`
	Enabled      bool         `json:"enabled"`
	Tools        []ToolStatus `json:"tools"`
}

// ToolStatus is the read-only view of a tool within a workflow.
type ToolStatus struct {
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	Reexported bool   `json:"reexported,omitempty"` // reachable from this workflow through a re-export
	Registered bool   `json:"registered"`
}
