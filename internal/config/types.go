package config

import "time"

// Mode selects how workflows are enabled when the server starts.
type Mode string

const (
	// ModeStatic enables every workflow (or the configured subset) at startup.
	ModeStatic Mode = "static"
	// ModeDynamic starts with no workflows and exposes the discovery tools.
	ModeDynamic Mode = "dynamic"
)

const (
	// TransportStdio is the standard I/O transport.
	TransportStdio = "stdio"
	// TransportSSE is the Server-Sent Events transport.
	TransportSSE = "sse"
	// TransportStreamableHTTP is the streamable HTTP transport.
	TransportStreamableHTTP = "streamable-http"
)

// XcmcpConfig is the top-level configuration structure for xcmcp.
type XcmcpConfig struct {
	Mode             Mode            `yaml:"mode,omitempty"`
	EnabledWorkflows []string        `yaml:"enabledWorkflows,omitempty"`
	DefinitionsDir   string          `yaml:"definitionsDir,omitempty"` // Extra tool definition files layered over the embedded catalog
	Server           ServerConfig    `yaml:"server,omitempty"`
	Discovery        DiscoveryConfig `yaml:"discovery,omitempty"`
	Logging          LoggingConfig   `yaml:"logging,omitempty"`
	Toolchain        ToolchainConfig `yaml:"toolchain,omitempty"`
}

// ServerConfig defines how the MCP server is exposed.
type ServerConfig struct {
	Transport string `yaml:"transport,omitempty"` // stdio (default), sse or streamable-http
	Host      string `yaml:"host,omitempty"`      // Host to bind to for HTTP transports (default: localhost)
	Port      int    `yaml:"port,omitempty"`      // Port for HTTP transports (default: 8090)
}

// DiscoveryConfig tunes the discover_tools round-trip.
type DiscoveryConfig struct {
	MaxTokens int `yaml:"maxTokens,omitempty"` // Response ceiling for the sampling request
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // text or json
}

// ToolchainConfig controls how external toolchain commands are run.
type ToolchainConfig struct {
	Timeout    time.Duration `yaml:"timeout,omitempty"`    // Upper bound for a single command
	WorkingDir string        `yaml:"workingDir,omitempty"` // Directory commands run in (default: process cwd)
}
