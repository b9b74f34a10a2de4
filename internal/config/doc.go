// Package config provides configuration management for xcmcp.
//
// This package implements a layered configuration system. Configuration is
// loaded from multiple sources and merged in a specific order, with later
// sources overriding earlier ones.
//
// # Configuration Layers
//
//  1. Default Configuration (compiled into the binary)
//  2. User Configuration (~/.config/xcmcp/config.yaml)
//  3. Project Configuration (./.xcmcp/config.yaml)
//  4. An explicit file passed with --config
//  5. Environment variables (XCMCP_DYNAMIC_TOOLS, XCMCP_ENABLED_WORKFLOWS,
//     XCMCP_DEFINITIONS_DIR, XCMCP_DEBUG)
//
// Command line flags are applied last by the cmd package.
//
// # Configuration Structure
//
//	mode: dynamic
//	enabledWorkflows:
//	  - simulator
//	definitionsDir: ./tools
//	server:
//	  transport: stdio
//	discovery:
//	  maxTokens: 200
//	logging:
//	  level: info
//	  format: text
//	toolchain:
//	  timeout: 30m
package config
