package app

import (
	"fmt"

	"xcmcp/internal/catalog"
	"xcmcp/internal/config"
	"xcmcp/internal/discovery"
	"xcmcp/internal/doctor"
	"xcmcp/internal/mcpserver"
	"xcmcp/internal/registry"
	"xcmcp/internal/toolexec"
	"xcmcp/pkg/logging"
)

const serverInstructions = "Tools for building, testing and running Apple platform apps with Xcode, " +
	"the iOS Simulator, physical devices and Swift Package Manager."

const dynamicInstructions = " Tools are grouped into workflows that start disabled: call discover_tools " +
	"with a description of your task, or activate_workflows with workflow ids from list_workflows."

// Services holds the wired subsystems of a server process.
type Services struct {
	Config     config.XcmcpConfig
	Catalog    *catalog.Catalog
	Registry   *registry.Registry
	Server     *mcpserver.Server
	Discoverer *discovery.Discoverer
	Doctor     *doctor.Doctor
}

// LoadCatalog loads the embedded and configured definitions and binds each
// tool to a command handler.
func LoadCatalog(cfg config.XcmcpConfig, executor toolexec.CommandExecutor) (*catalog.Catalog, error) {
	defs, err := catalog.LoadDefinitions(cfg.DefinitionsDir)
	if err != nil {
		return nil, err
	}

	factory := toolexec.NewFactory(executor, toolexec.Options{
		Timeout:    cfg.Toolchain.Timeout,
		WorkingDir: cfg.Toolchain.WorkingDir,
	})
	cat, err := catalog.Load(defs, factory)
	if err != nil {
		return nil, err
	}

	for _, name := range mcpserver.ReservedToolNames {
		if _, clash := cat.Tool(name); clash {
			return nil, fmt.Errorf("%w: tool name %s is reserved", catalog.ErrInvalidDefinition, name)
		}
	}
	logging.Info("Bootstrap", "Loaded %d workflows with %d tools", len(cat.WorkflowIDs()), cat.ToolCount())
	return cat, nil
}

// InitializeServices builds the catalog, registry, protocol server,
// discovery and diagnostics. Nothing is registered or served yet.
func InitializeServices(cfg config.XcmcpConfig, version string, executor toolexec.CommandExecutor) (*Services, error) {
	cat, err := LoadCatalog(cfg, executor)
	if err != nil {
		return nil, err
	}

	mode := registry.ModeStatic
	instructions := serverInstructions
	if cfg.Mode == config.ModeDynamic {
		mode = registry.ModeDynamic
		instructions += dynamicInstructions
	}

	srv := mcpserver.New(mcpserver.Config{
		Name:         "xcmcp",
		Version:      version,
		Instructions: instructions,
		Transport:    cfg.Server.Transport,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
	})
	reg := registry.New(cat, srv, mode)

	services := &Services{
		Config:   cfg,
		Catalog:  cat,
		Registry: reg,
		Server:   srv,
		Doctor:   doctor.New(executor, version, nil),
	}
	if mode == registry.ModeDynamic {
		services.Discoverer = discovery.New(cat, reg, srv, cfg.Discovery.MaxTokens)
	}
	return services, nil
}
