package app

import (
	"context"
	"fmt"

	"xcmcp/internal/mcpserver"
	"xcmcp/internal/toolexec"
	"xcmcp/pkg/logging"
)

// Application is the main application structure that bootstraps and runs the
// MCP server.
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads configuration, initializes logging and wires all
// services. Catalog faults abort here.
func NewApplication(cfg *Config) (*Application, error) {
	xcfg, err := cfg.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load xcmcp configuration: %w", err)
	}

	level, _ := logging.ParseLevel(xcfg.Logging.Level)
	logging.InitForServer(level, logging.Format(xcfg.Logging.Format))
	logging.Info("Bootstrap", "Starting xcmcp %s in %s mode", cfg.Version, xcfg.Mode)

	services, err := InitializeServices(xcfg, cfg.Version, toolexec.NewExecExecutor())
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services exposes the wired services.
func (a *Application) Services() *Services {
	return a.services
}

// Prepare registers the built-in tools and performs the startup activation.
func (a *Application) Prepare(ctx context.Context) error {
	s := a.services
	err := s.Server.RegisterBuiltins(ctx, mcpserver.Builtins{
		Registry:   s.Registry,
		Doctor:     s.Doctor,
		Discoverer: s.Discoverer,
	})
	if err != nil {
		return err
	}
	if _, err := s.Registry.Start(ctx, s.Config.EnabledWorkflows); err != nil {
		return err
	}
	return nil
}

// Run prepares the server and serves until ctx is cancelled or a signal
// arrives.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Prepare(ctx); err != nil {
		logging.Error("Bootstrap", err, "Failed to prepare server")
		return err
	}
	return runServer(ctx, a.services)
}
