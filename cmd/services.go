package cmd

import (
	"context"
	"io"

	"xcmcp/internal/app"
	"xcmcp/internal/toolexec"
	"xcmcp/pkg/logging"
)

// loadServices wires the server subsystems without serving and performs the
// startup activation, so listings reflect what serve would expose.
func loadServices(ctx context.Context, logOutput io.Writer, debug bool) (*app.Services, error) {
	level := logging.LevelWarn
	if debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, logOutput)

	cfg := app.NewConfig(configPath, false, rootCmd.Version)
	xcfg, err := cfg.LoadConfig()
	if err != nil {
		return nil, err
	}

	services, err := app.InitializeServices(xcfg, rootCmd.Version, toolexec.NewExecExecutor())
	if err != nil {
		return nil, err
	}
	if _, err := services.Registry.Start(ctx, xcfg.EnabledWorkflows); err != nil {
		return nil, err
	}
	return services, nil
}
