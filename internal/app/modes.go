package app

import (
	"context"
	"os/signal"
	"syscall"

	"xcmcp/pkg/logging"
)

// runServer serves until interrupted.
func runServer(ctx context.Context, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("Server", "Serving %d tools over %s", len(services.Server.ToolNames()), services.Config.Server.Transport)
	err := services.Server.Serve(ctx)

	if ctx.Err() != nil {
		logging.Info("Server", "Shutting down")
	}
	if err != nil {
		logging.Error("Server", err, "Server stopped with error")
		return err
	}
	return nil
}
