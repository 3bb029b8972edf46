package main

import (
	"context"
	"fmt"

	"onion-watch/src/config"
	pb "onion-watch/src/grpc_control"
	"onion-watch/src/logger"
)

// -----------------------------------------------------------------------------

// startServers launches every long-running component; fatal errors arrive on the channel
func startServers(ctx context.Context, app *application, conf *config.Config, appLogger *logger.Logger) <-chan error {
	errs := make(chan error, 3)

	// 1. HTTP / WebSocket server
	go func() {
		if err := app.server.Start(); err != nil {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()

	// 2. History recorder
	if app.recorder != nil {
		if err := app.recorder.Start(); err != nil {
			appLogger.Error("Recorder failed to start: %v", err)
		}
	}

	// 3. Redis relay subscriber
	if app.redis != nil {
		go func() {
			if err := app.redis.Run(ctx); err != nil {
				appLogger.Error("Relay stopped: %v", err)
			}
		}()
	}

	// 4. gRPC Control Server
	if conf.GrpcPort != 0 {
		go func() {
			addr := fmt.Sprintf("%s:%d", conf.GrpcHost, conf.GrpcPort)
			svc := pb.NewControlService(app.server, appLogger.Named("ControlService"))
			if err := pb.ListenAndServe(ctx, addr, svc, appLogger.Named("grpc")); err != nil {
				errs <- err
			}
		}()
	}

	return errs
}

// -----------------------------------------------------------------------------

func stopServers(app *application, appLogger *logger.Logger) {
	if app.recorder != nil {
		if err := app.recorder.Stop(); err != nil {
			appLogger.Warning("%v", err)
		}
	}
	if err := app.server.Stop(); err != nil {
		appLogger.Warning("HTTP shutdown: %v", err)
	}
	if app.redis != nil {
		app.redis.Close()
	}
}
