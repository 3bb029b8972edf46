package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"onion-watch/src/config"
	"onion-watch/src/logger"

	"github.com/spf13/cobra"
)

// -----------------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the live-update server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", envOrDefault("ONION_WATCH_CONFIG", "config/default.yaml"), "path to config file")
	return cmd
}

// -----------------------------------------------------------------------------

func runServe(ctx context.Context, configPath string) error {
	// 1. Load config
	conf, err := config.NewConfig(configPath)
	if err != nil {
		return err
	}

	// 2. Setup Logger
	appLogger := logger.NewLogger(conf.LogLevel, conf.Name)
	defer appLogger.Sync()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 3. Setup Components
	archive, err := setupArchive(ctx, conf, appLogger)
	if err != nil {
		return err
	}
	if archive != nil {
		defer archive.Close()
	}

	app := setupApplication(ctx, conf, archive, appLogger)

	// 4. Bootstrap (warm history from the archive)
	bootstrapHistory(app.history, appLogger)

	// 5. Start Servers
	errs := startServers(ctx, app, conf, appLogger)

	select {
	case <-ctx.Done():
		appLogger.Info("Shutdown signal received")
	case err := <-errs:
		appLogger.Error("Server failed: %v", err)
		cancel()
	}

	stopServers(app, appLogger)
	appLogger.Info("Shutdown complete.")
	return nil
}
