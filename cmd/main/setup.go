package main

import (
	"context"
	"fmt"
	"time"

	"onion-watch/src/auth"
	"onion-watch/src/config"
	"onion-watch/src/generator"
	"onion-watch/src/helpers"
	"onion-watch/src/interfaces"
	"onion-watch/src/logger"
	"onion-watch/src/recorder"
	"onion-watch/src/relay"
	"onion-watch/src/server"
	"onion-watch/src/storage"
)

// application bundles what the servers need
type application struct {
	server   *server.Server
	history  *storage.SnapshotHistory
	recorder *recorder.Recorder
	redis    *relay.RedisBus
}

// -----------------------------------------------------------------------------

// setupArchive opens the configured archive; memory storage returns nil
func setupArchive(ctx context.Context, conf *config.Config, appLogger *logger.Logger) (interfaces.ISnapshotArchive, error) {
	archive, err := storage.NewArchive(conf, appLogger.Named("archive"))
	if err != nil || archive == nil {
		return nil, err
	}

	err = helpers.RetryWithBackoff(ctx, appLogger, "archive init", 3, time.Second, archive.Initialize)
	if err != nil {
		return nil, helpers.NewStorageError(fmt.Sprintf("failed to initialize %s archive", conf.Storage.DBType), err)
	}
	return archive, nil
}

// -----------------------------------------------------------------------------

// setupApplication wires the registry, generator, history, bus and server
func setupApplication(ctx context.Context, conf *config.Config, archive interfaces.ISnapshotArchive, appLogger *logger.Logger) *application {
	registry := server.NewRegistry(appLogger.Named("registry"))
	gen := generator.NewGenerator()
	history := storage.NewSnapshotHistory(conf.History.Capacity, archive, appLogger.Named("history"))

	app := &application{history: history}

	var bus interfaces.IControlBus = relay.NewLocalBus(registry, appLogger.Named("relay"))
	if conf.Relay.Enabled {
		redisBus := relay.NewRedisBus(conf.Relay.RedisAddr, conf.Relay.RedisDB, conf.Relay.Channel, registry, appLogger.Named("relay"))
		if err := redisBus.Connect(ctx); err != nil {
			appLogger.Warning("Redis relay unavailable, falling back to local broadcast: %v", err)
			redisBus.Close()
		} else {
			bus = redisBus
			app.redis = redisBus
		}
	}

	app.server = server.NewServer(conf, appLogger.Named("server"), server.Dependencies{
		Registry: registry,
		Source:   gen,
		History:  history,
		Bus:      bus,
		Auth:     auth.NewTokenVerifier(conf.Auth.JWTSecret, conf.Auth.Issuer),
	})

	if conf.History.RecordIntervalSeconds > 0 {
		interval := time.Duration(conf.History.RecordIntervalSeconds) * time.Second
		rec, err := recorder.New(gen, history, interval, appLogger)
		if err != nil {
			appLogger.Error("Recorder disabled: %v", err)
		} else {
			app.recorder = rec
		}
	}

	return app
}
