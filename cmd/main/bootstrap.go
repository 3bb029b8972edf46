package main

import (
	"onion-watch/src/logger"
	"onion-watch/src/storage"
)

// bootstrapHistory loads archived snapshots so the REST window survives restarts
func bootstrapHistory(history *storage.SnapshotHistory, appLogger *logger.Logger) {
	n, err := history.Warm()
	if err != nil {
		appLogger.Warning("History warm-up failed: %v", err)
		return
	}
	if n > 0 {
		appLogger.Info("Restored %d snapshot(s) from archive", n)
	}
}
