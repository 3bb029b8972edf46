package storage

import (
	"encoding/json"
	"fmt"

	"onion-watch/src/config"
	"onion-watch/src/interfaces"
	"onion-watch/src/logger"
	"onion-watch/src/models"
)

// -----------------------------------------------------------------------------

// NewArchive returns the archive configured by storage.db_type, or nil for memory
func NewArchive(cfg *config.Config, log *logger.Logger) (interfaces.ISnapshotArchive, error) {
	switch cfg.Storage.DBType {
	case "", "memory":
		return nil, nil
	case "sqlite":
		return NewSQLiteArchive(cfg.MConfig, log), nil
	case "postgres":
		return NewPostgresArchive(cfg.MConfig, log), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Storage.DBType)
	}
}

// -----------------------------------------------------------------------------

func encodeSnapshot(s models.MTrafficSnapshot) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot %s: %w", s.ID, err)
	}
	return string(payload), nil
}

// -----------------------------------------------------------------------------

func decodeSnapshot(payload string) (models.MTrafficSnapshot, error) {
	var s models.MTrafficSnapshot
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return s, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return s, nil
}

// -----------------------------------------------------------------------------

// reverse turns newest-first query results into oldest-first order
func reverse(list []models.MTrafficSnapshot) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
}
