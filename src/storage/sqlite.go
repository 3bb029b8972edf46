package storage

import (
	"database/sql"
	"fmt"

	"onion-watch/src/logger"
	"onion-watch/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteArchive struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteArchive(cfg *models.MConfig, log *logger.Logger) *SQLiteArchive {
	return &SQLiteArchive{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	// Rows survive restarts so the history can be warmed
	query := `
		CREATE TABLE IF NOT EXISTS traffic_snapshots (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			captured_at INTEGER NOT NULL,
			payload TEXT NOT NULL
		);
	`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return fmt.Errorf("failed to create traffic_snapshots: %w", err)
	}

	d.DB = db
	d.Logger.Info("SQLite archive initialized (%s)", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) SaveSnapshot(snapshot models.MTrafficSnapshot) error {
	payload, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	_, err = d.DB.Exec(
		`INSERT INTO traffic_snapshots (id, captured_at, payload) VALUES (?, ?, ?)`,
		snapshot.ID, snapshot.Timestamp.UnixMilli(), payload,
	)
	return err
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) LoadRecent(limit int) ([]models.MTrafficSnapshot, error) {
	rows, err := d.DB.Query(`SELECT payload FROM traffic_snapshots ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MTrafficSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		s, err := decodeSnapshot(payload)
		if err != nil {
			d.Logger.Warning("Skipping unreadable archived snapshot: %v", err)
			continue
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reverse(out)
	return out, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) Trim(keep int) error {
	_, err := d.DB.Exec(`
		DELETE FROM traffic_snapshots
		WHERE seq NOT IN (SELECT seq FROM traffic_snapshots ORDER BY seq DESC LIMIT ?)
	`, keep)
	return err
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
