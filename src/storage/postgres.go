package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"onion-watch/src/logger"
	"onion-watch/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresArchive struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresArchive(cfg *models.MConfig, log *logger.Logger) *PostgresArchive {
	// Schema is named after the executable, falling back to the app name
	name := cfg.Name
	if exe, err := os.Executable(); err == nil {
		name = strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
	}

	return &PostgresArchive{
		Config: cfg,
		Schema: name,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	// Create Schema
	if _, err := db.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL,
			captured_at BIGINT NOT NULL,
			payload JSONB NOT NULL
		);
	`, d.table())
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return fmt.Errorf("failed to create traffic_snapshots: %w", err)
	}

	d.DB = db
	d.Logger.Info("PostgresArchive initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) table() string {
	return fmt.Sprintf(`"%s"."traffic_snapshots"`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) SaveSnapshot(snapshot models.MTrafficSnapshot) error {
	payload, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, captured_at, payload) VALUES ($1, $2, $3)`, d.table())
	_, err = d.DB.Exec(query, snapshot.ID, snapshot.Timestamp.UnixMilli(), payload)
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) LoadRecent(limit int) ([]models.MTrafficSnapshot, error) {
	query := fmt.Sprintf(`SELECT payload::text FROM %s ORDER BY seq DESC LIMIT $1`, d.table())
	rows, err := d.DB.Query(query, limit)
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

func (d *PostgresArchive) Trim(keep int) error {
	query := fmt.Sprintf(`
		DELETE FROM %[1]s
		WHERE seq < (
			SELECT COALESCE(MIN(seq), 0) FROM (
				SELECT seq FROM %[1]s ORDER BY seq DESC LIMIT $1
			) newest
		)
	`, d.table())
	_, err := d.DB.Exec(query, keep)
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
