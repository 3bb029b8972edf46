package interfaces

import "onion-watch/src/models"

// -----------------------------------------------------------------------------
// ISnapshotArchive defines the contract for optional snapshot persistence.
// -----------------------------------------------------------------------------

type ISnapshotArchive interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveSnapshot inserts one snapshot.
	SaveSnapshot(snapshot models.MTrafficSnapshot) error

	// -----------------------------------------------------------------------------

	// LoadRecent returns up to limit snapshots, oldest first.
	LoadRecent(limit int) ([]models.MTrafficSnapshot, error)

	// -----------------------------------------------------------------------------

	// Trim keeps only the newest keep rows.
	Trim(keep int) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
