package storage

import (
	"sync"

	"onion-watch/src/interfaces"
	"onion-watch/src/logger"
	"onion-watch/src/models"
	"onion-watch/src/utils"
)

// -----------------------------------------------------------------------------
// SnapshotHistory is the bounded in-memory window served by the REST API.
// When an archive is attached every push is written through and the archive
// is trimmed to the same capacity.
// -----------------------------------------------------------------------------

type SnapshotHistory struct {
	mu      sync.RWMutex
	buffer  *utils.RingBuffer[models.MTrafficSnapshot]
	archive interfaces.ISnapshotArchive
	logger  *logger.Logger
}

// -----------------------------------------------------------------------------

// NewSnapshotHistory creates a history; archive may be nil
func NewSnapshotHistory(capacity int, archive interfaces.ISnapshotArchive, log *logger.Logger) *SnapshotHistory {
	if log == nil {
		log = logger.NewNop()
	}
	return &SnapshotHistory{
		buffer:  utils.NewRingBuffer[models.MTrafficSnapshot](capacity),
		archive: archive,
		logger:  log,
	}
}

// -----------------------------------------------------------------------------

// Warm loads the newest archived snapshots into memory
func (h *SnapshotHistory) Warm() (int, error) {
	if h.archive == nil {
		return 0, nil
	}

	snapshots, err := h.archive.LoadRecent(h.buffer.Capacity())
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range snapshots {
		h.buffer.Append(s)
	}
	return len(snapshots), nil
}

// -----------------------------------------------------------------------------

// Push appends a snapshot and reports whether the oldest one was evicted.
// Archive failures are logged; the in-memory window is always updated.
func (h *SnapshotHistory) Push(snapshot models.MTrafficSnapshot) bool {
	h.mu.Lock()
	_, evicted := h.buffer.Append(snapshot)
	h.mu.Unlock()

	if h.archive != nil {
		if err := h.archive.SaveSnapshot(snapshot); err != nil {
			h.logger.Error("Failed to archive snapshot %s: %v", snapshot.ID, err)
		} else if err := h.archive.Trim(h.buffer.Capacity()); err != nil {
			h.logger.Warning("Failed to trim archive: %v", err)
		}
	}
	return evicted
}

// -----------------------------------------------------------------------------

// Latest returns up to n snapshots, newest last
func (h *SnapshotHistory) Latest(n int) []models.MTrafficSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.buffer.GetLatest(n)
}

// -----------------------------------------------------------------------------

// All returns the whole window, newest last
func (h *SnapshotHistory) All() []models.MTrafficSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.buffer.GetAll()
}

// -----------------------------------------------------------------------------

// Newest returns the most recent snapshot
func (h *SnapshotHistory) Newest() (models.MTrafficSnapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.buffer.Newest()
}

// -----------------------------------------------------------------------------

func (h *SnapshotHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.buffer.Size()
}

// -----------------------------------------------------------------------------

func (h *SnapshotHistory) Capacity() int {
	return h.buffer.Capacity()
}
