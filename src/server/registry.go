package server

import (
	"sort"
	"sync"

	"onion-watch/src/interfaces"
	"onion-watch/src/logger"
)

// -----------------------------------------------------------------------------
// Registry maps connection ids to live handles.
// It is owned by the composition root and injected into the server.
// Connections run on their own goroutines, so every access is locked.
// -----------------------------------------------------------------------------

type Registry struct {
	mu     sync.RWMutex
	conns  map[string]interfaces.IConnection
	logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNop()
	}
	return &Registry{
		conns:  make(map[string]interfaces.IConnection),
		logger: log,
	}
}

// -----------------------------------------------------------------------------

// Register adds or replaces the handle stored under id
func (r *Registry) Register(id string, conn interfaces.IConnection) {
	r.mu.Lock()
	r.conns[id] = conn
	r.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Unregister removes id; unknown ids are ignored
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	return true
}

// -----------------------------------------------------------------------------

// Broadcast sends payload to every open handle and returns the delivery count.
// Handles that close between the check and the send are skipped.
func (r *Registry) Broadcast(payload interface{}) int {
	targets := r.Connections()

	delivered := 0
	for _, conn := range targets {
		if !conn.IsOpen() {
			continue
		}
		if err := conn.Send(payload); err != nil {
			r.logger.Debug("Broadcast skipped %s: %v", conn.ID(), err)
			continue
		}
		delivered++
	}
	return delivered
}

// -----------------------------------------------------------------------------

// Connections returns a copy of the registered handles
func (r *Registry) Connections() []interfaces.IConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]interfaces.IConnection, 0, len(r.conns))
	for _, conn := range r.conns {
		out = append(out, conn)
	}
	return out
}

// -----------------------------------------------------------------------------

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// -----------------------------------------------------------------------------

// IDs returns the registered ids, sorted
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
