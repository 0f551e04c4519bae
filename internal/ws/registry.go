package ws

import (
	"sync"

	"github.com/remote-session-control/backend/internal/control"
)

// Registry is the authoritative set of connected clients. It is owned by the
// transport layer; the protocol layer only ever consumes snapshots of it.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
	}
}

// Add registers a client.
func (r *Registry) Add(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ID()] = client
}

// Remove unregisters a client by id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// Get returns the client with the given id.
func (r *Registry) Get(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[id]
	return client, ok
}

// Count returns the number of registered clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Snapshot returns the current client set in the shape the broadcaster
// consumes. The returned map is a copy; a client disconnecting after the
// snapshot is defended against by its own open-state check.
func (r *Registry) Snapshot() map[string]control.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]control.Client, len(r.clients))
	for id, client := range r.clients {
		snapshot[id] = client
	}
	return snapshot
}
