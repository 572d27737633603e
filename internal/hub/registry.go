package hub

import (
	"sync"

	"github.com/King47-code/safe-ride-backend/internal/observability"
)

// Registry is the process-scoped set of live connections and their room
// memberships. It is created once at server start and handed to the Hub;
// nothing reaches it as a package global.
type Registry struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

func (r *Registry) add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
	observability.ConnectedClients.Inc()
}

// remove drops the client from the registry and every room. Reports whether
// the client was still present, so disconnect paths run exactly once.
func (r *Registry) remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; !ok {
		return false
	}
	delete(r.clients, c)
	for room, members := range r.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	observability.ConnectedClients.Dec()
	return true
}

func (r *Registry) join(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; !ok {
		return
	}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		r.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (r *Registry) inRoom(c *Client, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room][c]
	return ok
}

// all snapshots the connection set so delivery never runs under the lock.
func (r *Registry) all() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}

func (r *Registry) room(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	out := make([]*Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
