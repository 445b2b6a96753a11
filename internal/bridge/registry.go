package bridge

import (
	"sort"
	"sync"
)

// Socket is a browser connection as seen by the registry and connectors.
type Socket interface {
	ID() string
	Emit(event string, data any) error
	Close() error
}

// SocketRegistry tracks the live sockets of every route.
type SocketRegistry struct {
	mu      sync.RWMutex
	sockets map[string]map[string]Socket // Protected by mu
}

// NewSocketRegistry creates an empty registry.
func NewSocketRegistry() *SocketRegistry {
	return &SocketRegistry{sockets: make(map[string]map[string]Socket)}
}

// Register adds s to route and returns the number of live sockets after
// the operation.
func (r *SocketRegistry) Register(route string, s Socket) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sockets[route]
	if !ok {
		set = make(map[string]Socket)
		r.sockets[route] = set
	}
	set[s.ID()] = s
	return len(set)
}

// Unregister removes the socket with the given id from route. Removing a
// socket that is not registered is a no-op; removed reports which case
// happened.
func (r *SocketRegistry) Unregister(route, socketID string) (live int, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sockets[route]
	if !ok {
		return 0, false
	}
	if _, ok := set[socketID]; !ok {
		return len(set), false
	}
	delete(set, socketID)
	if len(set) == 0 {
		delete(r.sockets, route)
	}
	return len(set), true
}

// UnregisterAll drops every socket of route and returns them.
func (r *SocketRegistry) UnregisterAll(route string) []Socket {
	r.mu.Lock()
	set := r.sockets[route]
	delete(r.sockets, route)
	r.mu.Unlock()

	return sorted(set)
}

// Get returns the live sockets of route ordered by id.
func (r *SocketRegistry) Get(route string) []Socket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sorted(r.sockets[route])
}

// Count returns the number of live sockets of route.
func (r *SocketRegistry) Count(route string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sockets[route])
}

// Total returns the number of registered sockets across all routes.
func (r *SocketRegistry) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, set := range r.sockets {
		n += len(set)
	}
	return n
}

func sorted(set map[string]Socket) []Socket {
	if len(set) == 0 {
		return nil
	}
	out := make([]Socket, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
