package registry

import (
	"strings"
	"sync"
)

// Registry tracks which logical users currently have live, subscribed
// connections. It is the only shared mutable state in the fan-out service and
// must never be exposed to producers directly; all access goes through its
// methods, each of which is a single critical section.
type Registry struct {
	users map[string]map[string]struct{} // userID -> set of connection IDs
	mu    sync.RWMutex
}

// New creates an empty connection registry.
func New() *Registry {
	return &Registry{
		users: make(map[string]map[string]struct{}),
	}
}

// Register adds connID to userID's connection set, creating the set on first
// subscription. Registering the same pair twice is a no-op.
func (r *Registry) Register(userID, connID string) error {
	userID, connID, err := normalize(userID, connID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[userID]
	if !ok {
		conns = make(map[string]struct{})
		r.users[userID] = conns
	}
	conns[connID] = struct{}{}
	return nil
}

// Unregister removes connID from userID's set if present. When the set
// becomes empty the user entry is removed entirely, so the registry never
// accumulates dangling empty entries from churny connect/disconnect cycles.
// Unknown users or connections are a no-op: a disconnect racing an in-flight
// unsubscribe is valid, not a failure.
func (r *Registry) Unregister(userID, connID string) error {
	userID, connID, err := normalize(userID, connID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[userID]
	if !ok {
		return nil
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.users, userID)
	}
	return nil
}

// UnregisterConnection removes connID from every user entry it appears in.
// Called on raw transport disconnect, where the user identity may not be
// known. Safe to call for connections that were never registered.
func (r *Registry) UnregisterConnection(connID string) {
	connID = strings.TrimSpace(connID)
	if connID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, conns := range r.users {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.users, userID)
		}
	}
}

// Connections returns a snapshot of userID's live connection IDs. The result
// is a copy; mutating it does not affect the registry. Unknown users yield an
// empty slice.
func (r *Registry) Connections(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.users[strings.TrimSpace(userID)]
	out := make([]string, 0, len(conns))
	for id := range conns {
		out = append(out, id)
	}
	return out
}

// IsConnected reports whether userID has at least one live connection.
func (r *Registry) IsConnected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users[strings.TrimSpace(userID)]) > 0
}

// Users returns a snapshot of all user IDs with at least one live connection.
// Broadcast targets are resolved from this snapshot; users connecting
// concurrently are not guaranteed to be included.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.users))
	for userID := range r.users {
		out = append(out, userID)
	}
	return out
}

// UserCount returns the number of distinct users with at least one live
// connection.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users)
}

func normalize(userID, connID string) (string, string, error) {
	userID = strings.TrimSpace(userID)
	connID = strings.TrimSpace(connID)
	if userID == "" {
		return "", "", ErrEmptyUserID
	}
	if connID == "" {
		return "", "", ErrEmptyConnectionID
	}
	return userID, connID, nil
}
