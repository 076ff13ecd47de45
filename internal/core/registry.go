package core

import (
	"sync"

	"github.com/samber/lo"
)

// Registry maps each user to the set of its live connections.
// A user with no connections has no entry.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[*Client]struct{}
	count  int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]map[*Client]struct{})}
}

// Admit adds the connection to the set of userID. Admitting the same connection twice is a no-op.
func (r *Registry) Admit(userID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[*Client]struct{})
		r.byUser[userID] = set
	}
	if _, exists := set[c]; exists {
		return
	}
	set[c] = struct{}{}
	r.count++
}

// Remove drops the connection from the set of userID and deletes the entry once
// the set is empty. It reports whether the connection was present.
func (r *Registry) Remove(userID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byUser[userID]
	if !ok {
		return false
	}
	if _, exists := set[c]; !exists {
		return false
	}
	delete(set, c)
	r.count--
	if len(set) == 0 {
		delete(r.byUser, userID)
	}
	return true
}

// Resolve returns every live connection of the listed users. Unknown users
// contribute nothing and a user listed twice is resolved once.
// The result is taken from a single snapshot of the registry.
func (r *Registry) Resolve(userIDs []string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Client
	for _, id := range lo.Uniq(userIDs) {
		for c := range r.byUser[id] {
			out = append(out, c)
		}
	}
	return out
}

// All returns every live connection.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, r.count)
	for _, set := range r.byUser {
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

// Connected reports whether userID has at least one live connection.
func (r *Registry) Connected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID]
	return ok
}

// Users returns the number of users with at least one connection.
func (r *Registry) Users() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
