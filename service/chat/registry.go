package chat

import (
	"sort"
	"sync"
)

// Registry maps a user id to its current gateway connection.
// The last connection to register for a user wins.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]*Conn)}
}

// Register points userID at c and returns the connection it replaced, if any.
func (r *Registry) Register(userID string, c *Conn) (prev *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev = r.byUser[userID]
	r.byUser[userID] = c
	if prev == c {
		return nil
	}
	return prev
}

// Unregister removes userID only while it still points at c, so a stale
// disconnect cannot evict a newer connection.
func (r *Registry) Unregister(userID string, c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byUser[userID]; ok && cur == c {
		delete(r.byUser, userID)
		return true
	}
	return false
}

func (r *Registry) Lookup(userID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// Snapshot returns the online user ids, sorted.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byUser))
	for u := range r.byUser {
		out = append(out, u)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
