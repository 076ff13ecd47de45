package core

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Presence is the set of users clients have announced as online.
// It is driven by chat-joined/chat-leaved and by connection close,
// not by registry membership.
type Presence struct {
	mu     sync.Mutex
	online map[string]struct{}
}

// NewPresence creates an empty presence set.
func NewPresence() *Presence {
	return &Presence{online: make(map[string]struct{})}
}

// Join marks userID online and returns the resulting snapshot.
func (p *Presence) Join(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = struct{}{}
	return p.snapshotLocked()
}

// Leave marks userID offline and returns the resulting snapshot.
// Leaving an absent user is not an error.
func (p *Presence) Leave(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
	return p.snapshotLocked()
}

// Snapshot returns the online users sorted by id.
func (p *Presence) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Contains reports whether userID is currently online.
func (p *Presence) Contains(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.online[userID]
	return ok
}

func (p *Presence) snapshotLocked() []string {
	ids := lo.Keys(p.online)
	slices.Sort(ids)
	return ids
}
