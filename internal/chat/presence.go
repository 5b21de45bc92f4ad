package chat

import (
	"slices"
	"sync"
)

// Presence tracks the usernames of every live connection, independent of
// rooms. A user with two connections is listed twice.
type Presence struct {
	mu    sync.Mutex
	users []string
}

// NewPresence creates an empty tracker.
func NewPresence() *Presence {
	return &Presence{}
}

// Add records one connection for username and returns the new snapshot.
func (p *Presence) Add(username string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, username)
	return slices.Clone(p.users)
}

// Remove drops one connection for username and returns the new snapshot.
func (p *Presence) Remove(username string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i := slices.Index(p.users, username); i >= 0 {
		p.users = slices.Delete(p.users, i, i+1)
	}
	return slices.Clone(p.users)
}

// Snapshot returns the connected usernames in connection order.
func (p *Presence) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.users)
}

// Contains reports whether username has at least one live connection.
func (p *Presence) Contains(username string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.users, username)
}
