package hackchat

import (
	"sort"
	"sync"
)

// Roster is the set of nicknames online in one channel. The server is
// authoritative: adding a present nick or removing an absent one is a no-op.
type Roster struct {
	mu    sync.RWMutex
	nicks map[string]struct{}
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{nicks: make(map[string]struct{})}
}

// Reset replaces the roster with the given snapshot.
func (r *Roster) Reset(nicks []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nicks = make(map[string]struct{}, len(nicks))
	for _, n := range nicks {
		r.nicks[n] = struct{}{}
	}
}

// Add marks nick as online.
func (r *Roster) Add(nick string) {
	r.mu.Lock()
	r.nicks[nick] = struct{}{}
	r.mu.Unlock()
}

// Remove drops nick; an absent nick is ignored.
func (r *Roster) Remove(nick string) {
	r.mu.Lock()
	delete(r.nicks, nick)
	r.mu.Unlock()
}

// Contains reports whether nick is online.
func (r *Roster) Contains(nick string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.nicks[nick]
	return ok
}

// Len returns the number of online nicks.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nicks)
}

// Nicks returns a sorted snapshot.
func (r *Roster) Nicks() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.nicks))
	for n := range r.nicks {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
