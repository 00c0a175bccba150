// Package presence tracks which connection currently represents each
// online user. A user maps to at most one connection; the most recent
// connect wins.
package presence

import (
	"sort"
	"sync"
)

// Table maps user IDs to connection IDs.
type Table struct {
	mu      sync.RWMutex
	entries map[string]string // userID -> connectionID
}

// NewTable creates an empty presence table.
func NewTable() *Table {
	return &Table{entries: make(map[string]string)}
}

// Set records connID as the current connection of userID, replacing any
// previous entry.
func (t *Table) Set(userID, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[userID] = connID
}

// Get returns the current connection of userID.
func (t *Table) Get(userID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	connID, ok := t.entries[userID]
	return connID, ok
}

// DeleteIfMatches removes the entry for userID only while it still points
// at connID. A connection that was superseded by a newer one leaves the
// newer entry untouched. It reports whether an entry was removed.
func (t *Table) DeleteIfMatches(userID, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current, ok := t.entries[userID]; ok && current == connID {
		delete(t.entries, userID)
		return true
	}
	return false
}

// Online returns a sorted snapshot of online user IDs.
func (t *Table) Online() []string {
	t.mu.RLock()
	users := make([]string, 0, len(t.entries))
	for userID := range t.entries {
		users = append(users, userID)
	}
	t.mu.RUnlock()

	sort.Strings(users)
	return users
}

// Len returns the number of online users.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
