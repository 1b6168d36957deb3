// Package groups provides the group directory used by scope
// resolution. The production deployment backs this with the relational
// signup store; the in-memory implementation here serves standalone
// mode and tests.
package groups

import (
	"context"
	"sync"
)

// MemoryDirectory is a concurrency-safe in-memory user→groups map.
type MemoryDirectory struct {
	mu      sync.RWMutex
	byUser  map[int][]string
	byGroup map[string]int
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byUser:  make(map[int][]string),
		byGroup: make(map[string]int),
	}
}

// Assign adds a group to a user's set, replacing any previous owner of
// the group name.
func (d *MemoryDirectory) Assign(userID int, group string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, g := range d.byUser[userID] {
		if g == group {
			return
		}
	}
	if prev, ok := d.byGroup[group]; ok && prev != userID {
		kept := d.byUser[prev][:0]
		for _, g := range d.byUser[prev] {
			if g != group {
				kept = append(kept, g)
			}
		}
		d.byUser[prev] = kept
	}
	d.byUser[userID] = append(d.byUser[userID], group)
	d.byGroup[group] = userID
}

// GroupsFor returns the group names assigned to the user. A user with
// no assignments gets an empty slice, not an error.
func (d *MemoryDirectory) GroupsFor(_ context.Context, userID int) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.byUser[userID]...), nil
}
