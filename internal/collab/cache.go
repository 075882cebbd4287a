package collab

import (
	"sync"

	"github.com/codemate/codemate/internal/workspace"
)

// Cache holds the latest known workspace per room. Writes are unconditional
// overwrites: the cache always reflects the most recently processed update,
// with no merging and no version checks. Entries survive room occupancy
// reaching zero unless the expiry sweeper is enabled.
type Cache struct {
	mu     sync.RWMutex
	states map[string]workspace.Workspace
}

// NewCache constructs an empty room state cache.
func NewCache() *Cache {
	return &Cache{states: make(map[string]workspace.Workspace)}
}

// Get returns a copy of the cached workspace for a room.
func (c *Cache) Get(roomID string) (workspace.Workspace, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, ok := c.states[roomID]
	if !ok {
		return workspace.Workspace{}, false
	}
	return state.Clone(), true
}

// Put overwrites the cached workspace for a room, last writer wins.
func (c *Cache) Put(roomID string, state workspace.Workspace) {
	if roomID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.states[roomID] = state.Clone()
}

// Delete removes a room's cached workspace. Used only by the optional
// empty-room expiry sweeper.
func (c *Cache) Delete(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.states, roomID)
}

// Len returns the number of rooms with a cached workspace.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.states)
}

// Rooms returns the ids of every room with a cached workspace.
func (c *Cache) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]string, 0, len(c.states))
	for roomID := range c.states {
		rooms = append(rooms, roomID)
	}
	return rooms
}
