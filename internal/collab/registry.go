package collab

import (
	"strings"
	"sync"
)

// Member is one participant's identity as seen by the rest of a room.
type Member struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

// Registry tracks live sessions and their room membership. It is instance
// scoped so each server (and each test) runs against fresh state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	username string
	roomID   string
}

// NewRegistry constructs an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*sessionEntry)}
}

// Register creates or overwrites the session entry for a connection. An empty
// connection id is ignored.
func (r *Registry) Register(socketID, username string) {
	if strings.TrimSpace(socketID) == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.sessions[socketID]
	if entry == nil {
		entry = &sessionEntry{}
		r.sessions[socketID] = entry
	}
	entry.username = username
}

// Assign places a registered session into a room. A session belongs to at most
// one room for its connection lifetime.
func (r *Registry) Assign(socketID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[socketID]
	if !ok {
		return false
	}
	entry.roomID = roomID
	return true
}

// MembersOf returns a snapshot of the sessions currently assigned to a room.
func (r *Registry) MembersOf(roomID string) []Member {
	if roomID == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var members []Member
	for socketID, entry := range r.sessions {
		if entry.roomID == roomID {
			members = append(members, Member{SocketID: socketID, Username: entry.username})
		}
	}
	return members
}

// Lookup returns the identity snapshot for a connection.
func (r *Registry) Lookup(socketID string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.sessions[socketID]
	if !ok {
		return Member{}, false
	}
	return Member{SocketID: socketID, Username: entry.username}, true
}

// RoomOf returns the room a connection has joined, if any.
func (r *Registry) RoomOf(socketID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.sessions[socketID]
	if !ok || entry.roomID == "" {
		return "", false
	}
	return entry.roomID, true
}

// Remove deletes a session entry. Removing an unknown id is a no-op.
func (r *Registry) Remove(socketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, socketID)
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// RoomCount returns the number of distinct rooms with at least one member.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make(map[string]struct{})
	for _, entry := range r.sessions {
		if entry.roomID != "" {
			rooms[entry.roomID] = struct{}{}
		}
	}
	return len(rooms)
}
