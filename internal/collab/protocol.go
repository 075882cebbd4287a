package collab

import (
	"encoding/json"

	"github.com/codemate/codemate/internal/workspace"
)

// Protocol event names, matching the wire protocol spoken by clients.
const (
	EventJoin         = "join"
	EventJoined       = "joined"
	EventCodeChange   = "code-change"
	EventSyncCode     = "sync-code"
	EventDisconnected = "disconnected"
	EventMessage      = "message"
)

// Envelope frames every message on the websocket channel: an event name plus
// an event-specific payload.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// inboundEnvelope defers payload decoding until the event name is known.
type inboundEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// JoinPayload admits a session into a room. Both fields are required but
// their content is opaque: room ids are agreed out-of-band and usernames are
// not checked for uniqueness.
type JoinPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	Username string `json:"username" validate:"required"`
}

// JoinedPayload announces a new member to every session in the room. Clients
// converge their member lists by replacing them with the snapshot.
type JoinedPayload struct {
	Clients  []Member `json:"clients"`
	Username string   `json:"username"`
	SocketID string   `json:"socketId"`
}

// CodeChangePayload carries a full workspace snapshot. No deltas: every
// update replaces the room state wholesale.
type CodeChangePayload struct {
	RoomID       string                    `json:"roomId"`
	Files        map[string]workspace.File `json:"files"`
	ActiveFileID string                    `json:"activeFileId,omitempty"`
}

// Workspace converts the payload into the model type.
func (p CodeChangePayload) Workspace() workspace.Workspace {
	return workspace.Workspace{Files: p.Files, ActiveFileID: p.ActiveFileID}
}

// SyncCodePayload pushes a workspace snapshot to one specific peer instead of
// the whole room.
type SyncCodePayload struct {
	SocketID     string                    `json:"socketId"`
	RoomID       string                    `json:"roomId"`
	Files        map[string]workspace.File `json:"files"`
	ActiveFileID string                    `json:"activeFileId,omitempty"`
}

// Workspace converts the payload into the model type.
func (p SyncCodePayload) Workspace() workspace.Workspace {
	return workspace.Workspace{Files: p.Files, ActiveFileID: p.ActiveFileID}
}

// DisconnectedPayload notifies remaining room members of a departure.
type DisconnectedPayload struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

// ChatPayload relays a chat line verbatim.
type ChatPayload struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// codeChangeEnvelope builds the hydration/broadcast envelope for a workspace
// snapshot.
func codeChangeEnvelope(roomID string, state workspace.Workspace) Envelope {
	return Envelope{
		Event: EventCodeChange,
		Payload: CodeChangePayload{
			RoomID:       roomID,
			Files:        state.Files,
			ActiveFileID: state.ActiveFileID,
		},
	}
}
