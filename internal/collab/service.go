package collab

import (
	"go.uber.org/zap"

	"github.com/codemate/codemate/pkg/logger"
	"github.com/codemate/codemate/pkg/metrics"
	"github.com/codemate/codemate/pkg/validator"
)

// Sender delivers envelopes to connections. The hub implements it; tests
// substitute fakes so the protocol logic runs without sockets.
type Sender interface {
	// Send delivers an envelope to one connection. Unknown ids are a no-op.
	Send(socketID string, env Envelope)
	// Broadcast delivers an envelope to every connected session process-wide.
	Broadcast(env Envelope)
}

// Options tunes protocol behavior.
type Options struct {
	// RoomScopedChat confines chat relay to the sender's room. The default
	// (false) preserves the historical behavior of relaying chat to every
	// connected session regardless of room.
	RoomScopedChat bool
}

// Service implements the room state synchronization protocol: it admits
// sessions into rooms, hydrates late joiners from the state cache, rebroadcasts
// edits, performs targeted transfers, and propagates chat and presence events.
type Service struct {
	registry *Registry
	cache    *Cache
	opts     Options
	log      *zap.Logger
}

// NewService wires the protocol onto an injectable registry and cache.
func NewService(registry *Registry, cache *Cache, opts Options) *Service {
	return &Service{
		registry: registry,
		cache:    cache,
		opts:     opts,
		log:      logger.WithModule("collab"),
	}
}

// Registry exposes the session registry for health reporting and maintenance.
func (s *Service) Registry() *Registry { return s.registry }

// Cache exposes the room state cache for health reporting and maintenance.
func (s *Service) Cache() *Cache { return s.cache }

// Join admits a session into a room, announces the new member list to every
// room member including the joiner, then hydrates the joiner from the state
// cache when prior state exists.
func (s *Service) Join(sender Sender, socketID string, payload JoinPayload) {
	if err := validator.ValidateStruct(payload); err != nil {
		s.drop(EventJoin, socketID, err)
		return
	}

	metrics.SyncEvents.WithLabelValues(EventJoin).Inc()

	s.registry.Register(socketID, payload.Username)
	s.registry.Assign(socketID, payload.RoomID)
	metrics.ActiveRooms.Set(float64(s.registry.RoomCount()))

	members := s.registry.MembersOf(payload.RoomID)
	s.log.Info("session joined room",
		zap.String("socket_id", socketID),
		zap.String("room_id", payload.RoomID),
		zap.String("username", payload.Username),
		zap.Int("members", len(members)),
	)

	joined := Envelope{
		Event: EventJoined,
		Payload: JoinedPayload{
			Clients:  members,
			Username: payload.Username,
			SocketID: socketID,
		},
	}
	for _, member := range members {
		sender.Send(member.SocketID, joined)
	}

	// Late joiners start from the authoritative last-seen state instead of an
	// empty workspace. Rooms without prior state get no hydration push.
	if state, ok := s.cache.Get(payload.RoomID); ok {
		s.log.Debug("hydrating joiner from cache",
			zap.String("socket_id", socketID),
			zap.String("room_id", payload.RoomID),
			zap.Int("files", len(state.Files)),
		)
		sender.Send(socketID, codeChangeEnvelope(payload.RoomID, state))
	}
}

// CodeChange overwrites the room state cache with the snapshot and forwards it
// to every other member of the room. The sender is excluded to avoid echoing
// state it already holds. Updates without a room id are dropped.
func (s *Service) CodeChange(sender Sender, socketID string, payload CodeChangePayload) {
	if payload.RoomID == "" {
		s.drop(EventCodeChange, socketID, nil)
		return
	}

	metrics.SyncEvents.WithLabelValues(EventCodeChange).Inc()

	s.cache.Put(payload.RoomID, payload.Workspace())
	metrics.CachedWorkspaces.Set(float64(s.cache.Len()))

	env := codeChangeEnvelope(payload.RoomID, payload.Workspace())
	for _, member := range s.registry.MembersOf(payload.RoomID) {
		if member.SocketID == socketID {
			continue
		}
		sender.Send(member.SocketID, env)
	}
}

// SyncCode updates the cache like a broadcast but forwards the snapshot only
// to the named target connection. An unknown target makes the send a no-op.
func (s *Service) SyncCode(sender Sender, socketID string, payload SyncCodePayload) {
	metrics.SyncEvents.WithLabelValues(EventSyncCode).Inc()

	if payload.RoomID != "" {
		s.cache.Put(payload.RoomID, payload.Workspace())
		metrics.CachedWorkspaces.Set(float64(s.cache.Len()))
	}

	if payload.SocketID == "" {
		s.drop(EventSyncCode, socketID, nil)
		return
	}

	sender.Send(payload.SocketID, codeChangeEnvelope(payload.RoomID, payload.Workspace()))
}

// Chat relays a message verbatim. By default it reaches every connected
// session process-wide; with RoomScopedChat it reaches only the sender's room,
// in both cases including the sender itself.
func (s *Service) Chat(sender Sender, socketID string, payload ChatPayload) {
	metrics.SyncEvents.WithLabelValues(EventMessage).Inc()

	env := Envelope{Event: EventMessage, Payload: payload}

	if s.opts.RoomScopedChat {
		roomID, ok := s.registry.RoomOf(socketID)
		if !ok {
			s.drop(EventMessage, socketID, nil)
			return
		}
		for _, member := range s.registry.MembersOf(roomID) {
			sender.Send(member.SocketID, env)
		}
		return
	}

	sender.Broadcast(env)
}

// Disconnect notifies the departing session's room and removes the session
// from the registry. The room's cached workspace is left untouched.
func (s *Service) Disconnect(sender Sender, socketID string) {
	metrics.SyncEvents.WithLabelValues("disconnect").Inc()

	member, registered := s.registry.Lookup(socketID)
	roomID, inRoom := s.registry.RoomOf(socketID)

	if registered && inRoom {
		env := Envelope{
			Event: EventDisconnected,
			Payload: DisconnectedPayload{
				SocketID: socketID,
				Username: member.Username,
			},
		}
		for _, peer := range s.registry.MembersOf(roomID) {
			if peer.SocketID == socketID {
				continue
			}
			sender.Send(peer.SocketID, env)
		}
		s.log.Info("session left room",
			zap.String("socket_id", socketID),
			zap.String("room_id", roomID),
			zap.String("username", member.Username),
		)
	}

	s.registry.Remove(socketID)
	metrics.ActiveRooms.Set(float64(s.registry.RoomCount()))
}

// drop records a discarded payload. Malformed traffic never aborts processing
// of other sessions' messages.
func (s *Service) drop(event, socketID string, err error) {
	metrics.DroppedPayloads.WithLabelValues(event).Inc()
	s.log.Debug("dropping malformed payload",
		zap.String("event", event),
		zap.String("socket_id", socketID),
		zap.Error(err),
	)
}
