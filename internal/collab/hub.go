package collab

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/codemate/codemate/pkg/logger"
	"github.com/codemate/codemate/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1 MiB

	defaultBufferSize = 64
)

// Hub owns the websocket connections and turns transport-level connect and
// disconnect signals into protocol operations. A dropped connection is
// terminal for its session: reconnection is a fresh join with a new socket id.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*connection
	service     *Service
	upgrader    websocket.Upgrader
	log         *zap.Logger
}

// NewHub constructs a hub dispatching inbound events to the sync service.
func NewHub(service *Service) *Hub {
	return &Hub{
		connections: make(map[string]*connection),
		service:     service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Participants connect from arbitrary origins; room ids are the
			// only admission mechanism, so origin checks stay permissive.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logger.WithModule("hub"),
	}
}

// Serve upgrades the HTTP request to a websocket connection and runs its read
// loop until the connection drops. Query parameters `username` and `room` may
// pre-join the session; otherwise the client joins via the join event.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &connection{
		hub:    h,
		socket: socket,
		id:     uuid.NewString(),
		send:   make(chan Envelope, defaultBufferSize),
	}

	h.mu.Lock()
	h.connections[client.id] = client
	h.mu.Unlock()
	metrics.ConnectedClients.Inc()

	h.log.Debug("connection established", zap.String("socket_id", client.id))

	go client.writeLoop()

	if username, roomID := r.URL.Query().Get("username"), r.URL.Query().Get("room"); username != "" && roomID != "" {
		h.service.Join(h, client.id, JoinPayload{RoomID: roomID, Username: username})
	}

	client.readLoop()
}

// Send delivers an envelope to one connection. Sending to an id that is no
// longer connected is a no-op. The enqueue happens under the read lock: a
// connection's send channel is only closed after unregister acquires the
// write lock, so an in-flight enqueue can never hit a closed channel.
func (h *Hub) Send(socketID string, env Envelope) {
	h.mu.RLock()
	client, ok := h.connections[socketID]
	stalled := ok && !trySend(client, env)
	h.mu.RUnlock()

	if stalled {
		h.dropSlow(client)
	}
}

// Broadcast delivers an envelope to every connected session. Like Send, the
// enqueues run under the read lock so they cannot interleave with a closing
// connection's channel teardown.
func (h *Hub) Broadcast(env Envelope) {
	var stalled []*connection

	h.mu.RLock()
	for _, client := range h.connections {
		if !trySend(client, env) {
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		h.dropSlow(client)
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.connections)
}

// Close tears down every open connection. Used on graceful shutdown.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*connection, 0, len(h.connections))
	for _, client := range h.connections {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.close()
	}
}

// trySend enqueues without blocking, reporting whether the buffer had room.
func trySend(client *connection, env Envelope) bool {
	select {
	case client.send <- env:
		return true
	default:
		return false
	}
}

// dropSlow tears down a connection whose send buffer stayed full. Runs
// outside the hub lock because close re-enters unregister.
func (h *Hub) dropSlow(client *connection) {
	h.log.Warn("dropping backpressure client", zap.String("socket_id", client.id))
	client.close()
}

func (h *Hub) unregister(client *connection) {
	h.mu.Lock()
	_, ok := h.connections[client.id]
	delete(h.connections, client.id)
	h.mu.Unlock()

	if ok {
		metrics.ConnectedClients.Dec()
	}
}

// dispatch routes one inbound frame to the protocol. Decode failures drop the
// frame; they never abort the connection or other sessions' traffic.
func (h *Hub) dispatch(client *connection, raw []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.log.Debug("invalid envelope", zap.String("socket_id", client.id), zap.Error(err))
		return
	}

	switch env.Event {
	case EventJoin:
		var payload JoinPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			h.log.Debug("invalid join payload", zap.String("socket_id", client.id), zap.Error(err))
			return
		}
		h.service.Join(h, client.id, payload)
	case EventCodeChange:
		var payload CodeChangePayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			h.log.Debug("invalid code-change payload", zap.String("socket_id", client.id), zap.Error(err))
			return
		}
		h.service.CodeChange(h, client.id, payload)
	case EventSyncCode:
		var payload SyncCodePayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			h.log.Debug("invalid sync-code payload", zap.String("socket_id", client.id), zap.Error(err))
			return
		}
		h.service.SyncCode(h, client.id, payload)
	case EventMessage:
		var payload ChatPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			h.log.Debug("invalid chat payload", zap.String("socket_id", client.id), zap.Error(err))
			return
		}
		h.service.Chat(h, client.id, payload)
	default:
		h.log.Debug("unsupported event", zap.String("socket_id", client.id), zap.String("event", env.Event))
	}
}

type connection struct {
	hub    *Hub
	socket *websocket.Conn
	id     string
	send   chan Envelope
	once   sync.Once
}

func (c *connection) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("unexpected close", zap.String("socket_id", c.id), zap.Error(err))
			}
			break
		}

		if len(payload) == 0 {
			continue
		}

		c.hub.dispatch(c, payload)
	}
}

func (c *connection) writeLoop() {
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case env, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) close() {
	c.once.Do(func() {
		// Presence notification goes out before the connection disappears
		// from the hub so remaining members hear about the departure.
		c.hub.service.Disconnect(c.hub, c.id)
		c.hub.unregister(c)
		close(c.send)
		_ = c.socket.Close()
	})
}
