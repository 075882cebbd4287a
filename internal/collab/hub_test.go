package collab

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// wireEnvelope mirrors the frame format clients speak, with the payload kept
// raw so tests can decode per event.
type wireEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func newHubServer(t *testing.T, opts Options) (*Hub, *httptest.Server) {
	t.Helper()

	svc := NewService(NewRegistry(), NewCache(), opts)
	hub := NewHub(svc)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r)
	}))
	t.Cleanup(server.Close)
	t.Cleanup(hub.Close)
	return hub, server
}

func dialHub(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(wireEnvelope{Event: event, Payload: raw}))
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEnvelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env wireEnvelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func decodePayload[T any](t *testing.T, env wireEnvelope) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(env.Payload, &out))
	return out
}

func TestHubJoinBroadcastAndEchoSuppression(t *testing.T) {
	_, server := newHubServer(t, Options{})

	alice := dialHub(t, server, "")
	sendEvent(t, alice, EventJoin, JoinPayload{RoomID: "r1", Username: "alice"})
	joined := decodePayload[JoinedPayload](t, readEvent(t, alice))
	require.Len(t, joined.Clients, 1)

	bob := dialHub(t, server, "")
	sendEvent(t, bob, EventJoin, JoinPayload{RoomID: "r1", Username: "bob"})

	// Both members receive the new snapshot.
	aliceView := decodePayload[JoinedPayload](t, readEvent(t, alice))
	bobView := decodePayload[JoinedPayload](t, readEvent(t, bob))
	require.Len(t, aliceView.Clients, 2)
	require.Len(t, bobView.Clients, 2)
	require.Equal(t, "bob", aliceView.Username)

	// Alice edits; only Bob sees the change.
	sendEvent(t, alice, EventCodeChange, snapshot("r1", "main.py", "print('hi')"))
	change := readEvent(t, bob)
	require.Equal(t, EventCodeChange, change.Event)

	// Alice then chats. The very next frame she receives is the chat relay,
	// proving her own edit was never echoed back.
	sendEvent(t, alice, EventMessage, ChatPayload{Name: "alice", Message: "done"})
	next := readEvent(t, alice)
	require.Equal(t, EventMessage, next.Event)
	require.Equal(t, EventMessage, readEvent(t, bob).Event)
}

func TestHubHydratesLateJoiner(t *testing.T) {
	_, server := newHubServer(t, Options{})

	alice := dialHub(t, server, "")
	sendEvent(t, alice, EventJoin, JoinPayload{RoomID: "r1", Username: "alice"})
	readEvent(t, alice)

	update := snapshot("r1", "main.py", "print('v1')")
	sendEvent(t, alice, EventCodeChange, update)

	// Give the hub a beat to process the update before the late join.
	time.Sleep(50 * time.Millisecond)

	bob := dialHub(t, server, "")
	sendEvent(t, bob, EventJoin, JoinPayload{RoomID: "r1", Username: "bob"})

	require.Equal(t, EventJoined, readEvent(t, bob).Event)
	hydration := decodePayload[CodeChangePayload](t, readEvent(t, bob))
	require.Equal(t, "r1", hydration.RoomID)
	require.Equal(t, update.ActiveFileID, hydration.ActiveFileID)
}

func TestHubDisconnectNotifiesRoom(t *testing.T) {
	_, server := newHubServer(t, Options{})

	alice := dialHub(t, server, "")
	sendEvent(t, alice, EventJoin, JoinPayload{RoomID: "r1", Username: "alice"})
	readEvent(t, alice)

	bob := dialHub(t, server, "")
	sendEvent(t, bob, EventJoin, JoinPayload{RoomID: "r1", Username: "bob"})
	joined := decodePayload[JoinedPayload](t, readEvent(t, alice))
	bobID := joined.SocketID
	readEvent(t, bob)

	require.NoError(t, bob.Close())

	gone := decodePayload[DisconnectedPayload](t, readEvent(t, alice))
	require.Equal(t, bobID, gone.SocketID)
	require.Equal(t, "bob", gone.Username)
}

func TestHubJoinViaQueryParams(t *testing.T) {
	hub, server := newHubServer(t, Options{})

	conn := dialHub(t, server, "?username=carol&room=r9")
	joined := decodePayload[JoinedPayload](t, readEvent(t, conn))
	require.Equal(t, "carol", joined.Username)
	require.Len(t, joined.Clients, 1)
	require.Equal(t, 1, hub.Len())
}

func TestHubSendDuringConnectionClose(t *testing.T) {
	hub, server := newHubServer(t, Options{})

	env := Envelope{Event: EventMessage, Payload: ChatPayload{Name: "n", Message: "m"}}

	// Race a stream of sends against the connection teardown. A send that
	// observed the connection before unregister must complete its enqueue
	// before the channel is closed, never panic.
	for i := 0; i < 25; i++ {
		conn := dialHub(t, server, "")
		require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

		hub.mu.RLock()
		var id string
		var client *connection
		for cid, cl := range hub.connections {
			id, client = cid, cl
		}
		hub.mu.RUnlock()

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				hub.Send(id, env)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				hub.Broadcast(env)
			}
		}()
		go func() {
			defer wg.Done()
			client.close()
		}()
		wg.Wait()

		_ = conn.Close()
		require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond)
	}
}

func TestHubIgnoresMalformedFrames(t *testing.T) {
	_, server := newHubServer(t, Options{})

	conn := dialHub(t, server, "")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	sendEvent(t, conn, "no-such-event", map[string]string{"a": "b"})

	// The connection survives malformed traffic and still accepts a join.
	sendEvent(t, conn, EventJoin, JoinPayload{RoomID: "r1", Username: "dave"})
	require.Equal(t, EventJoined, readEvent(t, conn).Event)
}
