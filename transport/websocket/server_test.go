package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tictactwo/tictactwo-backend/internal/broker"
	"github.com/tictactwo/tictactwo-backend/internal/registry"
	"github.com/tictactwo/tictactwo-backend/internal/usecase"
)

const readTimeout = 5 * time.Second

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New(logger, nil)
	uGame := usecase.NewGameUseCase(logger, reg)
	server := New(logger, uGame, broker.NewHub(logger), nil)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.serveConnection(context.Background(), w, r)
	}))
	t.Cleanup(ts.Close)

	return ts, reg
}

func dial(t *testing.T, ts *httptest.Server, username string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "?username=" + username

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	message := Message{Action: action, Payload: raw}
	require.NoError(t, conn.WriteJSON(message))
}

// readEvent reads frames until one of the wanted type arrives.
func readEvent(t *testing.T, conn *websocket.Conn, wantType string) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))

	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for event %q", wantType)

		var event map[string]any
		require.NoError(t, json.Unmarshal(raw, &event))

		if event["type"] == wantType {
			return event
		}
	}
}

func TestServer_RejectsMissingUsername(t *testing.T) {
	// Given: a running websocket endpoint
	ts, _ := newTestServer(t)

	// When: connecting without a username
	resp, err := http.Get(ts.URL + "?" + "nothing=here")

	// Then: the handshake is refused
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_CreateRoomBroadcast(t *testing.T) {
	// Given: a connected client
	ts, _ := newTestServer(t)
	conn := dial(t, ts, "alice")

	// When: the client creates a room with a requested id
	sendMessage(t, conn, actionCreateRoom, CreateRoomPayload{RoomID: "friends"})

	// Then: the public topic carries the room_created notice
	event := readEvent(t, conn, eventRoomCreated)
	assert.Equal(t, "friends", event["roomId"])
}

func TestServer_JoinFlow(t *testing.T) {
	// Given: two connected clients
	ts, _ := newTestServer(t)
	alice := dial(t, ts, "alice")
	bob := dial(t, ts, "bob")

	// When: alice joins without a desired room
	sendMessage(t, alice, actionJoinRoom, JoinRoomPayload{})

	// Then: she privately receives her mark and an open room
	joined := readEvent(t, alice, eventRoomJoined)
	roomID, _ := joined["roomId"].(string)
	require.NotEmpty(t, roomID)
	assert.Equal(t, "X", joined["playerSymbol"])
	assert.Equal(t, false, joined["isRoomFull"])

	// When: bob asks for the same room
	sendMessage(t, bob, actionJoinRoom, JoinRoomPayload{RoomID: roomID})

	// Then: bob gets the other mark and the room reports full
	bobJoined := readEvent(t, bob, eventRoomJoined)
	assert.Equal(t, roomID, bobJoined["roomId"])
	assert.Equal(t, "O", bobJoined["playerSymbol"])
	assert.Equal(t, true, bobJoined["isRoomFull"])

	// And: alice sees the player_joined notice on the room topic
	notice := readEvent(t, alice, eventPlayerJoined)
	assert.Equal(t, roomID, notice["roomId"])
	assert.Equal(t, true, notice["isRoomFull"])
}

func TestServer_GameStateUpdateBroadcast(t *testing.T) {
	// Given: alice and bob in the same room
	ts, reg := newTestServer(t)
	alice := dial(t, ts, "alice")
	bob := dial(t, ts, "bob")

	sendMessage(t, alice, actionJoinRoom, JoinRoomPayload{})
	joined := readEvent(t, alice, eventRoomJoined)
	roomID, _ := joined["roomId"].(string)

	sendMessage(t, bob, actionJoinRoom, JoinRoomPayload{RoomID: roomID})
	readEvent(t, bob, eventRoomJoined)

	// When: alice pushes a full state update
	update := UpdateGameStatePayload{RoomID: roomID}
	update.GameState.Squares = []string{"X", "", "", "", "", "", "", "", ""}
	update.GameState.History = []int{0}
	update.GameState.XIsNext = false
	sendMessage(t, alice, actionUpdateGameState, update)

	// Then: bob receives the rebroadcast state
	event := readEvent(t, bob, eventGameStateUpdated)
	state, ok := event["gameState"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{float64(0)}, state["history"])
	assert.Equal(t, false, state["xIsNext"])

	// And: the registry holds the same snapshot
	assert.Equal(t, update.GameState, reg.GameState(roomID))
}

func TestServer_UpdateUnknownRoomReturnsError(t *testing.T) {
	// Given: a connected client
	ts, _ := newTestServer(t)
	conn := dial(t, ts, "alice")

	// When: updating a room that does not exist
	sendMessage(t, conn, actionUpdateGameState, UpdateGameStatePayload{RoomID: "ghost"})

	// Then: the client privately receives an error event
	event := readEvent(t, conn, eventError)
	errText, _ := event["error"].(string)
	assert.Contains(t, errText, "ghost")
}

func TestServer_DisconnectNotifiesRoom(t *testing.T) {
	// Given: alice and bob paired in a room
	ts, reg := newTestServer(t)
	alice := dial(t, ts, "alice")
	bob := dial(t, ts, "bob")

	sendMessage(t, alice, actionJoinRoom, JoinRoomPayload{})
	joined := readEvent(t, alice, eventRoomJoined)
	roomID, _ := joined["roomId"].(string)

	sendMessage(t, bob, actionJoinRoom, JoinRoomPayload{RoomID: roomID})
	readEvent(t, bob, eventRoomJoined)

	// When: bob's connection drops
	require.NoError(t, bob.Close())

	// Then: alice is told bob left the room
	event := readEvent(t, alice, eventPlayerDisconnected)
	assert.Equal(t, "bob", event["username"])
	assert.Equal(t, roomID, event["roomId"])

	// And: bob is gone from the inverse index
	waitForCleanup(t, func() bool {
		_, ok := reg.RoomOfPlayer("bob")
		return !ok
	})
}

func waitForCleanup(t *testing.T, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(readTimeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal(fmt.Errorf("cleanup condition not met before deadline"))
}
