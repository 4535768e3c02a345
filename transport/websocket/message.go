package websocket

import (
	"encoding/json"

	"github.com/tictactwo/tictactwo-backend/internal/entity"
	"github.com/tictactwo/tictactwo-backend/internal/usecase"
)

const (
	actionCreateRoom      = "room:create"
	actionJoinRoom        = "room:join"
	actionUpdateGameState = "game:update"
)

const (
	eventRoomCreated        = "room_created"
	eventRoomJoined         = "room_joined"
	eventPlayerJoined       = "player_joined"
	eventGameStateUpdated   = "game_state_updated"
	eventPlayerDisconnected = "player_disconnected"
	eventActivePlayers      = "active_players"
	eventError              = "error"
)

// Message is one client request: an action name plus its payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type CreateRoomPayload struct {
	RoomID string `json:"roomId,omitempty"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId,omitempty"`
}

type UpdateGameStatePayload struct {
	RoomID    string           `json:"roomId"`
	GameState entity.GameState `json:"gameState"`
}

type roomCreatedEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

type roomJoinedEvent struct {
	Type string `json:"type"`
	*usecase.JoinResult
}

type playerJoinedEvent struct {
	Type       string `json:"type"`
	RoomID     string `json:"roomId"`
	IsRoomFull bool   `json:"isRoomFull"`
}

type gameStateUpdatedEvent struct {
	Type      string           `json:"type"`
	GameState entity.GameState `json:"gameState"`
}

type playerDisconnectedEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

type activePlayersEvent struct {
	Type          string `json:"type"`
	ActivePlayers int    `json:"activePlayers"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
