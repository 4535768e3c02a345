package usecase

import (
	"fmt"
	"log/slog"

	"github.com/tictactwo/tictactwo-backend/internal/apperror"
	"github.com/tictactwo/tictactwo-backend/internal/entity"
)

type roomRegistry interface {
	CreateRoom() string
	CreateRoomWithID(id string)
	JoinRoom(desiredID, username string) (string, string)
	IsRoomFull(id string) bool
	RoomOfPlayer(username string) (string, bool)
	RemovePlayerFromRoom(id, username string) bool
	UpdateGameState(id string, state entity.GameState) error
	GameState(id string) entity.GameState
	JoinableRooms() []string
}

// JoinResult is the private response sent to a joining player.
type JoinResult struct {
	RoomID       string   `json:"roomId"`
	PlayerSymbol string   `json:"playerSymbol"`
	Squares      []string `json:"squares"`
	History      []int    `json:"history"`
	XIsNext      bool     `json:"xIsNext"`
	IsRoomFull   bool     `json:"isRoomFull"`
}

// DisconnectResult names the player and room affected by a disconnect.
type DisconnectResult struct {
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

// GameUseCase maps transport requests onto registry operations and assembles
// the response payloads.
type GameUseCase struct {
	logger   *slog.Logger
	registry roomRegistry
}

func NewGameUseCase(logger *slog.Logger, registry roomRegistry) *GameUseCase {
	return &GameUseCase{
		logger:   logger.With("component", "usecase"),
		registry: registry,
	}
}

// CreateRoom creates a room under the requested identifier, or under a
// generated one when no identifier is requested.
func (that *GameUseCase) CreateRoom(requestedID string) string {
	if requestedID == "" {
		return that.registry.CreateRoom()
	}

	that.registry.CreateRoomWithID(requestedID)

	return requestedID
}

// JoinRoom places the player into a room and returns the joined room's full
// state alongside the assigned mark.
func (that *GameUseCase) JoinRoom(desiredID, username string) *JoinResult {
	roomID, symbol := that.registry.JoinRoom(desiredID, username)
	state := that.registry.GameState(roomID)

	return &JoinResult{
		RoomID:       roomID,
		PlayerSymbol: symbol,
		Squares:      state.Squares,
		History:      state.History,
		XIsNext:      state.XIsNext,
		IsRoomFull:   that.registry.IsRoomFull(roomID),
	}
}

// UpdateGameState overwrites the room's state with the client snapshot.
func (that *GameUseCase) UpdateGameState(roomID string, state entity.GameState) error {
	if err := that.registry.UpdateGameState(roomID, state); err != nil {
		return fmt.Errorf("failed to update game state: %w", err)
	}

	return nil
}

// Disconnect resolves the player's room through the inverse index and removes
// them from it.
func (that *GameUseCase) Disconnect(username string) (*DisconnectResult, error) {
	roomID, ok := that.registry.RoomOfPlayer(username)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrPlayerNotInRoom, username)
	}

	if !that.registry.RemovePlayerFromRoom(roomID, username) {
		return nil, fmt.Errorf("%w: %s in room %s", apperror.ErrPlayerNotInRoom, username, roomID)
	}

	that.logger.Info("player disconnected from room", "username", username, "room_id", roomID)

	return &DisconnectResult{
		Username: username,
		RoomID:   roomID,
	}, nil
}

// JoinableRooms lists rooms that still have an open slot.
func (that *GameUseCase) JoinableRooms() []string {
	return that.registry.JoinableRooms()
}
