package usecase

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tictactwo/tictactwo-backend/internal/apperror"
	"github.com/tictactwo/tictactwo-backend/internal/entity"
	"github.com/tictactwo/tictactwo-backend/internal/registry"
)

func newTestUseCase() *GameUseCase {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewGameUseCase(logger, registry.New(logger, nil))
}

func TestGameUseCase_CreateRoom(t *testing.T) {
	t.Run("Uses the requested identifier when given", func(t *testing.T) {
		// Given: a use case over a fresh registry
		uc := newTestUseCase()

		// When: creating a room with a requested id
		roomID := uc.CreateRoom("friends-lobby")

		// Then: that id is used verbatim
		assert.Equal(t, "friends-lobby", roomID)
		assert.Contains(t, uc.JoinableRooms(), "friends-lobby")
	})

	t.Run("Generates an identifier when none is requested", func(t *testing.T) {
		// Given: a use case over a fresh registry
		uc := newTestUseCase()

		// When: creating a room without an id
		roomID := uc.CreateRoom("")

		// Then: a non-empty id is generated
		assert.NotEmpty(t, roomID)
	})
}

func TestGameUseCase_JoinRoom(t *testing.T) {
	t.Run("Join response carries the room's full state", func(t *testing.T) {
		// Given: a room with one player and some progress
		uc := newTestUseCase()
		roomID := uc.CreateRoom("r1")
		first := uc.JoinRoom(roomID, "alice")
		require.False(t, first.IsRoomFull)

		state := entity.GameState{
			Squares: []string{entity.PlayerX, "", "", "", "", "", "", "", ""},
			History: []int{0},
			XIsNext: false,
		}
		require.NoError(t, uc.UpdateGameState(roomID, state))

		// When: a second player joins
		second := uc.JoinRoom(roomID, "bob")

		// Then: the response holds the current board, the assigned mark and
		// the full flag
		assert.Equal(t, roomID, second.RoomID)
		assert.Equal(t, entity.PlayerO, second.PlayerSymbol)
		assert.Equal(t, state.Squares, second.Squares)
		assert.Equal(t, state.History, second.History)
		assert.False(t, second.XIsNext)
		assert.True(t, second.IsRoomFull)
	})

	t.Run("Empty desired id matchmakes", func(t *testing.T) {
		// Given: alice waiting in a room
		uc := newTestUseCase()
		first := uc.JoinRoom("", "alice")

		// When: bob joins without a desired room
		second := uc.JoinRoom("", "bob")

		// Then: both share a room with complementary marks
		assert.Equal(t, first.RoomID, second.RoomID)
		assert.NotEqual(t, first.PlayerSymbol, second.PlayerSymbol)
	})
}

func TestGameUseCase_UpdateGameState(t *testing.T) {
	t.Run("Signals not-found for a missing room", func(t *testing.T) {
		// Given: a use case over an empty registry
		uc := newTestUseCase()

		// When: updating a room that does not exist
		err := uc.UpdateGameState("ghost", entity.GameState{})

		// Then: the sentinel error surfaces through the wrap
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestGameUseCase_Disconnect(t *testing.T) {
	t.Run("Removes the player and reports the affected room", func(t *testing.T) {
		// Given: alice in a room
		uc := newTestUseCase()
		joined := uc.JoinRoom("", "alice")

		// When: alice disconnects
		result, err := uc.Disconnect("alice")

		// Then: the result names her room and she is no longer tracked
		require.NoError(t, err)
		assert.Equal(t, "alice", result.Username)
		assert.Equal(t, joined.RoomID, result.RoomID)

		_, err = uc.Disconnect("alice")
		assert.ErrorIs(t, err, apperror.ErrPlayerNotInRoom)
	})

	t.Run("Returns an error for a player without a room", func(t *testing.T) {
		// Given: an empty registry
		uc := newTestUseCase()

		// When: a never-joined username disconnects
		_, err := uc.Disconnect("ghost")

		// Then: the not-in-room sentinel is returned
		assert.ErrorIs(t, err, apperror.ErrPlayerNotInRoom)
	})
}
