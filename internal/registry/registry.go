// Package registry owns the process-wide mapping of room identifiers to room
// state and the inverse index of usernames to rooms. A Registry is an
// explicitly constructed value handed to the transport, never package-level
// state.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tictactwo/tictactwo-backend/internal/apperror"
	"github.com/tictactwo/tictactwo-backend/internal/entity"
	"github.com/tictactwo/tictactwo-backend/internal/metrics"
)

type Registry struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	rooms      sync.Map // room id -> *entity.Room
	playerRoom sync.Map // username -> room id
}

func New(logger *slog.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		logger:  logger.With("component", "registry"),
		metrics: m,
	}
}

// CreateRoom registers an empty room under a fresh unique identifier.
func (that *Registry) CreateRoom() string {
	id := uuid.NewString()
	that.CreateRoomWithID(id)

	return id
}

// CreateRoomWithID registers an empty room under the given identifier. An
// existing room of that identifier is silently replaced, discarding any game
// in progress: a client reconnecting to a known id expects a fresh room.
func (that *Registry) CreateRoomWithID(id string) {
	_, existed := that.rooms.Swap(id, entity.NewRoom())
	if existed {
		that.unbindRoomPlayers(id)
		that.logger.Info("room reset", "room_id", id)
		return
	}

	that.metrics.RoomCreated()
	that.logger.Info("room created", "room_id", id)
}

// unbindRoomPlayers drops inverse-index entries of players whose room was
// replaced, keeping "an entry exists iff the player occupies a room" true.
func (that *Registry) unbindRoomPlayers(roomID string) {
	that.playerRoom.Range(func(key, value any) bool {
		if value.(string) == roomID {
			that.playerRoom.Delete(key)
			that.metrics.PlayerLeft()
		}
		return true
	})
}

// JoinRoom places username into a room and returns the room id and assigned
// mark. With no desired room it matchmakes into some room with exactly one
// occupant, or creates a new one. With a desired room it joins when the room
// exists and has space, and otherwise silently falls back to a new room.
func (that *Registry) JoinRoom(desiredID, username string) (string, string) {
	log := that.logger.With("method", "JoinRoom", "username", username)

	if desiredID == "" {
		if roomID, symbol, ok := that.joinOpenRoom(username); ok {
			log.Info("player matched into open room", "room_id", roomID, "symbol", symbol)
			return roomID, symbol
		}
	} else if room, ok := that.room(desiredID); ok {
		if symbol, joined := room.TryJoin(username); joined {
			that.bindPlayer(username, desiredID)
			log.Info("player joined room", "room_id", desiredID, "symbol", symbol)
			return desiredID, symbol
		}
	}

	// Desired room full or missing, or no open room found. TryJoin on a
	// fresh room only fails if concurrent joiners fill it first, so retry.
	for {
		roomID := that.CreateRoom()
		room, ok := that.room(roomID)
		if !ok {
			continue
		}

		symbol, joined := room.TryJoin(username)
		if !joined {
			continue
		}

		that.bindPlayer(username, roomID)
		log.Info("player joined new room", "room_id", roomID, "symbol", symbol)

		return roomID, symbol
	}
}

// joinOpenRoom scans for some room with exactly one occupant. Iteration order
// of the room map is not deterministic and does not need to be.
func (that *Registry) joinOpenRoom(username string) (string, string, bool) {
	var roomID, symbol string
	var found bool

	that.rooms.Range(func(key, value any) bool {
		room := value.(*entity.Room)
		if room.PlayerCount() != 1 {
			return true
		}

		mark, joined := room.TryJoin(username)
		if !joined {
			return true
		}

		roomID, symbol, found = key.(string), mark, true

		return false
	})

	if found {
		that.bindPlayer(username, roomID)
	}

	return roomID, symbol, found
}

func (that *Registry) bindPlayer(username, roomID string) {
	_, rebound := that.playerRoom.Swap(username, roomID)
	if !rebound {
		that.metrics.PlayerJoined()
	}
}

func (that *Registry) room(id string) (*entity.Room, bool) {
	value, ok := that.rooms.Load(id)
	if !ok {
		return nil, false
	}

	return value.(*entity.Room), true
}

// IsRoomFull reports whether the room holds two players. A missing room is
// not full.
func (that *Registry) IsRoomFull(id string) bool {
	room, ok := that.room(id)
	if !ok {
		return false
	}

	return room.PlayerCount() == 2
}

// RoomOfPlayer resolves the room currently occupied by username.
func (that *Registry) RoomOfPlayer(username string) (string, bool) {
	value, ok := that.playerRoom.Load(username)
	if !ok {
		return "", false
	}

	return value.(string), true
}

// RemovePlayerFromRoom drops username from the room and clears the inverse
// index entry. It reports false when the room is missing or the player holds
// no mark there.
func (that *Registry) RemovePlayerFromRoom(id, username string) bool {
	room, ok := that.room(id)
	if !ok {
		return false
	}

	if !room.RemovePlayer(username) {
		return false
	}

	that.playerRoom.Delete(username)
	that.metrics.PlayerLeft()
	that.logger.Info("player removed from room", "room_id", id, "username", username)

	return true
}

// JoinableRooms lists the rooms with fewer than two occupants.
func (that *Registry) JoinableRooms() []string {
	joinable := []string{}

	that.rooms.Range(func(key, value any) bool {
		if value.(*entity.Room).PlayerCount() < 2 {
			joinable = append(joinable, key.(string))
		}
		return true
	})

	return joinable
}

// UpdateGameState overwrites the room's state with a trusted client snapshot.
// No rules validation is performed.
func (that *Registry) UpdateGameState(id string, state entity.GameState) error {
	room, ok := that.room(id)
	if !ok {
		that.logger.Error("attempted to update non-existent room", "room_id", id)
		return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, id)
	}

	room.ApplyState(state)
	that.logger.Info("game state updated", "room_id", id)

	return nil
}

// GameState returns a consistent snapshot of the room's state. A missing room
// yields empty defaults.
func (that *Registry) GameState(id string) entity.GameState {
	room, ok := that.room(id)
	if !ok {
		return entity.GameState{Squares: []string{}, History: []int{}}
	}

	return room.Snapshot()
}

// PlayerSymbol returns the mark held by username in the room, if any.
func (that *Registry) PlayerSymbol(id, username string) (string, bool) {
	room, ok := that.room(id)
	if !ok {
		return "", false
	}

	return room.PlayerSymbol(username)
}
