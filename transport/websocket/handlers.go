package websocket

import (
	"context"
	"encoding/json"
	"fmt"
)

func (that *Server) handleCreateRoom(ctx context.Context, c *client, message *Message) error {
	log := that.logger.With("method", "handleCreateRoom", "username", c.username)

	var payload CreateRoomPayload
	if len(message.Payload) > 0 {
		if err := json.Unmarshal(message.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	roomID := that.uGame.CreateRoom(payload.RoomID)
	log.Info("room created", "room_id", roomID)

	that.publish(ctx, topicPublic, roomCreatedEvent{
		Type:   eventRoomCreated,
		RoomID: roomID,
	})

	return nil
}

func (that *Server) handleJoinRoom(ctx context.Context, c *client, message *Message) error {
	log := that.logger.With("method", "handleJoinRoom", "username", c.username)

	var payload JoinRoomPayload
	if len(message.Payload) > 0 {
		if err := json.Unmarshal(message.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	result := that.uGame.JoinRoom(payload.RoomID, c.username)
	log.Info("player joined", "room_id", result.RoomID, "symbol", result.PlayerSymbol)

	// Subscribe before notifying the room so the joiner sees the notice too.
	that.broker.Subscribe(topicRoom(result.RoomID), c)

	if err := that.send(c, roomJoinedEvent{Type: eventRoomJoined, JoinResult: result}); err != nil {
		return fmt.Errorf("failed to send join response: %w", err)
	}

	that.publish(ctx, topicRoom(result.RoomID), playerJoinedEvent{
		Type:       eventPlayerJoined,
		RoomID:     result.RoomID,
		IsRoomFull: result.IsRoomFull,
	})

	return nil
}

func (that *Server) handleUpdateGameState(ctx context.Context, c *client, message *Message) error {
	log := that.logger.With("method", "handleUpdateGameState", "username", c.username)

	var payload UpdateGameStatePayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if err := that.uGame.UpdateGameState(payload.RoomID, payload.GameState); err != nil {
		log.Error("failed to update game state", "room_id", payload.RoomID, "error", err)
		that.sendError(c, fmt.Sprintf("room %s: %v", payload.RoomID, err))
		return nil
	}

	log.Info("game state updated", "room_id", payload.RoomID)

	that.publish(ctx, topicRoom(payload.RoomID), gameStateUpdatedEvent{
		Type:      eventGameStateUpdated,
		GameState: payload.GameState,
	})

	return nil
}
