package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tictactwo/tictactwo-backend/internal/broker"
	"github.com/tictactwo/tictactwo-backend/internal/entity"
	"github.com/tictactwo/tictactwo-backend/internal/metrics"
	"github.com/tictactwo/tictactwo-backend/internal/usecase"
)

const (
	topicPublic = "public"

	activePlayersInterval = 5 * time.Second
)

var ErrUnknownAction = errors.New("unknown action")

func topicRoom(id string) string {
	return "room:" + id
}

type gameUseCase interface {
	CreateRoom(requestedID string) string
	JoinRoom(desiredID, username string) *usecase.JoinResult
	UpdateGameState(roomID string, state entity.GameState) error
	Disconnect(username string) (*usecase.DisconnectResult, error)
}

type Server struct {
	logger  *slog.Logger
	uGame   gameUseCase
	broker  broker.Broker
	metrics *metrics.Metrics

	upgrader websocket.Upgrader
	handlers map[string]func(ctx context.Context, c *client, message *Message) error

	clientsMutex sync.RWMutex
	clients      map[string]*client
}

func New(logger *slog.Logger, uGame gameUseCase, b broker.Broker, m *metrics.Metrics) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		uGame:   uGame,
		broker:  b,
		metrics: m,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		handlers: make(map[string]func(context.Context, *client, *Message) error),
		clients:  make(map[string]*client),
	}

	server.handlers[actionCreateRoom] = server.handleCreateRoom
	server.handlers[actionJoinRoom] = server.handleJoinRoom
	server.handlers[actionUpdateGameState] = server.handleUpdateGameState

	return server
}

// Start serves the websocket endpoint until the context is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go that.broadcastActivePlayers(ctx)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveConnection upgrades the request and pumps messages until the peer
// goes away. The session identity is the username query parameter supplied
// during the handshake.
func (that *Server) serveConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveConnection")

	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := newClient(username, conn)
	that.registerClient(c)
	that.broker.Subscribe(topicPublic, c)

	log.Info("websocket connection established", "username", username)

	defer that.dropClient(ctx, c)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Info("connection closed", "username", username, "error", err)
			return
		}

		var message Message
		if err = json.Unmarshal(raw, &message); err != nil {
			log.Error("failed to unmarshal message", "username", username, "error", err)
			continue
		}

		if err = that.dispatch(ctx, c, &message); err != nil {
			log.Error("failed to process message", "action", message.Action, "error", err)
		}
	}
}

func (that *Server) dispatch(ctx context.Context, c *client, message *Message) error {
	handler, ok := that.handlers[message.Action]
	if !ok {
		that.sendError(c, fmt.Sprintf("unknown action %q", message.Action))
		return fmt.Errorf("%w: %s", ErrUnknownAction, message.Action)
	}

	return handler(ctx, c, message)
}

func (that *Server) registerClient(c *client) {
	that.clientsMutex.Lock()
	that.clients[c.username] = c
	count := len(that.clients)
	that.clientsMutex.Unlock()

	that.metrics.SetOnlineUsers(count)
}

// dropClient tears the session down: connection bookkeeping first, then the
// room membership, with the disconnect notice published to the room's topic.
func (that *Server) dropClient(ctx context.Context, c *client) {
	log := that.logger.With("method", "dropClient")

	that.clientsMutex.Lock()
	if current, ok := that.clients[c.username]; ok && current == c {
		delete(that.clients, c.username)
	}
	count := len(that.clients)
	that.clientsMutex.Unlock()

	that.metrics.SetOnlineUsers(count)
	that.broker.UnsubscribeAll(c)
	_ = c.Close()

	result, err := that.uGame.Disconnect(c.username)
	if err != nil {
		// Not being in a room is the normal case for lobby-only clients.
		log.Info("no room membership to clean up", "username", c.username)
		return
	}

	that.publish(ctx, topicRoom(result.RoomID), playerDisconnectedEvent{
		Type:     eventPlayerDisconnected,
		Username: result.Username,
		RoomID:   result.RoomID,
	})
}

// broadcastActivePlayers pushes the online-user count to the public topic on
// a fixed interval.
func (that *Server) broadcastActivePlayers(ctx context.Context) {
	ticker := time.NewTicker(activePlayersInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			that.clientsMutex.RLock()
			count := len(that.clients)
			that.clientsMutex.RUnlock()

			that.publish(ctx, topicPublic, activePlayersEvent{
				Type:          eventActivePlayers,
				ActivePlayers: count,
			})
		}
	}
}

func (that *Server) publish(ctx context.Context, topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		that.logger.Error("failed to marshal event", "topic", topic, "error", err)
		return
	}

	if err = that.broker.Publish(ctx, topic, payload); err != nil {
		that.logger.Error("failed to publish event", "topic", topic, "error", err)
	}
}

// send delivers an event privately to one client.
func (that *Server) send(c *client, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err = c.Deliver(payload); err != nil {
		return fmt.Errorf("failed to deliver event: %w", err)
	}

	return nil
}

func (that *Server) sendError(c *client, message string) {
	if err := that.send(c, errorEvent{Type: eventError, Error: message}); err != nil {
		that.logger.Error("failed to send error response", "username", c.username, "error", err)
	}
}
