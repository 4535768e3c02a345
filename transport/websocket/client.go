package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// client is one connected player. Writes are serialized by the mutex because
// gorilla/websocket allows only one concurrent writer per connection.
type client struct {
	username string
	conn     *websocket.Conn

	mu sync.Mutex
}

func newClient(username string, conn *websocket.Conn) *client {
	return &client{
		username: username,
		conn:     conn,
	}
}

// Deliver sends one encoded message to the peer. It implements
// broker.Subscriber.
func (that *client) Deliver(payload []byte) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to write message to %s: %w", that.username, err)
	}

	return nil
}

func (that *client) Close() error {
	return that.conn.Close()
}
