// Package redispub fans topic messages out through Redis pub/sub. Local
// subscriptions are tracked by an embedded in-process hub; publishes go
// through Redis so every process subscribed to the channel pattern delivers
// them.
package redispub

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/tictactwo/tictactwo-backend/internal/broker"
)

const channelPrefix = "tictactwo:"

type Broker struct {
	logger *slog.Logger
	client *redis.Client
	local  *broker.Hub
}

func New(logger *slog.Logger, client *redis.Client) *Broker {
	return &Broker{
		logger: logger.With("component", "redispub"),
		client: client,
		local:  broker.NewHub(logger),
	}
}

// Run consumes the Redis channel pattern and re-delivers messages to local
// subscribers until the context is canceled.
func (that *Broker) Run(ctx context.Context) error {
	pubsub := that.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to redis channels: %w", err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			topic := strings.TrimPrefix(msg.Channel, channelPrefix)
			if err := that.local.Publish(ctx, topic, []byte(msg.Payload)); err != nil {
				that.logger.Error("failed to deliver redis message", "topic", topic, "error", err)
			}
		}
	}
}

func (that *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := that.client.Publish(ctx, channelPrefix+topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	return nil
}

func (that *Broker) Subscribe(topic string, sub broker.Subscriber) {
	that.local.Subscribe(topic, sub)
}

func (that *Broker) Unsubscribe(topic string, sub broker.Subscriber) {
	that.local.Unsubscribe(topic, sub)
}

func (that *Broker) UnsubscribeAll(sub broker.Subscriber) {
	that.local.UnsubscribeAll(sub)
}
