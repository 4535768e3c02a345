// Package broker is the pub/sub relay between the room core and connected
// clients. Topics are plain strings; payloads are opaque encoded messages.
package broker

import (
	"context"
	"log/slog"
	"sync"
)

// Subscriber receives every payload published to the topics it is
// subscribed to.
type Subscriber interface {
	Deliver(payload []byte) error
}

type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, sub Subscriber)
	Unsubscribe(topic string, sub Subscriber)
	UnsubscribeAll(sub Subscriber)
}

// Hub is the in-process Broker: a topic to subscriber-set mapping guarded by
// a read-write lock.
type Hub struct {
	logger *slog.Logger

	mu     sync.RWMutex
	topics map[string]map[Subscriber]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger.With("component", "broker"),
		topics: make(map[string]map[Subscriber]struct{}),
	}
}

func (that *Hub) Publish(_ context.Context, topic string, payload []byte) error {
	that.mu.RLock()
	subs := make([]Subscriber, 0, len(that.topics[topic]))
	for sub := range that.topics[topic] {
		subs = append(subs, sub)
	}
	that.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.Deliver(payload); err != nil {
			that.logger.Error("failed to deliver message", "topic", topic, "error", err)
		}
	}

	return nil
}

func (that *Hub) Subscribe(topic string, sub Subscriber) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.topics[topic] == nil {
		that.topics[topic] = make(map[Subscriber]struct{})
	}

	that.topics[topic][sub] = struct{}{}
}

func (that *Hub) Unsubscribe(topic string, sub Subscriber) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.topics[topic], sub)
}

func (that *Hub) UnsubscribeAll(sub Subscriber) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, subs := range that.topics {
		delete(subs, sub)
	}
}
