// Package kafkatest provides an in-memory stand-in for the Kafka bus so unit
// tests can run the full publish/consume path synchronously.
package kafkatest

import (
	"context"
	"sync"
	"time"

	"claimcheck/internal/platform/kafka/consumer"
)

// Bus delivers published messages directly to registered handlers. Publish
// blocks until every handler has run, which makes event-driven flows
// deterministic in tests.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]consumer.Handler
	// FailPublish, when set, makes Publish return this error instead of
	// delivering. Tests use it to exercise retry and failure paths.
	FailPublish error
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]consumer.Handler)}
}

// Register subscribes a handler to a topic.
func (b *Bus) Register(topic string, handler consumer.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish synchronously delivers the message to all handlers for the topic.
// Messages on topics without handlers are dropped, as on a real bus with no
// consumer group.
func (b *Bus) Publish(ctx context.Context, topic string, key, value []byte) error {
	b.mu.RLock()
	failErr := b.FailPublish
	handlers := append([]consumer.Handler(nil), b.handlers[topic]...)
	b.mu.RUnlock()

	if failErr != nil {
		return failErr
	}

	msg := &consumer.Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Timestamp: time.Now(),
	}
	for _, h := range handlers {
		if err := h.Handle(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
