package pubsub

import (
	"context"
	"sync"
)

// MemoryBroker is an in-process Broker for tests and single-node development.
// Delivery is synchronous and best-effort, matching the contract: handlers
// registered after a publish simply miss it.
type MemoryBroker struct {
	mu     sync.RWMutex
	topics map[string]map[int64]Handler
	nextID int64
}

// NewMemoryBroker returns an empty in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]map[int64]Handler)}
}

// Subscribe attaches handler to topic.
func (b *MemoryBroker) Subscribe(topic string, handler Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.topics[topic] == nil {
		b.topics[topic] = make(map[int64]Handler)
	}
	id := b.nextID
	b.nextID++
	b.topics[topic][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.topics[topic], id)
		if len(b.topics[topic]) == 0 {
			delete(b.topics, topic)
		}
	}, nil
}

// Publish delivers event to every handler currently attached to topic.
func (b *MemoryBroker) Publish(_ context.Context, topic string, event Event) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.topics[topic]))
	for _, h := range b.topics[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

// SubscriberCount reports how many handlers are attached to topic.
func (b *MemoryBroker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
