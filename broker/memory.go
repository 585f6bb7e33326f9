package broker

import (
	"context"
	"sync"
)

// MemoryBroker is an in-process transport used by tests. Publish delivers
// synchronously to the dispatchers subscribed to the topic; messages
// published to topics with no subscriber are dropped, matching the
// fire-and-forget contract.
type MemoryBroker struct {
	mu          sync.Mutex
	subscribers map[string][]*Dispatcher
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subscribers: make(map[string][]*Dispatcher),
	}
}

func (b *MemoryBroker) Subscribe(d *Dispatcher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[d.Topic()] = append(b.subscribers[d.Topic()], d)
}

func (b *MemoryBroker) Publish(ctx context.Context, topic string, msg Message) error {
	b.mu.Lock()
	dispatchers := append([]*Dispatcher(nil), b.subscribers[topic]...)
	b.mu.Unlock()

	for _, d := range dispatchers {
		// Handler errors are swallowed like a real transport would:
		// the publisher never learns about consumer failures.
		_ = d.Dispatch(ctx, msg)
	}
	return nil
}
