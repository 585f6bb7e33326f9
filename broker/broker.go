// Package broker is the message-channel boundary of the service:
// fire-and-forget publish plus durable subscribe with per-kind handler
// dispatch. The transport delivers at least once, so every handler must
// be idempotent.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Message is the wire envelope shared by all topics. Type selects the
// handler; Message is the kind-specific payload.
type Message struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// NewMessage wraps payload in an envelope of the given kind.
func NewMessage(kind string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	return Message{Type: kind, Message: raw}, nil
}

// Handler consumes one delivered message. Returning an error leaves the
// message unacknowledged so the transport redelivers it.
type Handler func(ctx context.Context, msg Message) error

type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
}

// Dispatcher routes the messages of one topic to named handlers by the
// envelope type. Kinds without a registered handler are logged and
// dropped so a single queue can carry message kinds this service does
// not consume.
type Dispatcher struct {
	topic    string
	handlers map[string]Handler
}

func NewDispatcher(topic string) *Dispatcher {
	return &Dispatcher{
		topic:    topic,
		handlers: make(map[string]Handler),
	}
}

func (d *Dispatcher) Topic() string { return d.topic }

// Handle registers h for envelopes of the given kind.
func (d *Dispatcher) Handle(kind string, h Handler) {
	d.handlers[kind] = h
}

// Dispatch invokes the handler registered for msg.Type.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	h, ok := d.handlers[msg.Type]
	if !ok {
		log.Printf("Broker: no handler for message type %q on topic %s, dropping", msg.Type, d.topic)
		return nil
	}
	return h(ctx, msg)
}
