package memstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ariefcatur/bagstore/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
)

// Events is an in-process orders.Publisher that keeps every envelope it receives.
// When Deliver is set each message is also handed to it synchronously, standing in for a consumer.
type Events struct {
	Deliver func(ctx context.Context, m kafkago.Message) error

	mu   sync.Mutex
	sent []orders.Envelope
}

var _ orders.Publisher = (*Events)(nil)

func (e *Events) Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) {
	var env orders.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return
	}
	e.mu.Lock()
	e.sent = append(e.sent, env)
	e.mu.Unlock()

	if e.Deliver != nil {
		_ = e.Deliver(ctx, kafkago.Message{Key: key, Value: value, Headers: headers})
	}
}

// Sent returns the envelopes of eventType, or all when eventType is empty.
func (e *Events) Sent(eventType string) []orders.Envelope {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []orders.Envelope
	for _, env := range e.sent {
		if eventType == "" || env.EventType == eventType {
			out = append(out, env)
		}
	}
	return out
}
