package orders

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventStockAdjusted      = "StockAdjusted"
)

const EventVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id or product_id
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps an already-encoded payload.
func NewEnvelope(eventType, producer, correlationID string, payload []byte) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  EventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

// EventHeaders are attached to every published message.
func EventHeaders(eventType string) []kafkago.Header {
	return []kafkago.Header{
		{Key: "x-event-type", Value: []byte(eventType)},
		{Key: "x-event-version", Value: []byte(strconv.Itoa(EventVersion))},
	}
}

// Publisher is the async event sink the services write to.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header)
}

type OrderPlacedPayload struct {
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	BuyerID   string          `json:"user_id"`
	Quantity  int             `json:"quantity"`
	Total     string          `json:"total"`
	Contact   ContactSnapshot `json:"contact"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
	StaffID string `json:"staff_id"`
}

type StockAdjustedPayload struct {
	ProductID   string       `json:"product_id"`
	ProductName string       `json:"product_name"`
	Quantity    int          `json:"quantity"`
	Before      Availability `json:"before"`
	After       Availability `json:"after"`
	StaffID     string       `json:"staff_id"`
}
