// Package notify turns placement and inventory events into the staff alert feed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	kafkax "github.com/ariefcatur/bagstore/internal/kafka"
	"github.com/ariefcatur/bagstore/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type AlertSink interface {
	Push(ctx context.Context, a orders.StaffAlert) error
}

// Deduper remembers processed event ids. Forget undoes FirstSeen when the alert could not be stored,
// so the consumer's next attempt is not skipped as a duplicate.
type Deduper interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type Service struct {
	Alerts AlertSink
	Dedup  Deduper // nil disables dedup
	Log    *zap.Logger
}

// Handle routes a message by its x-event-type header, falling back to the envelope.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	env, err := decodeEnvelope(m)
	if err != nil {
		return err
	}
	switch env.EventType {
	case orders.EventOrderPlaced:
		return s.handleOrderPlaced(ctx, env)
	case orders.EventStockAdjusted:
		return s.handleStockAdjusted(ctx, env)
	default:
		return nil
	}
}

func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	env, err := decodeEnvelope(m)
	if err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}
	return s.handleOrderPlaced(ctx, env)
}

func (s *Service) HandleStockAdjusted(ctx context.Context, m kafkago.Message) error {
	env, err := decodeEnvelope(m)
	if err != nil {
		return err
	}
	if env.EventType != orders.EventStockAdjusted {
		return nil
	}
	return s.handleStockAdjusted(ctx, env)
}

func decodeEnvelope(m kafkago.Message) (orders.Envelope, error) {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return env, kafkax.Permanent(fmt.Errorf("decode envelope: %w", err))
	}
	if t := kafkax.HeaderValue(m, "x-event-type"); t != "" && env.EventType == "" {
		env.EventType = t
	}
	return env, nil
}

func (s *Service) handleOrderPlaced(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		return kafkax.Permanent(err)
	}
	return s.emit(ctx, env, orders.StaffAlert{
		Kind:      orders.AlertNewOrder,
		OrderID:   p.OrderID,
		ProductID: p.ProductID,
		Message:   fmt.Sprintf("New order: %d units of product %s (total %s)", p.Quantity, p.ProductID, p.Total),
	})
}

// handleStockAdjusted alerts only when availability flips between in and out of stock.
func (s *Service) handleStockAdjusted(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.StockAdjustedPayload](env.Payload)
	if err != nil {
		return kafkax.Permanent(err)
	}
	var a orders.StaffAlert
	switch {
	case p.After == orders.AvailabilityOutOfStock && p.Before != orders.AvailabilityOutOfStock:
		a = orders.StaffAlert{Kind: orders.AlertOutOfStock, Message: fmt.Sprintf("%s is out of stock", p.ProductName)}
	case p.Before == orders.AvailabilityOutOfStock && p.After == orders.AvailabilityInStock:
		a = orders.StaffAlert{Kind: orders.AlertBackInStock, Message: fmt.Sprintf("%s is back in stock (%d units)", p.ProductName, p.Quantity)}
	default:
		return nil
	}
	a.ProductID = p.ProductID
	return s.emit(ctx, env, a)
}

func (s *Service) emit(ctx context.Context, env orders.Envelope, a orders.StaffAlert) error {
	if s.Dedup != nil {
		first, err := s.Dedup.FirstSeen(ctx, env.EventID)
		if err != nil {
			return fmt.Errorf("dedup: %w", err)
		}
		if !first {
			s.Log.Debug("duplicate event skipped", zap.String("event_id", env.EventID))
			return nil
		}
	}

	a.EventID = env.EventID
	a.At = env.OccurredAt
	if err := s.Alerts.Push(ctx, a); err != nil {
		if s.Dedup != nil {
			if ferr := s.Dedup.Forget(ctx, env.EventID); ferr != nil {
				s.Log.Warn("dedup forget failed", zap.String("event_id", env.EventID), zap.Error(ferr))
			}
		}
		return fmt.Errorf("push alert: %w", err)
	}
	s.Log.Info("staff alert",
		zap.String("kind", string(a.Kind)),
		zap.String("event_id", a.EventID),
		zap.String("order_id", a.OrderID),
		zap.String("product_id", a.ProductID))
	return nil
}
