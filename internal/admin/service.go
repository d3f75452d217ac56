// Package admin is the staff side of the order ledger: the unnotified badge,
// the reconciliation listing and status changes.
package admin

import (
	"context"
	"errors"

	"github.com/ariefcatur/bagstore/internal/auth"
	kafkax "github.com/ariefcatur/bagstore/internal/kafka"
	"github.com/ariefcatur/bagstore/internal/orders"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("bagstore/admin")

// AlertReader is the read side of the staff alert feed.
type AlertReader interface {
	Recent(ctx context.Context, n int) ([]orders.StaffAlert, error)
}

type Service struct {
	Catalog     orders.CatalogStore
	Ledger      orders.LedgerStore
	Alerts      AlertReader
	Events      orders.Publisher
	ServiceName string
	Log         *zap.Logger
}

// RequireStaff is the single privilege gate. Staff is decided by the authenticator.
func RequireStaff(who auth.Identity) error {
	if !who.Authenticated() {
		return orders.ErrUnauthenticated
	}
	if !who.Staff {
		return orders.ErrForbidden
	}
	return nil
}

func (s *Service) CountUnnotified(ctx context.Context, staff auth.Identity) (int, error) {
	if err := RequireStaff(staff); err != nil {
		return 0, err
	}
	n, err := s.Ledger.CountUnnotified(ctx)
	if err != nil {
		return 0, orders.Unavailable(err)
	}
	return n, nil
}

// MarkAllUnnotifiedAsNotified flips every unnotified order in one statement and returns how many changed.
// Orders placed while it runs may or may not be included.
func (s *Service) MarkAllUnnotifiedAsNotified(ctx context.Context, staff auth.Identity) (int, error) {
	if err := RequireStaff(staff); err != nil {
		return 0, err
	}
	ctx, span := tracer.Start(ctx, "admin.MarkAllUnnotifiedAsNotified")
	defer span.End()

	n, err := s.Ledger.MarkAllNotified(ctx)
	if err != nil {
		return 0, orders.Unavailable(err)
	}
	span.SetAttributes(attribute.Int("orders.marked", n))
	s.Log.Info("orders marked notified", zap.String("staff_id", staff.UserID), zap.Int("count", n))
	return n, nil
}

// ListOrders returns every order newest first with its product name.
// Deleted products get the fallback label; a catalog outage degrades names only.
func (s *Service) ListOrders(ctx context.Context, staff auth.Identity) ([]orders.OrderView, error) {
	if err := RequireStaff(staff); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "admin.ListOrders")
	defer span.End()

	list, err := s.Ledger.ListOrders(ctx, orders.OrderFilter{Sort: orders.NewestFirst})
	if err != nil {
		return nil, orders.Unavailable(err)
	}

	names := map[string]string{}
	products, err := s.Catalog.ListProducts(ctx)
	if err != nil {
		s.Log.Warn("catalog unavailable, using fallback product labels", zap.Error(err))
	}
	for _, p := range products {
		names[p.ID] = p.Name
	}

	out := make([]orders.OrderView, 0, len(list))
	for _, o := range list {
		out = append(out, orders.OrderView{Order: o, ProductName: orders.ProductLabel(o.ProductID, names)})
	}
	span.SetAttributes(attribute.Int("orders.count", len(out)))
	return out, nil
}

// AdvanceStatus moves an order along pending → paid → fulfilled or pending → cancelled.
func (s *Service) AdvanceStatus(ctx context.Context, staff auth.Identity, orderID string, to orders.Status) (orders.Order, error) {
	if err := RequireStaff(staff); err != nil {
		return orders.Order{}, err
	}
	ctx, span := tracer.Start(ctx, "admin.AdvanceStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("order.status.to", string(to)))

	if !to.Valid() {
		return orders.Order{}, orders.Reject(orders.KindInvalidTransition, "unknown status %q", to)
	}
	cur, err := s.Ledger.GetOrder(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	if err != nil {
		return orders.Order{}, orders.Unavailable(err)
	}
	if !orders.CanTransition(cur.Status, to) {
		return orders.Order{}, orders.Reject(orders.KindInvalidTransition, "order is %s and cannot become %s", cur.Status, to)
	}

	// compare-and-set on the status we just read; a concurrent change surfaces as InvalidTransition
	o, err := s.Ledger.TransitionStatus(ctx, orderID, cur.Status, to)
	if errors.Is(err, orders.ErrNotFound) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	if err != nil {
		return orders.Order{}, orders.Unavailable(err)
	}

	s.Log.Info("order status changed",
		zap.String("order_id", o.ID),
		zap.String("from", string(cur.Status)),
		zap.String("to", string(o.Status)),
		zap.String("staff_id", staff.UserID))

	payload := kafkax.MustMarshal(orders.OrderStatusChangedPayload{
		OrderID: o.ID,
		From:    cur.Status,
		To:      o.Status,
		StaffID: staff.UserID,
	})
	ev := orders.NewEnvelope(orders.EventOrderStatusChanged, s.ServiceName, o.ID, payload)
	s.Events.Publish(ctx, orders.PartitionKey(o.ID), kafkax.MustMarshal(ev), orders.EventHeaders(orders.EventOrderStatusChanged)...)
	return o, nil
}

// RecentAlerts returns up to n alerts from the notifier feed, newest first.
func (s *Service) RecentAlerts(ctx context.Context, staff auth.Identity, n int) ([]orders.StaffAlert, error) {
	if err := RequireStaff(staff); err != nil {
		return nil, err
	}
	alerts, err := s.Alerts.Recent(ctx, n)
	if err != nil {
		return nil, orders.Unavailable(err)
	}
	if alerts == nil {
		alerts = []orders.StaffAlert{}
	}
	return alerts, nil
}
