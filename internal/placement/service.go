// Package placement turns a buyer's purchase request into a pending order.
package placement

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/bagstore/internal/auth"
	kafkax "github.com/ariefcatur/bagstore/internal/kafka"
	"github.com/ariefcatur/bagstore/internal/orders"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("bagstore/placement")

// Policy decides how placement treats stock.
type Policy struct {
	// EnforceStock rejects requests above the tracked on-hand quantity.
	EnforceStock bool
	// DecrementOnOrder reduces stock atomically with the order insert. Implies enforcement.
	DecrementOnOrder bool
}

type Service struct {
	Catalog     orders.CatalogStore
	Ledger      orders.LedgerStore
	Profiles    orders.ProfileStore
	Events      orders.Publisher
	Policy      Policy
	ServiceName string
	Log         *zap.Logger
}

type Request struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	IdempotencyKey string `json:"-"`
}

// PlaceOrder validates req against the catalog and inserts a pending, unnotified order.
// Without an idempotency key every call creates a new order.
func (s *Service) PlaceOrder(ctx context.Context, buyer auth.Identity, req Request) (orders.Order, error) {
	ctx, span := tracer.Start(ctx, "placement.PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", req.ProductID),
		attribute.Int("order.quantity", req.Quantity),
	)

	o, err := s.placeOrder(ctx, buyer, req)
	if err != nil {
		span.SetStatus(codes.Error, string(orders.KindOf(err)))
		s.Log.Info("order rejected",
			zap.String("buyer_id", buyer.UserID),
			zap.String("product_id", req.ProductID),
			zap.Int("quantity", req.Quantity),
			zap.String("kind", string(orders.KindOf(err))),
			zap.Error(err))
		return orders.Order{}, err
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	span.SetStatus(codes.Ok, "")
	return o, nil
}

func (s *Service) placeOrder(ctx context.Context, buyer auth.Identity, req Request) (orders.Order, error) {
	if !buyer.Authenticated() {
		return orders.Order{}, orders.ErrUnauthenticated
	}
	if req.Quantity <= 0 || req.Quantity > orders.MaxQuantity {
		return orders.Order{}, orders.ErrInvalidQuantity
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		return orders.Order{}, orders.ErrProductNotFound
	}

	if req.IdempotencyKey != "" {
		existing, err := s.Ledger.FindOrderByIdempotencyKey(ctx, buyer.UserID, req.IdempotencyKey)
		if err == nil {
			return replay(existing, req)
		}
		if !errors.Is(err, orders.ErrNotFound) {
			return orders.Order{}, orders.Unavailable(err)
		}
	}

	p, err := s.Catalog.GetProduct(ctx, req.ProductID)
	if errors.Is(err, orders.ErrNotFound) {
		return orders.Order{}, orders.ErrProductNotFound
	}
	if err != nil {
		return orders.Order{}, orders.Unavailable(err)
	}
	if err := s.checkStock(p, req.Quantity); err != nil {
		return orders.Order{}, err
	}

	contact, err := s.snapshotContact(ctx, buyer)
	if err != nil {
		return orders.Order{}, err
	}

	o, err := s.Ledger.InsertOrder(ctx, orders.Order{
		ProductID:      p.ID,
		BuyerID:        buyer.UserID,
		Quantity:       req.Quantity,
		Status:         orders.StatusPending,
		NotifiedAdmins: false,
		Contact:        contact,
		Total:          p.PriceFor(req.Quantity),
		IdempotencyKey: req.IdempotencyKey,
	}, s.Policy.DecrementOnOrder)
	if errors.Is(err, orders.ErrDuplicateOrder) {
		// lost a race with a concurrent submit carrying the same key
		existing, ferr := s.Ledger.FindOrderByIdempotencyKey(ctx, buyer.UserID, req.IdempotencyKey)
		if ferr != nil {
			return orders.Order{}, orders.Unavailable(ferr)
		}
		return replay(existing, req)
	}
	if err != nil {
		return orders.Order{}, orders.Unavailable(err)
	}

	s.Log.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("buyer_id", o.BuyerID),
		zap.String("product_id", o.ProductID),
		zap.Int("quantity", o.Quantity),
		zap.String("total", o.Total.String()))
	s.publishPlaced(ctx, o)
	return o, nil
}

// replay returns the order an idempotency key already produced, provided req asks for the same thing.
func replay(existing orders.Order, req Request) (orders.Order, error) {
	if !SameRequest(existing, req) {
		return orders.Order{}, orders.ErrIdempotencyConflict
	}
	return existing, nil
}

// SameRequest reports whether o is what req would have created.
func SameRequest(o orders.Order, req Request) bool {
	return o.ProductID == strings.TrimSpace(req.ProductID) && o.Quantity == req.Quantity
}

// checkStock: out-of-stock products are never orderable; the quantity comparison depends on policy.
func (s *Service) checkStock(p orders.Product, qty int) error {
	if p.Quantity == nil {
		return nil
	}
	if p.OutOfStock() {
		return orders.Reject(orders.KindInsufficientStock, "%s is out of stock, will be available soon", p.Name)
	}
	if (s.Policy.EnforceStock || s.Policy.DecrementOnOrder) && qty > *p.Quantity {
		return orders.Reject(orders.KindInsufficientStock, "only %d units of %s left", *p.Quantity, p.Name)
	}
	return nil
}

// snapshotContact prefers the stored profile and falls back to the account.
func (s *Service) snapshotContact(ctx context.Context, buyer auth.Identity) (orders.ContactSnapshot, error) {
	prof, err := s.Profiles.GetProfile(ctx, buyer.UserID)
	if err != nil && !errors.Is(err, orders.ErrNotFound) {
		return orders.ContactSnapshot{}, orders.Unavailable(err)
	}
	return orders.ContactSnapshot{
		Email: firstNonEmpty(prof.Email, buyer.Email),
		Phone: firstNonEmpty(prof.Phone, buyer.Phone),
	}, nil
}

func (s *Service) publishPlaced(ctx context.Context, o orders.Order) {
	payload := kafkax.MustMarshal(orders.OrderPlacedPayload{
		OrderID:   o.ID,
		ProductID: o.ProductID,
		BuyerID:   o.BuyerID,
		Quantity:  o.Quantity,
		Total:     o.Total.String(),
		Contact:   o.Contact,
	})
	ev := orders.NewEnvelope(orders.EventOrderPlaced, s.ServiceName, o.ID, payload)
	s.Events.Publish(ctx, orders.PartitionKey(o.ID), kafkax.MustMarshal(ev), orders.EventHeaders(orders.EventOrderPlaced)...)
}

// History is a buyer's own orders plus who to contact about them.
type History struct {
	Orders        []orders.Order        `json:"orders"`
	StaffContacts []orders.StaffContact `json:"staff_contacts"`
}

func (s *Service) BuyerOrders(ctx context.Context, buyer auth.Identity) (History, error) {
	if !buyer.Authenticated() {
		return History{}, orders.ErrUnauthenticated
	}
	list, err := s.Ledger.ListOrders(ctx, orders.OrderFilter{BuyerID: buyer.UserID, Sort: orders.NewestFirst})
	if err != nil {
		return History{}, orders.Unavailable(err)
	}
	contacts, err := s.Profiles.ListStaffContacts(ctx)
	if err != nil {
		// contacts are decoration; the order list is still useful without them
		s.Log.Warn("staff contacts unavailable", zap.Error(err))
		contacts = nil
	}
	if list == nil {
		list = []orders.Order{}
	}
	if contacts == nil {
		contacts = []orders.StaffContact{}
	}
	return History{Orders: list, StaffContacts: contacts}, nil
}

// GetOrder returns an order to its buyer or to staff. Others get ErrOrderNotFound.
func (s *Service) GetOrder(ctx context.Context, who auth.Identity, id string) (orders.Order, error) {
	if !who.Authenticated() {
		return orders.Order{}, orders.ErrUnauthenticated
	}
	o, err := s.Ledger.GetOrder(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	if err != nil {
		return orders.Order{}, orders.Unavailable(err)
	}
	if o.BuyerID != who.UserID && !who.Staff {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, nil
}

type ProfileInput struct {
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	DisplayName  string `json:"display_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
}

// SaveProfile stores the caller's own contact data. It cannot grant staff.
func (s *Service) SaveProfile(ctx context.Context, who auth.Identity, in ProfileInput) (orders.Profile, error) {
	if !who.Authenticated() {
		return orders.Profile{}, orders.ErrUnauthenticated
	}
	p, err := s.Profiles.UpsertProfile(ctx, orders.Profile{
		UserID:       who.UserID,
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		DisplayName:  strings.TrimSpace(in.DisplayName),
		ContactEmail: strings.TrimSpace(in.ContactEmail),
		ContactPhone: strings.TrimSpace(in.ContactPhone),
	})
	if err != nil {
		return orders.Profile{}, orders.Unavailable(err)
	}
	return p, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
