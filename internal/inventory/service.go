// Package inventory is the staff-only catalog editor and the public catalog read.
package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/bagstore/internal/admin"
	"github.com/ariefcatur/bagstore/internal/auth"
	kafkax "github.com/ariefcatur/bagstore/internal/kafka"
	"github.com/ariefcatur/bagstore/internal/orders"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("bagstore/inventory")

type Service struct {
	Catalog     orders.CatalogStore
	Events      orders.Publisher
	ServiceName string
	Log         *zap.Logger
}

// ListCatalog lists every product newest first with its derived availability.
func (s *Service) ListCatalog(ctx context.Context) ([]orders.ProductView, error) {
	ps, err := s.Catalog.ListProducts(ctx)
	if err != nil {
		return nil, orders.Unavailable(err)
	}
	out := make([]orders.ProductView, 0, len(ps))
	for _, p := range ps {
		out = append(out, orders.ViewOf(p))
	}
	return out, nil
}

func (s *Service) CreateProduct(ctx context.Context, staff auth.Identity, np orders.NewProduct) (orders.Product, error) {
	if err := admin.RequireStaff(staff); err != nil {
		return orders.Product{}, err
	}
	np.Name = strings.TrimSpace(np.Name)
	np.Size = strings.TrimSpace(np.Size)
	np.Color = strings.TrimSpace(np.Color)
	if np.Name == "" {
		return orders.Product{}, orders.Reject(orders.KindInvalidProduct, "product name is required")
	}
	if np.PricePer1000 == nil {
		return orders.Product{}, orders.Reject(orders.KindInvalidProduct, "product price is required")
	}
	if err := checkFields(np.PricePer1000.IsNegative(), np.ThicknessMicrons); err != nil {
		return orders.Product{}, err
	}
	if np.Quantity != nil && (*np.Quantity < 0 || *np.Quantity > orders.MaxQuantity) {
		return orders.Product{}, orders.ErrInvalidQuantity
	}

	p, err := s.Catalog.InsertProduct(ctx, np)
	if err != nil {
		return orders.Product{}, orders.Unavailable(err)
	}
	s.Log.Info("product created",
		zap.String("product_id", p.ID),
		zap.String("name", p.Name),
		zap.String("staff_id", staff.UserID))
	return p, nil
}

// UpdateProduct changes metadata. Quantity goes through SetQuantity only.
func (s *Service) UpdateProduct(ctx context.Context, staff auth.Identity, id string, patch orders.ProductPatch) (orders.Product, error) {
	if err := admin.RequireStaff(staff); err != nil {
		return orders.Product{}, err
	}
	patch.Quantity = nil
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return orders.Product{}, orders.Reject(orders.KindInvalidProduct, "product name is required")
		}
		patch.Name = &name
	}
	negative := patch.PricePer1000 != nil && patch.PricePer1000.IsNegative()
	if err := checkFields(negative, patch.ThicknessMicrons); err != nil {
		return orders.Product{}, err
	}

	p, err := s.Catalog.UpdateProduct(ctx, id, patch)
	if errors.Is(err, orders.ErrNotFound) {
		return orders.Product{}, orders.ErrProductNotFound
	}
	if err != nil {
		return orders.Product{}, orders.Unavailable(err)
	}
	return p, nil
}

func checkFields(negativePrice bool, thickness *int) error {
	if negativePrice {
		return orders.Reject(orders.KindInvalidProduct, "price per 1000 cannot be negative")
	}
	if thickness != nil && *thickness <= 0 {
		return orders.Reject(orders.KindInvalidProduct, "thickness must be a positive number of microns")
	}
	return nil
}

// SetQuantity overwrites on-hand stock (last write wins). 0 makes the product out of stock,
// anything above clears it.
func (s *Service) SetQuantity(ctx context.Context, staff auth.Identity, id string, n int) (orders.Product, error) {
	if err := admin.RequireStaff(staff); err != nil {
		return orders.Product{}, err
	}
	if n < 0 {
		return orders.Product{}, orders.Reject(orders.KindInvalidQuantity, "quantity cannot be negative")
	}
	if n > orders.MaxQuantity {
		return orders.Product{}, orders.Reject(orders.KindInvalidQuantity, "quantity cannot exceed %d", orders.MaxQuantity)
	}
	ctx, span := tracer.Start(ctx, "inventory.SetQuantity")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id), attribute.Int("product.quantity", n))

	before, err := s.Catalog.GetProduct(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		return orders.Product{}, orders.ErrProductNotFound
	}
	if err != nil {
		return orders.Product{}, orders.Unavailable(err)
	}

	p, err := s.Catalog.UpdateProduct(ctx, id, orders.ProductPatch{Quantity: &n})
	if errors.Is(err, orders.ErrNotFound) {
		return orders.Product{}, orders.ErrProductNotFound
	}
	if err != nil {
		return orders.Product{}, orders.Unavailable(err)
	}

	s.Log.Info("stock adjusted",
		zap.String("product_id", p.ID),
		zap.Int("quantity", n),
		zap.String("availability", string(p.Availability())),
		zap.String("staff_id", staff.UserID))
	s.publishAdjusted(ctx, staff, before, p)
	return p, nil
}

func (s *Service) publishAdjusted(ctx context.Context, staff auth.Identity, before, after orders.Product) {
	payload := kafkax.MustMarshal(orders.StockAdjustedPayload{
		ProductID:   after.ID,
		ProductName: after.Name,
		Quantity:    *after.Quantity,
		Before:      before.Availability(),
		After:       after.Availability(),
		StaffID:     staff.UserID,
	})
	ev := orders.NewEnvelope(orders.EventStockAdjusted, s.ServiceName, after.ID, payload)
	s.Events.Publish(ctx, orders.PartitionKey(after.ID), kafkax.MustMarshal(ev), orders.EventHeaders(orders.EventStockAdjusted)...)
}

// DeleteProduct is a hard delete. Orders keep pointing at the id and render with the fallback label.
func (s *Service) DeleteProduct(ctx context.Context, staff auth.Identity, id string) error {
	if err := admin.RequireStaff(staff); err != nil {
		return err
	}
	err := s.Catalog.DeleteProduct(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		return orders.ErrProductNotFound
	}
	if err != nil {
		return orders.Unavailable(err)
	}
	s.Log.Info("product deleted", zap.String("product_id", id), zap.String("staff_id", staff.UserID))
	return nil
}
