package inventory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ariefcatur/bagstore/internal/auth"
	"github.com/ariefcatur/bagstore/internal/orders"
	"github.com/ariefcatur/bagstore/internal/orders/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	staff = auth.Identity{UserID: "S1", Staff: true}
	buyer = auth.Identity{UserID: "U1"}
)

func intp(v int) *int { return &v }

func pricep(d decimal.Decimal) *decimal.Decimal { return &d }

func newService() (*Service, *memstore.Store, *memstore.Events) {
	store := memstore.New()
	events := &memstore.Events{}
	return &Service{Catalog: store, Events: events, ServiceName: "bagstore-test", Log: zap.NewNop()}, store, events
}

func TestCreateProductDefaultsToUntracked(t *testing.T) {
	svc, _, _ := newService()

	p, err := svc.CreateProduct(context.Background(), staff, orders.NewProduct{Name: "  Trash bag 60L ", PricePer1000: pricep(decimal.RequireFromString("12.50"))})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Trash bag 60L", p.Name)
	assert.Nil(t, p.Quantity)
	assert.Nil(t, p.ThicknessMicrons)
	assert.Equal(t, orders.AvailabilityUntracked, p.Availability())
}

func TestCreateProductValidation(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	price := pricep(decimal.NewFromInt(10))

	cases := []struct {
		name string
		in   orders.NewProduct
		want error
	}{
		{"empty name", orders.NewProduct{Name: "   ", PricePer1000: price}, orders.ErrInvalidProduct},
		{"missing price", orders.NewProduct{Name: "Bag"}, orders.ErrInvalidProduct},
		{"negative price", orders.NewProduct{Name: "Bag", PricePer1000: pricep(decimal.NewFromInt(-1))}, orders.ErrInvalidProduct},
		{"zero thickness", orders.NewProduct{Name: "Bag", PricePer1000: price, ThicknessMicrons: intp(0)}, orders.ErrInvalidProduct},
		{"negative quantity", orders.NewProduct{Name: "Bag", PricePer1000: price, Quantity: intp(-5)}, orders.ErrInvalidQuantity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, staff, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	ps, _ := store.ListProducts(ctx)
	assert.Empty(t, ps)

	_, err := svc.CreateProduct(ctx, staff, orders.NewProduct{Name: "Free sample", PricePer1000: pricep(decimal.Zero), Quantity: intp(0)})
	assert.NoError(t, err, "zero price and zero stock are allowed")
}

func TestCatalogWritesAreStaffOnly(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	store.PutProduct(orders.Product{ID: "P1", Name: "Bag"})

	_, err := svc.CreateProduct(ctx, buyer, orders.NewProduct{Name: "Bag"})
	assert.ErrorIs(t, err, orders.ErrForbidden)
	_, err = svc.SetQuantity(ctx, buyer, "P1", 5)
	assert.ErrorIs(t, err, orders.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, auth.Anonymous, "P1"), orders.ErrUnauthenticated)

	views, err := svc.ListCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, views, 1, "catalog read needs no identity")
}

func TestSetQuantityDrivesAvailability(t *testing.T) {
	svc, store, events := newService()
	ctx := context.Background()
	store.PutProduct(orders.Product{ID: "P1", Name: "Bag", Quantity: intp(10)})

	p, err := svc.SetQuantity(ctx, staff, "P1", 0)
	require.NoError(t, err)
	assert.Equal(t, orders.AvailabilityOutOfStock, p.Availability())

	views, err := svc.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, orders.AvailabilityOutOfStock, views[0].Availability)
	assert.False(t, views[0].Orderable)

	p, err = svc.SetQuantity(ctx, staff, "P1", 5)
	require.NoError(t, err)
	assert.Equal(t, orders.AvailabilityInStock, p.Availability())

	sent := events.Sent(orders.EventStockAdjusted)
	require.Len(t, sent, 2)
	var first, second orders.StockAdjustedPayload
	require.NoError(t, json.Unmarshal(sent[0].Payload, &first))
	require.NoError(t, json.Unmarshal(sent[1].Payload, &second))
	assert.Equal(t, orders.AvailabilityInStock, first.Before)
	assert.Equal(t, orders.AvailabilityOutOfStock, first.After)
	assert.Equal(t, orders.AvailabilityOutOfStock, second.Before)
	assert.Equal(t, orders.AvailabilityInStock, second.After)
	assert.Equal(t, 5, second.Quantity)
}

func TestSetQuantityRejects(t *testing.T) {
	svc, store, events := newService()
	ctx := context.Background()
	store.PutProduct(orders.Product{ID: "P1", Name: "Bag", Quantity: intp(10)})

	_, err := svc.SetQuantity(ctx, staff, "P1", -1)
	assert.ErrorIs(t, err, orders.ErrInvalidQuantity)
	_, err = svc.SetQuantity(ctx, staff, "missing", 1)
	assert.ErrorIs(t, err, orders.ErrProductNotFound)

	p, _ := store.GetProduct(ctx, "P1")
	assert.Equal(t, 10, *p.Quantity)
	assert.Empty(t, events.Sent(""))
}

func TestUpdateProductIgnoresQuantity(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	store.PutProduct(orders.Product{ID: "P1", Name: "Bag", Quantity: intp(10)})

	color := "black"
	p, err := svc.UpdateProduct(ctx, staff, "P1", orders.ProductPatch{Color: &color, Quantity: intp(0)})
	require.NoError(t, err)
	assert.Equal(t, "black", p.Color)
	assert.Equal(t, 10, *p.Quantity)

	empty := " "
	_, err = svc.UpdateProduct(ctx, staff, "P1", orders.ProductPatch{Name: &empty})
	assert.ErrorIs(t, err, orders.ErrInvalidProduct)
	_, err = svc.UpdateProduct(ctx, staff, "missing", orders.ProductPatch{Color: &color})
	assert.ErrorIs(t, err, orders.ErrProductNotFound)
}

func TestDeleteProductIsHard(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	store.PutProduct(orders.Product{ID: "P1", Name: "Bag"})
	_, err := store.InsertOrder(ctx, orders.Order{ProductID: "P1", BuyerID: "U1", Quantity: 1, Status: orders.StatusPending}, false)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, staff, "P1"))
	_, err = store.GetProduct(ctx, "P1")
	assert.ErrorIs(t, err, orders.ErrNotFound)

	n, _ := store.CountUnnotified(ctx)
	assert.Equal(t, 1, n, "orders survive product deletion")

	assert.ErrorIs(t, svc.DeleteProduct(ctx, staff, "P1"), orders.ErrProductNotFound)
}
