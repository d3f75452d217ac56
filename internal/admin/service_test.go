package admin

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/bagstore/internal/auth"
	"github.com/ariefcatur/bagstore/internal/orders"
	"github.com/ariefcatur/bagstore/internal/orders/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	staff = auth.Identity{UserID: "S1", Email: "ops@example.com", Staff: true}
	buyer = auth.Identity{UserID: "U1", Email: "u1@example.com"}
)

type fakeAlerts struct {
	alerts []orders.StaffAlert
	err    error
}

func (f fakeAlerts) Recent(_ context.Context, n int) ([]orders.StaffAlert, error) {
	if n > len(f.alerts) {
		n = len(f.alerts)
	}
	return f.alerts[:n], f.err
}

func newService(t *testing.T) (*Service, *memstore.Store, *memstore.Events) {
	t.Helper()
	store := memstore.New()
	events := &memstore.Events{}
	return &Service{
		Catalog:     store,
		Ledger:      store,
		Alerts:      fakeAlerts{},
		Events:      events,
		ServiceName: "bagstore-test",
		Log:         zap.NewNop(),
	}, store, events
}

func placeRaw(t *testing.T, s *memstore.Store, productID, buyerID string, qty int) orders.Order {
	t.Helper()
	o, err := s.InsertOrder(context.Background(), orders.Order{
		ProductID: productID,
		BuyerID:   buyerID,
		Quantity:  qty,
		Status:    orders.StatusPending,
		Total:     decimal.Zero,
	}, false)
	require.NoError(t, err)
	return o
}

func TestStaffGate(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CountUnnotified(ctx, auth.Anonymous)
	assert.ErrorIs(t, err, orders.ErrUnauthenticated)
	_, err = svc.CountUnnotified(ctx, buyer)
	assert.ErrorIs(t, err, orders.ErrForbidden)
	_, err = svc.MarkAllUnnotifiedAsNotified(ctx, buyer)
	assert.ErrorIs(t, err, orders.ErrForbidden)
	_, err = svc.ListOrders(ctx, buyer)
	assert.ErrorIs(t, err, orders.ErrForbidden)
	_, err = svc.AdvanceStatus(ctx, buyer, "x", orders.StatusPaid)
	assert.ErrorIs(t, err, orders.ErrForbidden)
	_, err = svc.RecentAlerts(ctx, buyer, 10)
	assert.ErrorIs(t, err, orders.ErrForbidden)
}

func TestMarkAllUnnotifiedTwice(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	placeRaw(t, store, "P1", "U1", 1)
	placeRaw(t, store, "P1", "U2", 2)

	n, err := svc.CountUnnotified(ctx, staff)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	marked, err := svc.MarkAllUnnotifiedAsNotified(ctx, staff)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	marked, err = svc.MarkAllUnnotifiedAsNotified(ctx, staff)
	require.NoError(t, err)
	assert.Zero(t, marked)

	n, err = svc.CountUnnotified(ctx, staff)
	require.NoError(t, err)
	assert.Zero(t, n)

	placeRaw(t, store, "P1", "U3", 1)
	n, _ = svc.CountUnnotified(ctx, staff)
	assert.Equal(t, 1, n)
}

func TestListOrdersJoinsNamesAndFallsBackForDeletedProduct(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	store.PutProduct(orders.Product{ID: "P1", Name: "Trash bag 60L"})
	store.PutProduct(orders.Product{ID: "P2", Name: "Shopping bag"})
	first := placeRaw(t, store, "P1", "U1", 1)
	second := placeRaw(t, store, "P2", "U1", 1)
	require.NoError(t, store.DeleteProduct(ctx, "P2"))

	list, err := svc.ListOrders(ctx, staff)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, "Product ID: P2", list[0].ProductName)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, "Trash bag 60L", list[1].ProductName)
}

type brokenCatalog struct{ *memstore.Store }

func (brokenCatalog) ListProducts(context.Context) ([]orders.Product, error) {
	return nil, errors.New("catalog down")
}

func TestListOrdersSurvivesCatalogOutage(t *testing.T) {
	svc, store, _ := newService(t)
	store.PutProduct(orders.Product{ID: "P1", Name: "Trash bag 60L"})
	placeRaw(t, store, "P1", "U1", 1)
	svc.Catalog = brokenCatalog{store}

	list, err := svc.ListOrders(context.Background(), staff)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Product ID: P1", list[0].ProductName)
}

func TestAdvanceStatus(t *testing.T) {
	svc, store, events := newService(t)
	ctx := context.Background()
	o := placeRaw(t, store, "P1", "U1", 1)

	got, err := svc.AdvanceStatus(ctx, staff, o.ID, orders.StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPaid, got.Status)

	_, err = svc.AdvanceStatus(ctx, staff, o.ID, orders.StatusCancelled)
	assert.ErrorIs(t, err, orders.ErrInvalidTransition)

	got, err = svc.AdvanceStatus(ctx, staff, o.ID, orders.StatusFulfilled)
	require.NoError(t, err)
	assert.True(t, got.Status.Terminal())

	_, err = svc.AdvanceStatus(ctx, staff, o.ID, orders.Status("shipped"))
	assert.ErrorIs(t, err, orders.ErrInvalidTransition)
	_, err = svc.AdvanceStatus(ctx, staff, "missing", orders.StatusPaid)
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)

	sent := events.Sent(orders.EventOrderStatusChanged)
	require.Len(t, sent, 2)
	var p orders.OrderStatusChangedPayload
	require.NoError(t, json.Unmarshal(sent[1].Payload, &p))
	assert.Equal(t, orders.OrderStatusChangedPayload{OrderID: o.ID, From: orders.StatusPaid, To: orders.StatusFulfilled, StaffID: "S1"}, p)
}

func TestRecentAlerts(t *testing.T) {
	svc, _, _ := newService(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.Alerts = fakeAlerts{alerts: []orders.StaffAlert{
		{EventID: "e2", Kind: orders.AlertOutOfStock, ProductID: "P1", At: at},
		{EventID: "e1", Kind: orders.AlertNewOrder, OrderID: "O1", At: at},
	}}

	got, err := svc.RecentAlerts(context.Background(), staff, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e2", got[0].EventID)

	svc.Alerts = fakeAlerts{err: errors.New("redis down")}
	_, err = svc.RecentAlerts(context.Background(), staff, 5)
	assert.ErrorIs(t, err, orders.ErrStoreUnavailable)
}
