package notify

import (
	"context"
	"errors"
	"testing"

	kafkax "github.com/ariefcatur/bagstore/internal/kafka"
	"github.com/ariefcatur/bagstore/internal/orders"
	"github.com/ariefcatur/bagstore/internal/orders/memstore"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memDedup struct {
	seen map[string]bool
	err  error
}

func (d *memDedup) FirstSeen(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *memDedup) Forget(_ context.Context, id string) error {
	delete(d.seen, id)
	return nil
}

type failingSink struct{ calls int }

func (f *failingSink) Push(context.Context, orders.StaffAlert) error {
	f.calls++
	return errors.New("redis down")
}

func newService() (*Service, *memstore.Alerts, *memDedup) {
	alerts := &memstore.Alerts{Size: 10}
	dedup := &memDedup{seen: map[string]bool{}}
	return &Service{Alerts: alerts, Dedup: dedup, Log: zap.NewNop()}, alerts, dedup
}

func message(eventType, correlationID string, payload any) kafkago.Message {
	env := orders.NewEnvelope(eventType, "bagstore-test", correlationID, kafkax.MustMarshal(payload))
	return kafkago.Message{
		Key:     orders.PartitionKey(correlationID),
		Value:   kafkax.MustMarshal(env),
		Headers: orders.EventHeaders(eventType),
	}
}

func TestOrderPlacedBecomesNewOrderAlert(t *testing.T) {
	svc, alerts, _ := newService()
	ctx := context.Background()
	m := message(orders.EventOrderPlaced, "O1", orders.OrderPlacedPayload{OrderID: "O1", ProductID: "P1", Quantity: 200, Total: "20"})

	require.NoError(t, svc.HandleOrderPlaced(ctx, m))

	got, _ := alerts.Recent(ctx, 0)
	require.Len(t, got, 1)
	assert.Equal(t, orders.AlertNewOrder, got[0].Kind)
	assert.Equal(t, "O1", got[0].OrderID)
	assert.Contains(t, got[0].Message, "200 units")
	assert.NotEmpty(t, got[0].EventID)
}

func TestRedeliveredEventAlertsOnce(t *testing.T) {
	svc, alerts, _ := newService()
	ctx := context.Background()
	m := message(orders.EventOrderPlaced, "O1", orders.OrderPlacedPayload{OrderID: "O1", ProductID: "P1", Quantity: 1})

	require.NoError(t, svc.Handle(ctx, m))
	require.NoError(t, svc.Handle(ctx, m))

	got, _ := alerts.Recent(ctx, 0)
	assert.Len(t, got, 1)
}

func TestStockAdjustedAlertsOnlyOnFlip(t *testing.T) {
	svc, alerts, _ := newService()
	ctx := context.Background()

	cases := []struct {
		before, after orders.Availability
		want          orders.AlertKind
	}{
		{orders.AvailabilityInStock, orders.AvailabilityOutOfStock, orders.AlertOutOfStock},
		{orders.AvailabilityOutOfStock, orders.AvailabilityInStock, orders.AlertBackInStock},
		{orders.AvailabilityInStock, orders.AvailabilityInStock, ""},
		{orders.AvailabilityOutOfStock, orders.AvailabilityOutOfStock, ""},
	}
	for _, tc := range cases {
		n0, _ := alerts.Recent(ctx, 0)
		m := message(orders.EventStockAdjusted, "P1", orders.StockAdjustedPayload{
			ProductID: "P1", ProductName: "Trash bag", Before: tc.before, After: tc.after,
		})
		require.NoError(t, svc.HandleStockAdjusted(ctx, m))

		got, _ := alerts.Recent(ctx, 0)
		if tc.want == "" {
			assert.Len(t, got, len(n0), "%s -> %s", tc.before, tc.after)
			continue
		}
		require.Len(t, got, len(n0)+1)
		assert.Equal(t, tc.want, got[0].Kind)
		assert.Equal(t, "P1", got[0].ProductID)
	}
}

func TestFailedPushCanBeRetried(t *testing.T) {
	svc, _, dedup := newService()
	sink := &failingSink{}
	svc.Alerts = sink
	ctx := context.Background()
	m := message(orders.EventOrderPlaced, "O1", orders.OrderPlacedPayload{OrderID: "O1"})

	err := svc.Handle(ctx, m)
	require.Error(t, err)
	assert.False(t, kafkax.IsPermanent(err), "the consumer retries this message in place")
	assert.Empty(t, dedup.seen, "event must not stay marked when the alert was lost")
	assert.Error(t, svc.Handle(ctx, m))
	assert.Equal(t, 2, sink.calls)
}

func TestMalformedMessagesAreNotRetried(t *testing.T) {
	svc, alerts, _ := newService()
	ctx := context.Background()

	err := svc.Handle(ctx, kafkago.Message{Value: []byte("not json")})
	assert.True(t, kafkax.IsPermanent(err))

	env := orders.NewEnvelope(orders.EventOrderPlaced, "bagstore-test", "O1", []byte(`"oops"`))
	err = svc.HandleOrderPlaced(ctx, kafkago.Message{Value: kafkax.MustMarshal(env)})
	assert.True(t, kafkax.IsPermanent(err))

	got, _ := alerts.Recent(ctx, 0)
	assert.Empty(t, got)
}

func TestUnknownEventsAreIgnored(t *testing.T) {
	svc, alerts, _ := newService()
	ctx := context.Background()
	m := message(orders.EventOrderStatusChanged, "O1", orders.OrderStatusChangedPayload{OrderID: "O1"})

	require.NoError(t, svc.Handle(ctx, m))
	require.NoError(t, svc.HandleOrderPlaced(ctx, m))
	got, _ := alerts.Recent(ctx, 0)
	assert.Empty(t, got)

	assert.Error(t, svc.Handle(ctx, kafkago.Message{Value: []byte("not json")}))
}

func TestDedupFailureLeavesOffsetUncommitted(t *testing.T) {
	svc, _, dedup := newService()
	dedup.err = errors.New("redis down")
	m := message(orders.EventOrderPlaced, "O1", orders.OrderPlacedPayload{OrderID: "O1"})

	assert.Error(t, svc.Handle(context.Background(), m))
}
