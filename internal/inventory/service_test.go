package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReservations struct {
	already   bool
	reserveOK bool
	details   []orders.StockRejectedDetail
	err       error

	reserved  [][]orders.ItemQty
	committed []string
	released  []string
}

func (f *fakeReservations) AlreadyReserved(context.Context, string, int) (bool, error) {
	return f.already, nil
}

func (f *fakeReservations) ReserveAll(_ context.Context, _ string, items []orders.ItemQty) (bool, []orders.StockRejectedDetail, error) {
	if f.err != nil {
		return false, nil, f.err
	}
	f.reserved = append(f.reserved, items)
	return f.reserveOK, f.details, nil
}

func (f *fakeReservations) CommitAll(_ context.Context, orderID string) (int, error) {
	f.committed = append(f.committed, orderID)
	return 1, nil
}

func (f *fakeReservations) ReleaseAll(_ context.Context, orderID string) (int, error) {
	f.released = append(f.released, orderID)
	return 1, nil
}

type recordingPublisher struct{ msgs []kafkago.Message }

func (p *recordingPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.msgs = append(p.msgs, kafkago.Message{Key: key, Value: value, Headers: headers})
}

func newService(t *testing.T, repo *fakeReservations) (*Service, *recordingPublisher) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	pub := &recordingPublisher{}
	return &Service{Repo: repo, Redis: rdb, Events: pub, ServiceName: "inventory", Log: zerolog.Nop()}, pub
}

func message(t *testing.T, eventType string, payload any) kafkago.Message {
	t.Helper()
	env := orders.NewEnvelope(eventType, "store-api", "o-1", "trace-1", payload)
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return kafkago.Message{Value: b}
}

func orderCreated(t *testing.T) kafkago.Message {
	return message(t, orders.EventOrderCreated, orders.OrderCreatedPayload{
		OrderID: "o-1",
		Items:   []orders.ItemPrice{{ProductID: "p-1", Qty: 2, PriceCents: 100}},
	})
}

func TestHandle_OrderCreatedReserves(t *testing.T) {
	repo := &fakeReservations{reserveOK: true}
	svc, pub := newService(t, repo)

	require.NoError(t, svc.Handle(context.Background(), orderCreated(t)))
	assert.Equal(t, [][]orders.ItemQty{{{ProductID: "p-1", Qty: 2}}}, repo.reserved)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, orders.EventStockReserved, kafkax.HeaderValue(pub.msgs[0], kafkax.HeaderEventType))
	assert.Equal(t, []byte("o-1"), pub.msgs[0].Key)
}

func TestHandle_OrderCreatedRejected(t *testing.T) {
	repo := &fakeReservations{details: []orders.StockRejectedDetail{{ProductID: "p-1", Required: 2, Available: 1}}}
	svc, pub := newService(t, repo)

	require.NoError(t, svc.Handle(context.Background(), orderCreated(t)))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, orders.EventStockRejected, kafkax.HeaderValue(pub.msgs[0], kafkax.HeaderEventType))

	var env orders.Envelope
	require.NoError(t, json.Unmarshal(pub.msgs[0].Value, &env))
	p, err := kafkax.UnwrapPayload[orders.StockRejectedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, "OUT_OF_STOCK", p.Reason)
	assert.Equal(t, "trace-1", env.TraceID)
}

func TestHandle_AlreadyReservedRepublishes(t *testing.T) {
	repo := &fakeReservations{already: true}
	svc, pub := newService(t, repo)

	require.NoError(t, svc.Handle(context.Background(), orderCreated(t)))
	assert.Empty(t, repo.reserved)
	assert.Len(t, pub.msgs, 1)
}

func TestHandle_DuplicateEventSkipped(t *testing.T) {
	repo := &fakeReservations{reserveOK: true}
	svc, pub := newService(t, repo)
	m := orderCreated(t)

	require.NoError(t, svc.Handle(context.Background(), m))
	require.NoError(t, svc.Handle(context.Background(), m))
	assert.Len(t, repo.reserved, 1)
	assert.Len(t, pub.msgs, 1)
}

func TestHandle_FailureReleasesDedup(t *testing.T) {
	repo := &fakeReservations{err: errors.New("db down")}
	svc, _ := newService(t, repo)
	m := orderCreated(t)

	assert.ErrorContains(t, svc.Handle(context.Background(), m), "db down")

	repo.err = nil
	repo.reserveOK = true
	require.NoError(t, svc.Handle(context.Background(), m))
	assert.Len(t, repo.reserved, 1)
}

func TestHandle_PaymentEvents(t *testing.T) {
	repo := &fakeReservations{}
	svc, pub := newService(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.Handle(ctx, message(t, orders.EventPaymentAuthorized, orders.PaymentAuthorizedPayload{OrderID: "o-1"})))
	require.NoError(t, svc.Handle(ctx, message(t, orders.EventPaymentFailed, orders.PaymentFailedPayload{OrderID: "o-2"})))

	assert.Equal(t, []string{"o-1"}, repo.committed)
	assert.Equal(t, []string{"o-2"}, repo.released)
	assert.Empty(t, pub.msgs)
}

func TestHandle_IgnoresUnknownAndGarbage(t *testing.T) {
	repo := &fakeReservations{}
	svc, pub := newService(t, repo)

	assert.NoError(t, svc.Handle(context.Background(), kafkago.Message{Value: []byte("{")}))
	assert.NoError(t, svc.Handle(context.Background(), message(t, orders.EventStockReserved, orders.StockReservedPayload{})))
	assert.Empty(t, pub.msgs)
}
