package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// Topics consumed by the inventory worker.
var Topics = []string{
	orders.TopicOrderCreated,
	orders.TopicPaymentAuthorized,
	orders.TopicPaymentFailed,
}

type Reservations interface {
	AlreadyReserved(ctx context.Context, orderID string, itemCount int) (bool, error)
	ReserveAll(ctx context.Context, orderID string, items []orders.ItemQty) (bool, []orders.StockRejectedDetail, error)
	CommitAll(ctx context.Context, orderID string) (int, error)
	ReleaseAll(ctx context.Context, orderID string) (int, error)
}

type Service struct {
	Repo        Reservations
	Redis       redis.Cmdable
	Events      kafkax.Publisher // StockReserved / StockRejected
	ServiceName string
	Log         zerolog.Logger
}

// Handle dipasang sebagai handler consumer. Returning nil commits the offset.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// pesan rusak tidak akan pernah sukses; commit dan lanjut
		s.Log.Error().Err(err).Str("topic", m.Topic).Int64("offset", m.Offset).Msg("drop undecodable event")
		return nil
	}

	var h func(context.Context, orders.Envelope) error
	switch env.EventType {
	case orders.EventOrderCreated:
		h = s.orderCreated
	case orders.EventPaymentAuthorized:
		h = s.paymentAuthorized
	case orders.EventPaymentFailed:
		h = s.paymentFailed
	default:
		return nil
	}

	// dedup via Redis (pakai event_id); dilepas lagi kalau gagal supaya retry dari consumer tetap diproses
	dkey := redisx.DedupKey(s.ServiceName, env.EventID)
	first, err := redisx.MarkOnce(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if !first {
		s.Log.Debug().Str("event_id", env.EventID).Msg("duplicate event skipped")
		return nil
	}
	if err := h(ctx, env); err != nil {
		if uerr := redisx.Unmark(ctx, s.Redis, dkey); uerr != nil {
			s.Log.Warn().Err(uerr).Str("event_id", env.EventID).Msg("release dedup key")
		}
		return fmt.Errorf("%s %s: %w", env.EventType, env.CorrelationID, err)
	}
	return nil
}

func (s *Service) orderCreated(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}
	items := make([]orders.ItemQty, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, orders.ItemQty{ProductID: it.ProductID, Qty: it.Qty})
	}

	// idempotent short-circuit: kalau sudah di-reserve sebelumnya
	done, err := s.Repo.AlreadyReserved(ctx, p.OrderID, len(items))
	if err != nil {
		return err
	}
	if done {
		s.publish(orders.EventStockReserved, p.OrderID, env.TraceID, orders.StockReservedPayload{OrderID: p.OrderID, Items: items})
		return nil
	}

	ok, details, err := s.Repo.ReserveAll(ctx, p.OrderID, items)
	if err != nil {
		return err
	}
	if !ok {
		s.Log.Warn().Str("order_id", p.OrderID).Int("short_items", len(details)).Msg("stock rejected")
		s.publish(orders.EventStockRejected, p.OrderID, env.TraceID, orders.StockRejectedPayload{
			OrderID: p.OrderID, Reason: "OUT_OF_STOCK", Details: details,
		})
		return nil
	}
	s.Log.Info().Str("order_id", p.OrderID).Int("items", len(items)).Msg("stock reserved")
	s.publish(orders.EventStockReserved, p.OrderID, env.TraceID, orders.StockReservedPayload{OrderID: p.OrderID, Items: items})
	return nil
}

func (s *Service) paymentAuthorized(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.PaymentAuthorizedPayload](env.Payload)
	if err != nil {
		return err
	}
	n, err := s.Repo.CommitAll(ctx, p.OrderID)
	if err != nil {
		return err
	}
	s.Log.Info().Str("order_id", p.OrderID).Int("reservations", n).Msg("stock committed")
	return nil
}

func (s *Service) paymentFailed(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.PaymentFailedPayload](env.Payload)
	if err != nil {
		return err
	}
	n, err := s.Repo.ReleaseAll(ctx, p.OrderID)
	if err != nil {
		return err
	}
	s.Log.Info().Str("order_id", p.OrderID).Int("reservations", n).Msg("stock released")
	return nil
}

func (s *Service) publish(eventType, orderID, traceID string, payload any) {
	if s.Events == nil {
		return
	}
	orders.Publish(s.Events, orders.NewEnvelope(eventType, s.ServiceName, orderID, traceID, payload))
}
