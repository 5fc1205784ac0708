package payments

import (
	"context"
	"fmt"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/payments/flow"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type StatusLookup interface {
	GetStatus(ctx context.Context, token string) (flow.PaymentStatus, error)
}

type SettleStore interface {
	Settle(ctx context.Context, token string, payStatus Status, orderStatus orders.Status, providerStatus int) (Settlement, error)
}

// Reconciler applies a provider callback to the payment and its order.
type Reconciler struct {
	Provider StatusLookup
	Store    SettleStore
	Cache    redis.Cmdable // optional
	Events   kafkax.Publisher
	Service  string
	Log      zerolog.Logger
}

type Outcome struct {
	OrderID  string
	Paid     bool
	Replayed bool
}

// Reconcile looks the token up at the provider and settles the payment.
// Only provider status flow.StatusPaid marks the order paid; every other
// code marks both rows failed.
func (r *Reconciler) Reconcile(ctx context.Context, token, traceID string) (Outcome, error) {
	if token == "" {
		return Outcome{}, ErrMissingToken
	}
	log := r.Log.With().Str("token", token).Logger()

	st, err := r.Provider.GetStatus(ctx, token)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrProviderLookup, err)
	}

	payStatus, orderStatus := StatusFailed, orders.StatusFailed
	if st.Paid() {
		payStatus, orderStatus = StatusCompleted, orders.StatusPaid
	}

	set, err := r.Store.Settle(ctx, token, payStatus, orderStatus, st.Status)
	if err != nil {
		return Outcome{}, fmt.Errorf("settle payment: %w", err)
	}
	out := Outcome{
		OrderID:  set.Payment.OrderID,
		Paid:     set.OrderStatus == orders.StatusPaid,
		Replayed: set.Replayed,
	}
	if set.Replayed {
		log.Info().Str("order_id", out.OrderID).Str("payment_status", string(set.Payment.Status)).
			Msg("duplicate payment callback, nothing written")
		return out, nil
	}

	log.Info().
		Str("order_id", out.OrderID).
		Str("provider_status", flow.FormatStatus(st.Status)).
		Str("order_status", string(set.OrderStatus)).
		Msg("payment settled")

	if st.Paid() && flow.Cents(st.Amount, st.Currency) != set.Payment.AmountCents {
		log.Warn().
			Int64("expected_cents", set.Payment.AmountCents).
			Str("provider_amount", st.Amount.String()).
			Msg("provider amount differs from payment amount")
	}

	if r.Cache != nil {
		if err := redisx.CacheOrderStatus(ctx, r.Cache, out.OrderID, string(set.OrderStatus)); err != nil {
			log.Warn().Err(err).Msg("cache order status")
		}
	}
	r.publish(out.OrderID, token, traceID, set, st)
	return out, nil
}

func (r *Reconciler) publish(orderID, token, traceID string, set Settlement, st flow.PaymentStatus) {
	if r.Events == nil {
		return
	}
	var env orders.Envelope
	if set.Payment.Status == StatusCompleted {
		env = orders.NewEnvelope(orders.EventPaymentAuthorized, r.Service, orderID, traceID,
			orders.PaymentAuthorizedPayload{OrderID: orderID, PaymentRef: token, AmountCents: set.Payment.AmountCents})
	} else {
		env = orders.NewEnvelope(orders.EventPaymentFailed, r.Service, orderID, traceID,
			orders.PaymentFailedPayload{OrderID: orderID, PaymentRef: token, ProviderStatus: st.Status})
	}
	orders.Publish(r.Events, env)
}
