package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/payments/flow"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var validate = validator.New()

type OrderCreator interface {
	CreateOrderBySKU(ctx context.Context, in orders.CreateInput) (orders.Created, error)
}

type PaymentCreator interface {
	CreatePayment(ctx context.Context, in flow.CreatePaymentRequest) (flow.CreatePaymentResponse, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p Payment) error
	LatestForOrder(ctx context.Context, orderID string) (Payment, error)
}

type Checkout struct {
	Orders     OrderCreator
	Provider   PaymentCreator
	Payments   PaymentStore
	Events     kafkax.Publisher
	Service    string
	ReturnURL  string
	ConfirmURL string
	Log        zerolog.Logger
}

type CheckoutRequest struct {
	ExternalID string                `json:"external_id" validate:"required,max=200"`
	Email      string                `json:"email" validate:"required,email"`
	Items      []orders.ItemInputSKU `json:"items" validate:"required,min=1,dive"`
	UserID     string                `json:"-"`
}

type CheckoutResult struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`
	Idempotent bool   `json:"idempotent"`
}

// Start creates the order, opens a provider payment for it and records the
// payment row keyed by the provider token. Replaying the same external id
// returns the pending payment of the existing order. order.created is
// published together with the order's first payment row.
func (c *Checkout) Start(ctx context.Context, req CheckoutRequest, traceID string) (CheckoutResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrInvalidCheckout, err)
	}
	req.Items = orders.MergeItems(req.Items)

	created, err := c.Orders.CreateOrderBySKU(ctx, orders.CreateInput{
		ExternalID: req.ExternalID,
		UserID:     req.UserID,
		Email:      req.Email,
		Items:      req.Items,
	})
	if err != nil {
		return CheckoutResult{}, err
	}
	res := CheckoutResult{
		OrderID:    created.OrderID,
		TotalCents: created.TotalCents,
		Currency:   created.Currency,
		Idempotent: created.Existed,
	}

	if created.Existed {
		p, err := c.Payments.LatestForOrder(ctx, created.OrderID)
		switch {
		case err == nil && p.Status == StatusPending:
			res.PaymentURL = p.RedirectURL
			return res, nil
		case err == nil:
			return res, ErrOrderClosed
		case !errors.Is(err, ErrPaymentNotFound):
			return res, err
		}
		// order ada tapi payment belum tercatat: lanjut buat payment baru
	}

	pr, err := c.Provider.CreatePayment(ctx, flow.CreatePaymentRequest{
		CommerceOrder:   created.OrderID,
		Subject:         "Order " + created.OrderID,
		Currency:        created.Currency,
		Amount:          flow.Amount(created.TotalCents, created.Currency),
		Email:           req.Email,
		URLConfirmation: c.ConfirmURL,
		URLReturn:       c.ReturnURL,
	})
	if err != nil {
		return res, fmt.Errorf("create provider payment: %w", err)
	}

	res.PaymentURL = pr.RedirectURL()
	if err := c.Payments.Create(ctx, Payment{
		ID:          uuid.NewString(),
		OrderID:     created.OrderID,
		Token:       pr.Token,
		FlowOrder:   pr.FlowOrder,
		AmountCents: created.TotalCents,
		Currency:    created.Currency,
		Status:      StatusPending,
		RedirectURL: res.PaymentURL,
	}); err != nil {
		return res, fmt.Errorf("record payment: %w", err)
	}

	// payment pertama untuk order ini: baru sekarang stok perlu di-reserve
	if c.Events != nil {
		orders.Publish(c.Events, orders.NewEnvelope(orders.EventOrderCreated, c.Service, created.OrderID, traceID,
			orders.OrderCreatedPayload{
				OrderID:    created.OrderID,
				ExternalID: req.ExternalID,
				UserID:     req.UserID,
				Items:      created.Items,
				TotalCents: created.TotalCents,
			}))
	}

	c.Log.Info().Str("order_id", created.OrderID).Int64("total_cents", created.TotalCents).
		Int64("flow_order", pr.FlowOrder).Msg("checkout started")
	return res, nil
}
