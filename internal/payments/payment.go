package payments

import (
	"errors"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/payments/flow"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrMissingToken    = errors.New("missing payment token")
	ErrProviderLookup  = errors.New("provider status lookup failed")
	ErrInvalidCheckout = errors.New("invalid checkout request")
	ErrOrderClosed     = errors.New("order is already settled")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ProviderRejected reports whether err carries a 4xx answer from the
// provider, i.e. the token itself is bad and retrying cannot help.
func ProviderRejected(err error) bool {
	var apiErr *flow.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatus >= 400 && apiErr.HTTPStatus < 500
}

func (s Status) Final() bool { return s == StatusCompleted || s == StatusFailed }

type Payment struct {
	ID             string
	OrderID        string
	Token          string
	FlowOrder      int64
	AmountCents    int64
	Currency       string
	Status         Status
	ProviderStatus *int
	RedirectURL    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Settlement is what Store.Settle observed and wrote.
type Settlement struct {
	Payment     Payment
	OrderStatus orders.Status
	// Replayed: payment was already final, nothing was written.
	Replayed bool
}
